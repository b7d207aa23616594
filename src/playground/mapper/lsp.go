// Package mapper converts between playground types and Language Server Protocol types.
package mapper

import (
	"path/filepath"

	"fortio.org/safecast"
	"github.com/uber/mzn-playground/src/playground/entity"
	"github.com/uber/mzn-playground/src/playground/internal/annotation"
	"github.com/uber/mzn-playground/src/playground/internal/document"
	"github.com/uber/mzn-playground/src/playground/internal/position"
	"go.lsp.dev/protocol"
)

// DiagnosticSource is reported as the source of every diagnostic produced by the playground.
const DiagnosticSource = "minizinc"

// ProtocolToDiagnostics converts LSP diagnostics published for text into checker
// diagnostics. LSP ranges are 0-based with an exclusive end, checker locations are 1-based
// and inclusive. Diagnostics that are neither errors nor warnings are dropped.
func ProtocolToDiagnostics(text string, params protocol.PublishDiagnosticsParams) []entity.Diagnostic {
	filename := ""
	if params.URI != "" {
		filename = filepath.Base(params.URI.Filename())
	}

	table := position.NewLineTable(text)
	result := make([]entity.Diagnostic, 0, len(params.Diagnostics))
	for _, d := range params.Diagnostics {
		severity, ok := protocolToSeverity(d.Severity)
		if !ok {
			continue
		}
		loc := protocolToLocation(table, d.Range)
		loc.Filename = filename
		result = append(result, entity.Diagnostic{
			Severity: severity,
			What:     d.Source,
			Message:  d.Message,
			Location: loc,
		})
	}
	return result
}

// protocolToLocation converts r into an inclusive location. An end at the first character
// of a later line ends on the newline of the line before it. An empty range marks the
// character at its start.
func protocolToLocation(table *position.LineTable, r protocol.Range) entity.Location {
	loc := entity.Location{
		FirstLine:   int(r.Start.Line) + 1,
		FirstColumn: int(r.Start.Character) + 1,
		LastLine:    int(r.End.Line) + 1,
		LastColumn:  int(r.End.Character),
	}
	switch {
	case r.Start == r.End:
		loc.LastLine, loc.LastColumn = loc.FirstLine, loc.FirstColumn
	case r.End.Character == 0 && r.End.Line > r.Start.Line:
		loc.LastLine, loc.LastColumn = table.Position(table.Offset(loc.LastLine, 1) - 1)
	}
	return loc
}

// AnnotationsToProtocol converts the annotations of a document with the given text into LSP diagnostics.
func AnnotationsToProtocol(text string, set annotation.Set) []protocol.Diagnostic {
	table := position.NewLineTable(text)

	result := make([]protocol.Diagnostic, 0, set.Len())
	for _, a := range set.All() {
		result = append(result, protocol.Diagnostic{
			Range: protocol.Range{
				Start: offsetToPosition(table, a.Range.From),
				End:   offsetToPosition(table, a.Range.To),
			},
			Severity: severityToProtocol(a.Severity),
			Source:   DiagnosticSource,
			Message:  a.DisplayText,
		})
	}
	return result
}

// DocumentToPublishParams builds the diagnostics notification for the current state of doc.
func DocumentToPublishParams(doc *document.Document) protocol.PublishDiagnosticsParams {
	return protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(doc.URI()),
		Version:     toUint32(int(doc.Version())),
		Diagnostics: AnnotationsToProtocol(doc.Text(), annotation.FromDocument(doc)),
	}
}

func offsetToPosition(table *position.LineTable, offset int) protocol.Position {
	line, column := table.Position(offset)
	return protocol.Position{
		Line:      toUint32(line - 1),
		Character: toUint32(column - 1),
	}
}

// toUint32 converts n, mapping values outside the uint32 range to 0.
func toUint32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0
	}
	return v
}

func protocolToSeverity(s protocol.DiagnosticSeverity) (entity.Severity, bool) {
	switch s {
	case protocol.DiagnosticSeverityError:
		return entity.SeverityError, true
	case protocol.DiagnosticSeverityWarning:
		return entity.SeverityWarning, true
	default:
		return "", false
	}
}

func severityToProtocol(s entity.Severity) protocol.DiagnosticSeverity {
	if s == entity.SeverityError {
		return protocol.DiagnosticSeverityError
	}
	return protocol.DiagnosticSeverityWarning
}
