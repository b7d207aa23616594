// Package annotations overlays checker diagnostics onto a live document.
package annotations

import (
	"context"

	"github.com/uber-go/tally"
	"github.com/uber/mzn-playground/src/playground/entity"
	"github.com/uber/mzn-playground/src/playground/internal/annotation"
	"github.com/uber/mzn-playground/src/playground/internal/document"
	perrors "github.com/uber/mzn-playground/src/playground/internal/errors"
	"github.com/uber/mzn-playground/src/playground/internal/position"
	"github.com/uber/mzn-playground/src/playground/mapper"
	"go.lsp.dev/protocol"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_nameKey            = "annotations"
	_strictPositionsKey = "annotations.strictPositions"
)

// Module provides the annotation controller.
var Module = fx.Provide(New)

//go:generate mockgen -source=annotations.go -destination=annotationsmock/annotations_mock.go -package=annotationsmock

// Controller replaces the annotations of a document with those derived from a batch of diagnostics.
type Controller interface {
	// ApplyDiagnostics translates diagnostics reported for text into annotations and
	// replaces every annotation on doc with them in a single update. text is the snapshot
	// the checker ran on and may be older than the document.
	ApplyDiagnostics(ctx context.Context, text string, diagnostics []entity.Diagnostic, doc *document.Document) error
	// ApplyProtocolDiagnostics is ApplyDiagnostics for diagnostics published over LSP.
	ApplyProtocolDiagnostics(ctx context.Context, text string, params protocol.PublishDiagnosticsParams, doc *document.Document) error
	// Annotations returns the annotations currently attached to doc.
	Annotations(doc *document.Document) annotation.Set
	// Decorations returns the non-empty annotations of doc as rendered marks.
	Decorations(doc *document.Document) []entity.Decoration
}

// Params are inbound parameters to initialize the controller.
type Params struct {
	fx.In

	Config config.Provider
	Logger *zap.SugaredLogger
	Stats  tally.Scope
}

type controller struct {
	translate position.Translator
	logger    *zap.SugaredLogger
	stats     tally.Scope
}

// New creates an annotation Controller.
func New(p Params) Controller {
	var strict bool
	if err := p.Config.Get(_strictPositionsKey).Populate(&strict); err != nil {
		strict = false
	}

	translate := position.Translate
	if strict {
		translate = position.TranslateStrict
	}

	return &controller{
		translate: translate,
		logger:    p.Logger.With("plugin", _nameKey),
		stats:     p.Stats.SubScope(_nameKey),
	}
}

func (c *controller) ApplyDiagnostics(ctx context.Context, text string, diagnostics []entity.Diagnostic, doc *document.Document) error {
	if doc == nil {
		return &perrors.NilDocumentError{}
	}

	// Positions are translated against the snapshot. The field clamps them to the live
	// document when the transaction is applied.
	effects := make([]document.Effect, 0, len(diagnostics)+1)
	effects = append(effects, annotation.ClearCommand())
	for _, d := range diagnostics {
		from := c.translate(text, d.Location.FirstLine, d.Location.FirstColumn)
		to := c.translate(text, d.Location.LastLine, d.Location.LastColumn) + 1
		effects = append(effects, annotation.AddCommand(annotation.Annotation{
			Range:       annotation.Range{From: from, To: to},
			Severity:    d.Severity,
			DisplayText: d.DisplayText(),
		}))
	}

	tr := document.Transaction{Effects: effects}
	if !doc.HasField(annotation.FieldKey) {
		tr.AppendFields = []document.Field{annotation.Field{}}
	}
	if err := doc.Dispatch(tr); err != nil {
		return err
	}

	c.stats.Counter("applied").Inc(1)
	c.stats.Gauge("annotations").Update(float64(len(diagnostics)))
	c.logger.Debugw("applied diagnostics", "document", doc.URI(), "count", len(diagnostics))
	return nil
}

func (c *controller) ApplyProtocolDiagnostics(ctx context.Context, text string, params protocol.PublishDiagnosticsParams, doc *document.Document) error {
	return c.ApplyDiagnostics(ctx, text, mapper.ProtocolToDiagnostics(text, params), doc)
}

func (c *controller) Annotations(doc *document.Document) annotation.Set {
	if doc == nil {
		return annotation.Empty()
	}
	return annotation.FromDocument(doc)
}

func (c *controller) Decorations(doc *document.Document) []entity.Decoration {
	if doc == nil {
		return nil
	}
	set := annotation.FromDocument(doc).Clamp(doc.Len()).Filter(annotation.NonEmpty)

	decorations := make([]entity.Decoration, 0, set.Len())
	for _, a := range set.All() {
		decorations = append(decorations, entity.Decoration{
			From:  a.Range.From,
			To:    a.Range.To,
			Class: a.Severity.Class(),
			Title: a.DisplayText,
		})
	}
	return decorations
}
