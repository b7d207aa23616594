package annotation

import (
	"github.com/uber/mzn-playground/src/playground/internal/document"
)

// FieldKey identifies the annotation field on a document.
const FieldKey = "mzn-annotations"

// CommandKind selects the operation a Command performs.
type CommandKind int

const (
	// CommandClear removes every annotation.
	CommandClear CommandKind = iota
	// CommandAdd adds the command's annotation.
	CommandAdd
)

// Command is a document effect understood by the annotation field.
type Command struct {
	Kind       CommandKind
	Annotation Annotation
}

// ClearCommand returns a command that removes every annotation.
func ClearCommand() Command {
	return Command{Kind: CommandClear}
}

// AddCommand returns a command that adds an annotation.
func AddCommand(a Annotation) Command {
	return Command{Kind: CommandAdd, Annotation: a}
}

// Reduce returns the set produced by applying cmd to s.
func Reduce(s Set, cmd Command) Set {
	switch cmd.Kind {
	case CommandClear:
		return s.Clear()
	case CommandAdd:
		return s.Add(cmd.Annotation.Range, cmd.Annotation.Severity, cmd.Annotation.DisplayText)
	default:
		return s
	}
}

// Remap returns s mapped through changes.
func Remap(s Set, changes document.ChangeSet) Set {
	return s.Remap(changes)
}

// Field attaches an annotation Set to a document.
type Field struct{}

var (
	_ document.Field   = Field{}
	_ document.Bounded = Field{}
)

// Key implements document.Field.
func (Field) Key() string {
	return FieldKey
}

// Init implements document.Field.
func (Field) Init() interface{} {
	return Empty()
}

// Reduce implements document.Field. Effects other than Command are ignored.
func (Field) Reduce(state interface{}, effect document.Effect) interface{} {
	cmd, ok := effect.(Command)
	if !ok {
		return state
	}
	return Reduce(state.(Set), cmd)
}

// Remap implements document.Field.
func (Field) Remap(state interface{}, changes document.ChangeSet) interface{} {
	return Remap(state.(Set), changes)
}

// Bound implements document.Bounded.
func (Field) Bound(state interface{}, length int) interface{} {
	return state.(Set).Clamp(length)
}

// FromDocument returns the annotations attached to doc, or an empty set if the field
// has not been attached yet.
func FromDocument(doc *document.Document) Set {
	state, ok := doc.Field(FieldKey)
	if !ok {
		return Empty()
	}
	return state.(Set)
}
