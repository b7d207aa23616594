// Package annotation holds the persistent set of diagnostic markers overlaid on a
// document and the document field that keeps it in sync with edits.
package annotation

import (
	"sort"

	"github.com/uber/mzn-playground/src/playground/entity"
	"github.com/uber/mzn-playground/src/playground/internal/document"
)

// Range is a half-open character range [From, To).
type Range struct {
	From int
	To   int
}

// Annotation is a marker anchored to a range of the live document.
type Annotation struct {
	Range       Range
	Severity    entity.Severity
	DisplayText string
}

// Set is an immutable, ordered collection of annotations. Operations return a new Set
// and never modify the receiver.
type Set struct {
	items []Annotation
}

// Empty returns a set with no annotations.
func Empty() Set {
	return Set{}
}

// Len returns the number of annotations.
func (s Set) Len() int {
	return len(s.items)
}

// All returns a copy of the annotations ordered by range.
func (s Set) All() []Annotation {
	out := make([]Annotation, len(s.items))
	copy(out, s.items)
	return out
}

// Clear returns an empty set.
func (s Set) Clear() Set {
	return Empty()
}

// Add returns a set that also contains an annotation over r. A reversed range is
// normalised so that From <= To.
func (s Set) Add(r Range, severity entity.Severity, text string) Set {
	if r.To < r.From {
		r.From, r.To = r.To, r.From
	}
	a := Annotation{Range: r, Severity: severity, DisplayText: text}
	i := sort.Search(len(s.items), func(i int) bool {
		return less(a, s.items[i])
	})
	items := make([]Annotation, 0, len(s.items)+1)
	items = append(items, s.items[:i]...)
	items = append(items, a)
	items = append(items, s.items[i:]...)
	return Set{items: items}
}

// Remap returns a set with every range mapped through changes. From and To are
// mapped independently; annotations that collapse to a point are kept.
func (s Set) Remap(changes document.ChangeSet) Set {
	if len(s.items) == 0 || changes.Empty() {
		return s
	}
	sorted := changes.Sorted()
	items := make([]Annotation, len(s.items))
	for i, a := range s.items {
		from := sorted.MapPos(a.Range.From)
		to := sorted.MapPos(a.Range.To)
		if to < from {
			to = from
		}
		a.Range = Range{From: from, To: to}
		items[i] = a
	}
	sort.SliceStable(items, func(i, j int) bool {
		return less(items[i], items[j])
	})
	return Set{items: items}
}

// Filter returns the annotations for which keep returns true.
func (s Set) Filter(keep func(Annotation) bool) Set {
	items := make([]Annotation, 0, len(s.items))
	for _, a := range s.items {
		if keep(a) {
			items = append(items, a)
		}
	}
	return Set{items: items}
}

// Clamp returns a set whose ranges all lie within [0, length].
func (s Set) Clamp(length int) Set {
	items := make([]Annotation, len(s.items))
	for i, a := range s.items {
		a.Range.From = clamp(a.Range.From, length)
		a.Range.To = clamp(a.Range.To, length)
		items[i] = a
	}
	return Set{items: items}
}

// Equal reports whether both sets hold the same annotations in the same order.
func (s Set) Equal(other Set) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for i := range s.items {
		if s.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

// NonEmpty keeps annotations that still cover at least one character.
func NonEmpty(a Annotation) bool {
	return a.Range.From < a.Range.To
}

func less(a, b Annotation) bool {
	if a.Range.From != b.Range.From {
		return a.Range.From < b.Range.From
	}
	return a.Range.To < b.Range.To
}

func clamp(pos, length int) int {
	if pos < 0 {
		return 0
	}
	if pos > length {
		return length
	}
	return pos
}
