package document

import (
	"sort"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	perrors "github.com/uber/mzn-playground/src/playground/internal/errors"
)

// Change replaces the characters [From, To) of the pre-edit text with Insert.
type Change struct {
	From   int
	To     int
	Insert string
}

// insertLen returns the length of the inserted text in characters.
func (c Change) insertLen() int {
	return utf8.RuneCountInString(c.Insert)
}

// ChangeSet is a set of disjoint changes, all expressed in coordinates of the text
// before the edit.
type ChangeSet []Change

// Empty reports whether the change set leaves every position untouched.
func (cs ChangeSet) Empty() bool {
	for _, c := range cs {
		if c.From != c.To || c.Insert != "" {
			return false
		}
	}
	return true
}

// Sorted returns a copy of the change set ordered by From.
func (cs ChangeSet) Sorted() ChangeSet {
	sorted := make(ChangeSet, len(cs))
	copy(sorted, cs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].From < sorted[j].From
	})
	return sorted
}

// Validate checks that every change lies within a document of length docLen and that
// changes do not overlap.
func (cs ChangeSet) Validate(docLen int) error {
	prevTo := 0
	for i, c := range cs.Sorted() {
		if c.From < 0 || c.To < c.From || c.To > docLen {
			return &perrors.InvalidChangeError{From: c.From, To: c.To, Length: docLen}
		}
		if i > 0 && c.From < prevTo {
			return &perrors.InvalidChangeError{From: c.From, To: c.To, Length: docLen, Overlap: true}
		}
		prevTo = c.To
	}
	return nil
}

// Delta returns the change in document length produced by the change set.
func (cs ChangeSet) Delta() int {
	delta := 0
	for _, c := range cs {
		delta += c.insertLen() - (c.To - c.From)
	}
	return delta
}

// MapPos maps a position in the pre-edit text to the equivalent position after the
// edit. Positions before a change are untouched, positions strictly inside a replaced
// span collapse to the start of the replacement, and positions at or after the end of
// a span shift by the difference in length. The change set must be sorted.
func (cs ChangeSet) MapPos(pos int) int {
	delta := 0
	for _, c := range cs {
		if pos <= c.From {
			break
		}
		if pos < c.To {
			return c.From + delta
		}
		delta += c.insertLen() - (c.To - c.From)
	}
	return pos + delta
}

// Apply returns text with the change set applied. The change set must be valid for text.
func (cs ChangeSet) Apply(text string) string {
	runes := []rune(text)
	out := make([]rune, 0, len(runes)+cs.Delta())
	last := 0
	for _, c := range cs.Sorted() {
		out = append(out, runes[last:c.From]...)
		out = append(out, []rune(c.Insert)...)
		last = c.To
	}
	out = append(out, runes[last:]...)
	return string(out)
}

// Diff derives a change set that turns oldText into newText using a character diff.
func Diff(oldText, newText string) ChangeSet {
	if oldText == newText {
		return nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupEfficiency(dmp.DiffMain(oldText, newText, false))

	var (
		changes ChangeSet
		pending *Change
		offset  int // position in the old text, in characters
	)
	flush := func() {
		if pending != nil {
			changes = append(changes, *pending)
			pending = nil
		}
	}
	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			offset += n
		case diffmatchpatch.DiffDelete:
			if pending == nil {
				pending = &Change{From: offset, To: offset}
			}
			pending.To += n
			offset += n
		case diffmatchpatch.DiffInsert:
			if pending == nil {
				pending = &Change{From: offset, To: offset}
			}
			pending.Insert += d.Text
		}
	}
	flush()
	return changes
}
