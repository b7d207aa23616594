// Package position converts checker line/column locations into character offsets.
package position

import (
	"sort"
	"sync"
)

// Translate returns the character offset in text of the first character at or past
// (line, column), both 1-based. The row and column conditions are checked independently,
// which matches the ranges produced by the MiniZinc checker. If the end of the text is
// reached first, the length of the text in characters is returned.
func Translate(text string, line, column int) int {
	row, col := 1, 1
	i := 0
	for _, r := range text {
		if row >= line && col >= column {
			return i
		}
		col++
		if r == '\n' {
			row++
			col = 1
		}
		i++
	}
	return i
}

// Translator converts a 1-based (line, column) pair into a character offset.
type Translator func(text string, line, column int) int

// TranslateStrict returns the character offset of (line, column) using an ordered
// comparison. Columns past the end of a line clamp to the line end and lines past the
// end of the document clamp to the document length.
func TranslateStrict(text string, line, column int) int {
	return NewLineTable(text).Offset(line, column)
}

// LineTable indexes the starting character offset of each line of a text.
type LineTable struct {
	runes []rune

	linesOnce sync.Once
	lineStart []int // character offset of the start of the ith line (0-based)
}

// NewLineTable creates a LineTable for text. Line starts are computed lazily.
func NewLineTable(text string) *LineTable {
	return &LineTable{runes: []rune(text)}
}

func (t *LineTable) initLines() {
	t.linesOnce.Do(func() {
		t.lineStart = []int{0}
		for i, r := range t.runes {
			if r == '\n' {
				t.lineStart = append(t.lineStart, i+1)
			}
		}
	})
}

// Len returns the number of characters in the text.
func (t *LineTable) Len() int {
	return len(t.runes)
}

// Offset converts a 1-based (line, column) into a character offset, clamping out of
// range values.
func (t *LineTable) Offset(line, column int) int {
	t.initLines()
	if line < 1 {
		return 0
	}
	if line > len(t.lineStart) {
		return len(t.runes)
	}
	start := t.lineStart[line-1]
	end := len(t.runes)
	if line < len(t.lineStart) {
		end = t.lineStart[line] - 1 // the newline itself
	}
	if column < 1 {
		column = 1
	}
	offset := start + column - 1
	if offset > end {
		return end
	}
	return offset
}

// Position converts a character offset into a 1-based (line, column). Offsets are
// clamped to [0, Len()].
func (t *LineTable) Position(offset int) (line, column int) {
	t.initLines()
	if offset < 0 {
		offset = 0
	}
	if offset > len(t.runes) {
		offset = len(t.runes)
	}
	// In effect, binary search returns a 1-based result.
	line = sort.Search(len(t.lineStart), func(i int) bool {
		return offset < t.lineStart[i]
	})
	return line, offset - t.lineStart[line-1] + 1
}
