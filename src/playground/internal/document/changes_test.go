package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	perrors "github.com/uber/mzn-playground/src/playground/internal/errors"
)

func TestMapPos(t *testing.T) {
	tests := []struct {
		name    string
		changes ChangeSet
		pos     int
		want    int
	}{
		{
			name:    "no changes",
			changes: nil,
			pos:     4,
			want:    4,
		},
		{
			name:    "insertion before position",
			changes: ChangeSet{{From: 1, To: 1, Insert: "abc"}},
			pos:     4,
			want:    7,
		},
		{
			name:    "insertion at position stays before it",
			changes: ChangeSet{{From: 4, To: 4, Insert: "abc"}},
			pos:     4,
			want:    4,
		},
		{
			name:    "insertion after position",
			changes: ChangeSet{{From: 6, To: 6, Insert: "abc"}},
			pos:     4,
			want:    4,
		},
		{
			name:    "position inside deletion collapses",
			changes: ChangeSet{{From: 2, To: 8}},
			pos:     5,
			want:    2,
		},
		{
			name:    "position at end of deletion shifts",
			changes: ChangeSet{{From: 2, To: 8}},
			pos:     8,
			want:    2,
		},
		{
			name:    "position inside replacement collapses to insertion point",
			changes: ChangeSet{{From: 2, To: 8, Insert: "xy"}},
			pos:     5,
			want:    2,
		},
		{
			name:    "position after replacement shifts by delta",
			changes: ChangeSet{{From: 2, To: 8, Insert: "xy"}},
			pos:     10,
			want:    6,
		},
		{
			name: "multiple changes accumulate",
			changes: ChangeSet{
				{From: 0, To: 0, Insert: "ab"},
				{From: 3, To: 5},
				{From: 7, To: 7, Insert: "é"},
			},
			pos:  9,
			want: 10,
		},
		{
			name: "collapse inside second change uses mapped insertion point",
			changes: ChangeSet{
				{From: 0, To: 0, Insert: "ab"},
				{From: 3, To: 6},
			},
			pos:  4,
			want: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.changes.MapPos(tt.pos))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		changes     ChangeSet
		docLen      int
		wantOverlap bool
		wantErr     bool
	}{
		{
			name:    "valid unsorted changes",
			changes: ChangeSet{{From: 5, To: 6}, {From: 0, To: 2, Insert: "x"}},
			docLen:  6,
		},
		{
			name:    "two insertions at the same point",
			changes: ChangeSet{{From: 2, To: 2, Insert: "a"}, {From: 2, To: 2, Insert: "b"}},
			docLen:  3,
		},
		{
			name:    "past end",
			changes: ChangeSet{{From: 2, To: 7}},
			docLen:  6,
			wantErr: true,
		},
		{
			name:    "negative",
			changes: ChangeSet{{From: -1, To: 0}},
			docLen:  6,
			wantErr: true,
		},
		{
			name:    "reversed",
			changes: ChangeSet{{From: 3, To: 1}},
			docLen:  6,
			wantErr: true,
		},
		{
			name:        "overlapping",
			changes:     ChangeSet{{From: 0, To: 3}, {From: 2, To: 4}},
			docLen:      6,
			wantErr:     true,
			wantOverlap: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.changes.Validate(tt.docLen)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var invalid *perrors.InvalidChangeError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.wantOverlap, invalid.Overlap)
		})
	}
}

func TestApply(t *testing.T) {
	text := "x = 1;\nx = 2;"
	changes := ChangeSet{
		{From: 11, To: 12, Insert: "42"},
		{From: 0, To: 1, Insert: "y"},
	}
	assert.Equal(t, "y = 1;\nx = 42;", changes.Apply(text))
	assert.Equal(t, 1, changes.Delta())
	assert.True(t, ChangeSet{{From: 3, To: 3}}.Empty())
	assert.False(t, changes.Empty())
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name    string
		oldText string
		newText string
	}{
		{name: "identical", oldText: "abc", newText: "abc"},
		{name: "insertion", oldText: "x = 1;", newText: "x = 10;"},
		{name: "deletion", oldText: "x = 1;\nx = 2;", newText: "x = 2;"},
		{name: "replacement", oldText: "int: n = 3;", newText: "float: n = 3.0;"},
		{name: "multibyte", oldText: "é = 1;", newText: "é = ß;"},
		{name: "from empty", oldText: "", newText: "solve satisfy;"},
		{name: "to empty", oldText: "solve satisfy;", newText: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changes := Diff(tt.oldText, tt.newText)
			require.NoError(t, changes.Validate(len([]rune(tt.oldText))))
			assert.Equal(t, tt.newText, changes.Apply(tt.oldText))
		})
	}

	t.Run("untouched prefix is not part of any change", func(t *testing.T) {
		changes := Diff("x = 1;\nx = 2;", "x = 1;\nx = 20;")
		require.NotEmpty(t, changes)
		assert.GreaterOrEqual(t, changes[0].From, 7)
	})
}
