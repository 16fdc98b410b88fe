package text

import (
	"testing"

	"recentedits/assert"
)

func TestNewTimestampedChange(t *testing.T) {
	tc, err := NewTimestampedChange("ab\ncd", createChange(1, 3, "X\nY\nZ"), 42)
	assert.NoError(t, err, "NewTimestampedChange")

	assert.Equal(t, int64(42), tc.Timestamp, "timestamp")
	assert.Equal(t, Range{Start: Position{0, 1}, End: Position{1, 1}}, tc.Range, "replaced range")
	assert.Equal(t, Range{Start: Position{0, 1}, End: Position{2, 1}}, tc.InsertedRange, "inserted range")
}

func TestNewTimestampedChange_PureDeletion(t *testing.T) {
	tc, err := NewTimestampedChange("one\ntwo\nthree", createChange(4, 4, ""), 1)
	assert.NoError(t, err, "NewTimestampedChange")

	assert.Equal(t, Range{Start: Position{1, 0}, End: Position{2, 0}}, tc.Range, "whole line replaced")
	assert.Equal(t, Range{Start: Position{1, 0}, End: Position{1, 0}}, tc.InsertedRange, "empty insertion")
}

func TestNewTimestampedChange_OutOfRange(t *testing.T) {
	_, err := NewTimestampedChange("abc", createChange(2, 2, ""), 1)
	assert.ErrorIs(t, err, ErrOutOfRange, "range past end")
}

func TestPositionAt(t *testing.T) {
	units := encodeUTF16("a😀\nbc")
	assert.Equal(t, Position{0, 0}, positionAt(units, 0), "start")
	assert.Equal(t, Position{0, 3}, positionAt(units, 3), "after surrogate pair")
	assert.Equal(t, Position{1, 0}, positionAt(units, 4), "start of second line")
	assert.Equal(t, Position{1, 2}, positionAt(units, 6), "end")
}

func TestChangeBetween(t *testing.T) {
	tests := []struct {
		name   string
		before string
		after  string
		want   ContentChange
	}{
		{"insertion", "hello world", "hello there world", createChange(6, 0, "there ")},
		{"deletion", "hello there world", "hello world", createChange(6, 6, "")},
		{"shared suffix is kept", "let x = 5;", "const x = 5;", createChange(0, 2, "cons")},
		{"from empty", "", "abc", createChange(0, 0, "abc")},
		{"to empty", "abc", "", createChange(0, 3, "")},
		{"repeated characters", "aaa", "aaaa", createChange(3, 0, "a")},
		{"surrogate pair not split", "😀", "😃", createChange(0, 2, "😃")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ChangeBetween(tt.before, tt.after)
			assert.True(t, ok, "texts differ")
			assert.Equal(t, tt.want, got, "change")

			applied, err := ApplyChanges(tt.before, []ContentChange{got})
			assert.NoError(t, err, "apply")
			assert.Equal(t, tt.after, applied, "change reproduces after")
		})
	}

	_, ok := ChangeBetween("same", "same")
	assert.False(t, ok, "equal texts")
}
