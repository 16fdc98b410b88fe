package text

import (
	"testing"

	"recentedits/assert"
)

const interleavedMarkup = `<D>let</D><I>const</I> x = 5;
<D>var</D><I>let</I> y = 10;
console.log(<D>x +</D><I>x *</I> y);`

func newTestStrategy(t *testing.T, name string, contextLines int) *Strategy {
	t.Helper()
	s, err := NewStrategy(name, Options{ContextLines: contextLines})
	assert.NoError(t, err, "NewStrategy")
	return s
}

func TestStrategy_LinesBasedCoalescesAdjacentLines(t *testing.T) {
	original, changes := changesFromMarkup(t, interleavedMarkup)
	s := newTestStrategy(t, StrategyLinesBased, DefaultContextLines)

	hunks, err := s.GetDiffHunks("file.js", original, changes)
	assert.NoError(t, err, "GetDiffHunks")
	assert.Len(t, 1, hunks, "three adjacent lines, one hunk")
	assert.Equal(t, DiffHunk{
		URI:                 "file.js",
		LatestEditTimestamp: 6,
		Diff: "1-| let x = 5;\n2-| var y = 10;\n3-| console.log(x + y);\n" +
			"1+| const x = 5;\n2+| let y = 10;\n3+| console.log(x * y);",
	}, hunks[0], "hunk")
}

func TestStrategy_OverlapGroupsKeepsEveryGroup(t *testing.T) {
	original, changes := changesFromMarkup(t, interleavedMarkup)
	s := newTestStrategy(t, StrategyOverlapGroups, DefaultContextLines)

	hunks, err := s.GetDiffHunks("file.js", original, changes)
	assert.NoError(t, err, "GetDiffHunks")
	assert.Len(t, 3, hunks, "one hunk per group")

	assert.Equal(t, "1-| let x = 5;\n1+| const x = 5;\n2 | var y = 10;\n3 | console.log(x + y);", hunks[0].Diff, "first hunk")
	assert.Equal(t, int64(2), hunks[0].LatestEditTimestamp, "first timestamp")
	assert.Equal(t, "1 | const x = 5;\n2-| var y = 10;\n2+| let y = 10;\n3 | console.log(x + y);", hunks[1].Diff, "second hunk")
	assert.Equal(t, int64(4), hunks[1].LatestEditTimestamp, "second timestamp")
	assert.Equal(t, "1 | const x = 5;\n2 | let y = 10;\n3-| console.log(x + y);\n3+| console.log(x * y);", hunks[2].Diff, "third hunk")
	assert.Equal(t, int64(6), hunks[2].LatestEditTimestamp, "third timestamp")
}

func TestStrategy_DistantEdits(t *testing.T) {
	changes := []TimestampedChange{
		{Timestamp: 10, Change: createChange(lineOffset(0), 2, "L0")},
		{Timestamp: 20, Change: createChange(lineOffset(9), 2, "L9")},
	}
	top := "1-| l0\n1+| L0\n2 | l1\n3 | l2\n4 | l3"
	bottom := "7 | l6\n8 | l7\n9 | l8\n10-| l9\n10+| L9"

	linesBased := newTestStrategy(t, StrategyLinesBased, 3)
	hunks, err := linesBased.GetDiffHunks("f", tenLines, changes)
	assert.NoError(t, err, "lines-based")
	assert.Len(t, 2, hunks, "two separate regions")
	assert.Equal(t, top, hunks[0].Diff, "top hunk")
	assert.Equal(t, int64(10), hunks[0].LatestEditTimestamp, "top timestamp")
	assert.Equal(t, bottom, hunks[1].Diff, "bottom hunk")
	assert.Equal(t, int64(20), hunks[1].LatestEditTimestamp, "bottom timestamp")

	unified := newTestStrategy(t, StrategyUnified, 3)
	hunks, err = unified.GetDiffHunks("f", tenLines, changes)
	assert.NoError(t, err, "unified")
	assert.Len(t, 1, hunks, "whole window in one hunk")
	assert.Equal(t, top+"\nthen\n"+bottom, hunks[0].Diff, "regions separated inside the hunk")
	assert.Equal(t, int64(20), hunks[0].LatestEditTimestamp, "latest timestamp")
}

func TestStrategy_EmptyWindow(t *testing.T) {
	s := newTestStrategy(t, "", DefaultContextLines)
	assert.Equal(t, StrategyLinesBased, s.Name(), "default strategy")

	hunks, err := s.GetDiffHunks("f", "content", nil)
	assert.NoError(t, err, "empty window")
	assert.Len(t, 0, hunks, "no hunks")
}

func TestStrategy_NetEmptyGroupIsDropped(t *testing.T) {
	s := newTestStrategy(t, StrategyLinesBased, DefaultContextLines)
	changes := []TimestampedChange{
		{Timestamp: 1, Change: createChange(0, 0, "x")},
		{Timestamp: 2, Change: createChange(0, 1, "")},
	}

	hunks, err := s.GetDiffHunks("f", "abc", changes)
	assert.NoError(t, err, "GetDiffHunks")
	assert.Len(t, 0, hunks, "typed and deleted again")
}

func TestStrategy_OutOfRange(t *testing.T) {
	s := newTestStrategy(t, StrategyLinesBased, DefaultContextLines)
	changes := []TimestampedChange{
		{Timestamp: 1, Change: createChange(0, 1, "")},
		{Timestamp: 2, Change: createChange(100, 0, "x")},
	}

	hunks, err := s.GetDiffHunks("f", "abc", changes)
	assert.ErrorIs(t, err, ErrOutOfRange, "window no longer matches the document")
	assert.Contains(t, err.Error(), "f:", "error names the document")
	assert.Len(t, 0, hunks, "no partial output")
}

func TestNewStrategy_Unknown(t *testing.T) {
	_, err := NewStrategy("by-phase-of-moon", Options{})
	assert.Error(t, err, "unknown strategy")

	s := newTestStrategy(t, StrategyUnified, -4)
	assert.Equal(t, StrategyUnified, s.Name(), "name kept")
	assert.Equal(t, 0, s.opts.ContextLines, "negative context clamps to zero")
}

func TestStrategy_GetUnifiedPatch(t *testing.T) {
	s := newTestStrategy(t, StrategyOverlapGroups, 1)
	changes := []TimestampedChange{
		{Timestamp: 3, Change: createChange(14, 0, "new ")},
		{Timestamp: 5, Change: createChange(18, 0, "line\n")},
	}

	patch, err := s.GetUnifiedPatch("file.go", "line 1\nline 2\nline 3", changes)
	assert.NoError(t, err, "GetUnifiedPatch")
	assert.NotNil(t, patch, "patch")
	assert.Equal(t, "line 1\nline 2\nnew line\nline 3", patch.NewContent, "new content")
	assert.Equal(t, "--- a/file.go\n+++ b/file.go\n@@ -2,2 +2,3 @@\n line 2\n+new line\n line 3\n", patch.Diff, "diff")
	assert.Equal(t, int64(5), patch.LatestEditTimestamp, "timestamp")

	none, err := s.GetUnifiedPatch("file.go", "x", nil)
	assert.NoError(t, err, "empty window")
	assert.Nil(t, none, "no patch")
}

func TestStrategy_GroupsPartitionWindow(t *testing.T) {
	_, changes := changesFromMarkup(t, interleavedMarkup)
	for _, name := range []string{StrategyLinesBased, StrategyOverlapGroups, StrategyUnified} {
		groups := newTestStrategy(t, name, 0).Groups(changes)
		total := 0
		for _, g := range groups {
			total += len(g.Indices)
		}
		assert.Equal(t, len(changes), total, name+" covers every change")
	}
}
