package text

// LineSpan is an inclusive range of zero-based line numbers.
type LineSpan struct {
	Start int
	End   int
}

// overlaps reports whether the spans share at least one line.
func (s LineSpan) overlaps(o LineSpan) bool {
	return s.Start <= o.End && s.End >= o.Start
}

// touches reports whether the spans overlap or sit on consecutive lines.
func (s LineSpan) touches(o LineSpan) bool {
	return s.Start <= o.End+1 && s.End+1 >= o.Start
}

func (s LineSpan) union(o LineSpan) LineSpan {
	return LineSpan{Start: min(s.Start, o.Start), End: max(s.End, o.End)}
}

// replacedLines is the span of lines a change replaced, before it was applied.
func replacedLines(c TimestampedChange) LineSpan {
	return LineSpan{Start: c.Range.Start.Line, End: c.Range.End.Line}
}

// writtenLines is the span of lines a change touched, after it was applied.
func writtenLines(c TimestampedChange) LineSpan {
	return LineSpan{Start: c.Range.Start.Line, End: c.InsertedRange.End.Line}
}

// shift carries s, expressed in the document before c, into the document
// after c. Lines below the change move by its line delta; a span the change
// touches grows to cover the lines the change wrote.
func (s LineSpan) shift(c TimestampedChange) LineSpan {
	replaced := replacedLines(c)
	delta := c.InsertedRange.End.Line - c.Range.End.Line
	switch {
	case s.End < replaced.Start:
		return s
	case s.Start > replaced.End:
		return LineSpan{Start: s.Start + delta, End: s.End + delta}
	}
	out := LineSpan{Start: min(s.Start, replaced.Start), End: c.InsertedRange.End.Line}
	if s.End > replaced.End {
		out.End = s.End + delta
	}
	return out
}

// ChangeGroup is a set of changes from one change window, identified by
// their positions in that window. Indices are ascending and Changes[i] is
// the change at Indices[i]. Groups are not modified after construction.
type ChangeGroup struct {
	Indices []int
	Changes []TimestampedChange
}

// First returns the window position of the group's earliest change.
func (g ChangeGroup) First() int { return g.Indices[0] }

// Last returns the window position of the group's latest change.
func (g ChangeGroup) Last() int { return g.Indices[len(g.Indices)-1] }

// LatestEditTimestamp returns the largest timestamp among the group's changes.
func (g ChangeGroup) LatestEditTimestamp() int64 {
	var latest int64
	for i, c := range g.Changes {
		if i == 0 || c.Timestamp > latest {
			latest = c.Timestamp
		}
	}
	return latest
}

// GroupOverlapping partitions a chronological change window into groups of
// changes that were made on the same lines. The current group tracks the
// lines it covers in the live document; a change joins it when the lines it
// replaces share a line with that span, otherwise the group is closed and a
// new one starts. Closed groups are never revisited.
func GroupOverlapping(changes []TimestampedChange) []ChangeGroup {
	var groups []ChangeGroup
	var covered LineSpan

	for i, c := range changes {
		if len(groups) > 0 && replacedLines(c).overlaps(covered) {
			g := &groups[len(groups)-1]
			g.Indices = append(g.Indices, i)
			g.Changes = append(g.Changes, c)
			covered = covered.shift(c)
			continue
		}
		groups = append(groups, ChangeGroup{
			Indices: []int{i},
			Changes: []TimestampedChange{c},
		})
		covered = writtenLines(c)
	}
	return groups
}
