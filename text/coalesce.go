package text

import (
	"slices"
	"sort"
)

// Coalesce merges groups whose lines end up overlapping or adjacent in the
// final document of their window. The input groups must partition (a subset
// of) one change window, as produced by GroupOverlapping or by Coalesce
// itself. Merging is transitive. Output groups are ordered by their earliest
// change, so input that cannot be merged is returned in its original order.
func Coalesce(groups []ChangeGroup) []ChangeGroup {
	if len(groups) <= 1 {
		return slices.Clone(groups)
	}

	spans := finalSpans(groups)

	byPosition := make([]int, len(groups))
	for i := range byPosition {
		byPosition[i] = i
	}
	sort.SliceStable(byPosition, func(a, b int) bool {
		sa, sb := spans[byPosition[a]], spans[byPosition[b]]
		if sa.Start != sb.Start {
			return sa.Start < sb.Start
		}
		return groups[byPosition[a]].First() < groups[byPosition[b]].First()
	})

	var merged [][]int // indices into groups
	var current LineSpan
	for n, gi := range byPosition {
		if n > 0 && spans[gi].touches(current) {
			merged[len(merged)-1] = append(merged[len(merged)-1], gi)
			current = current.union(spans[gi])
			continue
		}
		merged = append(merged, []int{gi})
		current = spans[gi]
	}

	out := make([]ChangeGroup, 0, len(merged))
	for _, members := range merged {
		out = append(out, mergeGroups(groups, members))
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].First() < out[b].First() })
	return out
}

// finalSpans returns, per group, the lines its changes occupy once every
// change in the window has been applied. Each group keeps a running hull
// that every later change shifts, and each of its changes widens it by the
// lines that change wrote. Shifting a hull gives the hull of the shifted
// spans, so a merged group gets exactly the hull of its members and
// Coalesce stays idempotent. The cost is one shift per started group per
// change.
func finalSpans(groups []ChangeGroup) []LineSpan {
	type member struct {
		index int
		group int
		c     TimestampedChange
	}
	var window []member
	for gi, g := range groups {
		for k, idx := range g.Indices {
			window = append(window, member{index: idx, group: gi, c: g.Changes[k]})
		}
	}
	sort.Slice(window, func(a, b int) bool { return window[a].index < window[b].index })

	spans := make([]LineSpan, len(groups))
	started := make([]int, 0, len(groups))
	seen := make([]bool, len(groups))
	for _, m := range window {
		for _, gi := range started {
			spans[gi] = spans[gi].shift(m.c)
		}
		written := writtenLines(m.c)
		if !seen[m.group] {
			seen[m.group] = true
			started = append(started, m.group)
			spans[m.group] = written
			continue
		}
		spans[m.group] = spans[m.group].union(written)
	}
	return spans
}

// mergeGroups combines the given groups into one, keeping window order.
func mergeGroups(groups []ChangeGroup, members []int) ChangeGroup {
	if len(members) == 1 {
		return groups[members[0]]
	}
	type entry struct {
		index int
		c     TimestampedChange
	}
	var entries []entry
	for _, gi := range members {
		for k, idx := range groups[gi].Indices {
			entries = append(entries, entry{index: idx, c: groups[gi].Changes[k]})
		}
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].index < entries[b].index })

	g := ChangeGroup{
		Indices: make([]int, len(entries)),
		Changes: make([]TimestampedChange, len(entries)),
	}
	for i, e := range entries {
		g.Indices[i] = e.index
		g.Changes[i] = e.c
	}
	return g
}
