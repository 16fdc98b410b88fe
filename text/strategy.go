package text

import (
	"fmt"

	"recentedits/logger"
)

// Strategy names.
const (
	// StrategyLinesBased groups changes by overlap, coalesces groups that end
	// up next to each other and renders one line-numbered hunk per group.
	StrategyLinesBased = "lines-based-diff"
	// StrategyOverlapGroups renders one hunk per overlap group, without
	// coalescing.
	StrategyOverlapGroups = "overlap-groups"
	// StrategyUnified renders a single hunk covering the whole window.
	StrategyUnified = "unified-diff"
)

// DiffHunk is the rendered diff of one group of recent edits to a document.
type DiffHunk struct {
	URI                 string `json:"uri"`
	LatestEditTimestamp int64  `json:"latestEditTimestamp"`
	Diff                string `json:"diff"`
}

// UnifiedPatch is a git-style patch covering a whole change window.
type UnifiedPatch struct {
	URI                 string `json:"uri"`
	NewContent          string `json:"newContent"`
	Diff                string `json:"diff"`
	LatestEditTimestamp int64  `json:"latestEditTimestamp"`
}

// NewDiffHunk renders the line-numbered diff of before and after for uri.
func NewDiffHunk(uri, before, after string, contextLines int, latestEditTimestamp int64) DiffHunk {
	return DiffHunk{
		URI:                 uri,
		LatestEditTimestamp: latestEditTimestamp,
		Diff:                DiffWithLineNumbers(before, after, contextLines),
	}
}

type Options struct {
	ContextLines int
}

// Strategy turns a document's change window into diff hunks. It holds no
// per-document state and is safe for concurrent use.
type Strategy struct {
	name string
	opts Options
}

func NewStrategy(name string, opts Options) (*Strategy, error) {
	switch name {
	case StrategyLinesBased, StrategyOverlapGroups, StrategyUnified:
	case "":
		name = StrategyLinesBased
	default:
		return nil, fmt.Errorf("unknown diff strategy %q", name)
	}
	opts.ContextLines = max(opts.ContextLines, 0)
	return &Strategy{name: name, opts: opts}, nil
}

func (s *Strategy) Name() string { return s.name }

// Groups returns the change groups the strategy renders for changes, which
// must already carry ranges consistent with their window (see SnapshotChain).
func (s *Strategy) Groups(changes []TimestampedChange) []ChangeGroup {
	if len(changes) == 0 {
		return nil
	}
	switch s.name {
	case StrategyUnified:
		g := ChangeGroup{Indices: make([]int, len(changes)), Changes: changes}
		for i := range changes {
			g.Indices[i] = i
		}
		return []ChangeGroup{g}
	case StrategyOverlapGroups:
		return GroupOverlapping(changes)
	default:
		return Coalesce(GroupOverlapping(changes))
	}
}

// GetDiffHunks diffs each group of the window against the snapshot taken
// just before its first change and just after its last. Groups whose net
// effect is empty produce no hunk. An out-of-range change fails the whole
// window.
func (s *Strategy) GetDiffHunks(uri, oldContent string, changes []TimestampedChange) ([]DiffHunk, error) {
	defer logger.Trace("text.GetDiffHunks")()
	if len(changes) == 0 {
		return nil, nil
	}

	snapshots, resolved, err := SnapshotChain(oldContent, changes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uri, err)
	}

	groups := s.Groups(resolved)
	hunks := make([]DiffHunk, 0, len(groups))
	for _, g := range groups {
		hunk := NewDiffHunk(uri, snapshots[g.First()], snapshots[g.Last()+1], s.opts.ContextLines, g.LatestEditTimestamp())
		if hunk.Diff == "" {
			continue
		}
		hunks = append(hunks, hunk)
	}
	logger.Debug("%s: %d changes, %d groups, %d hunks (%s)", uri, len(changes), len(groups), len(hunks), s.name)
	return hunks, nil
}

// GetUnifiedPatch returns one patch for the whole window, regardless of the
// strategy's grouping. It returns nil when there are no changes.
func (s *Strategy) GetUnifiedPatch(uri, oldContent string, changes []TimestampedChange) (*UnifiedPatch, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	snapshots, _, err := SnapshotChain(oldContent, changes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uri, err)
	}

	var latest int64
	for i, c := range changes {
		if i == 0 || c.Timestamp > latest {
			latest = c.Timestamp
		}
	}
	newContent := snapshots[len(snapshots)-1]
	return &UnifiedPatch{
		URI:                 uri,
		NewContent:          newContent,
		Diff:                FormatUnifiedPatch(uri, oldContent, newContent, s.opts.ContextLines),
		LatestEditTimestamp: latest,
	}, nil
}
