package text

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContextLines is the number of unchanged lines shown around a change
// when no other value is configured.
const DefaultContextLines = 3

// hunkSeparator joins consecutive hunks rendered by DiffWithLineNumbers.
const hunkSeparator = "then"

type DiffLineKind int

const (
	LineContext DiffLineKind = iota
	LineRemoved
	LineAdded
)

// String returns the unified-diff prefix of the kind.
func (k DiffLineKind) String() string {
	switch k {
	case LineRemoved:
		return "-"
	case LineAdded:
		return "+"
	default:
		return " "
	}
}

// DiffLine is one rendered line of a hunk. OldLine and NewLine are 1-based;
// a line that does not exist on a side has 0 there.
type DiffLine struct {
	Kind    DiffLineKind
	OldLine int
	NewLine int
	Text    string // without line terminator
}

// Hunk is a contiguous block of changed lines with its surrounding context.
type Hunk struct {
	OldStart int // 1-based
	OldLines int
	NewStart int // 1-based
	NewLines int
	Lines    []DiffLine
}

type lineOp struct {
	op    diffmatchpatch.Operation
	lines []string
}

// diffLines computes a line-level edit script between before and after.
// A line keeps its terminator while diffing, so a final line without a
// newline differs from the same text followed by one.
func diffLines(before, after string) []lineOp {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // deterministic output, never a timed-out partial diff

	chars1, chars2, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCleanupMerge(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	ops := make([]lineOp, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		lines := strings.SplitAfter(d.Text, "\n")
		if lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for i, l := range lines {
			lines[i] = trimEOL(l)
		}
		ops = append(ops, lineOp{op: d.Type, lines: lines})
	}
	return ops
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// ComputeHunks diffs before against after and cuts the result into hunks
// with contextLines unchanged lines around each change. Changes separated by
// at most 2*contextLines unchanged lines share a hunk.
func ComputeHunks(before, after string, contextLines int) []Hunk {
	contextLines = max(contextLines, 0)
	ops := diffLines(before, after)

	var hunks []Hunk
	var cur *Hunk
	oldLine, newLine := 1, 1

	addContext := func(lines []string, oldFrom, newFrom int) {
		for j, l := range lines {
			cur.Lines = append(cur.Lines, DiffLine{Kind: LineContext, OldLine: oldFrom + j, NewLine: newFrom + j, Text: l})
		}
	}
	closeHunk := func() {
		for _, l := range cur.Lines {
			if l.Kind != LineAdded {
				cur.OldLines++
			}
			if l.Kind != LineRemoved {
				cur.NewLines++
			}
		}
		hunks = append(hunks, *cur)
		cur = nil
	}

	for i, op := range ops {
		if op.op != diffmatchpatch.DiffEqual {
			if cur == nil {
				cur = &Hunk{OldStart: oldLine, NewStart: newLine}
				if i > 0 && contextLines > 0 {
					prev := ops[i-1].lines
					lead := prev[max(0, len(prev)-contextLines):]
					cur.OldStart -= len(lead)
					cur.NewStart -= len(lead)
					addContext(lead, cur.OldStart, cur.NewStart)
				}
			}
			for _, l := range op.lines {
				if op.op == diffmatchpatch.DiffDelete {
					cur.Lines = append(cur.Lines, DiffLine{Kind: LineRemoved, OldLine: oldLine, Text: l})
					oldLine++
				} else {
					cur.Lines = append(cur.Lines, DiffLine{Kind: LineAdded, NewLine: newLine, Text: l})
					newLine++
				}
			}
			continue
		}

		if cur != nil {
			if len(op.lines) <= 2*contextLines && i < len(ops)-1 {
				addContext(op.lines, oldLine, newLine)
			} else {
				addContext(op.lines[:min(len(op.lines), contextLines)], oldLine, newLine)
				closeHunk()
			}
		}
		oldLine += len(op.lines)
		newLine += len(op.lines)
	}
	if cur != nil {
		closeHunk()
	}
	return hunks
}

// DetectEOL returns "\r\n" when the document uses CRLF line endings and "\n"
// otherwise.
func DetectEOL(text string) string {
	if i := strings.IndexByte(text, '\n'); i > 0 && text[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

func eolFor(before, after string) string {
	if strings.Contains(after, "\n") {
		return DetectEOL(after)
	}
	return DetectEOL(before)
}

// DiffWithLineNumbers renders the diff of before and after with line
// numbers: unchanged lines as "N | text", removed lines as "N-| text"
// numbered in before, added lines as "N+| text" numbered in after. Hunks are
// separated by a line reading "then". Equal inputs render as "".
func DiffWithLineNumbers(before, after string, contextLines int) string {
	hunks := ComputeHunks(before, after, contextLines)
	if len(hunks) == 0 {
		return ""
	}
	eol := eolFor(before, after)

	var sb strings.Builder
	for h, hunk := range hunks {
		if h > 0 {
			sb.WriteString(eol + hunkSeparator + eol)
		}
		for i, l := range hunk.Lines {
			if i > 0 {
				sb.WriteString(eol)
			}
			writeNumberedLine(&sb, l)
		}
	}
	return sb.String()
}

func writeNumberedLine(sb *strings.Builder, l DiffLine) {
	switch l.Kind {
	case LineRemoved:
		sb.WriteString(strconv.Itoa(l.OldLine))
		sb.WriteString("-| ")
	case LineAdded:
		sb.WriteString(strconv.Itoa(l.NewLine))
		sb.WriteString("+| ")
	default:
		sb.WriteString(strconv.Itoa(l.NewLine))
		sb.WriteString(" | ")
	}
	sb.WriteString(l.Text)
}

// FormatUnifiedPatch renders a git-style unified diff of before and after
// for the document uri. Equal inputs render as "".
func FormatUnifiedPatch(uri, before, after string, contextLines int) string {
	hunks := ComputeHunks(before, after, contextLines)
	if len(hunks) == 0 {
		return ""
	}
	eol := eolFor(before, after)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s%s+++ b/%s%s", uri, eol, uri, eol)
	for _, hunk := range hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@%s",
			headerStart(hunk.OldStart, hunk.OldLines), hunk.OldLines,
			headerStart(hunk.NewStart, hunk.NewLines), hunk.NewLines, eol)
		for _, l := range hunk.Lines {
			sb.WriteString(l.Kind.String())
			sb.WriteString(l.Text)
			sb.WriteString(eol)
		}
	}
	return sb.String()
}

// headerStart follows the unified-diff convention that an empty side starts
// at the line before it.
func headerStart(start, count int) int {
	if count == 0 {
		return start - 1
	}
	return start
}
