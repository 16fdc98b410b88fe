package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"recentedits/logger"
	"recentedits/text"
	"recentedits/window"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// hunkColors paints the parts of a rendered hunk. A nil *hunkColors prints
// plain text.
type hunkColors struct {
	header  func(string, ...any) string
	removed func(string, ...any) string
	added   func(string, ...any) string
	sep     func(string, ...any) string
}

func newHunkColors() *hunkColors {
	paint := func(attrs ...color.Attribute) func(string, ...any) string {
		c := color.New(attrs...)
		c.EnableColor()
		return c.SprintfFunc()
	}
	return &hunkColors{
		header:  paint(color.Bold),
		removed: paint(color.FgRed),
		added:   paint(color.FgGreen),
		sep:     paint(color.FgCyan),
	}
}

// colorsFor returns colors when w is a terminal.
func colorsFor(w io.Writer) *hunkColors {
	f, ok := w.(*os.File)
	if !ok {
		return nil
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return newHunkColors()
	}
	return nil
}

func (c *hunkColors) line(l string) string {
	if c == nil {
		return l
	}
	marker := l
	if i := strings.Index(l, "| "); i > 0 {
		marker = l[:i]
	}
	switch {
	case l == "then":
		return c.sep("%s", l)
	case strings.HasSuffix(marker, "-"):
		return c.removed("%s", l)
	case strings.HasSuffix(marker, "+"):
		return c.added("%s", l)
	}
	return l
}

func (c *hunkColors) title(s string) string {
	if c == nil {
		return s
	}
	return c.header("%s", s)
}

// printHunks writes each hunk under a header naming its document and edit
// time.
func printHunks(w io.Writer, hunks []text.DiffHunk, colors *hunkColors) {
	for i, h := range hunks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, colors.title(fmt.Sprintf("%s @ %d", h.URI, h.LatestEditTimestamp)))
		for _, l := range strings.Split(strings.ReplaceAll(h.Diff, "\r\n", "\n"), "\n") {
			fmt.Fprintln(w, colors.line(l))
		}
	}
}

// runReplay renders recorded change windows: replay [-strategy name]
// [-context n] [-unified] file...
func runReplay(args []string, config Config, out io.Writer) error {
	logger.SetGlobalLevel(logger.ParseLogLevel(config.LogLevel))
	defaults := config.TrackerConfig()

	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	strategyName := fs.String("strategy", defaults.Strategy, "diff strategy: lines-based-diff, overlap-groups or unified-diff")
	contextLines := fs.Int("context", defaults.ContextLines, "unchanged lines around each change")
	unified := fs.Bool("unified", false, "print one git-style patch per window instead of hunks")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no window files given")
	}

	strategy, err := text.NewStrategy(*strategyName, text.Options{ContextLines: *contextLines})
	if err != nil {
		return err
	}
	colors := colorsFor(out)

	for _, path := range fs.Args() {
		win, err := window.ReadFile(path)
		if err != nil {
			return err
		}

		if *unified {
			patch, err := strategy.GetUnifiedPatch(win.URI, win.OldContent, win.Changes)
			if err != nil {
				return err
			}
			if patch != nil {
				fmt.Fprint(out, patch.Diff)
			}
			continue
		}

		hunks, err := win.Replay(strategy)
		if err != nil {
			return err
		}
		logger.Debug("replay: %s: %d hunks", path, len(hunks))
		printHunks(out, hunks, colors)
	}
	return nil
}
