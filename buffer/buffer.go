package buffer

import (
	"fmt"
	"path/filepath"
	"strings"

	"recentedits/logger"
	"recentedits/text"
	"recentedits/tracker"
	"recentedits/window"

	"github.com/neovim/go-client/nvim"
)

// RPC method names handled by a Watcher.
const (
	MethodChanged = "recentedits_changed"
	MethodClosed  = "recentedits_closed"
	MethodHunks   = "recentedits_hunks"
	MethodDump    = "recentedits_dump"
)

// Snapshot is the state of one Neovim buffer as read in a single batch.
type Snapshot struct {
	Name       string
	Lines      [][]byte
	Cwd        string
	FileFormat string // unix, dos or mac
	EOL        bool   // 'eol': the last line ends with a line terminator
}

// Path returns the buffer name relative to the working directory.
func (s Snapshot) Path() string {
	return makeRelativeToWorkspace(s.Name, s.Cwd)
}

// Content joins the buffer lines with the buffer's line terminator.
func (s Snapshot) Content() string {
	eol := "\n"
	switch s.FileFormat {
	case "dos":
		eol = "\r\n"
	case "mac":
		eol = "\r"
	}

	var sb strings.Builder
	for i, line := range s.Lines {
		if i > 0 {
			sb.WriteString(eol)
		}
		sb.Write(line)
	}
	if s.EOL && len(s.Lines) > 0 {
		sb.WriteString(eol)
	}
	return sb.String()
}

// Watcher feeds the buffers of one Neovim client into a tracker and serves
// rendered hunks back to it.
type Watcher struct {
	client  *nvim.Nvim
	tracker *tracker.Tracker
}

func New(t *tracker.Tracker) *Watcher {
	return &Watcher{tracker: t}
}

// SetClient stores the nvim client for all buffer operations
func (w *Watcher) SetClient(n *nvim.Nvim) {
	w.client = n
}

// Register installs the RPC handlers on the client.
func (w *Watcher) Register() error {
	if w.client == nil {
		return fmt.Errorf("nvim client not set")
	}
	if err := w.client.RegisterHandler(MethodChanged, func(_ *nvim.Nvim, buf int) {
		if err := w.Changed(nvim.Buffer(buf)); err != nil {
			logger.Warn("%s: %v", MethodChanged, err)
		}
	}); err != nil {
		return err
	}
	if err := w.client.RegisterHandler(MethodClosed, func(_ *nvim.Nvim, buf int) {
		if err := w.Closed(nvim.Buffer(buf)); err != nil {
			logger.Warn("%s: %v", MethodClosed, err)
		}
	}); err != nil {
		return err
	}
	if err := w.client.RegisterHandler(MethodHunks, func(_ *nvim.Nvim) ([]string, error) {
		return FormatHunks(w.tracker.AllHunks()), nil
	}); err != nil {
		return err
	}
	return w.client.RegisterHandler(MethodDump, func(_ *nvim.Nvim, buf int, file string) error {
		return w.Dump(nvim.Buffer(buf), file)
	})
}

// Read fetches the state of buf in one round-trip.
func (w *Watcher) Read(buf nvim.Buffer) (Snapshot, error) {
	defer logger.Trace("buffer.Read")()
	if w.client == nil {
		return Snapshot{}, fmt.Errorf("nvim client not set")
	}

	// Use batch API to make all calls in a single round-trip
	batch := w.client.NewBatch()

	var s Snapshot
	batch.BufferName(buf, &s.Name)
	batch.BufferLines(buf, 0, -1, false, &s.Lines)
	batch.ExecLua(`return vim.fn.getcwd()`, &s.Cwd)
	batch.ExecLua(`
		local b = ...
		return vim.bo[b].fileformat
	`, &s.FileFormat, int(buf))
	batch.ExecLua(`
		local b = ...
		return vim.bo[b].eol
	`, &s.EOL, int(buf))

	if err := batch.Execute(); err != nil {
		logger.Error("error executing read batch: %v", err)
		return Snapshot{}, err
	}
	return s, nil
}

// Changed records the current content of buf.
func (w *Watcher) Changed(buf nvim.Buffer) error {
	s, err := w.Read(buf)
	if err != nil {
		return err
	}
	return w.Record(s)
}

// Record feeds a buffer snapshot into the tracker. Unnamed buffers are
// ignored.
func (w *Watcher) Record(s Snapshot) error {
	if s.Name == "" {
		return nil
	}
	return w.tracker.Sync(s.Path(), s.Content())
}

// Closed stops tracking buf.
func (w *Watcher) Closed(buf nvim.Buffer) error {
	s, err := w.Read(buf)
	if err != nil {
		return err
	}
	w.tracker.Close(s.Path())
	return nil
}

// Dump writes the change window of buf to file for later replay.
func (w *Watcher) Dump(buf nvim.Buffer, file string) error {
	s, err := w.Read(buf)
	if err != nil {
		return err
	}
	win, ok := w.tracker.Window(s.Path())
	if !ok {
		return fmt.Errorf("%s: %w", s.Path(), tracker.ErrNotTracked)
	}
	return window.WriteFile(file, win)
}

// FormatHunks renders hunks for display, each headed by its document.
func FormatHunks(hunks []text.DiffHunk) []string {
	out := make([]string, len(hunks))
	for i, h := range hunks {
		out[i] = h.URI + "\n" + h.Diff
	}
	return out
}

// Helper function to convert absolute path to relative workspace path
func makeRelativeToWorkspace(absolutePath, workspacePath string) string {
	if workspacePath == "" {
		return absolutePath
	}
	absolutePath = filepath.Clean(absolutePath)
	workspacePath = filepath.Clean(workspacePath)

	// If the file is within the workspace, make it relative
	if relativePath, found := strings.CutPrefix(absolutePath, workspacePath+string(filepath.Separator)); found {
		return relativePath
	}

	return absolutePath
}
