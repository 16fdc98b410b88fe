package window

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"recentedits/text"

	"github.com/andybalholm/brotli"
)

// CompressedExt marks window files stored brotli-compressed.
const CompressedExt = ".br"

// Window is a recorded change window: a document's content before the first
// change and the changes made since, oldest first.
type Window struct {
	URI        string                   `json:"uri"`
	OldContent string                   `json:"oldContent"`
	Changes    []text.TimestampedChange `json:"changes"`
}

// Content returns the document content after every change in the window.
func (w Window) Content() (string, error) {
	contents := make([]text.ContentChange, len(w.Changes))
	for i, c := range w.Changes {
		contents[i] = c.Change
	}
	return text.ApplyChanges(w.OldContent, contents)
}

// Replay renders the window's hunks with s.
func (w Window) Replay(s *text.Strategy) ([]text.DiffHunk, error) {
	return s.GetDiffHunks(w.URI, w.OldContent, w.Changes)
}

// Encode writes win as JSON, brotli-compressed when compress is set.
func Encode(w io.Writer, win Window, compress bool) error {
	data, err := json.Marshal(win)
	if err != nil {
		return fmt.Errorf("failed to marshal window: %w", err)
	}
	if !compress {
		_, err = w.Write(data)
		return err
	}

	// Quality 1 for speed
	bw := brotli.NewWriterLevel(w, 1)
	if _, err := bw.Write(data); err != nil {
		return fmt.Errorf("failed to compress window: %w", err)
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("failed to close brotli writer: %w", err)
	}
	return nil
}

// Decode reads a window written by Encode, compressed or not.
func Decode(r io.Reader) (Window, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Window{}, err
	}

	var win Window
	if json.Valid(data) {
		if err := json.Unmarshal(data, &win); err != nil {
			return Window{}, fmt.Errorf("failed to unmarshal window: %w", err)
		}
		return win, nil
	}

	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		return Window{}, fmt.Errorf("window is neither JSON nor brotli: %w", err)
	}
	if err := json.Unmarshal(plain, &win); err != nil {
		return Window{}, fmt.Errorf("failed to unmarshal window: %w", err)
	}
	return win, nil
}

// WriteFile stores win at path, compressed when path ends in CompressedExt.
func WriteFile(path string, win Window) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, win, strings.HasSuffix(path, CompressedExt)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads a window stored by WriteFile.
func ReadFile(path string) (Window, error) {
	f, err := os.Open(path)
	if err != nil {
		return Window{}, err
	}
	defer f.Close()

	win, err := Decode(f)
	if err != nil {
		return Window{}, fmt.Errorf("%s: %w", path, err)
	}
	return win, nil
}
