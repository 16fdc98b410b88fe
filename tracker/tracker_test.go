package tracker

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"recentedits/assert"
	"recentedits/text"
)

// mockClock implements Clock for testing
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.UnixMilli(1_000_000)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker(t *testing.T, cfg Config, clock Clock) *Tracker {
	t.Helper()
	tr, err := New(cfg, clock)
	assert.NoError(t, err, "New")
	return tr
}

func insert(offset int, s string) text.ContentChange {
	return text.ContentChange{RangeOffset: offset, Text: s}
}

func TestTracker_RecordAndHunks(t *testing.T) {
	clock := newMockClock()
	tr := newTestTracker(t, Config{ContextLines: 1}, clock)

	tr.Open("a.go", "line 1\nline 2\nline 3")
	assert.NoError(t, tr.Record("a.go", insert(14, "new ")), "first change")
	clock.Advance(10 * time.Millisecond)
	assert.NoError(t, tr.Record("a.go", insert(18, "line\n")), "second change")

	hunks, err := tr.Hunks("a.go")
	assert.NoError(t, err, "Hunks")
	assert.Len(t, 1, hunks, "one hunk")
	assert.Equal(t, "2 | line 2\n3+| new line\n4 | line 3", hunks[0].Diff, "diff")
	assert.Equal(t, clock.Now().UnixMilli(), hunks[0].LatestEditTimestamp, "timestamp from clock")
}

func TestTracker_NotTracked(t *testing.T) {
	tr := newTestTracker(t, Config{}, newMockClock())

	assert.ErrorIs(t, tr.Record("missing", insert(0, "x")), ErrNotTracked, "record")
	_, err := tr.Hunks("missing")
	assert.ErrorIs(t, err, ErrNotTracked, "hunks")

	tr.Open("a", "x")
	tr.Close("a")
	assert.ErrorIs(t, tr.Record("a", insert(0, "x")), ErrNotTracked, "after close")
}

func TestTracker_OutOfRangeResetsWindow(t *testing.T) {
	tr := newTestTracker(t, Config{}, newMockClock())
	tr.Open("a", "abc")
	assert.NoError(t, tr.Record("a", insert(3, "d")), "valid change")

	err := tr.Record("a", text.ContentChange{RangeOffset: 10, RangeLength: 1})
	assert.ErrorIs(t, err, text.ErrOutOfRange, "bad change")

	win, ok := tr.Window("a")
	assert.True(t, ok, "still tracked")
	assert.Equal(t, "abcd", win.OldContent, "window restarts from the current text")
	assert.Len(t, 0, win.Changes, "window cleared")
}

func TestTracker_PruneByCount(t *testing.T) {
	tr := newTestTracker(t, Config{MaxWindowChanges: 2}, newMockClock())
	tr.Open("a", "")
	for i, s := range []string{"a", "b", "c", "d"} {
		assert.NoError(t, tr.Record("a", insert(i, s)), "record "+s)
	}

	win, ok := tr.Window("a")
	assert.True(t, ok, "tracked")
	assert.Equal(t, "ab", win.OldContent, "dropped changes folded into the base")
	assert.Len(t, 2, win.Changes, "capped")

	content, err := win.Content()
	assert.NoError(t, err, "content")
	assert.Equal(t, "abcd", content, "base plus window is the current text")
}

func TestTracker_PruneByAge(t *testing.T) {
	clock := newMockClock()
	tr := newTestTracker(t, Config{MaxWindowAge: time.Second}, clock)
	tr.Open("a", "one\n")

	assert.NoError(t, tr.Record("a", insert(4, "two\n")), "old change")
	clock.Advance(2 * time.Second)
	assert.NoError(t, tr.Record("a", insert(8, "three\n")), "new change")

	hunks, err := tr.Hunks("a")
	assert.NoError(t, err, "Hunks")
	assert.Len(t, 1, hunks, "one hunk")
	assert.Equal(t, "3+| three", hunks[0].Diff, "only the recent change is shown")

	clock.Advance(2 * time.Second)
	hunks, err = tr.Hunks("a")
	assert.NoError(t, err, "Hunks")
	assert.Len(t, 0, hunks, "everything aged out")
}

func TestTracker_Sync(t *testing.T) {
	tr := newTestTracker(t, Config{ContextLines: 0}, newMockClock())

	assert.NoError(t, tr.Sync("a", "let x = 5;"), "first sync opens")
	assert.NoError(t, tr.Sync("a", "let x = 5;"), "no change")
	assert.NoError(t, tr.Sync("a", "const x = 5;"), "edit")

	win, _ := tr.Window("a")
	assert.Len(t, 1, win.Changes, "one change recorded")

	hunks, err := tr.Hunks("a")
	assert.NoError(t, err, "Hunks")
	assert.Equal(t, "1-| let x = 5;\n1+| const x = 5;", hunks[0].Diff, "diff")
}

func TestTracker_EvictsLeastRecentlyUsed(t *testing.T) {
	clock := newMockClock()
	tr := newTestTracker(t, Config{MaxDocuments: 2}, clock)

	tr.Open("a", "")
	clock.Advance(time.Millisecond)
	tr.Open("b", "")
	clock.Advance(time.Millisecond)
	assert.NoError(t, tr.Record("a", insert(0, "x")), "touch a")
	clock.Advance(time.Millisecond)
	tr.Open("c", "")

	assert.Equal(t, []string{"a", "c"}, tr.Documents(), "b was least recently used")
}

func TestTracker_AllHunksOrderedAndTrimmed(t *testing.T) {
	clock := newMockClock()
	tr := newTestTracker(t, Config{ContextLines: 0}, clock)

	tr.Open("a", "")
	tr.Open("b", "")
	assert.NoError(t, tr.Record("b", insert(0, "older")), "b")
	clock.Advance(time.Millisecond)
	assert.NoError(t, tr.Record("a", insert(0, "newer")), "a")

	all := tr.AllHunks()
	assert.Len(t, 2, all, "one hunk per document")
	assert.Equal(t, "b", all[0].URI, "oldest first")
	assert.Equal(t, "a", all[1].URI, "newest last")

	tr.config.MaxDiffTokens = 5
	all = tr.AllHunks()
	assert.Len(t, 1, all, "budget keeps the newest")
	assert.Equal(t, "a", all[0].URI, "newest kept")
}

func TestTracker_ConcurrentUse(t *testing.T) {
	tr := newTestTracker(t, DefaultConfig(), newMockClock())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		uri := fmt.Sprintf("doc%d", i)
		tr.Open(uri, "")
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if err := tr.Record(uri, insert(j, "x")); err != nil {
					t.Errorf("record: %v", err)
					return
				}
				tr.AllHunks()
			}
		}()
	}
	wg.Wait()

	for _, uri := range tr.Documents() {
		win, _ := tr.Window(uri)
		content, err := win.Content()
		assert.NoError(t, err, "content")
		assert.Len(t, 50, content, "every change applied")
	}
}

func TestNew_UnknownStrategy(t *testing.T) {
	_, err := New(Config{Strategy: "nope"}, nil)
	assert.Error(t, err, "unknown strategy")
}
