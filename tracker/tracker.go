package tracker

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"recentedits/logger"
	"recentedits/text"
	"recentedits/utils"
	"recentedits/window"
)

// ErrNotTracked is returned for documents that were never opened or have
// been closed or evicted.
var ErrNotTracked = errors.New("document not tracked")

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

type Config struct {
	Strategy         string
	ContextLines     int
	MaxWindowAge     time.Duration // 0 keeps changes regardless of age
	MaxWindowChanges int           // 0 keeps any number of changes
	MaxDocuments     int           // 0 tracks any number of documents
	MaxDiffTokens    int           // 0 returns every hunk
}

// DefaultConfig returns the limits used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Strategy:         text.StrategyLinesBased,
		ContextLines:     text.DefaultContextLines,
		MaxWindowAge:     time.Minute,
		MaxWindowChanges: 500,
		MaxDocuments:     10,
	}
}

// document is the change window of one open document. base plus changes
// always reproduces current.
type document struct {
	base       string
	current    string
	changes    []text.TimestampedChange
	lastAccess time.Time
}

func (d *document) reset() {
	d.base = d.current
	d.changes = nil
}

// Tracker keeps a bounded window of recent changes for each open document
// and renders them as diff hunks. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	config   Config
	strategy *text.Strategy
	clock    Clock
	docs     map[string]*document
}

func New(config Config, clock Clock) (*Tracker, error) {
	strategy, err := text.NewStrategy(config.Strategy, text.Options{ContextLines: config.ContextLines})
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Tracker{
		config:   config,
		strategy: strategy,
		clock:    clock,
		docs:     make(map[string]*document),
	}, nil
}

// Open starts tracking uri with content as its current text, discarding any
// window it had.
func (t *Tracker) Open(uri, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.docs[uri] = &document{base: content, current: content, lastAccess: t.clock.Now()}
	t.evict()
	logger.Debug("tracker: opened %s (%d documents)", uri, len(t.docs))
}

// Close stops tracking uri.
func (t *Tracker) Close(uri string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.docs, uri)
	logger.Debug("tracker: closed %s", uri)
}

// Record appends change, expressed against the document's current text, to
// its window. A change that does not fit the current text means the window
// lost track of the document: the window is cleared and the error returned.
func (t *Tracker) Record(uri string, change text.ContentChange) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, ok := t.docs[uri]
	if !ok {
		return fmt.Errorf("%s: %w", uri, ErrNotTracked)
	}
	return t.record(uri, doc, change)
}

func (t *Tracker) record(uri string, doc *document, change text.ContentChange) error {
	now := t.clock.Now()
	doc.lastAccess = now

	tc, err := text.NewTimestampedChange(doc.current, change, now.UnixMilli())
	if err != nil {
		logger.Warn("tracker: %s: dropping window: %v", uri, err)
		doc.reset()
		return fmt.Errorf("%s: %w", uri, err)
	}
	next, err := text.ApplyChanges(doc.current, []text.ContentChange{change})
	if err != nil {
		doc.reset()
		return fmt.Errorf("%s: %w", uri, err)
	}

	doc.current = next
	doc.changes = append(doc.changes, tc)
	t.prune(uri, doc, now)
	return nil
}

// Sync records whatever turns the document's current text into content, as
// one change. Untracked documents are opened with content.
func (t *Tracker) Sync(uri, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, ok := t.docs[uri]
	if !ok {
		t.docs[uri] = &document{base: content, current: content, lastAccess: t.clock.Now()}
		t.evict()
		return nil
	}
	change, changed := text.ChangeBetween(doc.current, content)
	if !changed {
		doc.lastAccess = t.clock.Now()
		return nil
	}
	return t.record(uri, doc, change)
}

// prune drops changes that are too old or too many, folding them into the
// window's base text.
func (t *Tracker) prune(uri string, doc *document, now time.Time) {
	drop := 0
	if t.config.MaxWindowAge > 0 {
		cutoff := now.Add(-t.config.MaxWindowAge).UnixMilli()
		for drop < len(doc.changes) && doc.changes[drop].Timestamp < cutoff {
			drop++
		}
	}
	if t.config.MaxWindowChanges > 0 {
		drop = max(drop, len(doc.changes)-t.config.MaxWindowChanges)
	}
	if drop == 0 {
		return
	}

	dropped := make([]text.ContentChange, drop)
	for i, c := range doc.changes[:drop] {
		dropped[i] = c.Change
	}
	base, err := text.ApplyChanges(doc.base, dropped)
	if err != nil {
		logger.Error("tracker: %s: window no longer applies to its base: %v", uri, err)
		doc.reset()
		return
	}
	doc.base = base
	doc.changes = slices.Clone(doc.changes[drop:])
	logger.Debug("tracker: %s: pruned %d changes, %d left", uri, drop, len(doc.changes))
}

// evict forgets the least recently used documents beyond MaxDocuments.
func (t *Tracker) evict() {
	if t.config.MaxDocuments <= 0 || len(t.docs) <= t.config.MaxDocuments {
		return
	}

	uris := make([]string, 0, len(t.docs))
	for uri := range t.docs {
		uris = append(uris, uri)
	}
	// Most recent first
	sort.Slice(uris, func(i, j int) bool {
		return t.docs[uris[i]].lastAccess.After(t.docs[uris[j]].lastAccess)
	})
	for _, uri := range uris[t.config.MaxDocuments:] {
		delete(t.docs, uri)
		logger.Debug("tracker: evicted %s", uri)
	}
}

// Hunks renders the window of uri, trimmed to the token budget.
func (t *Tracker) Hunks(uri string) ([]text.DiffHunk, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, ok := t.docs[uri]
	if !ok {
		return nil, fmt.Errorf("%s: %w", uri, ErrNotTracked)
	}
	hunks, err := t.hunks(uri, doc)
	if err != nil {
		return nil, err
	}
	return t.trim(hunks), nil
}

func (t *Tracker) hunks(uri string, doc *document) ([]text.DiffHunk, error) {
	t.prune(uri, doc, t.clock.Now())
	hunks, err := t.strategy.GetDiffHunks(uri, doc.base, doc.changes)
	if err != nil {
		logger.Warn("tracker: dropping window: %v", err)
		doc.reset()
		return nil, err
	}
	return hunks, nil
}

// AllHunks renders every tracked document, oldest hunk first, trimmed to the
// token budget. Documents whose window fails are reset and skipped.
func (t *Tracker) AllHunks() []text.DiffHunk {
	defer logger.Trace("tracker.AllHunks")()
	t.mu.Lock()
	defer t.mu.Unlock()

	var all []text.DiffHunk
	for uri, doc := range t.docs {
		hunks, err := t.hunks(uri, doc)
		if err != nil {
			continue
		}
		all = append(all, hunks...)
	}
	return t.trim(all)
}

// trim orders hunks oldest first and keeps the newest that fit MaxDiffTokens.
func (t *Tracker) trim(hunks []text.DiffHunk) []text.DiffHunk {
	sort.SliceStable(hunks, func(i, j int) bool {
		if hunks[i].LatestEditTimestamp != hunks[j].LatestEditTimestamp {
			return hunks[i].LatestEditTimestamp < hunks[j].LatestEditTimestamp
		}
		return hunks[i].URI < hunks[j].URI
	})
	return utils.TrimToBudget(hunks, func(h text.DiffHunk) string { return h.Diff }, t.config.MaxDiffTokens)
}

// Window returns a copy of the current window of uri.
func (t *Tracker) Window(uri string) (window.Window, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, ok := t.docs[uri]
	if !ok {
		return window.Window{}, false
	}
	return window.Window{
		URI:        uri,
		OldContent: doc.base,
		Changes:    slices.Clone(doc.changes),
	}, true
}

// Documents returns the tracked URIs in sorted order.
func (t *Tracker) Documents() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	uris := make([]string, 0, len(t.docs))
	for uri := range t.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}
