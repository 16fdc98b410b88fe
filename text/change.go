package text

import "unicode/utf16"

// Position is a zero-based line and character in a document. Character
// counts UTF-16 code units, following LSP conventions.
type Position struct {
	Line      int
	Character int
}

// Range is a half-open span [Start, End) of a document.
type Range struct {
	Start Position
	End   Position
}

// ContentChange is a single substitution: remove RangeLength UTF-16 code
// units at RangeOffset and insert Text there. Offsets refer to the document
// as it was when the change was captured.
type ContentChange struct {
	RangeOffset int    `json:"rangeOffset"`
	RangeLength int    `json:"rangeLength"`
	Text        string `json:"text"`
}

// TimestampedChange is a ContentChange as observed in an editor.
type TimestampedChange struct {
	Timestamp int64         `json:"timestamp"` // monotonic, milliseconds
	Change    ContentChange `json:"change"`
	// Range is the span the change replaced, in the document before it.
	Range Range `json:"range"`
	// InsertedRange is the span the inserted text occupies after the change.
	InsertedRange Range `json:"insertedRange"`
}

// NewTimestampedChange fills in Range and InsertedRange for change as
// applied to before.
func NewTimestampedChange(before string, change ContentChange, timestamp int64) (TimestampedChange, error) {
	units := encodeUTF16(before)
	if err := checkBounds(0, change, len(units)); err != nil {
		return TimestampedChange{}, err
	}
	return timestampedFromUnits(units, change, timestamp), nil
}

func timestampedFromUnits(units []uint16, change ContentChange, timestamp int64) TimestampedChange {
	start := positionAt(units, change.RangeOffset)
	end := advance(start, units[change.RangeOffset:change.RangeOffset+change.RangeLength])
	return TimestampedChange{
		Timestamp:     timestamp,
		Change:        change,
		Range:         Range{Start: start, End: end},
		InsertedRange: Range{Start: start, End: advance(start, encodeUTF16(change.Text))},
	}
}

func positionAt(units []uint16, offset int) Position {
	return advance(Position{}, units[:offset])
}

// advance returns the position reached by writing units starting at p.
func advance(p Position, units []uint16) Position {
	for _, u := range units {
		if u == '\n' {
			p.Line++
			p.Character = 0
		} else {
			p.Character++
		}
	}
	return p
}

// ChangeBetween returns the smallest single change that turns before into
// after, or false if the two are equal. Surrogate pairs are never split.
func ChangeBetween(before, after string) (ContentChange, bool) {
	if before == after {
		return ContentChange{}, false
	}
	a, b := encodeUTF16(before), encodeUTF16(after)

	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	if prefix > 0 && isHighSurrogate(a[prefix-1]) {
		prefix--
	}

	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix && a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}
	if suffix > 0 && isLowSurrogate(a[len(a)-suffix]) {
		suffix--
	}

	return ContentChange{
		RangeOffset: prefix,
		RangeLength: len(a) - prefix - suffix,
		Text:        decodeUTF16(b[prefix : len(b)-suffix]),
	}, true
}

func isHighSurrogate(u uint16) bool { return u >= 0xD800 && u < 0xDC00 }
func isLowSurrogate(u uint16) bool  { return u >= 0xDC00 && u < 0xE000 }

func encodeUTF16(s string) []uint16 {
	if s == "" {
		return nil
	}
	return utf16.Encode([]rune(s))
}

func decodeUTF16(units []uint16) string {
	if len(units) == 0 {
		return ""
	}
	return string(utf16.Decode(units))
}
