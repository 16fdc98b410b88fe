package text

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a change does not fit the document it is
// applied to. It signals an inconsistent change stream, not a user error.
var ErrOutOfRange = errors.New("change out of range")

// OutOfRangeError describes the offending change. It unwraps to ErrOutOfRange.
type OutOfRangeError struct {
	Index          int // position of the change in its batch
	Offset         int
	Length         int
	DocumentLength int // UTF-16 length of the document the change was applied to
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("change %d: range [%d, %d) outside document of length %d",
		e.Index, e.Offset, e.Offset+e.Length, e.DocumentLength)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

func checkBounds(index int, c ContentChange, docLen int) error {
	if c.RangeOffset < 0 || c.RangeLength < 0 || c.RangeOffset+c.RangeLength > docLen {
		return &OutOfRangeError{Index: index, Offset: c.RangeOffset, Length: c.RangeLength, DocumentLength: docLen}
	}
	return nil
}

// ApplyChanges applies changes to content in order. Each change is
// interpreted against the result of the previous one, the way editors report
// sequential batches. No line-ending normalization is done.
func ApplyChanges(content string, changes []ContentChange) (string, error) {
	if len(changes) == 0 {
		return content, nil
	}
	units := encodeUTF16(content)
	for i, c := range changes {
		var err error
		if units, err = applyUnits(units, i, c); err != nil {
			return "", err
		}
	}
	return decodeUTF16(units), nil
}

// applyUnits splices c into units, returning a new slice. units is not modified.
func applyUnits(units []uint16, index int, c ContentChange) ([]uint16, error) {
	if err := checkBounds(index, c, len(units)); err != nil {
		return nil, err
	}
	inserted := encodeUTF16(c.Text)
	out := make([]uint16, 0, len(units)-c.RangeLength+len(inserted))
	out = append(out, units[:c.RangeOffset]...)
	out = append(out, inserted...)
	out = append(out, units[c.RangeOffset+c.RangeLength:]...)
	return out, nil
}

// SnapshotChain returns every document state of a change window:
// snapshots[0] is oldContent and snapshots[i+1] is the state after
// changes[i]. Range and InsertedRange of the returned changes are recomputed
// from the chain, so callers may pass changes with only Change and Timestamp
// set.
func SnapshotChain(oldContent string, changes []TimestampedChange) ([]string, []TimestampedChange, error) {
	snapshots := make([]string, 0, len(changes)+1)
	snapshots = append(snapshots, oldContent)
	resolved := make([]TimestampedChange, len(changes))

	units := encodeUTF16(oldContent)
	for i, c := range changes {
		if err := checkBounds(i, c.Change, len(units)); err != nil {
			return nil, nil, err
		}
		resolved[i] = timestampedFromUnits(units, c.Change, c.Timestamp)
		next, err := applyUnits(units, i, c.Change)
		if err != nil {
			return nil, nil, err
		}
		units = next
		snapshots = append(snapshots, decodeUTF16(units))
	}
	return snapshots, resolved, nil
}
