package issuer

import (
	"fmt"
	"time"
)

// Epoch is the instant issue seconds are counted from.
var Epoch = time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)

// idBits is the number of usable bits in an ID; the sign bit stays zero.
const idBits = 63

// minTimestampBits keeps at least uint32 worth of seconds (~136 years).
const minTimestampBits = 32

// Layout describes the generator and sequence field widths of an ID.
// The timestamp field takes the remaining bits.
type Layout struct {
	GeneratorBits uint `json:"generatorBits" yaml:"generatorBits"`
	SequenceBits  uint `json:"sequenceBits" yaml:"sequenceBits"`
}

// Predefined layouts. Both leave 32 bits for the timestamp, so they share
// the same shift when decoding creation time.
var (
	DefaultLayout      = Layout{GeneratorBits: 14, SequenceBits: 17}
	WideSequenceLayout = Layout{GeneratorBits: 11, SequenceBits: 20}
)

// Default layout limits.
const (
	MaxGeneratorID       = 1 << 14
	MaxSequencePerSecond = 1 << 17
)

// Parts holds the decoded fields of an ID.
type Parts struct {
	IssueSeconds int64 `json:"issueSeconds"`
	GeneratorID  int64 `json:"generatorId"`
	Sequence     int64 `json:"sequence"`
}

// Validate checks that the widths leave room for the timestamp.
func (l Layout) Validate() error {
	if l.GeneratorBits == 0 || l.SequenceBits == 0 {
		return fmt.Errorf("%w: generator and sequence widths must be positive (got %d/%d)",
			ErrInvalidLayout, l.GeneratorBits, l.SequenceBits)
	}
	if l.GeneratorBits+l.SequenceBits > idBits-minTimestampBits {
		return fmt.Errorf("%w: %d generator + %d sequence bits leave fewer than %d timestamp bits",
			ErrInvalidLayout, l.GeneratorBits, l.SequenceBits, minTimestampBits)
	}
	return nil
}

// String returns the layout as "g<bits>s<bits>".
func (l Layout) String() string {
	return fmt.Sprintf("g%ds%d", l.GeneratorBits, l.SequenceBits)
}

// TimestampBits returns the width of the issue-seconds field.
func (l Layout) TimestampBits() uint {
	return idBits - l.GeneratorBits - l.SequenceBits
}

// MaxGeneratorID returns 2^GeneratorBits. Valid generator ids are below it.
func (l Layout) MaxGeneratorID() int64 {
	return 1 << l.GeneratorBits
}

// MaxSequencePerSecond returns 2^SequenceBits.
func (l Layout) MaxSequencePerSecond() int64 {
	return 1 << l.SequenceBits
}

// MaxIssueSeconds returns the largest encodable issue second.
func (l Layout) MaxIssueSeconds() int64 {
	return 1<<l.TimestampBits() - 1
}

func (l Layout) timestampShift() uint {
	return l.GeneratorBits + l.SequenceBits
}

// Encode packs the three fields into an ID. Inputs are not range checked.
func (l Layout) Encode(issueSeconds, generatorID, sequence int64) ID {
	return ID(issueSeconds<<l.timestampShift() | generatorID<<l.SequenceBits | sequence)
}

// Decompose splits an ID into its fields.
func (l Layout) Decompose(id ID) Parts {
	v := uint64(id)
	return Parts{
		IssueSeconds: int64(v >> l.timestampShift()),
		GeneratorID:  int64(v>>l.SequenceBits) & (l.MaxGeneratorID() - 1),
		Sequence:     int64(v) & (l.MaxSequencePerSecond() - 1),
	}
}

// CreationTime returns the second the ID was issued in.
func (l Layout) CreationTime(id ID) time.Time {
	return time.Unix(Epoch.Unix()+int64(uint64(id)>>l.timestampShift()), 0).UTC()
}

// issueSeconds converts a wall clock reading to an issue second.
func (l Layout) issueSeconds(now time.Time) (int64, error) {
	if now.Before(Epoch) {
		return 0, fmt.Errorf("%w: %s is before epoch %s",
			ErrClockOverflow, now.UTC().Format(time.RFC3339), Epoch.Format(time.RFC3339))
	}
	// Unix arithmetic avoids time.Duration's ~292 year limit.
	seconds := now.Unix() - Epoch.Unix()
	if seconds > l.MaxIssueSeconds() {
		return 0, fmt.Errorf("%w: %d seconds since epoch exceed %d-bit timestamp",
			ErrClockOverflow, seconds, l.TimestampBits())
	}
	return seconds, nil
}
