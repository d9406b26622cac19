package issuer

import (
	"fmt"
	"strconv"
	"time"
)

// ID is an issued identifier. It is a plain value and safe to copy.
type ID int64

// ParseID parses the decimal form produced by ID.String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("parse id %q: negative value", s)
	}
	return ID(v), nil
}

// DecodeCreationTime returns the second id was issued in. It depends only on
// the id value and assumes a layout with 31 generator+sequence bits, which
// covers DefaultLayout and WideSequenceLayout.
func DecodeCreationTime(id ID) time.Time {
	return DefaultLayout.CreationTime(id)
}

// Int64 returns the raw value.
func (id ID) Int64() int64 { return int64(id) }

// CreatedAt is shorthand for DecodeCreationTime(id).
func (id ID) CreatedAt() time.Time { return DecodeCreationTime(id) }

// String returns the decimal form.
func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// MarshalText encodes the id as a decimal string. JSON clients limited to
// 53-bit integers keep the exact value this way.
func (id ID) MarshalText() ([]byte, error) {
	return strconv.AppendInt(nil, int64(id), 10), nil
}

// UnmarshalText is the inverse of MarshalText.
func (id *ID) UnmarshalText(b []byte) error {
	v, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
