package issuer

import "errors"

// Issuance errors. All of them leave the issuer's counters untouched.
var (
	// ErrInvalidGeneratorID is returned by New when the generator id is
	// outside [1, MaxGeneratorID-1] for the chosen layout.
	ErrInvalidGeneratorID = errors.New("invalid generator id")

	// ErrInvalidLayout is returned when the bit widths cannot form a valid id.
	ErrInvalidLayout = errors.New("invalid id layout")

	// ErrInvalidArgument is returned when fewer than one id is requested.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCapacityExceeded is returned under PolicyStrict when the current
	// second has fewer sequence values left than requested.
	ErrCapacityExceeded = errors.New("sequence capacity exceeded")

	// ErrClockOverflow is returned when the current time cannot be encoded in
	// the timestamp field (past the last representable second or before Epoch).
	ErrClockOverflow = errors.New("clock outside encodable range")
)
