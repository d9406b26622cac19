package issuer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Policy selects how an Issuer handles a second that cannot satisfy a request.
type Policy int

const (
	// PolicyStrict rejects the request with ErrCapacityExceeded.
	PolicyStrict Policy = iota
	// PolicyBackpressure issues what fits and suspends until the rest does.
	PolicyBackpressure
)

// String returns "strict" or "backpressure".
func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyBackpressure:
		return "backpressure"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses the String form, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "":
		return PolicyStrict, nil
	case "backpressure":
		return PolicyBackpressure, nil
	default:
		return PolicyStrict, fmt.Errorf("unknown policy %q (valid: strict, backpressure)", s)
	}
}

// WaitReason tells an Observer why a backpressure issuer suspended.
type WaitReason string

// Wait reasons.
const (
	WaitExhausted      WaitReason = "exhausted"
	WaitClockRegressed WaitReason = "clock_regressed"
)

// Observer receives issuance events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	Issued(n int)
	Rejected(err error)
	Suspended(reason WaitReason, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) Issued(int)                          {}
func (nopObserver) Rejected(error)                      {}
func (nopObserver) Suspended(WaitReason, time.Duration) {}

// Option configures an Issuer.
type Option func(*Issuer)

// WithLayout sets the bit layout. Defaults to DefaultLayout.
func WithLayout(l Layout) Option {
	return func(i *Issuer) { i.layout = l }
}

// WithPolicy sets the shortfall policy. Defaults to PolicyStrict.
func WithPolicy(p Policy) Option {
	return func(i *Issuer) { i.policy = p }
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(i *Issuer) {
		if c != nil {
			i.clock = c
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Issuer) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithObserver registers an Observer for issuance events.
func WithObserver(o Observer) Option {
	return func(i *Issuer) {
		if o != nil {
			i.observer = o
		}
	}
}
