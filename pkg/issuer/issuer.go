package issuer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/uidgen/uidgen/pkg/logging"
)

// Issuer mints identifiers for one generator id. It is safe for concurrent
// use; all callers share one per-second sequence budget.
type Issuer struct {
	generatorID int64
	layout      Layout
	policy      Policy
	clock       Clock
	logger      *slog.Logger
	observer    Observer

	// mu guards sequence and issuedSeconds. It is never held while encoding
	// or while a backpressure caller is suspended.
	mu            sync.Mutex
	sequence      int64
	issuedSeconds int64
}

// Stats is a point-in-time view of an Issuer's counters.
type Stats struct {
	GeneratorID   int64  `json:"generatorId"`
	Policy        string `json:"policy"`
	Layout        string `json:"layout"`
	IssuedSeconds int64  `json:"issuedSeconds"`
	Sequence      int64  `json:"sequence"`
	Headroom      int64  `json:"headroom"`
}

// reservation is a contiguous run of sequence values granted under the lock.
// wait is non-zero when the caller must suspend before asking again.
type reservation struct {
	issueSeconds int64
	first        int64
	count        int
	wait         time.Duration
	reason       WaitReason
}

// New creates an Issuer for generatorID, which must be in
// [1, layout.MaxGeneratorID()-1].
func New(generatorID int64, opts ...Option) (*Issuer, error) {
	i := &Issuer{
		generatorID: generatorID,
		layout:      DefaultLayout,
		policy:      PolicyStrict,
		clock:       SystemClock(),
		logger:      logging.Nop(),
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(i)
	}

	if err := i.layout.Validate(); err != nil {
		return nil, err
	}
	if i.policy != PolicyStrict && i.policy != PolicyBackpressure {
		return nil, fmt.Errorf("%w: unknown policy %d", ErrInvalidArgument, int(i.policy))
	}
	if generatorID <= 0 {
		return nil, fmt.Errorf("%w: %d must be larger than zero", ErrInvalidGeneratorID, generatorID)
	}
	if generatorID >= i.layout.MaxGeneratorID() {
		return nil, fmt.Errorf("%w: %d must be lower than %d", ErrInvalidGeneratorID, generatorID, i.layout.MaxGeneratorID())
	}

	i.logger = i.logger.With("generator_id", generatorID, "policy", i.policy.String())
	return i, nil
}

// GeneratorID returns the generator id encoded into every ID.
func (i *Issuer) GeneratorID() int64 { return i.generatorID }

// Layout returns the bit layout.
func (i *Issuer) Layout() Layout { return i.layout }

// Policy returns the shortfall policy.
func (i *Issuer) Policy() Policy { return i.policy }

// Next issues a single identifier.
func (i *Issuer) Next(ctx context.Context) (ID, error) {
	ids, err := i.Issue(ctx, 1)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// Issue returns count identifiers in ascending order.
//
// Under PolicyStrict it never blocks and fails with ErrCapacityExceeded if
// the current second cannot hold all of them. Under PolicyBackpressure it
// may span several seconds; if ctx ends while suspended, the ids already
// reserved are discarded and ctx.Err() is returned.
func (i *Issuer) Issue(ctx context.Context, count int) ([]ID, error) {
	if count <= 0 {
		err := fmt.Errorf("%w: count must be larger than zero, got %d", ErrInvalidArgument, count)
		i.observer.Rejected(err)
		return nil, err
	}
	if i.policy == PolicyStrict {
		return i.issueStrict(count)
	}
	return i.issueBackpressure(ctx, nil, count)
}

func (i *Issuer) issueStrict(count int) ([]ID, error) {
	r, err := i.reserve(count, false)
	if err != nil {
		i.observer.Rejected(err)
		return nil, err
	}
	ids := i.encode(make([]ID, 0, count), r)
	i.observer.Issued(len(ids))
	return ids, nil
}

// issueBackpressure continues a request that already holds ids.
func (i *Issuer) issueBackpressure(ctx context.Context, ids []ID, remaining int) ([]ID, error) {
	if ids == nil {
		ids = make([]ID, 0, remaining)
	}
	for {
		r, err := i.reserve(remaining, true)
		if err != nil {
			i.observer.Rejected(err)
			return nil, err
		}
		ids = i.encode(ids, r)
		remaining -= r.count
		if remaining == 0 {
			i.observer.Issued(len(ids))
			return ids, nil
		}

		if err := i.suspend(ctx, r); err != nil {
			i.observer.Rejected(err)
			return nil, err
		}
	}
}

func (i *Issuer) suspend(ctx context.Context, r reservation) error {
	i.observer.Suspended(r.reason, r.wait)
	if r.reason == WaitClockRegressed {
		i.logger.Warn("clock moved backwards, suspending issuance",
			"issued_seconds", r.issueSeconds, "wait", r.wait)
	} else {
		i.logger.Debug("sequence exhausted, suspending issuance",
			"issued_seconds", r.issueSeconds, "wait", r.wait)
	}
	return i.clock.Sleep(ctx, r.wait)
}

// reserve runs the critical section: read the clock, roll the second over
// if it advanced, and grant up to count sequence values. With partial set
// a shortfall is reported through reservation.wait instead of an error.
func (i *Issuer) reserve(count int, partial bool) (reservation, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	current, err := i.layout.issueSeconds(i.clock.Now())
	if err != nil {
		return reservation{}, err
	}

	if partial && current < i.issuedSeconds {
		return reservation{
			issueSeconds: i.issuedSeconds,
			wait:         time.Duration(i.issuedSeconds-current) * time.Second,
			reason:       WaitClockRegressed,
		}, nil
	}

	// Checked before mutating so a rejection leaves the state untouched.
	sequence := i.sequence
	if current > i.issuedSeconds {
		sequence = 0
	}
	headroom := i.layout.MaxSequencePerSecond() - sequence - 1

	r := reservation{first: sequence + 1, count: count}
	if int64(count) > headroom {
		if !partial {
			return reservation{}, fmt.Errorf("%w: requested %d, %d left this second (max %d per second)",
				ErrCapacityExceeded, count, headroom, i.layout.MaxSequencePerSecond()-1)
		}
		r.count = int(headroom)
		r.wait = time.Second
		r.reason = WaitExhausted
	}

	if current > i.issuedSeconds {
		i.issuedSeconds = current
	}
	i.sequence = sequence + int64(r.count)
	r.issueSeconds = i.issuedSeconds
	return r, nil
}

func (i *Issuer) encode(dst []ID, r reservation) []ID {
	for n := 0; n < r.count; n++ {
		dst = append(dst, i.layout.Encode(r.issueSeconds, i.generatorID, r.first+int64(n)))
	}
	return dst
}

// Stats returns the current counters. The view reflects the last issuance,
// not the clock: Headroom is not refreshed until the next call to Issue.
func (i *Issuer) Stats() Stats {
	i.mu.Lock()
	defer i.mu.Unlock()
	return Stats{
		GeneratorID:   i.generatorID,
		Policy:        i.policy.String(),
		Layout:        i.layout.String(),
		IssuedSeconds: i.issuedSeconds,
		Sequence:      i.sequence,
		Headroom:      i.layout.MaxSequencePerSecond() - i.sequence - 1,
	}
}

// Pending is the result of IssueAsync.
type Pending struct {
	done chan struct{}
	ids  []ID
	err  error
}

// Done is closed once the ids or an error are available.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the request completes.
func (p *Pending) Wait() ([]ID, error) {
	<-p.done
	return p.ids, p.err
}

// Completed reports whether the request has finished, without blocking.
func (p *Pending) Completed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *Pending) finish(ids []ID, err error) {
	p.ids, p.err = ids, err
	close(p.done)
}

// IssueAsync starts a request and returns without suspending. The first
// reservation happens before IssueAsync returns, so a request that fits the
// current second is already complete; the remainder of a backpressure
// request continues on its own goroutine.
func (i *Issuer) IssueAsync(ctx context.Context, count int) *Pending {
	p := &Pending{done: make(chan struct{})}
	if count <= 0 || i.policy == PolicyStrict {
		p.finish(i.Issue(ctx, count))
		return p
	}

	r, err := i.reserve(count, true)
	if err != nil {
		i.observer.Rejected(err)
		p.finish(nil, err)
		return p
	}
	ids := i.encode(make([]ID, 0, count), r)
	if r.count == count {
		i.observer.Issued(len(ids))
		p.finish(ids, nil)
		return p
	}

	go func() {
		if err := i.suspend(ctx, r); err != nil {
			i.observer.Rejected(err)
			p.finish(nil, err)
			return
		}
		p.finish(i.issueBackpressure(ctx, ids, count-r.count))
	}()
	return p
}

// IsCapacityError reports whether err means the current second is full.
func IsCapacityError(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}
