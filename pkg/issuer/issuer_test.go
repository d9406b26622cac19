package issuer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// testStart sits mid-second so sub-second jitter never crosses a boundary.
var testStart = Epoch.Add(1000*time.Second + 500*time.Millisecond)

func newTestIssuer(t *testing.T, policy Policy, opts ...Option) (*Issuer, *ManualClock) {
	t.Helper()
	clock := NewManualClock(testStart)
	opts = append([]Option{WithPolicy(policy), WithClock(clock)}, opts...)
	iss, err := New(1, opts...)
	require.NoError(t, err)
	return iss, clock
}

func distinctCreationTimes(ids []ID) map[time.Time]int {
	out := make(map[time.Time]int)
	for _, id := range ids {
		out[id.CreatedAt()]++
	}
	return out
}

func TestNew_GeneratorIDRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      int64
		layout  Layout
		wantErr bool
	}{
		{"zero", 0, DefaultLayout, true},
		{"negative", -1, DefaultLayout, true},
		{"one", 1, DefaultLayout, false},
		{"max minus one", MaxGeneratorID - 1, DefaultLayout, false},
		{"max", MaxGeneratorID, DefaultLayout, true},
		{"above max", MaxGeneratorID + 1, DefaultLayout, true},
		{"wide max minus one", 2047, WideSequenceLayout, false},
		{"wide max", 2048, WideSequenceLayout, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			iss, err := New(tt.id, WithLayout(tt.layout))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidGeneratorID)
				assert.Nil(t, iss)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, iss.GeneratorID())
		})
	}
}

func TestNew_RejectsInvalidLayout(t *testing.T) {
	t.Parallel()

	_, err := New(1, WithLayout(Layout{GeneratorBits: 16, SequenceBits: 16}))
	require.ErrorIs(t, err, ErrInvalidLayout)

	_, err = New(1, WithLayout(Layout{GeneratorBits: 0, SequenceBits: 20}))
	require.ErrorIs(t, err, ErrInvalidLayout)
}

func TestIssue_InvalidCount(t *testing.T) {
	t.Parallel()

	for _, policy := range []Policy{PolicyStrict, PolicyBackpressure} {
		iss, _ := newTestIssuer(t, policy)
		before := iss.Stats()

		for _, count := range []int{0, -1} {
			ids, err := iss.Issue(context.Background(), count)
			require.ErrorIs(t, err, ErrInvalidArgument, "policy %s count %d", policy, count)
			assert.Nil(t, ids)
		}
		assert.Equal(t, before, iss.Stats(), "failed calls must not touch counters")
	}
}

func TestIssue_EncodesContiguousAscendingSequences(t *testing.T) {
	t.Parallel()
	iss, _ := newTestIssuer(t, PolicyStrict)

	first, err := iss.Issue(context.Background(), 3)
	require.NoError(t, err)
	second, err := iss.Issue(context.Background(), 2)
	require.NoError(t, err)

	all := append(first, second...)
	for n, id := range all {
		parts := DefaultLayout.Decompose(id)
		assert.Equal(t, int64(1000), parts.IssueSeconds)
		assert.Equal(t, int64(1), parts.GeneratorID)
		assert.Equal(t, int64(n+1), parts.Sequence, "sequence starts at 1 and has no gaps")
		if n > 0 {
			assert.Greater(t, id, all[n-1])
		}
	}
}

func TestIssue_FullSecondSharesCreationTime(t *testing.T) {
	t.Parallel()

	for _, policy := range []Policy{PolicyStrict, PolicyBackpressure} {
		iss, clock := newTestIssuer(t, policy)

		ids, err := iss.Issue(context.Background(), MaxSequencePerSecond-1)
		require.NoError(t, err)
		require.Len(t, ids, MaxSequencePerSecond-1)
		assert.Len(t, distinctCreationTimes(ids), 1)
		assert.Empty(t, clock.Slept(), "a request that fits must not suspend")
		assert.Equal(t, int64(0), iss.Stats().Headroom)
	}
}

func TestStrict_CapacityExceededIssuesNothing(t *testing.T) {
	t.Parallel()
	iss, _ := newTestIssuer(t, PolicyStrict)
	before := iss.Stats()

	for _, count := range []int{MaxSequencePerSecond, MaxSequencePerSecond + 10} {
		ids, err := iss.Issue(context.Background(), count)
		require.ErrorIs(t, err, ErrCapacityExceeded)
		assert.True(t, IsCapacityError(err))
		assert.Nil(t, ids)
	}
	assert.Equal(t, before, iss.Stats())

	id, err := iss.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), DefaultLayout.Decompose(id).Sequence)
}

func TestStrict_ExhaustedSecondRecoversAfterBoundary(t *testing.T) {
	t.Parallel()
	iss, clock := newTestIssuer(t, PolicyStrict)

	_, err := iss.Issue(context.Background(), MaxSequencePerSecond-1)
	require.NoError(t, err)

	_, err = iss.Next(context.Background())
	require.ErrorIs(t, err, ErrCapacityExceeded)

	clock.Advance(time.Second)
	id, err := iss.Next(context.Background())
	require.NoError(t, err)
	parts := DefaultLayout.Decompose(id)
	assert.Equal(t, int64(1001), parts.IssueSeconds)
	assert.Equal(t, int64(1), parts.Sequence)
}

func TestBackpressure_SuspendsUntilNextSecond(t *testing.T) {
	t.Parallel()
	iss, clock := newTestIssuer(t, PolicyBackpressure)

	_, err := iss.Issue(context.Background(), MaxSequencePerSecond-1)
	require.NoError(t, err)

	id, err := iss.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second}, clock.Slept())
	assert.Equal(t, Epoch.Add(1001*time.Second), id.CreatedAt())
}

func TestBackpressure_SpansSecondsForOversizedRequest(t *testing.T) {
	t.Parallel()
	iss, clock := newTestIssuer(t, PolicyBackpressure)

	ids, err := iss.Issue(context.Background(), MaxSequencePerSecond)
	require.NoError(t, err)
	require.Len(t, ids, MaxSequencePerSecond)

	counts := distinctCreationTimes(ids)
	assert.Len(t, counts, 2)
	assert.Equal(t, MaxSequencePerSecond-1, counts[Epoch.Add(1000*time.Second)])
	assert.Equal(t, 1, counts[Epoch.Add(1001*time.Second)])
	assert.Equal(t, []time.Duration{time.Second}, clock.Slept())

	for n := 1; n < len(ids); n++ {
		require.Greater(t, ids[n], ids[n-1], "batches are returned in issuance order")
	}
}

func TestBackpressure_WaitsOutClockRegression(t *testing.T) {
	t.Parallel()
	iss, clock := newTestIssuer(t, PolicyBackpressure)

	first, err := iss.Next(context.Background())
	require.NoError(t, err)

	clock.Set(testStart.Add(-5 * time.Second))
	id, err := iss.Next(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{5 * time.Second}, clock.Slept())
	assert.Equal(t, first.CreatedAt(), id.CreatedAt(), "tagged with the corrected second")
	assert.Greater(t, id, first)
}

func TestStrict_ClockRegressionKeepsStaleSecond(t *testing.T) {
	t.Parallel()
	iss, clock := newTestIssuer(t, PolicyStrict)

	first, err := iss.Next(context.Background())
	require.NoError(t, err)

	clock.Set(testStart.Add(-5 * time.Second))
	id, err := iss.Next(context.Background())
	require.NoError(t, err)

	parts := DefaultLayout.Decompose(id)
	assert.Equal(t, int64(1000), parts.IssueSeconds)
	assert.Equal(t, int64(2), parts.Sequence)
	assert.Greater(t, id, first)
	assert.Empty(t, clock.Slept())
}

func TestIssue_ClockOverflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		now  time.Time
	}{
		{"past last second", Epoch.Add(time.Duration(DefaultLayout.MaxIssueSeconds()+1) * time.Second)},
		{"before epoch", Epoch.Add(-time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for _, policy := range []Policy{PolicyStrict, PolicyBackpressure} {
				clock := NewManualClock(tt.now)
				iss, err := New(1, WithPolicy(policy), WithClock(clock))
				require.NoError(t, err)

				ids, err := iss.Issue(context.Background(), 1)
				require.ErrorIs(t, err, ErrClockOverflow)
				assert.Nil(t, ids)
				assert.Equal(t, int64(0), iss.Stats().IssuedSeconds)
			}
		})
	}
}

func TestIssue_LastEncodableSecond(t *testing.T) {
	t.Parallel()
	last := Epoch.Add(time.Duration(DefaultLayout.MaxIssueSeconds()) * time.Second)
	iss, err := New(MaxGeneratorID-1, WithClock(NewManualClock(last)))
	require.NoError(t, err)

	id, err := iss.Next(context.Background())
	require.NoError(t, err)
	assert.Greater(t, id.Int64(), int64(0), "sign bit stays clear")
	assert.Equal(t, last, id.CreatedAt())
}

func TestBackpressure_OverflowDiscardsPartialBatch(t *testing.T) {
	t.Parallel()
	last := Epoch.Add(time.Duration(DefaultLayout.MaxIssueSeconds()) * time.Second)
	clock := NewManualClock(last)
	iss, err := New(1, WithPolicy(PolicyBackpressure), WithClock(clock))
	require.NoError(t, err)

	ids, err := iss.Issue(context.Background(), MaxSequencePerSecond)
	require.ErrorIs(t, err, ErrClockOverflow)
	assert.Nil(t, ids)
	assert.Equal(t, []time.Duration{time.Second}, clock.Slept())
}

// gateClock blocks Sleep until released, so tests can observe a caller
// while it is suspended.
type gateClock struct {
	*ManualClock
	sleeping chan time.Duration
	release  chan struct{}
}

func newGateClock(t time.Time) *gateClock {
	return &gateClock{
		ManualClock: NewManualClock(t),
		sleeping:    make(chan time.Duration, 16),
		release:     make(chan struct{}),
	}
}

func (c *gateClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeping <- d
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.release:
	}
	return c.ManualClock.Sleep(ctx, d)
}

func TestBackpressure_CancelledWhileSuspended(t *testing.T) {
	t.Parallel()
	clock := newGateClock(testStart)
	iss, err := New(1, WithPolicy(PolicyBackpressure), WithClock(clock))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		ids, err := iss.Issue(ctx, MaxSequencePerSecond+5)
		assert.Nil(t, ids)
		done <- err
	}()

	assert.Equal(t, time.Second, <-clock.sleeping)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	// The lock is free and the rest of the second is still exhausted.
	assert.Equal(t, int64(0), iss.Stats().Headroom)
}

func TestIssueAsync_CompletesImmediatelyWhenSecondHasRoom(t *testing.T) {
	t.Parallel()
	clock := newGateClock(testStart)
	iss, err := New(1, WithPolicy(PolicyBackpressure), WithClock(clock))
	require.NoError(t, err)

	first := iss.IssueAsync(context.Background(), MaxSequencePerSecond-1)
	second := iss.IssueAsync(context.Background(), 1)

	assert.True(t, first.Completed())
	assert.False(t, second.Completed())
	assert.Equal(t, time.Second, <-clock.sleeping)

	close(clock.release)
	ids, err := second.Wait()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, Epoch.Add(1001*time.Second), ids[0].CreatedAt())
}

func TestIssueAsync_PendingAfterClockRegression(t *testing.T) {
	t.Parallel()
	clock := newGateClock(testStart)
	iss, err := New(1, WithPolicy(PolicyBackpressure), WithClock(clock))
	require.NoError(t, err)

	first := iss.IssueAsync(context.Background(), 1)
	clock.Set(testStart.Add(-5 * time.Second))
	second := iss.IssueAsync(context.Background(), 1)

	assert.True(t, first.Completed())
	assert.False(t, second.Completed())
	assert.Equal(t, 5*time.Second, <-clock.sleeping)

	close(clock.release)
	<-second.Done()
	ids, err := second.Wait()
	require.NoError(t, err)
	firstIDs, _ := first.Wait()
	assert.Equal(t, firstIDs[0].CreatedAt(), ids[0].CreatedAt())
}

func TestIssueAsync_StrictReturnsCompletedResult(t *testing.T) {
	t.Parallel()
	iss, _ := newTestIssuer(t, PolicyStrict)

	p := iss.IssueAsync(context.Background(), MaxSequencePerSecond)
	require.True(t, p.Completed())
	_, err := p.Wait()
	require.ErrorIs(t, err, ErrCapacityExceeded)

	p = iss.IssueAsync(context.Background(), 0)
	require.True(t, p.Completed())
	_, err = p.Wait()
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestIssue_ConcurrentCallersNeverCollide(t *testing.T) {
	t.Parallel()

	const (
		callers   = 32
		perCaller = 50
		batch     = 4
	)

	for _, policy := range []Policy{PolicyStrict, PolicyBackpressure} {
		iss, err := New(7, WithPolicy(policy))
		require.NoError(t, err)

		var mu sync.Mutex
		seen := make(map[ID]struct{}, callers*perCaller*batch)

		var g errgroup.Group
		for c := 0; c < callers; c++ {
			g.Go(func() error {
				var last ID
				for n := 0; n < perCaller; n++ {
					ids, err := iss.Issue(context.Background(), batch)
					if err != nil {
						return err
					}
					if ids[0] <= last {
						t.Errorf("ids regressed within one caller: %d after %d", ids[0], last)
					}
					last = ids[len(ids)-1]

					mu.Lock()
					for _, id := range ids {
						if _, dup := seen[id]; dup {
							t.Errorf("duplicate id %d", id)
						}
						seen[id] = struct{}{}
					}
					mu.Unlock()
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Len(t, seen, callers*perCaller*batch, "policy %s", policy)
	}
}

func TestBackpressure_ConcurrentCallersAcrossSeconds(t *testing.T) {
	t.Parallel()
	iss, clock := newTestIssuer(t, PolicyBackpressure)

	const callers = 8
	results := make([][]ID, callers)

	var g errgroup.Group
	for c := 0; c < callers; c++ {
		g.Go(func() error {
			ids, err := iss.Issue(context.Background(), MaxSequencePerSecond/4)
			results[c] = ids
			return err
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[ID]struct{})
	var prev time.Time
	for _, ids := range results {
		prev = time.Time{}
		for _, id := range ids {
			_, dup := seen[id]
			require.False(t, dup, "duplicate id %d", id)
			seen[id] = struct{}{}
			assert.False(t, id.CreatedAt().Before(prev), "creation times never regress within a call")
			prev = id.CreatedAt()
		}
	}
	assert.Len(t, seen, callers*(MaxSequencePerSecond/4))
	assert.NotEmpty(t, clock.Slept())
}

type recordingObserver struct {
	mu        sync.Mutex
	issued    int
	rejected  []error
	suspended []WaitReason
}

func (o *recordingObserver) Issued(n int) {
	o.mu.Lock()
	o.issued += n
	o.mu.Unlock()
}

func (o *recordingObserver) Rejected(err error) {
	o.mu.Lock()
	o.rejected = append(o.rejected, err)
	o.mu.Unlock()
}

func (o *recordingObserver) Suspended(reason WaitReason, _ time.Duration) {
	o.mu.Lock()
	o.suspended = append(o.suspended, reason)
	o.mu.Unlock()
}

func TestIssue_NotifiesObserver(t *testing.T) {
	t.Parallel()
	obs := &recordingObserver{}
	iss, clock := newTestIssuer(t, PolicyBackpressure, WithObserver(obs))

	_, err := iss.Issue(context.Background(), MaxSequencePerSecond)
	require.NoError(t, err)
	clock.Set(clock.Now().Add(-3 * time.Second))
	_, err = iss.Next(context.Background())
	require.NoError(t, err)
	_, err = iss.Issue(context.Background(), 0)
	require.Error(t, err)

	assert.Equal(t, MaxSequencePerSecond+1, obs.issued)
	assert.Equal(t, []WaitReason{WaitExhausted, WaitClockRegressed}, obs.suspended)
	require.Len(t, obs.rejected, 1)
	assert.ErrorIs(t, obs.rejected[0], ErrInvalidArgument)
}
