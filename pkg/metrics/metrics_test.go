package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uidgen/uidgen/pkg/issuer"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return New(promauto.With(prometheus.NewRegistry()))
}

func TestRejectReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: count 0", issuer.ErrInvalidArgument), ReasonInvalidArgument},
		{fmt.Errorf("%w: full", issuer.ErrCapacityExceeded), ReasonCapacityExceeded},
		{issuer.ErrClockOverflow, ReasonClockOverflow},
		{context.Canceled, ReasonCancelled},
		{context.DeadlineExceeded, ReasonCancelled},
		{errors.New("boom"), ReasonOther},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RejectReason(tt.err))
		})
	}
}

func TestMetrics_ObservesIssuer(t *testing.T) {
	t.Parallel()
	m := newTestMetrics(t)

	clock := issuer.NewManualClock(issuer.Epoch.Add(time.Hour))
	iss, err := issuer.New(3,
		issuer.WithPolicy(issuer.PolicyBackpressure),
		issuer.WithClock(clock),
		issuer.WithObserver(m))
	require.NoError(t, err)

	_, err = iss.Issue(context.Background(), issuer.MaxSequencePerSecond+9)
	require.NoError(t, err)
	_, err = iss.Issue(context.Background(), -1)
	require.Error(t, err)

	assert.Equal(t, float64(issuer.MaxSequencePerSecond+9), testutil.ToFloat64(m.issued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues(ReasonInvalidArgument)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suspended.WithLabelValues(string(issuer.WaitExhausted))))
	assert.Equal(t, 1, testutil.CollectAndCount(m.suspendedTime))
}

func TestMetrics_ObserveRequest(t *testing.T) {
	t.Parallel()
	m := newTestMetrics(t)

	m.ObserveRequest("POST", "POST /ids", 200, 3*time.Millisecond)
	m.ObserveRequest("POST", "POST /ids", 200, 5*time.Millisecond)
	m.ObserveRequest("POST", "POST /ids", 429, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "POST /ids", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "POST /ids", "429")))
}

func TestNewRegistry_ServesExposition(t *testing.T) {
	t.Parallel()
	reg, m := NewRegistry()
	m.Issued(5)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, text, "uidgen_ids_issued_total 5")
	assert.Contains(t, text, "uidgen_uptime_seconds")
	assert.True(t, strings.Contains(text, "go_goroutines"), "runtime collectors registered")
}
