package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uidgen/uidgen/pkg/issuer"
)

const namespace = "uidgen"

// Rejection reasons.
const (
	ReasonInvalidArgument  = "invalid_argument"
	ReasonCapacityExceeded = "capacity_exceeded"
	ReasonClockOverflow    = "clock_overflow"
	ReasonCancelled        = "cancelled"
	ReasonOther            = "other"
)

// Metrics holds uidgen's collectors. It implements issuer.Observer.
type Metrics struct {
	issued          prometheus.Counter
	rejected        *prometheus.CounterVec
	suspended       *prometheus.CounterVec
	suspendedTime   *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

var _ issuer.Observer = (*Metrics)(nil)

// New creates the collectors through factory.
func New(factory promauto.Factory) *Metrics {
	return &Metrics{
		issued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ids_issued_total",
			Help:      "Total number of identifiers issued",
		}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issue_rejected_total",
			Help:      "Total number of issue requests that failed",
		}, []string{"reason"}),
		suspended: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issue_suspended_total",
			Help:      "Total number of backpressure suspensions",
		}, []string{"reason"}),
		suspendedTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "issue_suspended_seconds",
			Help:      "Length of backpressure suspensions",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"reason"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests",
		}, []string{"method", "route", "status"}),
		httpRequestTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Issued implements issuer.Observer.
func (m *Metrics) Issued(n int) {
	m.issued.Add(float64(n))
}

// Rejected implements issuer.Observer.
func (m *Metrics) Rejected(err error) {
	m.rejected.WithLabelValues(RejectReason(err)).Inc()
}

// Suspended implements issuer.Observer.
func (m *Metrics) Suspended(reason issuer.WaitReason, d time.Duration) {
	m.suspended.WithLabelValues(string(reason)).Inc()
	m.suspendedTime.WithLabelValues(string(reason)).Observe(d.Seconds())
}

// ObserveRequest records one HTTP API request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestTime.WithLabelValues(method, route).Observe(d.Seconds())
}

// RejectReason maps an issuance error to its label value.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, issuer.ErrInvalidArgument):
		return ReasonInvalidArgument
	case errors.Is(err, issuer.ErrCapacityExceeded):
		return ReasonCapacityExceeded
	case errors.Is(err, issuer.ErrClockOverflow):
		return ReasonClockOverflow
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	default:
		return ReasonOther
	}
}

// Handler serves the gatherer in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
