// Package metrics exposes uidgen's Prometheus metrics.
//
// Collectors are created through a promauto.Factory so tests can use a
// private registry:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(promauto.With(reg))
//	iss, _ := issuer.New(1, issuer.WithObserver(m))
//
// Metrics:
//
//   - uidgen_ids_issued_total: identifiers handed out
//   - uidgen_issue_rejected_total{reason}: failed requests
//     (invalid_argument, capacity_exceeded, clock_overflow, cancelled, other)
//   - uidgen_issue_suspended_total{reason}: backpressure suspensions
//     (exhausted, clock_regressed)
//   - uidgen_issue_suspended_seconds{reason}: requested suspension length
//   - uidgen_http_requests_total{method,route,status}
//   - uidgen_http_request_duration_seconds{method,route}
//   - uidgen_uptime_seconds, plus the standard go_* and process_* collectors
//
// Route labels are the ServeMux patterns, never raw paths, to keep label
// cardinality bounded.
package metrics
