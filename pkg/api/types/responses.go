// Package types defines the wire contract of the uidgen HTTP API, shared by
// the server and the client.
package types

import (
	"time"

	"github.com/uidgen/uidgen/pkg/issuer"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error" msgpack:"error"`
	Message string `json:"message" msgpack:"message"`
}

// Error codes carried in ErrorResponse.Error.
const (
	CodeInvalidCount      = "invalid_count"
	CodeBatchTooLarge     = "batch_too_large"
	CodeInvalidBody       = "invalid_body"
	CodeInvalidID         = "invalid_id"
	CodeCapacityExceeded  = "capacity_exceeded"
	CodeClockOverflow     = "clock_overflow"
	CodeCancelled         = "cancelled"
	CodeRateLimitExceeded = "rate_limit_exceeded"
	CodeInternal          = "internal_error"
)

// IssueRequest is the optional body of POST /ids.
type IssueRequest struct {
	Count int `json:"count" msgpack:"count"`
}

// IssueResponse carries a batch of identifiers in issue order.
type IssueResponse struct {
	IDs         []issuer.ID `json:"ids" msgpack:"ids"`
	Count       int         `json:"count" msgpack:"count"`
	GeneratorID int64       `json:"generatorId" msgpack:"generatorId"`
}

// NextResponse carries a single identifier.
type NextResponse struct {
	ID issuer.ID `json:"id" msgpack:"id"`
}

// DecodeResponse is the decoded form of an identifier.
type DecodeResponse struct {
	ID           issuer.ID `json:"id" msgpack:"id"`
	CreatedAt    time.Time `json:"createdAt" msgpack:"createdAt"`
	IssueSeconds int64     `json:"issueSeconds" msgpack:"issueSeconds"`
	GeneratorID  int64     `json:"generatorId" msgpack:"generatorId"`
	Sequence     int64     `json:"sequence" msgpack:"sequence"`
	Layout       string    `json:"layout" msgpack:"layout"`
}

// NewDecodeResponse decodes id with layout.
func NewDecodeResponse(id issuer.ID, layout issuer.Layout) DecodeResponse {
	parts := layout.Decompose(id)
	return DecodeResponse{
		ID:           id,
		CreatedAt:    layout.CreationTime(id),
		IssueSeconds: parts.IssueSeconds,
		GeneratorID:  parts.GeneratorID,
		Sequence:     parts.Sequence,
		Layout:       layout.String(),
	}
}

// HealthResponse is a simple health check response.
type HealthResponse struct {
	Status string `json:"status" msgpack:"status"`
	Uptime int64  `json:"uptime" msgpack:"uptime"`
}

// StatusResponse reports the issuer state and server identity.
type StatusResponse struct {
	Version   string       `json:"version" msgpack:"version"`
	StartedAt time.Time    `json:"startedAt" msgpack:"startedAt"`
	Uptime    int64        `json:"uptime" msgpack:"uptime"`
	MaxBatch  int          `json:"maxBatch" msgpack:"maxBatch"`
	Issuer    issuer.Stats `json:"issuer" msgpack:"issuer"`
}
