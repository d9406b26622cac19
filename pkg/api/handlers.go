package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/uidgen/uidgen/pkg/api/types"
	"github.com/uidgen/uidgen/pkg/httputil"
	"github.com/uidgen/uidgen/pkg/issuer"
)

// handleIssue handles POST /ids. The count comes from ?count=N, then from
// the JSON body, and defaults to 1.
func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	count, err := s.requestedCount(r)
	if err != nil {
		httputil.WriteBadRequest(w, r, types.CodeInvalidBody, err.Error())
		return
	}
	if count > s.maxBatch {
		httputil.WriteBadRequest(w, r, types.CodeBatchTooLarge,
			fmt.Sprintf("count %d exceeds the maximum batch of %d", count, s.maxBatch))
		return
	}

	ctx, cancel := s.issueContext(r)
	defer cancel()

	ids, err := s.issuer.Issue(ctx, count)
	if err != nil {
		s.writeIssueError(w, r, err)
		return
	}

	httputil.WriteOK(w, r, types.IssueResponse{
		IDs:         ids,
		Count:       len(ids),
		GeneratorID: s.issuer.GeneratorID(),
	})
}

func (s *Server) requestedCount(r *http.Request) (int, error) {
	if q := r.URL.Query().Get("count"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return 0, fmt.Errorf("count %q is not an integer", q)
		}
		return n, nil
	}

	var body struct {
		Count *int `json:"count"`
	}
	if err := httputil.DecodeJSON(r, &body); err != nil {
		return 0, err
	}
	if body.Count == nil {
		return 1, nil
	}
	return *body.Count, nil
}

// issueContext bounds issuance by the write timeout. A backpressure wait
// that outlives it could never deliver its ids, so it is cancelled instead.
func (s *Server) issueContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.writeTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.writeTimeout)
}

// handleNext handles GET /ids/next.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.issueContext(r)
	defer cancel()

	id, err := s.issuer.Next(ctx)
	if err != nil {
		s.writeIssueError(w, r, err)
		return
	}
	httputil.WriteOK(w, r, types.NextResponse{ID: id})
}

// handleDecode handles GET /ids/{id}.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	id, err := issuer.ParseID(r.PathValue("id"))
	if err != nil {
		httputil.WriteBadRequest(w, r, types.CodeInvalidID, err.Error())
		return
	}
	httputil.WriteOK(w, r, types.NewDecodeResponse(id, s.issuer.Layout()))
}

// handleStatus handles GET /status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteOK(w, r, types.StatusResponse{
		Version:   s.version,
		StartedAt: s.startedAt.UTC(),
		Uptime:    int64(s.Uptime().Seconds()),
		MaxBatch:  s.maxBatch,
		Issuer:    s.issuer.Stats(),
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteOK(w, r, types.HealthResponse{
		Status: "ok",
		Uptime: int64(s.Uptime().Seconds()),
	})
}

// writeIssueError maps issuer errors to status codes.
func (s *Server) writeIssueError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, issuer.ErrInvalidArgument):
		httputil.WriteBadRequest(w, r, types.CodeInvalidCount, err.Error())
	case errors.Is(err, issuer.ErrCapacityExceeded):
		httputil.WriteTooManyRequests(w, r, 1, types.CodeCapacityExceeded, err.Error())
	case errors.Is(err, issuer.ErrClockOverflow):
		s.log.Error("clock outside the encodable range", "error", err)
		httputil.WriteServiceUnavailable(w, r, types.CodeClockOverflow, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httputil.WriteServiceUnavailable(w, r, types.CodeCancelled, "request cancelled before ids were issued")
	default:
		s.log.Error("issue failed", "error", err)
		httputil.WriteInternalError(w, r, types.CodeInternal, "internal error")
	}
}
