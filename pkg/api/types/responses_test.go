package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uidgen/uidgen/pkg/issuer"
)

func TestIssueResponse_IDsAreDecimalStrings(t *testing.T) {
	t.Parallel()

	resp := IssueResponse{IDs: []issuer.ID{1<<62 + 5, 9}, Count: 2, GeneratorID: 3}
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.JSONEq(t, `{"ids":["4611686018427387909","9"],"count":2,"generatorId":3}`, string(data))

	var back IssueResponse
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, resp, back)
}

func TestNewDecodeResponse(t *testing.T) {
	t.Parallel()

	layout := issuer.DefaultLayout
	id := layout.Encode(86400, 42, 7)

	got := NewDecodeResponse(id, layout)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, int64(86400), got.IssueSeconds)
	assert.Equal(t, int64(42), got.GeneratorID)
	assert.Equal(t, int64(7), got.Sequence)
	assert.Equal(t, issuer.Epoch.Add(24*time.Hour), got.CreatedAt)
	assert.Equal(t, layout.String(), got.Layout)
}

func TestErrorResponse(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(ErrorResponse{Error: CodeBatchTooLarge, Message: "count 20000 exceeds 10000"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"batch_too_large","message":"count 20000 exceeds 10000"}`, string(data))
}
