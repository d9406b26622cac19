package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},

		{"DEBUG", LevelDebug, false},
		{"Warning", LevelWarn, false},
		{" error ", LevelError, false},

		// Empty string defaults to Info
		{"", LevelInfo, false},

		{"trace", LevelInfo, true},
		{"fatal", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"text", FormatText, false},
		{"", FormatText, false},
		{"yaml", FormatText, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNew_RespectsLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Format: FormatJSON, Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept", "generator_id", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, float64(7), record["generator_id"])
}

func TestNew_FileReceivesJSONCopy(t *testing.T) {
	var out, file bytes.Buffer
	logger := Component(New(Config{Level: LevelInfo, Format: FormatText, Output: &out, File: &file}), "issuer")

	logger.Info("issued", "count", 3)

	assert.Contains(t, out.String(), "msg=issued")
	assert.Contains(t, out.String(), "component=issuer")

	var record map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &record))
	assert.Equal(t, "issuer", record["component"])
	assert.Equal(t, float64(3), record["count"])
}

func TestFanout_EnabledIfAnyHandlerIs(t *testing.T) {
	var debug, errOnly bytes.Buffer
	f := NewFanout(
		New(Config{Level: LevelDebug, Output: &debug}).Handler(),
		New(Config{Level: LevelError, Output: &errOnly}).Handler(),
	)
	assert.True(t, f.Enabled(context.Background(), LevelDebug))

	logger := slog.New(f).WithGroup("req").With("id", "abc")
	logger.Debug("detail")
	logger.Error("boom")

	assert.Equal(t, 2, strings.Count(debug.String(), "req.id=abc"))
	assert.Equal(t, 1, strings.Count(errOnly.String(), "boom"))
	assert.NotContains(t, errOnly.String(), "detail")
}

func TestNop_DiscardsEverything(t *testing.T) {
	assert.False(t, Nop().Enabled(context.Background(), LevelError))
}
