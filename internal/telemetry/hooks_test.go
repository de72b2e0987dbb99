package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/sheettools/pkg/mcperr"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m))
		out = append(out, m)
	}
	return out
}

func TestOnToolCall(t *testing.T) {
	var buf bytes.Buffer
	h := NewHooks(zerolog.New(&buf))
	ctx := WithRequestID(context.Background(), "req-1")

	h.OnToolCall(ctx, "sum_range", time.Millisecond, nil)
	h.OnToolCall(ctx, "get_cell", time.Millisecond, mcperr.New(mcperr.InvalidParameters, "cell is required"))
	h.OnToolCall(ctx, "to_csv", time.Millisecond, errors.New("boom"))

	got := lines(t, &buf)
	require.Len(t, got, 3)

	require.Equal(t, "info", got[0]["level"])
	require.Equal(t, "req-1", got[0]["request_id"])
	require.Equal(t, "sum_range", got[0]["tool"])

	require.Equal(t, "warn", got[1]["level"])
	require.Equal(t, "INVALID_PARAMETERS", got[1]["code"])

	require.Equal(t, "error", got[2]["level"])
	require.Equal(t, "EXECUTION_ERROR", got[2]["code"])
}

func TestOnHTTPRequestLevels(t *testing.T) {
	var buf bytes.Buffer
	h := NewHooks(zerolog.New(&buf))
	ctx := context.Background()

	h.OnHTTPRequest(ctx, "GET", "/healthz", 200, time.Millisecond)
	h.OnHTTPRequest(ctx, "POST", "/mcp/run", 404, time.Millisecond)
	h.OnHTTPRequest(ctx, "POST", "/mcp/run", 500, time.Millisecond)

	got := lines(t, &buf)
	require.Len(t, got, 3)
	require.Equal(t, "info", got[0]["level"])
	require.Equal(t, "warn", got[1]["level"])
	require.Equal(t, "error", got[2]["level"])
	require.EqualValues(t, 500, got[2]["status"])
}

func TestRequestID(t *testing.T) {
	require.Empty(t, RequestID(context.Background()))

	id := NewRequestID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	require.Equal(t, id, RequestID(WithRequestID(context.Background(), id)))
}

func TestMCPHooksRegistered(t *testing.T) {
	hooks := NewHooks(zerolog.Nop()).MCPHooks()
	require.Len(t, hooks.OnRegisterSession, 1)
	require.Len(t, hooks.OnUnregisterSession, 1)
	require.Len(t, hooks.OnAfterListTools, 1)
	require.Len(t, hooks.OnError, 1)
}
