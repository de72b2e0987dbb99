package registry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"github.com/vinodismyname/sheettools/pkg/mcperr"
)

type echoRequest struct {
	Text *string `json:"text" validate:"required"`
}

type echoResult struct {
	Echo string `json:"echo"`
}

func echo(ctx context.Context, req echoRequest) (echoResult, error) {
	return echoResult{Echo: *req.Text}, nil
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
	codes []mcperr.Code
}

func (o *recordingObserver) OnToolCall(ctx context.Context, tool string, d time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, tool)
	o.codes = append(o.codes, mcperr.CodeOf(err))
}

func newTestRegistry() *Registry {
	reg := New("Test Tools", "tools for tests")
	reg.Register(Descriptor{
		ID:         "echo",
		Name:       "Echo",
		Parameters: []Parameter{{Name: "text", Type: "string", Description: "Text to echo."}},
	}, Bind(echo))
	reg.Register(Descriptor{ID: "write", Name: "Write", Mutating: true}, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return "written", nil
	})
	reg.Register(Descriptor{ID: "panic", Name: "Panic"}, func(ctx context.Context, _ json.RawMessage) (any, error) {
		panic("kaboom")
	})
	reg.Register(Descriptor{ID: "fail", Name: "Fail"}, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return nil, errors.New("disk on fire")
	})
	return reg
}

func TestRun_BindsAndValidates(t *testing.T) {
	reg := newTestRegistry()

	out, err := reg.Run(context.Background(), "echo", json.RawMessage(`{"text":"hi","extra":1}`))
	require.NoError(t, err)
	require.Equal(t, echoResult{Echo: "hi"}, out)

	out, err = reg.Run(context.Background(), "echo", json.RawMessage(`{"text":""}`))
	require.NoError(t, err)
	require.Equal(t, echoResult{Echo: ""}, out)

	_, err = reg.Run(context.Background(), "echo", json.RawMessage(`{}`))
	require.True(t, mcperr.Is(err, mcperr.InvalidParameters), "got %v", err)
	require.Equal(t, "INVALID_PARAMETERS: text is required", err.Error())

	_, err = reg.Run(context.Background(), "echo", json.RawMessage(`{"text":{"nested":true}}`))
	require.True(t, mcperr.Is(err, mcperr.InvalidParameters), "got %v", err)
	require.Contains(t, err.Error(), "text must be a string")

	_, err = reg.Run(context.Background(), "echo", json.RawMessage(`{"text":`))
	require.True(t, mcperr.Is(err, mcperr.InvalidParameters), "got %v", err)
}

func TestRun_UnknownToolShortCircuits(t *testing.T) {
	reg := newTestRegistry()
	_, err := reg.Run(context.Background(), "nope", json.RawMessage(`not json at all`))
	require.True(t, mcperr.Is(err, mcperr.ToolNotFound), "got %v", err)
	require.Equal(t, "TOOL_NOT_FOUND: tool with id 'nope' not found", err.Error())
}

func TestRun_RecoversPanicsAndClassifies(t *testing.T) {
	obs := &recordingObserver{}
	reg := newTestRegistry().WithObserver(obs)

	_, err := reg.Run(context.Background(), "panic", nil)
	require.True(t, mcperr.Is(err, mcperr.ExecutionError), "got %v", err)
	require.Contains(t, err.Error(), "kaboom")

	_, err = reg.Run(context.Background(), "fail", nil)
	require.Equal(t, "EXECUTION_ERROR: disk on fire", err.Error())

	_, err = reg.Run(context.Background(), "echo", json.RawMessage(`{"text":"x"}`))
	require.NoError(t, err)

	require.Equal(t, []string{"panic", "fail", "echo"}, obs.calls)
	require.Equal(t, []mcperr.Code{mcperr.ExecutionError, mcperr.ExecutionError, ""}, obs.codes)
}

func TestDescriptorsKeepRegistrationOrder(t *testing.T) {
	reg := newTestRegistry()
	info := reg.Info()
	require.Equal(t, "Test Tools", info.Name)

	ids := []string{}
	for _, d := range info.Tools {
		ids = append(ids, d.ID)
	}
	require.Equal(t, []string{"echo", "write", "panic", "fail"}, ids)

	// Re-registering keeps the slot.
	reg.Register(Descriptor{ID: "echo", Name: "Echo v2"}, Bind(echo))
	require.Equal(t, "Echo v2", reg.Info().Tools[0].Name)
	require.Len(t, reg.Info().Tools, 4)
}

func TestWriteToolFilter(t *testing.T) {
	reg := newTestRegistry().WithFilter(NewWriteToolFilter(false))

	_, err := reg.Lookup("write")
	require.True(t, mcperr.Is(err, mcperr.ToolNotFound), "got %v", err)
	_, err = reg.Run(context.Background(), "write", nil)
	require.True(t, mcperr.Is(err, mcperr.ToolNotFound), "got %v", err)
	require.Len(t, reg.Descriptors(), 3)

	tools := []mcp.Tool{
		MCPTool(Descriptor{ID: "echo"}),
		MCPTool(Descriptor{ID: "write", Mutating: true}),
	}
	filtered := reg.Filter().FilterTools(context.Background(), tools)
	require.Len(t, filtered, 1)
	require.Equal(t, "echo", filtered[0].Name)

	require.Len(t, NewWriteToolFilter(true).FilterTools(context.Background(), tools), 2)

	var nilFilter *WriteToolFilter
	require.True(t, nilFilter.AllowWrites())
}
