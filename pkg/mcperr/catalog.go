package mcperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Code defines a canonical error code used across tools and transports.
type Code string

const (
	// Input boundary
	InvalidEncoding    Code = "INVALID_ENCODING"
	UnparsableDocument Code = "UNPARSABLE_DOCUMENT"
	InvalidReference   Code = "INVALID_REFERENCE"
	UnknownSheet       Code = "UNKNOWN_SHEET"
	InvalidAddress     Code = "INVALID_ADDRESS"

	// Dispatch
	InvalidParameters Code = "INVALID_PARAMETERS"
	ToolNotFound      Code = "TOOL_NOT_FOUND"
	ExecutionError    Code = "EXECUTION_ERROR"

	// Resource & Limits
	BusyResource    Code = "BUSY_RESOURCE"
	Timeout         Code = "TIMEOUT"
	PayloadTooLarge Code = "PAYLOAD_TOO_LARGE"
)

// Entry documents a code's standard message, transport status, retry semantics, and next steps.
type Entry struct {
	Code      Code
	Message   string
	Status    int
	Retryable bool
	NextSteps []string
}

// catalog maps canonical codes to guidance. Messages can be overridden per error.
var catalog = map[Code]Entry{
	InvalidEncoding:    {Code: InvalidEncoding, Message: "invalid base64 file format", Status: http.StatusInternalServerError, NextSteps: []string{"Send the file as data:<mime>;base64,<payload>"}},
	UnparsableDocument: {Code: UnparsableDocument, Message: "failed to parse Excel file", Status: http.StatusInternalServerError, NextSteps: []string{"Provide a valid .xlsx workbook", "Open in Excel and re-save if the file is damaged"}},
	InvalidReference:   {Code: InvalidReference, Message: "invalid range format, expected 'SheetName!A1:B10'", Status: http.StatusInternalServerError, NextSteps: []string{"Prefix the address with the sheet name and '!'"}},
	UnknownSheet:       {Code: UnknownSheet, Message: "worksheet does not exist", Status: http.StatusInternalServerError, NextSteps: []string{"Check sheet name case and spacing"}},
	InvalidAddress:     {Code: InvalidAddress, Message: "invalid cell or range address", Status: http.StatusInternalServerError, NextSteps: []string{"Use A1 or A1:B10 style addresses"}},

	InvalidParameters: {Code: InvalidParameters, Message: "missing or invalid parameter", Status: http.StatusBadRequest, NextSteps: []string{"See /mcp/info for the parameters each tool requires"}},
	ToolNotFound:      {Code: ToolNotFound, Message: "tool not found", Status: http.StatusNotFound, NextSteps: []string{"List available tools via /mcp/info"}},
	ExecutionError:    {Code: ExecutionError, Message: "tool execution failed", Status: http.StatusInternalServerError},

	BusyResource:    {Code: BusyResource, Message: "concurrent request limit reached", Status: http.StatusServiceUnavailable, Retryable: true, NextSteps: []string{"Retry after a short delay"}},
	Timeout:         {Code: Timeout, Message: "operation exceeded configured time limit", Status: http.StatusGatewayTimeout, Retryable: true, NextSteps: []string{"Use a smaller workbook or range"}},
	PayloadTooLarge: {Code: PayloadTooLarge, Message: "request body exceeds configured size", Status: http.StatusRequestEntityTooLarge, NextSteps: []string{"Send a smaller workbook or raise max_request_bytes"}},
}

// Lookup returns the catalog entry for a code. Unknown codes resolve to ExecutionError.
func Lookup(code Code) Entry {
	if e, ok := catalog[code]; ok {
		return e
	}
	return catalog[ExecutionError]
}

// Error is a classified failure carrying a catalog code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = Lookup(e.Code).Message
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status associated with the error's code.
func (e *Error) Status() int { return Lookup(e.Code).Status }

// New returns a classified error with a message override.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf formats a message and returns a classified error.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under code. The cause's text becomes the message.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// Wrapf classifies err under code with a formatted message prefix.
func Wrapf(code Code, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// From classifies any error. Errors that already carry a code keep it, an
// expired deadline becomes Timeout, and everything else becomes ExecutionError.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: Timeout, Message: Lookup(Timeout).Message, Err: err}
	}
	return &Error{Code: ExecutionError, Err: err}
}

// CodeOf reports the code of err, or an empty code for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return From(err).Code
}

// Is reports whether err is classified under code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Guidance renders the next-step hints for a code as a compact tail, or "".
func Guidance(code Code) string {
	e := Lookup(code)
	if len(e.NextSteps) == 0 {
		return ""
	}
	return " | nextSteps: " + strings.Join(e.NextSteps, "; ")
}

// ToolResult converts err into an MCP tool error result. MCP clients that
// surface only a message string get the guidance tail appended inline.
func ToolResult(err error) *mcp.CallToolResult {
	e := From(err)
	if e == nil {
		return mcp.NewToolResultError(string(ExecutionError))
	}
	return mcp.NewToolResultError(e.Error() + Guidance(e.Code))
}

// FromText parses a "CODE: message" string produced by another layer and
// returns the classified error. Unknown codes fall back to ExecutionError.
func FromText(text string) *Error {
	t := strings.TrimSpace(text)
	if t == "" {
		return New(ExecutionError, "")
	}
	code, msg, ok := strings.Cut(t, ":")
	if !ok {
		return New(ExecutionError, t)
	}
	c := Code(strings.TrimSpace(code))
	if _, known := catalog[c]; !known {
		return New(ExecutionError, t)
	}
	return New(c, strings.TrimSpace(msg))
}
