package registry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/vinodismyname/sheettools/pkg/mcperr"
)

// Parameter describes one tool parameter for discovery.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Descriptor is the discovery record of a tool.
type Descriptor struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	// Mutating tools are hidden in read-only mode.
	Mutating bool `json:"-"`
	// MCPOptions are extra mcp-go tool options, such as an output schema.
	MCPOptions []mcp.ToolOption `json:"-"`
}

// ServerInfo is the discovery document served at /mcp/info.
type ServerInfo struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Tools       []Descriptor `json:"tools"`
}

// Handler executes one tool against its raw JSON parameter object.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// ToolObserver is notified after every dispatched call.
type ToolObserver interface {
	OnToolCall(ctx context.Context, tool string, duration time.Duration, err error)
}

type entry struct {
	desc    Descriptor
	handler Handler
}

// Registry is the dispatch table mapping tool ids to handlers. Registration
// order is the order tools are listed in discovery.
type Registry struct {
	mu       sync.RWMutex
	name     string
	desc     string
	order    []string
	tools    map[string]entry
	filter   *WriteToolFilter
	observer ToolObserver
}

// New constructs an empty Registry ready for tool population.
func New(name, description string) *Registry {
	return &Registry{
		name:   name,
		desc:   description,
		tools:  map[string]entry{},
		filter: NewWriteToolFilter(true),
	}
}

// WithFilter sets the filter consulted by discovery and dispatch.
func (r *Registry) WithFilter(f *WriteToolFilter) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter = f
	return r
}

// WithObserver sets the call observer.
func (r *Registry) WithObserver(o ToolObserver) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
	return r
}

// Filter returns the active write filter.
func (r *Registry) Filter() *WriteToolFilter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filter
}

// Register stores a tool. Re-registering an id replaces the handler in place.
func (r *Registry) Register(desc Descriptor, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[desc.ID]; !ok {
		r.order = append(r.order, desc.ID)
	}
	r.tools[desc.ID] = entry{desc: desc, handler: h}
}

// Lookup returns the descriptor of an enabled tool, or TOOL_NOT_FOUND.
func (r *Registry) Lookup(id string) (Descriptor, error) {
	e, err := r.lookup(id)
	return e.desc, err
}

func (r *Registry) lookup(id string) (entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.tools[id]
	if !ok || !r.filter.Allows(e.desc) {
		return entry{}, mcperr.Newf(mcperr.ToolNotFound, "tool with id '%s' not found", id)
	}
	return e, nil
}

// Descriptors returns enabled tools in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		if d := r.tools[id].desc; r.filter.Allows(d) {
			out = append(out, d)
		}
	}
	return out
}

func (r *Registry) all() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tools[id].desc)
	}
	return out
}

// Info returns the discovery document.
func (r *Registry) Info() ServerInfo {
	return ServerInfo{Name: r.name, Description: r.desc, Tools: r.Descriptors()}
}

// Run dispatches one call. The tool is resolved before params are looked at.
// Handler panics are recovered and reported as EXECUTION_ERROR.
func (r *Registry) Run(ctx context.Context, id string, params json.RawMessage) (out any, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, mcperr.Newf(mcperr.ExecutionError, "internal error: %v", rec)
		}
		if err != nil {
			err = mcperr.From(err)
		}
		r.mu.RLock()
		obs := r.observer
		r.mu.RUnlock()
		if obs != nil {
			obs.OnToolCall(ctx, id, time.Since(start), err)
		}
	}()

	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 || string(params) == "null" {
		params = json.RawMessage("{}")
	}
	out, err = e.handler(ctx, params)
	if err != nil {
		return nil, err
	}
	return out, nil
}
