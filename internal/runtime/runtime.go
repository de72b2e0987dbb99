package runtime

import (
	"context"
	"time"

	"github.com/vinodismyname/sheettools/config"
	"github.com/vinodismyname/sheettools/pkg/mcperr"
	"golang.org/x/sync/semaphore"
)

// Limits captures the concurrency and request guardrails configured for the server.
type Limits struct {
	// Concurrency caps
	MaxConcurrentRequests int
	MaxOpenWorkbooks      int

	// Request body bound in bytes; 0 means unbounded.
	MaxRequestBytes int64

	// Timeouts
	OperationTimeout      time.Duration
	AcquireRequestTimeout time.Duration
}

// NewLimits initializes Limits with sensible fallbacks when values are unset.
func NewLimits(maxConcurrentRequests, maxOpenWorkbooks int) Limits {
	if maxConcurrentRequests <= 0 {
		maxConcurrentRequests = config.DefaultMaxConcurrentRequests
	}
	if maxOpenWorkbooks <= 0 {
		maxOpenWorkbooks = config.DefaultMaxOpenWorkbooks
	}

	return Limits{
		MaxConcurrentRequests: maxConcurrentRequests,
		MaxOpenWorkbooks:      maxOpenWorkbooks,
		MaxRequestBytes:       config.DefaultMaxRequestBytes,
		OperationTimeout:      config.DefaultOperationTimeout,
		AcquireRequestTimeout: config.DefaultAcquireRequestTimeout,
	}
}

// LimitsFromConfig derives Limits from the loaded server configuration.
func LimitsFromConfig(cfg config.Config) Limits {
	limits := NewLimits(cfg.MaxConcurrentRequests, cfg.MaxOpenWorkbooks)
	limits.MaxRequestBytes = cfg.MaxRequestBytes
	limits.OperationTimeout = cfg.OperationTimeout
	limits.AcquireRequestTimeout = cfg.AcquireRequestTimeout
	return limits
}

// Controller coordinates runtime semaphores for request and workbook guardrails.
type Controller struct {
	limits            Limits
	requestSemaphore  *semaphore.Weighted
	workbookSemaphore *semaphore.Weighted
}

// NewController constructs a Controller backed by weighted semaphores.
func NewController(limits Limits) *Controller {
	return &Controller{
		limits:            limits,
		requestSemaphore:  semaphore.NewWeighted(int64(limits.MaxConcurrentRequests)),
		workbookSemaphore: semaphore.NewWeighted(int64(limits.MaxOpenWorkbooks)),
	}
}

// AcquireRequest reserves capacity for an incoming request.
func (c *Controller) AcquireRequest(ctx context.Context) error {
	return c.requestSemaphore.Acquire(ctx, 1)
}

// ReleaseRequest frees previously-acquired request capacity.
func (c *Controller) ReleaseRequest() {
	c.requestSemaphore.Release(1)
}

// AcquireWorkbook reserves a decoded-workbook slot.
func (c *Controller) AcquireWorkbook(ctx context.Context) error {
	return c.workbookSemaphore.Acquire(ctx, 1)
}

// ReleaseWorkbook frees a decoded-workbook slot.
func (c *Controller) ReleaseWorkbook() {
	c.workbookSemaphore.Release(1)
}

// LimitsSnapshot exposes the configured guardrails for telemetry and discovery.
func (c *Controller) LimitsSnapshot() Limits {
	return c.limits
}

// Admit waits up to AcquireRequestTimeout for a request slot. On success the
// returned release func must be called exactly once. On failure the error is
// classified as BUSY_RESOURCE.
func (c *Controller) Admit(ctx context.Context) (func(), error) {
	acquireCtx := ctx
	if c.limits.AcquireRequestTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, c.limits.AcquireRequestTimeout)
		defer cancel()
	}
	if err := c.AcquireRequest(acquireCtx); err != nil {
		return func() {}, mcperr.Newf(mcperr.BusyResource,
			"concurrent request limit reached (max=%d). Please retry shortly.", c.limits.MaxConcurrentRequests)
	}
	return c.ReleaseRequest, nil
}

// Bound applies the operation timeout to ctx. The cancel func is never nil.
func (c *Controller) Bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.limits.OperationTimeout > 0 {
		return context.WithTimeout(ctx, c.limits.OperationTimeout)
	}
	return ctx, func() {}
}
