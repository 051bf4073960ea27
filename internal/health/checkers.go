package health

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/glimte/svc-compliance/internal/rabbitmq"
	"github.com/glimte/svc-compliance/internal/region"
)

// LeaseSource is the part of rabbitmq.Pool the broker checker needs
type LeaseSource interface {
	Acquire(ctx context.Context) (*rabbitmq.Lease, error)
	Stats() rabbitmq.PoolStats
}

// BrokerChecker leases a connection and opens its channel
type BrokerChecker struct {
	pool LeaseSource
}

// NewBrokerChecker creates a broker checker over pool
func NewBrokerChecker(pool LeaseSource) *BrokerChecker {
	return &BrokerChecker{pool: pool}
}

func (c *BrokerChecker) Name() string {
	return "rabbitmq"
}

func (c *BrokerChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]any),
	}

	stats := c.pool.Stats()
	result.Details["pool_max_size"] = stats.MaxSize
	result.Details["pool_in_use"] = stats.InUse
	result.Details["pool_idle"] = stats.Idle

	lease, err := c.pool.Acquire(ctx)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = "Failed to lease connection"
		result.Error = err.Error()
		// a busy pool is still a working broker
		if errors.Is(err, rabbitmq.ErrPoolExhausted) {
			result.Status = StatusDegraded
			result.Message = "Connection pool saturated"
		}
		result.Duration = time.Since(start)
		return result
	}
	defer lease.Release()

	if _, err := lease.Channel(); err != nil {
		result.Status = StatusUnhealthy
		result.Message = "Failed to open channel"
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}

	result.Status = StatusHealthy
	result.Message = "Connection is healthy"
	result.Duration = time.Since(start)
	result.Details["response_time_ms"] = result.Duration.Milliseconds()
	return result
}

// RegionChecker reports the jurisdiction bound at startup
type RegionChecker struct {
	code region.Code
}

func NewRegionChecker(code region.Code) *RegionChecker {
	return &RegionChecker{code: code}
}

func (c *RegionChecker) Name() string {
	return "region"
}

// Check is degraded for jurisdictions without rules; they answer every
// request with not implemented.
func (c *RegionChecker) Check(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:      c.Name(),
		Status:    StatusHealthy,
		Message:   fmt.Sprintf("Strategy %s bound", c.code),
		Timestamp: time.Now(),
		Details:   map[string]any{"region": c.code.String()},
	}
	if c.code == region.CodeNE {
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("Strategy %s has no compliance rules", c.code)
	}
	return result
}

// GoroutineChecker flags runaway goroutine counts
type GoroutineChecker struct {
	warning  int
	critical int
}

// NewGoroutineChecker creates a checker degraded above warning goroutines
// and unhealthy above critical.
func NewGoroutineChecker(warning, critical int) *GoroutineChecker {
	return &GoroutineChecker{warning: warning, critical: critical}
}

func (c *GoroutineChecker) Name() string {
	return "runtime"
}

func (c *GoroutineChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]any),
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	goroutines := runtime.NumGoroutine()

	result.Details["memory_used_mb"] = float64(m.Sys) / 1024 / 1024
	result.Details["gc_runs"] = m.NumGC
	result.Details["goroutines"] = goroutines

	switch {
	case goroutines > c.critical:
		result.Status = StatusUnhealthy
		result.Message = fmt.Sprintf("Too many goroutines: %d", goroutines)
	case goroutines > c.warning:
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("High goroutine count: %d", goroutines)
	default:
		result.Status = StatusHealthy
		result.Message = "Runtime is normal"
	}

	result.Duration = time.Since(start)
	return result
}
