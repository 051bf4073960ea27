// Package health runs readiness checks against the gateway's dependencies.
package health

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string         `json:"name"`
	Status    Status         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Duration  time.Duration  `json:"duration"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
}

// Report is the combined result of every registered check. Ready is false
// only when some check is unhealthy; a degraded gateway still takes requests.
type Report struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
	Checks    map[string]CheckResult `json:"checks"`
	Metadata  map[string]any         `json:"metadata,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Check(ctx context.Context) CheckResult
	Name() string
}

// CheckerFunc adapts a function to Checker
type CheckerFunc struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

func NewCheckerFunc(name string, fn func(ctx context.Context) CheckResult) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (c *CheckerFunc) Check(ctx context.Context) CheckResult {
	return c.fn(ctx)
}

func (c *CheckerFunc) Name() string {
	return c.name
}

// Registry manages health checks
type Registry struct {
	checkers map[string]Checker
	metadata map[string]any
	mu       sync.RWMutex
}

// NewRegistry creates a new health check registry
func NewRegistry() *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
		metadata: make(map[string]any),
	}
}

// Register adds a checker, replacing any with the same name
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[checker.Name()] = checker
}

// SetMetadata attaches a value to every report
func (r *Registry) SetMetadata(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata[key] = value
}

// Check runs every registered checker concurrently and waits until they all
// answer or ctx is done. A checker still running at that point is recorded
// as unhealthy with the context error; its late answer is dropped.
func (r *Registry) Check(ctx context.Context) Report {
	start := time.Now()
	checkers, metadata := r.snapshot()

	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(checkers))
		g      errgroup.Group
	)
	for _, checker := range checkers {
		g.Go(func() error {
			result := checker.Check(ctx)
			result.Name = checker.Name()

			mu.Lock()
			defer mu.Unlock()
			if _, settled := checks[result.Name]; !settled {
				checks[result.Name] = result
			}
			return nil
		})
	}

	finished := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	for _, checker := range checkers {
		if _, ok := checks[checker.Name()]; !ok {
			checks[checker.Name()] = timedOut(checker.Name(), ctx.Err(), start)
		}
	}

	return newReport(maps.Clone(checks), metadata, start)
}

func (r *Registry) snapshot() ([]Checker, map[string]any) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Collect(maps.Values(r.checkers)), maps.Clone(r.metadata)
}

func timedOut(name string, err error, start time.Time) CheckResult {
	return CheckResult{
		Name:      name,
		Status:    StatusUnhealthy,
		Message:   "Check timed out",
		Duration:  time.Since(start),
		Timestamp: time.Now(),
		Error:     err.Error(),
	}
}

func newReport(checks map[string]CheckResult, metadata map[string]any, start time.Time) Report {
	worst := 0
	for _, result := range checks {
		worst = max(worst, severity(result.Status))
	}
	status := bySeverity[worst]

	return Report{
		Status:    status,
		Ready:     status != StatusUnhealthy,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
		Checks:    checks,
		Metadata:  metadata,
	}
}

var bySeverity = [...]Status{StatusHealthy, StatusDegraded, StatusUnhealthy}

// severity indexes bySeverity; anything unrecognised counts as unhealthy.
func severity(s Status) int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}
