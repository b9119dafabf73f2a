package doctor

import (
	"context"

	"github.com/juju/clock"
)

// Check is the interface that diagnostic checks must implement.
type Check interface {
	// Name returns the unique identifier for this check.
	Name() string

	// Category returns the grouping for this check (e.g., "config", "destination").
	Category() string

	// Run executes the diagnostic check and returns its result.
	Run(ctx context.Context) *CheckResult
}

// Runner executes diagnostic checks and aggregates their results.
type Runner struct {
	checks []Check
	clock  clock.Clock
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock sets the clock used to stamp reports.
func WithClock(c clock.Clock) RunnerOption {
	return func(r *Runner) {
		r.clock = c
	}
}

// NewRunner creates a new diagnostic runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		checks: make([]Check, 0),
		clock:  clock.WallClock,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddCheck registers a diagnostic check with the runner.
func (r *Runner) AddCheck(c Check) {
	r.checks = append(r.checks, c)
}

// Run executes all registered checks in order and returns a report.
// Checks still run after ctx is cancelled so the report is complete; a check
// that needs ctx reports the cancellation itself.
func (r *Runner) Run(ctx context.Context) *Report {
	report := &Report{
		Timestamp: r.clock.Now().UTC(),
		Results:   make([]*CheckResult, 0, len(r.checks)),
	}

	for _, check := range r.checks {
		result := check.Run(ctx)
		if result == nil {
			result = &CheckResult{
				Status:  SeverityInfo,
				Message: "no result",
			}
		}
		if result.Name == "" {
			result.Name = check.Name()
		}
		if result.Category == "" {
			result.Category = check.Category()
		}
		report.Results = append(report.Results, result)

		switch result.Status {
		case SeverityPass:
			report.Summary.Passed++
		case SeverityInfo:
			report.Summary.Info++
		case SeverityWarning:
			report.Summary.Warnings++
		case SeverityError:
			report.Summary.Errors++
		}
	}

	return report
}
