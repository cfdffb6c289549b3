// Package tasks runs many repository syncs concurrently and summarizes
// their outcome.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"upsync.dev/upsync/internal/config"
	"upsync.dev/upsync/internal/output"
)

// DefaultSlowThreshold is how long a sync may take before it is reported as slow
const DefaultSlowThreshold = 60 * time.Second

// ErrDuplicatePath is returned when two targets in one run share a path
var ErrDuplicatePath = errors.New("repository path listed more than once")

// Syncer syncs one repository target, reporting whether it changed anything.
type Syncer interface {
	Sync(ctx context.Context, target config.RepoTarget) (bool, error)
}

// SyncFunc adapts a function to Syncer
type SyncFunc func(ctx context.Context, target config.RepoTarget) (bool, error)

// Sync calls f
func (f SyncFunc) Sync(ctx context.Context, target config.RepoTarget) (bool, error) {
	return f(ctx, target)
}

// Status is the overall outcome of a run
type Status int

const (
	// StatusSkipped means every sync succeeded without changing anything
	StatusSkipped Status = iota
	// StatusPassed means every sync succeeded and at least one did work
	StatusPassed
	// StatusFailed means at least one sync failed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is the outcome of one sync
type Result struct {
	Target   config.RepoTarget
	DidWork  bool
	Err      error
	Duration time.Duration
}

// Summary collects the results of a run in target order
type Summary struct {
	Results []Result
}

// Status returns the overall outcome
func (s Summary) Status() Status {
	status := StatusSkipped
	for _, r := range s.Results {
		if r.Err != nil {
			return StatusFailed
		}
		if r.DidWork {
			status = StatusPassed
		}
	}
	return status
}

// Counts returns how many syncs changed something, changed nothing, and failed.
func (s Summary) Counts() (updated, unchanged, failed int) {
	for _, r := range s.Results {
		switch {
		case r.Err != nil:
			failed++
		case r.DidWork:
			updated++
		default:
			unchanged++
		}
	}
	return updated, unchanged, failed
}

// Err returns the error of the first failed target, in target order.
func (s Summary) Err() error {
	for _, r := range s.Results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// Options configures a Scheduler
type Options struct {
	// Jobs bounds how many syncs run at once. Zero means runtime.NumCPU().
	Jobs int
	// SlowThreshold is the duration after which a finished sync is logged
	// as slow. Zero means DefaultSlowThreshold.
	SlowThreshold time.Duration
}

// Scheduler runs syncs on a bounded pool of goroutines
type Scheduler struct {
	syncer        Syncer
	splog         *output.Splog
	jobs          int
	slowThreshold time.Duration
}

// NewScheduler creates a Scheduler
func NewScheduler(syncer Syncer, splog *output.Splog, opts Options) *Scheduler {
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = DefaultSlowThreshold
	}
	return &Scheduler{
		syncer:        syncer,
		splog:         splog,
		jobs:          opts.Jobs,
		slowThreshold: opts.SlowThreshold,
	}
}

// Run syncs every target. A failing sync does not stop the others: every
// error is logged once all syncs finish and the first one is returned.
// A sync that outlives the slow threshold is reported after it completes.
func (s *Scheduler) Run(ctx context.Context, targets []config.RepoTarget) (Summary, error) {
	if err := checkDuplicates(targets); err != nil {
		return Summary{}, err
	}

	summary := Summary{Results: make([]Result, len(targets))}

	var g errgroup.Group
	g.SetLimit(s.jobs)
	for i, target := range targets {
		g.Go(func() error {
			summary.Results[i] = s.runOne(ctx, target)
			return nil
		})
	}
	// Workers never return errors; failures live in the results.
	_ = g.Wait()

	for _, r := range summary.Results {
		if r.Err != nil {
			s.splog.Error("%v", r.Err)
		}
	}
	return summary, summary.Err()
}

func (s *Scheduler) runOne(ctx context.Context, target config.RepoTarget) Result {
	result := Result{Target: target}
	if err := ctx.Err(); err != nil {
		result.Err = fmt.Errorf("%s: %w", target.Path, err)
		return result
	}

	s.splog.Debug("Syncing %s.", target.Path)
	start := time.Now()
	result.DidWork, result.Err = s.syncer.Sync(ctx, target)
	result.Duration = time.Since(start)

	if result.Duration > s.slowThreshold {
		s.splog.Warn("%s took %s to sync.", target.Path, result.Duration.Round(time.Millisecond))
	}
	switch {
	case result.Err != nil:
		s.splog.Debug("%s failed after %s.", target.Path, result.Duration.Round(time.Millisecond))
	case result.DidWork:
		s.splog.Info("%s updated.", target.Path)
	default:
		s.splog.Debug("%s is up to date.", target.Path)
	}
	return result
}

func checkDuplicates(targets []config.RepoTarget) error {
	seen := make(map[string]bool, len(targets))
	for _, target := range targets {
		path := filepath.Clean(target.Path)
		if seen[path] {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, target.Path)
		}
		seen[path] = true
	}
	return nil
}
