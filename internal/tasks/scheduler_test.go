package tasks_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	syncaction "upsync.dev/upsync/internal/actions/sync"
	"upsync.dev/upsync/internal/config"
	"upsync.dev/upsync/internal/git"
	"upsync.dev/upsync/internal/output"
	"upsync.dev/upsync/internal/tasks"
	"upsync.dev/upsync/testhelpers"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func targets(paths ...string) []config.RepoTarget {
	out := make([]config.RepoTarget, len(paths))
	for i, path := range paths {
		out[i] = config.RepoTarget{
			Path:    path,
			Remotes: []config.RemoteSpec{{Name: "origin", FetchURL: "https://example.com/" + path}},
		}
	}
	return out
}

func TestSchedulerStatus(t *testing.T) {
	tests := []struct {
		name     string
		didWork  map[string]bool
		failing  string
		expected tasks.Status
	}{
		{name: "nothing changed", didWork: map[string]bool{}, expected: tasks.StatusSkipped},
		{name: "one repo changed", didWork: map[string]bool{"b": true}, expected: tasks.StatusPassed},
		{name: "one repo failed", didWork: map[string]bool{"a": true}, failing: "c", expected: tasks.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := tasks.SyncFunc(func(_ context.Context, target config.RepoTarget) (bool, error) {
				if target.Path == tt.failing {
					return false, errors.New("boom")
				}
				return tt.didWork[target.Path], nil
			})
			scheduler := tasks.NewScheduler(syncer, output.NewDiscardSplog(), tasks.Options{Jobs: 2})

			summary, err := scheduler.Run(context.Background(), targets("a", "b", "c"))
			require.Equal(t, tt.expected, summary.Status())
			require.Len(t, summary.Results, 3)
			if tt.failing != "" {
				require.EqualError(t, err, "boom")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSchedulerRunsEverythingDespiteFailures(t *testing.T) {
	var ran atomic.Int32
	syncer := tasks.SyncFunc(func(_ context.Context, target config.RepoTarget) (bool, error) {
		ran.Add(1)
		if target.Path == "a" || target.Path == "c" {
			return false, errors.New(target.Path + " failed")
		}
		return true, nil
	})

	var buf syncBuffer
	splog, err := output.NewSplogWithOptions(output.Options{Writer: &buf})
	require.NoError(t, err)

	summary, err := tasks.NewScheduler(syncer, splog, tasks.Options{Jobs: 1}).
		Run(context.Background(), targets("a", "b", "c", "d"))
	require.EqualError(t, err, "a failed")
	require.Equal(t, int32(4), ran.Load())

	updated, unchanged, failed := summary.Counts()
	require.Equal(t, 2, updated)
	require.Equal(t, 0, unchanged)
	require.Equal(t, 2, failed)

	require.Contains(t, buf.String(), "a failed")
	require.Contains(t, buf.String(), "c failed")
}

func TestSchedulerLimitsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	syncer := tasks.SyncFunc(func(context.Context, config.RepoTarget) (bool, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return false, nil
	})

	_, err := tasks.NewScheduler(syncer, output.NewDiscardSplog(), tasks.Options{Jobs: 3}).
		Run(context.Background(), targets("a", "b", "c", "d", "e", "f", "g", "h"))
	require.NoError(t, err)
	require.LessOrEqual(t, peak.Load(), int32(3))
	require.Greater(t, peak.Load(), int32(1))
}

func TestSchedulerRejectsDuplicatePaths(t *testing.T) {
	called := false
	syncer := tasks.SyncFunc(func(context.Context, config.RepoTarget) (bool, error) {
		called = true
		return false, nil
	})

	_, err := tasks.NewScheduler(syncer, output.NewDiscardSplog(), tasks.Options{}).
		Run(context.Background(), targets("/src/a", "/src/b", "/src/a/"))
	require.ErrorIs(t, err, tasks.ErrDuplicatePath)
	require.False(t, called)
}

func TestSchedulerReportsSlowSyncs(t *testing.T) {
	syncer := tasks.SyncFunc(func(_ context.Context, target config.RepoTarget) (bool, error) {
		if target.Path == "slow" {
			time.Sleep(30 * time.Millisecond)
		}
		return false, nil
	})

	var buf syncBuffer
	splog, err := output.NewSplogWithOptions(output.Options{Writer: &buf})
	require.NoError(t, err)

	_, err = tasks.NewScheduler(syncer, splog, tasks.Options{SlowThreshold: 10 * time.Millisecond}).
		Run(context.Background(), targets("fast", "slow"))
	require.NoError(t, err)
	require.Contains(t, buf.String(), "slow took")
	require.NotContains(t, buf.String(), "fast took")
}

func TestSchedulerCancelledContext(t *testing.T) {
	syncer := tasks.SyncFunc(func(context.Context, config.RepoTarget) (bool, error) {
		return true, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := tasks.NewScheduler(syncer, output.NewDiscardSplog(), tasks.Options{}).
		Run(ctx, targets("a"))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, tasks.StatusFailed, summary.Status())
}

func TestSchedulerWithEngine(t *testing.T) {
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	engine := syncaction.NewEngine(output.NewDiscardSplog(),
		syncaction.WithRetryPolicy(git.RetryPolicy{MaxAttempts: 1}))

	var repos []config.RepoTarget
	for _, name := range []string{"one", "two", "three"} {
		repos = append(repos, config.RepoTarget{
			Path:    filepath.Join(scene.Dir, "clones", name),
			Remotes: []config.RemoteSpec{{Name: "origin", FetchURL: scene.Upstream}},
		})
	}
	scheduler := tasks.NewScheduler(engine, output.NewDiscardSplog(), tasks.Options{Jobs: 3})

	summary, err := scheduler.Run(context.Background(), repos)
	require.NoError(t, err)
	require.Equal(t, tasks.StatusPassed, summary.Status())
	for _, target := range repos {
		testhelpers.ExpectFile(t, testhelpers.OpenGitRepo(target.Path), "1_test.txt", "1")
	}

	summary, err = scheduler.Run(context.Background(), repos)
	require.NoError(t, err)
	require.Equal(t, tasks.StatusSkipped, summary.Status())
}
