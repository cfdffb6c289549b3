// Package sync brings one on-disk git repository to the state described by
// a config.RepoTarget: remotes configured and fetched, the right branch
// checked out and fast-forwarded, and optionally merged branches pruned.
package sync

import (
	"context"
	"errors"
	"fmt"
	"os"

	"upsync.dev/upsync/internal/config"
	upsyncerrors "upsync.dev/upsync/internal/errors"
	"upsync.dev/upsync/internal/git"
	"upsync.dev/upsync/internal/output"
)

// Opener opens the repository at path, initializing it when nothing is
// there. created reports whether it was initialized.
type Opener func(path string) (repo git.Backend, created bool, err error)

// CredentialsFactory returns the credential resolver used for fetches of
// the repository at path.
type CredentialsFactory func(path string) git.CredentialResolver

// Engine syncs repositories. It keeps no per-repository state, so one
// Engine may sync many distinct paths concurrently.
type Engine struct {
	splog       *output.Splog
	open        Opener
	credentials CredentialsFactory
	retry       git.RetryPolicy
}

// Option configures an Engine
type Option func(*Engine)

// WithRetryPolicy sets how fetches retry credential failures.
func WithRetryPolicy(policy git.RetryPolicy) Option {
	return func(e *Engine) {
		e.retry = policy
	}
}

// WithCredentials replaces the default credential resolution.
func WithCredentials(factory CredentialsFactory) Option {
	return func(e *Engine) {
		e.credentials = factory
	}
}

// WithOpener replaces how repositories are opened.
func WithOpener(open Opener) Option {
	return func(e *Engine) {
		e.open = open
	}
}

// NewEngine creates an Engine logging to splog.
func NewEngine(splog *output.Splog, opts ...Option) *Engine {
	e := &Engine{
		splog:       splog,
		open:        openRepository,
		credentials: defaultCredentials,
		retry:       git.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func openRepository(path string) (git.Backend, bool, error) {
	repo, created, err := git.OpenOrInitRepository(path)
	if err != nil {
		return nil, false, err
	}
	return repo, created, nil
}

func defaultCredentials(path string) git.CredentialResolver {
	return git.NewDefaultCredentials(path)
}

// run is the state of one Sync call
type run struct {
	*Engine
	ctx     context.Context
	target  config.RepoTarget
	repo    git.Backend
	creds   git.CredentialResolver
	created bool
	didWork bool
	// remoteDefaults holds the default branch each remote advertised.
	remoteDefaults map[string]string
}

// Sync makes the repository at target.Path match target. It reports whether
// anything on disk changed. Errors name the repository path.
func (e *Engine) Sync(ctx context.Context, target config.RepoTarget) (bool, error) {
	if err := target.Validate(); err != nil {
		return false, err
	}

	r := &run{
		Engine:         e,
		ctx:            ctx,
		target:         target,
		creds:          e.credentials(target.Path),
		remoteDefaults: make(map[string]string),
	}
	err := r.sync()
	if err != nil {
		err = withPath(err, target.Path)
	}
	return r.didWork, err
}

func (r *run) sync() error {
	path := r.target.Path

	// Make sure the directory exists
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(path, 0750); err != nil {
			return upsyncerrors.New(upsyncerrors.KindDirectoryCreateFailed, err)
		}
		r.splog.Debug("Created directory %s.", path)
		r.didWork = true
	case err != nil:
		return upsyncerrors.New(upsyncerrors.KindDirectoryCreateFailed, err)
	case !info.IsDir():
		return upsyncerrors.New(upsyncerrors.KindDirectoryCreateFailed, fmt.Errorf("%s is not a directory", path))
	}

	repo, created, err := r.open(path)
	if err != nil {
		return upsyncerrors.New(upsyncerrors.KindRepositoryOpenOrInitFailed, err)
	}
	r.repo, r.created = repo, created
	if created {
		r.splog.Info("Initialized empty repository in %s.", path)
		r.didWork = true
	}

	// Reading the layered config up front surfaces a broken config file
	// before any remote is touched.
	if _, err := repo.LayeredConfig(); err != nil {
		return upsyncerrors.New(upsyncerrors.KindRepositoryOpenOrInitFailed, err)
	}

	for _, remote := range r.target.Remotes {
		if err := r.configureRemote(remote); err != nil {
			return err
		}
	}

	if !created && r.target.Prune {
		if err := r.prune(); err != nil {
			return err
		}
	}

	branch, err := r.targetBranch()
	if err != nil {
		return err
	}

	needsCheckout, err := r.needsCheckout(branch)
	if err != nil {
		return err
	}
	if needsCheckout {
		if err := r.checkout(branch, created); err != nil {
			return err
		}
	}

	if err := r.fastForward(branch); err != nil {
		return err
	}

	if !created {
		r.reportStatus()
	}
	return nil
}

// withPath attaches the repository path to err
func withPath(err error, path string) error {
	var syncErr *upsyncerrors.SyncError
	if errors.As(err, &syncErr) {
		syncErr.WithPath(path)
		return err
	}
	return fmt.Errorf("%s: %w", path, err)
}
