package sync

import (
	"errors"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"upsync.dev/upsync/internal/config"
	upsyncerrors "upsync.dev/upsync/internal/errors"
	"upsync.dev/upsync/internal/git"
)

// configureRemote makes the named remote exist with the given URLs, fetches
// it and points refs/remotes/<name>/HEAD at its advertised default branch.
func (r *run) configureRemote(spec config.RemoteSpec) error {
	info, err := r.repo.RemoteInfo(spec.Name)
	switch {
	case errors.Is(err, gogit.ErrRemoteNotFound):
		if err := r.repo.AddRemote(spec.Name, spec.FetchURL); err != nil {
			return upsyncerrors.New(upsyncerrors.KindRemoteNotFound, err).WithRemote(spec.Name)
		}
		r.splog.Debug("Added remote %s (%s).", spec.Name, git.RedactURL(spec.FetchURL))
		r.didWork = true
	case err != nil:
		return upsyncerrors.New(upsyncerrors.KindRemoteNotFound, err).WithRemote(spec.Name)
	case info.FetchURL != spec.FetchURL:
		if err := r.repo.SetRemoteURL(spec.Name, spec.FetchURL); err != nil {
			return upsyncerrors.New(upsyncerrors.KindRemoteNotFound, err).WithRemote(spec.Name)
		}
		r.splog.Info("%s: changed %s url from %s to %s.",
			r.target.Path, spec.Name, git.RedactURL(info.FetchURL), git.RedactURL(spec.FetchURL))
		r.didWork = true
	}

	// The push URL is always written; only a change counts as work.
	if spec.PushURL != "" {
		if err := r.repo.SetRemotePushURL(spec.Name, spec.PushURL); err != nil {
			return upsyncerrors.New(upsyncerrors.KindRemoteNotFound, err).WithRemote(spec.Name)
		}
		if info.PushURL != spec.PushURL {
			r.didWork = true
		}
	}

	if err := r.fetch(spec); err != nil {
		return err
	}
	return r.updateRemoteHead(spec)
}

// withRetry runs attempt against url, retrying credential failures
// according to the engine's policy. Failures come back as FetchFailed
// errors carrying a remediation hint.
func (r *run) withRetry(remote, url string, attempt func(auth transport.AuthMethod) error) error {
	state := &git.RetryState{}
	err := git.RetryWithCredentials(r.ctx, url, r.creds, r.retry, state, attempt,
		func(err error, wait time.Duration) {
			r.splog.Debug("%s: attempt %d against %s failed, retrying in %s: %v",
				r.target.Path, state.Attempts, git.RedactURL(url), wait, git.ScrubCredentials(err, url))
		})
	if err == nil {
		return nil
	}
	hint := git.FetchHint(git.ClassifyFetchError(err), url)
	return upsyncerrors.New(upsyncerrors.KindFetchFailed, git.ScrubCredentials(err, url)).
		WithRemote(remote).
		WithHint(hint)
}

func (r *run) fetch(spec config.RemoteSpec) error {
	var updated bool
	err := r.withRetry(spec.Name, spec.FetchURL, func(auth transport.AuthMethod) error {
		var err error
		updated, err = r.repo.FetchRemote(r.ctx, spec.Name, auth)
		return err
	})
	if err != nil {
		return err
	}
	if updated {
		r.splog.Debug("%s: fetched new objects from %s.", r.target.Path, spec.Name)
	}
	return nil
}

// updateRemoteHead is the equivalent of `git remote set-head <remote> --auto`.
func (r *run) updateRemoteHead(spec config.RemoteSpec) error {
	var refs []*plumbing.Reference
	err := r.withRetry(spec.Name, spec.FetchURL, func(auth transport.AuthMethod) error {
		var err error
		refs, err = r.repo.ListRemote(r.ctx, spec.Name, auth)
		return err
	})
	if err != nil {
		return err
	}

	branch, ok := git.AdvertisedDefaultBranch(refs)
	if !ok {
		r.splog.Debug("%s: remote %s advertises no default branch.", r.target.Path, spec.Name)
		return nil
	}
	r.remoteDefaults[spec.Name] = branch

	headName := plumbing.NewRemoteHEADReferenceName(spec.Name)
	want := plumbing.NewRemoteReferenceName(spec.Name, branch)

	existing, err := r.repo.FindRef(headName)
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		r.splog.Debug("%s: setting %s to %s.", r.target.Path, headName, want)
	case err != nil:
		return err
	case existing.Type() == plumbing.SymbolicReference && existing.Target() == want:
		return nil
	default:
		r.splog.Warn("%s: %s pointed at %s, updating it to %s.",
			r.target.Path, headName, describeRef(existing), want)
	}

	if err := r.repo.SetSymbolicRef(headName, want); err != nil {
		return err
	}
	r.didWork = true
	return nil
}

// defaultRemoteHead returns the branch refs/remotes/<default remote>/HEAD
// points at.
func (r *run) defaultRemoteHead() (string, bool) {
	remote := r.target.DefaultRemote().Name
	ref, err := r.repo.FindRef(plumbing.NewRemoteHEADReferenceName(remote))
	if err != nil || ref.Type() != plumbing.SymbolicReference {
		return "", false
	}
	prefix := plumbing.NewRemoteReferenceName(remote, "").String()
	branch, ok := strings.CutPrefix(ref.Target().String(), prefix)
	return branch, ok && branch != ""
}

func describeRef(ref *plumbing.Reference) string {
	if ref.Type() == plumbing.SymbolicReference {
		return ref.Target().String()
	}
	return ref.Hash().String()
}
