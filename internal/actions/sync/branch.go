package sync

import (
	"errors"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	upsyncerrors "upsync.dev/upsync/internal/errors"
	"upsync.dev/upsync/internal/git"
)

// targetBranch picks the branch the working tree should be on: the
// configured branch, else the current one, else the default remote's
// default branch.
func (r *run) targetBranch() (git.BranchRef, error) {
	if r.target.Branch != "" {
		return git.NewLocalBranchRef(git.ShortenBranchRef(r.target.Branch)), nil
	}

	head, err := r.repo.HeadState()
	if err != nil {
		return git.BranchRef{}, err
	}
	if !head.Unborn && !head.Detached {
		return git.NewLocalBranchRef(head.ShortBranch()), nil
	}

	remote := r.target.DefaultRemote().Name
	if branch, ok := r.remoteDefaults[remote]; ok {
		return git.NewLocalBranchRef(branch), nil
	}
	return git.BranchRef{}, upsyncerrors.New(upsyncerrors.KindNoDefaultBranchResolved, nil).WithRemote(remote)
}

func (r *run) needsCheckout(branch git.BranchRef) (bool, error) {
	if r.created {
		return true, nil
	}
	head, err := r.repo.HeadState()
	if err != nil {
		return false, err
	}
	if head.Detached || head.Branch != branch.FullName {
		return true, nil
	}
	_, err = r.repo.FindRef(branch.FullName)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return true, nil
	}
	return false, err
}

// pushBranch returns the remote-tracking ref `git push` would update for
// short, following branch.<short>.pushRemote then remote.pushDefault. The
// remote must exist and the ref must have been fetched.
func (r *run) pushBranch(short string) (git.BranchRef, bool, error) {
	cfg, err := r.repo.LayeredConfig()
	if err != nil {
		return git.BranchRef{}, false, err
	}

	remote, ok := cfg.Get("branch", short, "pushRemote")
	if !ok || remote == "" {
		remote, ok = cfg.Get("remote", "", "pushDefault")
	}
	if !ok || remote == "" {
		return git.BranchRef{}, false, nil
	}

	if _, err := r.repo.RemoteInfo(remote); err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			r.splog.Debug("%s: push remote %s for %s does not exist.", r.target.Path, remote, short)
			return git.BranchRef{}, false, nil
		}
		return git.BranchRef{}, false, err
	}

	ref := git.NewRemoteBranchRef(remote, short)
	if _, err := r.repo.FindRef(ref.FullName); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return git.BranchRef{}, false, nil
		}
		return git.BranchRef{}, false, err
	}
	return ref, true, nil
}

// mergeCandidate returns the ref branch should be fast-forwarded to: its
// push branch when there is one, else its upstream.
func (r *run) mergeCandidate(short string) (git.BranchRef, bool, error) {
	ref, ok, err := r.pushBranch(short)
	if err != nil || ok {
		return ref, ok, err
	}
	return r.repo.Upstream(short)
}
