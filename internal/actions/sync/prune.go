package sync

import (
	upsyncerrors "upsync.dev/upsync/internal/errors"
	"upsync.dev/upsync/internal/git"
)

// pruneCandidates returns local branches whose work has landed upstream:
// no remote has a branch of the same name, an upstream is configured, and
// every commit has an equivalent patch upstream. The configured branch and
// the default remote's HEAD branch are never candidates.
func (r *run) pruneCandidates() ([]git.BranchRef, error) {
	locals, err := r.repo.LocalBranches()
	if err != nil {
		return nil, err
	}
	remotes, err := r.repo.RemoteBranches()
	if err != nil {
		return nil, err
	}

	published := make(map[string]bool, len(remotes))
	for _, remote := range remotes {
		published[remote.ShortName] = true
	}

	protected := make(map[string]bool)
	if r.target.Branch != "" {
		protected[git.ShortenBranchRef(r.target.Branch)] = true
	}
	if head, ok := r.defaultRemoteHead(); ok {
		protected[head] = true
	}

	var candidates []git.BranchRef
	for _, branch := range locals {
		if protected[branch.ShortName] || published[branch.ShortName] {
			continue
		}

		upstream, found, err := r.repo.Upstream(branch.ShortName)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}

		upstreamHash, err := r.repo.ResolveRef(upstream.FullName)
		if err != nil {
			return nil, err
		}
		branchHash, err := r.repo.ResolveRef(branch.FullName)
		if err != nil {
			return nil, err
		}

		unmerged, err := git.Unmerged(r.ctx, r.repo, upstreamHash, branchHash)
		if err != nil {
			return nil, err
		}
		if unmerged {
			r.splog.Debug("%s: keeping %s, it has commits not in %s.", r.target.Path, branch, upstream)
			continue
		}
		candidates = append(candidates, branch)
	}
	return candidates, nil
}

// prune deletes merged branches. If the current branch is pruned the
// default remote's HEAD branch is checked out first.
func (r *run) prune() error {
	candidates, err := r.pruneCandidates()
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		r.splog.Debug("%s: nothing to prune.", r.target.Path)
		return nil
	}

	if err := r.requireClean(upsyncerrors.KindPruneBlockedByDirtyTree, ""); err != nil {
		return err
	}

	for _, branch := range candidates {
		head, err := r.repo.HeadState()
		if err != nil {
			return err
		}
		if !head.Detached && head.Branch == branch.FullName {
			defaultBranch, ok := r.defaultRemoteHead()
			if !ok {
				return upsyncerrors.New(upsyncerrors.KindNoDefaultBranchResolved, nil).
					WithBranch(branch.ShortName).
					WithRemote(r.target.DefaultRemote().Name).
					WithDetail("Cannot move off a branch being pruned.")
			}
			if err := r.checkout(git.NewLocalBranchRef(defaultBranch), false); err != nil {
				return err
			}
		}

		hash, err := r.repo.ResolveRef(branch.FullName)
		if err != nil {
			return err
		}
		if err := r.repo.DeleteBranch(branch.ShortName); err != nil {
			return err
		}
		r.splog.Warn("%s: deleted merged branch %s (was %s).", r.target.Path, branch, hash.String()[:7])
		r.didWork = true
	}
	return nil
}
