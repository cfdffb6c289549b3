package sync

import (
	"strings"

	"upsync.dev/upsync/internal/git"
)

// reportStatus warns about work that exists only in this clone: uncommitted
// changes, stashes, branches ahead of their push or upstream branch,
// branches with neither, and leftover fork branches. Nothing here fails the
// sync.
//
// Fork branches are remote branches whose name contains "fork", other than
// the fork's HEAD and its forkmain default branch.
func (r *run) reportStatus() {
	path := r.target.Path

	status, err := r.repo.Status(r.ctx)
	switch {
	case err != nil:
		r.splog.Debug("%s: failed to get status: %v", path, err)
	case !status.IsClean():
		r.splog.Warn("%s has uncommitted changes:\n%s", path, status.Short())
	}

	stashes, err := r.repo.Stashes(r.ctx)
	switch {
	case err != nil:
		r.splog.Debug("%s: failed to list stashes: %v", path, err)
	case len(stashes) > 0:
		r.splog.Warn("%s has stashed changes:\n%s", path, strings.Join(stashes, "\n"))
	}

	locals, err := r.repo.LocalBranches()
	if err != nil {
		r.splog.Debug("%s: failed to list branches: %v", path, err)
		return
	}
	for _, branch := range locals {
		r.reportBranch(branch)
	}

	remotes, err := r.repo.RemoteBranches()
	if err != nil {
		r.splog.Debug("%s: failed to list remote branches: %v", path, err)
		return
	}
	var forks []string
	for _, branch := range remotes {
		name := branch.String()
		if strings.Contains(name, "fork") && !strings.Contains(name, "HEAD") && !strings.Contains(name, "forkmain") {
			forks = append(forks, name)
		}
	}
	if len(forks) > 0 {
		r.splog.Warn("%s has unmerged fork branches: %s", path, strings.Join(forks, " "))
	}
}

func (r *run) reportBranch(branch git.BranchRef) {
	path := r.target.Path

	target, isPush, err := r.pushBranch(branch.ShortName)
	label := "@{push}"
	if err == nil && !isPush {
		var found bool
		target, found, err = r.repo.Upstream(branch.ShortName)
		label = "@{upstream}"
		if err == nil && !found {
			r.splog.Warn("%s: branch %s has no @{upstream} or @{push} branch.", path, branch)
			return
		}
	}
	if err != nil {
		r.splog.Debug("%s: failed to resolve the push or upstream branch of %s: %v", path, branch, err)
		return
	}

	targetHash, err := r.repo.ResolveRef(target.FullName)
	if err != nil {
		r.splog.Debug("%s: failed to resolve %s: %v", path, target, err)
		return
	}
	branchHash, err := r.repo.ResolveRef(branch.FullName)
	if err != nil {
		r.splog.Debug("%s: failed to resolve %s: %v", path, branch, err)
		return
	}

	unmerged, err := git.Unmerged(r.ctx, r.repo, targetHash, branchHash)
	if err != nil {
		r.splog.Debug("%s: failed to compare %s with %s: %v", path, branch, target, err)
		return
	}
	if unmerged {
		r.splog.Warn("%s: branch %s has changes that aren't in %s (%s).", path, branch, label, target)
	}
}
