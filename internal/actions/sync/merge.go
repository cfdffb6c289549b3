package sync

import (
	"fmt"

	upsyncerrors "upsync.dev/upsync/internal/errors"
	"upsync.dev/upsync/internal/git"
)

// fastForward moves branch to its push branch or upstream when that is a
// strict descendant. It never creates merge commits.
func (r *run) fastForward(branch git.BranchRef) error {
	candidate, ok, err := r.mergeCandidate(branch.ShortName)
	if err != nil {
		return err
	}
	if !ok {
		r.splog.Debug("%s: %s has no upstream or push branch, not updating it.", r.target.Path, branch)
		return nil
	}

	hash, err := r.repo.ResolveRef(candidate.FullName)
	if err != nil {
		return upsyncerrors.New(upsyncerrors.KindInvalidBranchReference, err).WithBranch(candidate.String())
	}

	outcome, err := r.repo.AnalyzeMerge(branch.FullName, hash)
	if err != nil {
		return err
	}

	switch outcome {
	case git.MergeAlreadyUpToDate:
		r.splog.Debug("%s: %s is up to date with %s.", r.target.Path, branch, candidate)
		return nil
	case git.MergeDiverged:
		return upsyncerrors.New(upsyncerrors.KindDivergedHistory, nil).
			WithBranch(branch.ShortName).
			WithDetail(fmt.Sprintf("%s and %s have diverged; merge or rebase %s by hand.", branch, candidate, branch))
	}

	if err := r.requireClean(upsyncerrors.KindUncommittedChanges, branch.ShortName); err != nil {
		return err
	}

	before, _ := r.repo.ResolveRef(branch.FullName)
	if err := r.repo.SetRef(branch.FullName, hash); err != nil {
		return err
	}
	if err := r.repo.SetHead(branch.FullName); err != nil {
		return err
	}
	if err := r.repo.CheckoutForce(branch.FullName); err != nil {
		return err
	}
	r.didWork = true

	if before.IsZero() {
		r.splog.Info("%s: %s set to %s.", r.target.Path, branch, candidate)
	} else {
		r.splog.Info("%s: fast-forwarded %s to %s (%s..%s).",
			r.target.Path, branch, candidate, before.String()[:7], hash.String()[:7])
	}
	return r.updateSubmodules()
}
