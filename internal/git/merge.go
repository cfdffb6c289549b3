package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// MergeOutcome is the result of analysing a merge of a candidate commit into a branch
type MergeOutcome int

const (
	// MergeAlreadyUpToDate means the candidate is already contained in the branch.
	MergeAlreadyUpToDate MergeOutcome = iota + 1
	// MergeFastForward means the branch can be moved to the candidate without a merge commit.
	MergeFastForward
	// MergeDiverged means both sides have commits the other lacks.
	MergeDiverged
)

func (o MergeOutcome) String() string {
	switch o {
	case MergeAlreadyUpToDate:
		return "up-to-date"
	case MergeFastForward:
		return "fast-forward"
	case MergeDiverged:
		return "diverged"
	default:
		return fmt.Sprintf("MergeOutcome(%d)", int(o))
	}
}

// AnalyzeMerge classifies merging candidate into branch. A branch that does
// not exist yet can always be fast-forwarded.
func (r *Repository) AnalyzeMerge(branch plumbing.ReferenceName, candidate plumbing.Hash) (MergeOutcome, error) {
	local, err := r.ResolveRef(branch)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return MergeFastForward, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s: %w", branch, err)
	}
	if local == candidate {
		return MergeAlreadyUpToDate, nil
	}

	localCommit, err := r.CommitObject(local)
	if err != nil {
		return 0, fmt.Errorf("failed to get commit %s: %w", local, err)
	}
	candidateCommit, err := r.CommitObject(candidate)
	if err != nil {
		return 0, fmt.Errorf("failed to get commit %s: %w", candidate, err)
	}

	contained, err := candidateCommit.IsAncestor(localCommit)
	if err != nil {
		return 0, fmt.Errorf("failed to check ancestry: %w", err)
	}
	if contained {
		return MergeAlreadyUpToDate, nil
	}

	behind, err := localCommit.IsAncestor(candidateCommit)
	if err != nil {
		return 0, fmt.Errorf("failed to check ancestry: %w", err)
	}
	if behind {
		return MergeFastForward, nil
	}
	return MergeDiverged, nil
}

// MergeBases returns the best common ancestors of a and b
func (r *Repository) MergeBases(a, b plumbing.Hash) ([]plumbing.Hash, error) {
	commitA, err := r.CommitObject(a)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", a, err)
	}
	commitB, err := r.CommitObject(b)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", b, err)
	}

	bases, err := commitA.MergeBase(commitB)
	if err != nil {
		return nil, fmt.Errorf("failed to find merge base: %w", err)
	}

	hashes := make([]plumbing.Hash, 0, len(bases))
	for _, c := range bases {
		hashes = append(hashes, c.Hash)
	}
	return hashes, nil
}
