package git

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

const (
	localBranchPrefix  = "refs/heads/"
	remoteBranchPrefix = "refs/remotes/"
)

// BranchRef is a branch reference in both its fully qualified form
// (refs/heads/x or refs/remotes/r/x) and its short form (x).
// Comparisons between branches should always use one form explicitly.
type BranchRef struct {
	FullName  plumbing.ReferenceName
	ShortName string
	// Remote is the remote name for remote-tracking branches, empty for local ones.
	Remote string
}

// NewLocalBranchRef returns the BranchRef for refs/heads/<short>.
func NewLocalBranchRef(short string) BranchRef {
	return BranchRef{
		FullName:  plumbing.NewBranchReferenceName(short),
		ShortName: short,
	}
}

// NewRemoteBranchRef returns the BranchRef for refs/remotes/<remote>/<short>.
func NewRemoteBranchRef(remote, short string) BranchRef {
	return BranchRef{
		FullName:  plumbing.NewRemoteReferenceName(remote, short),
		ShortName: short,
		Remote:    remote,
	}
}

// IsRemote reports whether b is a remote-tracking branch
func (b BranchRef) IsRemote() bool {
	return b.Remote != ""
}

// String returns the name git would print for the branch: x or remote/x.
func (b BranchRef) String() string {
	if b.Remote != "" {
		return b.Remote + "/" + b.ShortName
	}
	return b.ShortName
}

// ShortenBranchRef removes a leading refs/heads/ or refs/remotes/<remote>/
// from name, e.g. refs/remotes/origin/main -> main. Other names are returned unchanged.
func ShortenBranchRef(name string) string {
	if short, ok := strings.CutPrefix(name, localBranchPrefix); ok {
		return short
	}
	if rest, ok := strings.CutPrefix(name, remoteBranchPrefix); ok {
		if _, short, found := strings.Cut(rest, "/"); found {
			return short
		}
		return rest
	}
	return name
}

// HeadState describes what HEAD currently points at.
type HeadState struct {
	// Unborn is set for a repository with no commits on the HEAD branch yet.
	Unborn bool
	// Detached is set when HEAD points directly at a commit.
	Detached bool
	// Branch is the branch HEAD points at, empty when detached.
	Branch plumbing.ReferenceName
	// Hash is the commit HEAD resolves to, zero when unborn.
	Hash plumbing.Hash
}

// ShortBranch returns the short name of the HEAD branch
func (h HeadState) ShortBranch() string {
	return ShortenBranchRef(h.Branch.String())
}

// HeadState reads HEAD without requiring it to resolve.
func (r *Repository) HeadState() (HeadState, error) {
	head, err := r.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return HeadState{}, fmt.Errorf("failed to read HEAD: %w", err)
	}

	if head.Type() == plumbing.HashReference {
		return HeadState{Detached: true, Hash: head.Hash()}, nil
	}

	state := HeadState{Branch: head.Target()}
	ref, err := r.Reference(head.Target(), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		state.Unborn = true
		return state, nil
	}
	if err != nil {
		return HeadState{}, fmt.Errorf("failed to resolve HEAD branch %s: %w", head.Target(), err)
	}
	state.Hash = ref.Hash()
	return state, nil
}

// FindRef returns the reference with the given name without resolving it.
// A missing reference is reported as plumbing.ErrReferenceNotFound.
func (r *Repository) FindRef(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	return r.Storer.Reference(name)
}

// ResolveRef returns the commit hash a reference ultimately points at.
func (r *Repository) ResolveRef(name plumbing.ReferenceName) (plumbing.Hash, error) {
	ref, err := r.Reference(name, true)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return ref.Hash(), nil
}

// SetRef creates or moves a direct reference.
func (r *Repository) SetRef(name plumbing.ReferenceName, hash plumbing.Hash) error {
	if err := r.Storer.SetReference(plumbing.NewHashReference(name, hash)); err != nil {
		return fmt.Errorf("failed to set %s to %s: %w", name, hash, err)
	}
	return nil
}

// SetSymbolicRef creates or overwrites a symbolic reference.
func (r *Repository) SetSymbolicRef(name, target plumbing.ReferenceName) error {
	if err := r.Storer.SetReference(plumbing.NewSymbolicReference(name, target)); err != nil {
		return fmt.Errorf("failed to point %s at %s: %w", name, target, err)
	}
	return nil
}

// SetHead points HEAD at a branch without touching the working tree.
func (r *Repository) SetHead(branch plumbing.ReferenceName) error {
	return r.SetSymbolicRef(plumbing.HEAD, branch)
}

// DeleteBranch removes a local branch ref and its [branch "x"] config section.
func (r *Repository) DeleteBranch(short string) error {
	if err := r.Storer.RemoveReference(plumbing.NewBranchReferenceName(short)); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", short, err)
	}

	cfg, err := r.Config()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if _, ok := cfg.Branches[short]; ok {
		delete(cfg.Branches, short)
		if err := r.Storer.SetConfig(cfg); err != nil {
			return fmt.Errorf("failed to remove config for branch %s: %w", short, err)
		}
	}
	return nil
}

// LocalBranches returns every refs/heads/* branch sorted by name
func (r *Repository) LocalBranches() ([]BranchRef, error) {
	iter, err := r.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to get branches: %w", err)
	}

	var branches []BranchRef
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		branches = append(branches, NewLocalBranchRef(ShortenBranchRef(ref.Name().String())))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate branches: %w", err)
	}

	sort.Slice(branches, func(i, j int) bool { return branches[i].ShortName < branches[j].ShortName })
	return branches, nil
}

// RemoteBranches returns every direct refs/remotes/* reference sorted by
// name. Symbolic refs such as origin/HEAD are skipped.
func (r *Repository) RemoteBranches() ([]BranchRef, error) {
	remotes, err := r.RemoteNames()
	if err != nil {
		return nil, err
	}
	// Longest first so a remote named "a/b" wins over "a".
	sort.Slice(remotes, func(i, j int) bool { return len(remotes[i]) > len(remotes[j]) })

	iter, err := r.References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}

	var branches []BranchRef
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsRemote() || ref.Type() != plumbing.HashReference {
			return nil
		}
		branches = append(branches, splitRemoteRef(ref.Name(), remotes))
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}

	sort.Slice(branches, func(i, j int) bool { return branches[i].FullName < branches[j].FullName })
	return branches, nil
}

func splitRemoteRef(name plumbing.ReferenceName, remotes []string) BranchRef {
	rest := strings.TrimPrefix(name.String(), remoteBranchPrefix)
	for _, remote := range remotes {
		if short, ok := strings.CutPrefix(rest, remote+"/"); ok {
			return BranchRef{FullName: name, ShortName: short, Remote: remote}
		}
	}
	remote, short, _ := strings.Cut(rest, "/")
	return BranchRef{FullName: name, ShortName: short, Remote: remote}
}
