package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// CheckoutForce points HEAD at branch and overwrites the index and working
// tree with the branch's commit. Tracked files missing from disk are
// recreated; untracked files are left alone.
func (r *Repository) CheckoutForce(branch plumbing.ReferenceName) error {
	wt, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := wt.Checkout(&gogit.CheckoutOptions{Branch: branch, Force: true}); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}
	return nil
}

// CheckoutHashForce detaches HEAD at hash, overwriting the index and
// working tree.
func (r *Repository) CheckoutHashForce(hash plumbing.Hash) error {
	wt, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := wt.Checkout(&gogit.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", hash, err)
	}
	return nil
}

// DefaultSubmoduleRemote is the remote a submodule repository fetches from
const DefaultSubmoduleRemote = gogit.DefaultRemoteName

// Submodule is a direct submodule of a repository
type Submodule struct {
	Name string
	// Path is relative to the parent's working tree, slash separated.
	Path string
	URL  string
	// Expected is the commit recorded for the submodule in the parent's index.
	Expected plumbing.Hash
}

// Submodules lists the direct submodules declared in .gitmodules.
func (r *Repository) Submodules() ([]Submodule, error) {
	wt, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	subs, err := wt.Submodules()
	if err != nil {
		return nil, fmt.Errorf("failed to list submodules: %w", err)
	}

	out := make([]Submodule, 0, len(subs))
	for _, sub := range subs {
		cfg := sub.Config()
		status, err := sub.Status()
		if err != nil {
			return nil, fmt.Errorf("failed to get status of submodule %s: %w", cfg.Path, err)
		}
		out = append(out, Submodule{Name: cfg.Name, Path: cfg.Path, URL: cfg.URL, Expected: status.Expected})
	}
	return out, nil
}

// OpenSubmodule initializes the named submodule if needed and opens its
// repository. The submodule keeps its git directory under the parent's
// .git/modules, as git does.
func (r *Repository) OpenSubmodule(name string) (Backend, error) {
	wt, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	sub, err := wt.Submodule(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find submodule %s: %w", name, err)
	}
	if err := sub.Init(); err != nil && !errors.Is(err, gogit.ErrSubmoduleAlreadyInitialized) {
		return nil, fmt.Errorf("failed to initialize submodule %s: %w", name, err)
	}

	subRepo, err := sub.Repository()
	if err != nil {
		return nil, fmt.Errorf("failed to open submodule %s: %w", name, err)
	}

	child := newRepository(subRepo, r.subPath(sub.Config().Path))
	child.global, child.system = r.global, r.system
	return child, nil
}

func (r *Repository) subPath(rel string) string {
	return filepath.Join(r.path, filepath.FromSlash(rel))
}

// Stashes returns the stash list, one line per entry.
func (r *Repository) Stashes(ctx context.Context) ([]string, error) {
	return r.runner.RunLines(ctx, "stash", "list")
}
