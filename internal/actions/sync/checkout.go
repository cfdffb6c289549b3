package sync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	upsyncerrors "upsync.dev/upsync/internal/errors"
	"upsync.dev/upsync/internal/git"
)

// maxSubmoduleDepth bounds how deeply nested submodules are followed
const maxSubmoduleDepth = 8

// checkout switches the working tree to branch, creating the branch from the
// default remote when it does not exist locally. Without force it refuses
// to touch a dirty working tree.
func (r *run) checkout(branch git.BranchRef, force bool) error {
	if !force {
		head, err := r.repo.HeadState()
		if err != nil {
			return err
		}
		if !head.Unborn && !head.Detached && head.Branch == branch.FullName {
			return nil
		}
		// Checked before the branch exists: once an unborn HEAD's branch is
		// created, the empty index reads as staged deletions.
		if err := r.requireClean(upsyncerrors.KindUncommittedChanges, branch.ShortName); err != nil {
			return err
		}
	}

	if err := r.ensureLocalBranch(branch); err != nil {
		return err
	}

	if err := r.repo.SetHead(branch.FullName); err != nil {
		return err
	}
	if err := r.repo.CheckoutForce(branch.FullName); err != nil {
		return err
	}
	r.splog.Info("%s: checked out %s.", r.target.Path, branch)
	r.didWork = true

	return r.updateSubmodules()
}

// ensureLocalBranch creates branch from <default remote>/<branch> with
// that ref as its upstream, unless it already exists.
func (r *run) ensureLocalBranch(branch git.BranchRef) error {
	_, err := r.repo.FindRef(branch.FullName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return err
	}

	remote := r.target.DefaultRemote().Name
	tracking := git.NewRemoteBranchRef(remote, branch.ShortName)
	hash, err := r.repo.ResolveRef(tracking.FullName)
	if err != nil {
		return upsyncerrors.New(upsyncerrors.KindInvalidBranchReference, err).
			WithBranch(branch.ShortName).
			WithRemote(remote).
			WithDetail(fmt.Sprintf("%s does not exist locally or as %s.", branch, tracking))
	}

	if err := r.repo.SetRef(branch.FullName, hash); err != nil {
		return err
	}
	if err := r.repo.SetUpstream(branch.ShortName, remote, branch.FullName); err != nil {
		return err
	}
	r.splog.Debug("%s: created %s from %s.", r.target.Path, branch, tracking)
	r.didWork = true
	return nil
}

// requireClean returns a SyncError of kind listing the dirty entries when
// the working tree has uncommitted changes.
func (r *run) requireClean(kind upsyncerrors.Kind, branch string) error {
	status, err := r.repo.Status(r.ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() {
		return nil
	}
	return upsyncerrors.New(kind, nil).WithBranch(branch).WithDetail(status.Short())
}

type submoduleFrame struct {
	repo  git.Backend
	path  []string
	depth int
}

// updateSubmodules initializes every submodule, recursively, and checks
// out the commit its parent records. It walks an explicit stack so a
// pathological nesting fails cleanly instead of growing the call stack.
func (r *run) updateSubmodules() error {
	stack := []submoduleFrame{{repo: r.repo}}
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		subs, err := frame.repo.Submodules()
		if err != nil {
			return upsyncerrors.New(upsyncerrors.KindSubmoduleUpdateFailed, err).
				WithDetail(submoduleDetail(frame.path))
		}

		for _, sub := range subs {
			path := append(append([]string{}, frame.path...), sub.Path)
			if frame.depth >= maxSubmoduleDepth {
				return upsyncerrors.New(upsyncerrors.KindSubmoduleUpdateFailed,
					fmt.Errorf("submodules nested more than %d deep", maxSubmoduleDepth)).
					WithDetail(submoduleDetail(path))
			}
			if sub.Expected.IsZero() {
				r.splog.Debug("%s: submodule %s has no recorded commit.", r.target.Path, strings.Join(path, "/"))
				continue
			}

			child, err := r.updateSubmodule(frame.repo, sub)
			if err != nil {
				return upsyncerrors.New(upsyncerrors.KindSubmoduleUpdateFailed, err).
					WithDetail(submoduleDetail(path))
			}
			stack = append(stack, submoduleFrame{repo: child, path: path, depth: frame.depth + 1})
		}
	}
	return nil
}

func (r *run) updateSubmodule(parent git.Backend, sub git.Submodule) (git.Backend, error) {
	child, err := parent.OpenSubmodule(sub.Name)
	if err != nil {
		return nil, err
	}

	url := sub.URL
	if info, err := child.RemoteInfo(git.DefaultSubmoduleRemote); err == nil {
		url = info.FetchURL
	}
	err = r.withRetry(git.DefaultSubmoduleRemote, url, func(auth transport.AuthMethod) error {
		_, err := child.FetchRemote(r.ctx, git.DefaultSubmoduleRemote, auth)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := child.CheckoutHashForce(sub.Expected); err != nil {
		return nil, err
	}
	r.splog.Debug("%s: submodule %s at %s.", r.target.Path, sub.Path, sub.Expected)
	return child, nil
}

func submoduleDetail(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return "submodule " + strings.Join(path, "/")
}
