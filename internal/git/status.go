package git

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

// Submodule annotations appended to porcelain status lines, as git status prints them
const (
	SubmoduleNewCommits       = "new commits"
	SubmoduleModifiedContent  = "modified content"
	SubmoduleUntrackedContent = "untracked content"
)

// StatusEntry is one changed path
type StatusEntry struct {
	Path     string
	Staging  gogit.StatusCode
	Worktree gogit.StatusCode
	// Extra is the original path of a rename or copy.
	Extra string
	// Submodule lists what is dirty inside a submodule at Path.
	Submodule []string
}

// IsUntracked reports whether the entry is an untracked file
func (e StatusEntry) IsUntracked() bool {
	return e.Staging == gogit.Untracked && e.Worktree == gogit.Untracked
}

// Status is a porcelain view of the working tree and index relative to HEAD.
// Ignored files are never included.
type Status struct {
	Entries []StatusEntry
}

// IsClean reports whether nothing is staged, modified or untracked
func (s Status) IsClean() bool {
	return len(s.Entries) == 0
}

// Short renders the status like `git status --short`: tracked changes
// first, then untracked files, each group sorted by path.
func (s Status) Short() string {
	var tracked, untracked []string
	for _, e := range s.Entries {
		if e.IsUntracked() {
			untracked = append(untracked, "?? "+e.Path)
			continue
		}
		line := fmt.Sprintf("%c%c ", byte(e.Staging), byte(e.Worktree))
		if e.Extra != "" {
			line += e.Extra + " -> "
		}
		line += e.Path
		if len(e.Submodule) > 0 {
			line += " (" + strings.Join(e.Submodule, ", ") + ")"
		}
		tracked = append(tracked, line)
	}
	return strings.Join(append(tracked, untracked...), "\n")
}

// Status computes the porcelain status of the repository, annotating
// submodules whose checkout or contents differ from what is recorded.
func (r *Repository) Status(ctx context.Context) (Status, error) {
	wt, err := r.Worktree()
	if err != nil {
		return Status{}, fmt.Errorf("failed to get worktree: %w", err)
	}

	raw, err := wt.Status()
	if err != nil {
		return Status{}, fmt.Errorf("failed to get status: %w", err)
	}

	entries := make(map[string]*StatusEntry, len(raw))
	for path, fs := range raw {
		if fs.Staging == gogit.Unmodified && fs.Worktree == gogit.Unmodified {
			continue
		}
		entries[path] = &StatusEntry{Path: path, Staging: fs.Staging, Worktree: fs.Worktree, Extra: fs.Extra}
	}

	if err := r.annotateSubmodules(ctx, wt, entries); err != nil {
		return Status{}, err
	}

	status := Status{Entries: make([]StatusEntry, 0, len(entries))}
	for _, e := range entries {
		status.Entries = append(status.Entries, *e)
	}
	sort.Slice(status.Entries, func(i, j int) bool { return status.Entries[i].Path < status.Entries[j].Path })
	return status, nil
}

func (r *Repository) annotateSubmodules(ctx context.Context, wt *gogit.Worktree, entries map[string]*StatusEntry) error {
	subs, err := wt.Submodules()
	if err != nil {
		return fmt.Errorf("failed to list submodules: %w", err)
	}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}

		subStatus, err := sub.Status()
		if errors.Is(err, gogit.ErrSubmoduleNotInitialized) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get status of submodule %s: %w", sub.Config().Path, err)
		}
		if subStatus.Current.IsZero() {
			continue
		}

		var notes []string
		if !subStatus.IsClean() {
			notes = append(notes, SubmoduleNewCommits)
		}

		subRepo, err := sub.Repository()
		if err != nil {
			return fmt.Errorf("failed to open submodule %s: %w", sub.Config().Path, err)
		}
		inner, err := newRepository(subRepo, r.subPath(sub.Config().Path)).Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status of submodule %s: %w", sub.Config().Path, err)
		}
		var modified, untracked bool
		for _, e := range inner.Entries {
			if e.IsUntracked() {
				untracked = true
			} else {
				modified = true
			}
		}
		if modified {
			notes = append(notes, SubmoduleModifiedContent)
		}
		if untracked {
			notes = append(notes, SubmoduleUntrackedContent)
		}
		if len(notes) == 0 {
			continue
		}

		path := sub.Config().Path
		entry, ok := entries[path]
		if !ok {
			entry = &StatusEntry{Path: path, Staging: gogit.Unmodified, Worktree: gogit.Modified}
			entries[path] = entry
		}
		entry.Submodule = notes
	}
	return nil
}
