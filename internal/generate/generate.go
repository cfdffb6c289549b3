// Package generate writes task files describing the git repositories found
// under a set of directories.
package generate

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"upsync.dev/upsync/internal/config"
	"upsync.dev/upsync/internal/git"
	"upsync.dev/upsync/internal/output"
)

// Prelude starts every generated task file
const Prelude = "# Generated by `upsync generate`. Manual edits will be overwritten.\n"

// Options configures a generation run
type Options struct {
	// SearchPaths are walked for repositories.
	SearchPaths []string
	// Excludes skips any path containing one of these substrings.
	Excludes []string
	// RemoteOrder lists remote names that come first, in this order. The
	// first remote of a target is its default remote.
	RemoteOrder []string
	// Prune is copied into every generated target.
	Prune bool
	// Output is the task file to write.
	Output string
}

// Run scans the search paths and writes the task file. It reports whether
// the file changed; an identical file is left untouched.
func Run(splog *output.Splog, opts Options) (bool, error) {
	paths, err := FindRepos(opts.SearchPaths, opts.Excludes)
	if err != nil {
		return false, err
	}
	splog.Debug("Found %d repositories.", len(paths))

	home, _ := os.UserHomeDir()
	targets := make([]config.RepoTarget, 0, len(paths))
	for _, path := range paths {
		target, err := Describe(path, opts.RemoteOrder, opts.Prune, home)
		if err != nil {
			return false, err
		}
		if len(target.Remotes) == 0 {
			splog.Warn("Skipping %s, it has no remotes.", path)
			continue
		}
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Path < targets[j].Path })

	content, err := Render(targets)
	if err != nil {
		return false, err
	}

	existing, err := os.ReadFile(opts.Output)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to read %s: %w", opts.Output, err)
	}
	if bytes.Equal(existing, content) {
		splog.Info("%s is unchanged.", opts.Output)
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.Output), 0750); err != nil {
		return false, fmt.Errorf("failed to create directory for %s: %w", opts.Output, err)
	}
	if err := os.WriteFile(opts.Output, content, 0600); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", opts.Output, err)
	}
	splog.Success("Wrote %d repositories to %s.", len(targets), opts.Output)
	return true, nil
}

// FindRepos returns every directory under searchPaths that contains a .git
// directory. Repositories nested inside another repository are not
// reported, and neither is anything whose path contains an exclude.
func FindRepos(searchPaths, excludes []string) ([]string, error) {
	var repos []string
	for _, root := range searchPaths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				// Only an unreadable search path is fatal.
				if path == root {
					return walkErr
				}
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			for _, exclude := range excludes {
				if exclude != "" && strings.Contains(path, exclude) {
					return filepath.SkipDir
				}
			}
			if info, err := os.Stat(filepath.Join(path, ".git")); err == nil && info.IsDir() {
				repos = append(repos, path)
				return filepath.SkipDir
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", root, err)
		}
	}
	return repos, nil
}

// Describe builds the target for the repository at path. Remotes named in
// remoteOrder come first; the rest follow alphabetically. A path under home
// is written with a leading ~.
func Describe(path string, remoteOrder []string, prune bool, home string) (config.RepoTarget, error) {
	repo, err := git.OpenRepository(path)
	if err != nil {
		return config.RepoTarget{}, fmt.Errorf("failed to open %s: %w", path, err)
	}

	names, err := repo.RemoteNames()
	if err != nil {
		return config.RepoTarget{}, err
	}

	target := config.RepoTarget{Path: tildePath(path, home), Prune: prune}
	for _, name := range orderRemotes(names, remoteOrder) {
		info, err := repo.RemoteInfo(name)
		if err != nil {
			return config.RepoTarget{}, fmt.Errorf("invalid remote %s in %s: %w", name, path, err)
		}
		remote := config.RemoteSpec{Name: name, FetchURL: info.FetchURL}
		if info.PushURL != info.FetchURL {
			remote.PushURL = info.PushURL
		}
		target.Remotes = append(target.Remotes, remote)
	}
	return target, nil
}

// Render encodes targets as a task file, prelude included.
func Render(targets []config.RepoTarget) ([]byte, error) {
	body, err := config.MarshalTasks(targets)
	if err != nil {
		return nil, err
	}
	return append([]byte(Prelude), body...), nil
}

func orderRemotes(names, order []string) []string {
	remaining := append([]string{}, names...)
	ordered := make([]string, 0, len(names))
	for _, want := range order {
		for i, name := range remaining {
			if name == want {
				ordered = append(ordered, name)
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
	}
	return append(ordered, remaining...)
}

func tildePath(path, home string) string {
	if home == "" {
		return path
	}
	rel, err := filepath.Rel(home, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	if rel == "." {
		return "~"
	}
	return "~/" + filepath.ToSlash(rel)
}
