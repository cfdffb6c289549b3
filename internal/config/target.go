package config

import (
	"fmt"

	upsyncerrors "upsync.dev/upsync/internal/errors"
)

// DefaultRemoteName is the remote used when only a URL is given
const DefaultRemoteName = "origin"

// RemoteSpec describes one remote a repository should have
type RemoteSpec struct {
	Name     string `yaml:"name"`
	FetchURL string `yaml:"fetch_url"`
	// PushURL is optional; when set it is written on every sync.
	PushURL string `yaml:"push_url,omitempty"`
}

// RepoTarget is the desired state of one on-disk repository. It is
// immutable for the duration of a sync.
type RepoTarget struct {
	Path string `yaml:"path"`
	// Branch is the branch to check out. Empty means keep the current
	// branch, or use the default remote's default branch for a new repository.
	Branch string `yaml:"branch,omitempty"`
	// Remotes are configured in order; the first is the default remote.
	Remotes []RemoteSpec `yaml:"remotes"`
	Prune   bool         `yaml:"prune,omitempty"`
}

// DefaultRemote returns the first remote. Callers must Validate first.
func (t RepoTarget) DefaultRemote() RemoteSpec {
	return t.Remotes[0]
}

// Validate checks that a target can be synced.
func (t RepoTarget) Validate() error {
	if t.Path == "" {
		return fmt.Errorf("repository target has no path")
	}
	if len(t.Remotes) == 0 {
		return upsyncerrors.New(upsyncerrors.KindNoRemotesConfigured, nil).WithPath(t.Path)
	}

	seen := make(map[string]bool, len(t.Remotes))
	for i, remote := range t.Remotes {
		if remote.Name == "" {
			return fmt.Errorf("%s: remote %d has no name", t.Path, i)
		}
		if remote.FetchURL == "" {
			return fmt.Errorf("%s: remote %s has no fetch_url", t.Path, remote.Name)
		}
		if seen[remote.Name] {
			return fmt.Errorf("%s: remote %s is listed twice", t.Path, remote.Name)
		}
		seen[remote.Name] = true
	}
	return nil
}
