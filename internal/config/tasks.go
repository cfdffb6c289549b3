package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TaskFile is the on-disk list of repositories to sync
type TaskFile struct {
	Repos []RepoTarget `yaml:"repos"`
}

// LoadTaskFile reads a task file and returns its targets with paths, branch
// names and URLs expanded.
func LoadTaskFile(path string) ([]RepoTarget, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open task file: %w", err)
	}
	defer f.Close()

	targets, err := ParseTasks(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return targets, nil
}

// ParseTasks decodes a task file. Unknown fields are rejected.
func ParseTasks(r io.Reader) ([]RepoTarget, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var file TaskFile
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse task file: %w", err)
	}

	targets := make([]RepoTarget, 0, len(file.Repos))
	for i, raw := range file.Repos {
		target, err := expandTarget(raw)
		if err != nil {
			return nil, fmt.Errorf("repos[%d]: %w", i, err)
		}
		if err := target.Validate(); err != nil {
			return nil, fmt.Errorf("repos[%d]: %w", i, err)
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// MarshalTasks encodes targets as a task file.
func MarshalTasks(targets []RepoTarget) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(TaskFile{Repos: targets}); err != nil {
		return nil, fmt.Errorf("failed to encode task file: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode task file: %w", err)
	}
	return buf.Bytes(), nil
}

func expandTarget(t RepoTarget) (RepoTarget, error) {
	var err error
	if t.Path, err = ExpandPath(t.Path); err != nil {
		return RepoTarget{}, err
	}
	if t.Branch, err = ExpandEnv(t.Branch); err != nil {
		return RepoTarget{}, err
	}

	remotes := make([]RemoteSpec, len(t.Remotes))
	for i, remote := range t.Remotes {
		if remote.Name, err = ExpandEnv(remote.Name); err != nil {
			return RepoTarget{}, err
		}
		if remote.FetchURL, err = ExpandEnv(remote.FetchURL); err != nil {
			return RepoTarget{}, err
		}
		if remote.PushURL, err = ExpandEnv(remote.PushURL); err != nil {
			return RepoTarget{}, err
		}
		remotes[i] = remote
	}
	t.Remotes = remotes
	return t, nil
}

// ExpandEnv replaces $VAR and ${VAR} with environment values. Referencing an
// unset variable is an error rather than an empty string.
func ExpandEnv(s string) (string, error) {
	var missing []string
	expanded := os.Expand(s, func(name string) string {
		value, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("undefined environment variable %s in %q", strings.Join(missing, ", "), s)
	}
	return expanded, nil
}

// ExpandPath expands environment variables and a leading ~ in path.
func ExpandPath(path string) (string, error) {
	expanded, err := ExpandEnv(path)
	if err != nil {
		return "", err
	}
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand ~: %w", err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~"))
	}
	return expanded, nil
}
