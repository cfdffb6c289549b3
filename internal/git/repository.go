package git

import (
	"errors"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
)

// Repository wraps a go-git repository rooted at a working tree path
type Repository struct {
	*gogit.Repository
	path   string
	runner *CommandRunner

	// user-level configuration, loaded lazily and shared with submodules
	global *config.Config
	system *config.Config
}

// OpenRepository opens the git repository whose working tree is exactly path.
// Parent directories are not searched, so a path nested inside another
// repository is reported as gogit.ErrRepositoryNotExists.
func OpenRepository(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{
		DetectDotGit:          false,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	return newRepository(repo, absPath), nil
}

// InitRepository initializes an empty non-bare repository at path.
func InitRepository(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := gogit.PlainInit(absPath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	return newRepository(repo, absPath), nil
}

// OpenOrInitRepository opens the repository at path, initializing an empty
// one in place if none exists. created reports whether initialization happened.
func OpenOrInitRepository(path string) (repo *Repository, created bool, err error) {
	repo, err = OpenRepository(path)
	if err == nil {
		return repo, false, nil
	}
	if !errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, false, err
	}

	repo, err = InitRepository(path)
	if err != nil {
		return nil, false, err
	}
	return repo, true, nil
}

func newRepository(repo *gogit.Repository, path string) *Repository {
	return &Repository{
		Repository: repo,
		path:       path,
		runner:     NewCommandRunner(path),
	}
}

// Path returns the working tree root of the repository
func (r *Repository) Path() string {
	return r.path
}

// Runner returns the git command runner bound to this repository
func (r *Repository) Runner() *CommandRunner {
	return r.runner
}
