package testhelpers

import (
	"path/filepath"
	"testing"
)

// Scene is a sync test fixture: a bare upstream repository, a seed working
// tree used to publish commits to it, and a target path that does not exist
// until something syncs into it.
type Scene struct {
	Dir string
	// Upstream is the path of the bare repository, usable as a remote URL.
	Upstream string
	// Seed is a clone-like working tree with Upstream as origin.
	Seed *GitRepo
	// Target is where syncs are pointed.
	Target string
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// NewScene creates a scene in a temporary directory. HOME and the git
// configuration are isolated so the user's own git config never applies.
// Tests using a scene cannot run in parallel.
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	dir := t.TempDir()
	home := filepath.Join(dir, "home")
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("GIT_CONFIG_GLOBAL", "/dev/null")
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("UPSYNC_GIT_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")

	scene := &Scene{
		Dir:      dir,
		Upstream: filepath.Join(dir, "upstream.git"),
		Target:   filepath.Join(dir, "target"),
	}

	if err := NewBareRepo(scene.Upstream); err != nil {
		t.Fatalf("Failed to create upstream: %v", err)
	}

	seed, err := NewGitRepo(filepath.Join(dir, "seed"))
	if err != nil {
		t.Fatalf("Failed to create seed repo: %v", err)
	}
	if err := seed.AddRemote("origin", scene.Upstream); err != nil {
		t.Fatalf("Failed to add origin: %v", err)
	}
	scene.Seed = seed

	if setup != nil {
		if err := setup(scene); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}

	return scene
}

// TargetRepo returns the synced working tree.
func (s *Scene) TargetRepo() *GitRepo {
	return OpenGitRepo(s.Target)
}

// Publish commits a change on the seed's current branch and pushes it upstream.
func (s *Scene) Publish(textValue, prefix string) error {
	if err := s.Seed.CreateChangeAndCommit(textValue, prefix); err != nil {
		return err
	}
	branch, err := s.Seed.CurrentBranchName()
	if err != nil {
		return err
	}
	return s.Seed.PushBranch("origin", branch)
}

// BasicSceneSetup publishes a single commit on main.
func BasicSceneSetup(scene *Scene) error {
	return scene.Publish("1", "1")
}
