package git_test

import (
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"upsync.dev/upsync/internal/git"
	"upsync.dev/upsync/testhelpers"
)

func TestShortenBranchRef(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"refs/heads/main", "main"},
		{"refs/heads/feature/x", "feature/x"},
		{"refs/remotes/origin/main", "main"},
		{"refs/remotes/up/feature/x", "feature/x"},
		{"main", "main"},
		{"refs/tags/v1", "refs/tags/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.out, git.ShortenBranchRef(tt.in))
		})
	}
}

func TestOpenOrInitRepository(t *testing.T) {
	t.Run("initializes a missing repository", func(t *testing.T) {
		dir := t.TempDir()
		repo, created, err := git.OpenOrInitRepository(dir)
		require.NoError(t, err)
		require.True(t, created)

		head, err := repo.HeadState()
		require.NoError(t, err)
		require.True(t, head.Unborn)
		require.False(t, head.Detached)
	})

	t.Run("opens an existing repository", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		repo, created, err := git.OpenOrInitRepository(scene.Seed.Dir)
		require.NoError(t, err)
		require.False(t, created)

		head, err := repo.HeadState()
		require.NoError(t, err)
		require.False(t, head.Unborn)
		require.Equal(t, "main", head.ShortBranch())
		require.Equal(t, revision(t, scene.Seed, "main"), head.Hash)
	})

	t.Run("does not pick up a parent repository", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		nested := filepath.Join(scene.Seed.Dir, "nested")
		require.NoError(t, scene.Seed.WriteFile("nested/.keep", ""))

		_, created, err := git.OpenOrInitRepository(nested)
		require.NoError(t, err)
		require.True(t, created)
	})
}

func TestHeadState(t *testing.T) {
	t.Run("detached", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Seed.RunGitCommand("checkout", "--detach", "main"))

		repo, err := git.OpenRepository(scene.Seed.Dir)
		require.NoError(t, err)
		head, err := repo.HeadState()
		require.NoError(t, err)
		require.True(t, head.Detached)
		require.Equal(t, revision(t, scene.Seed, "main"), head.Hash)
	})
}

func TestBranches(t *testing.T) {
	scene := testhelpers.NewScene(t, func(s *testhelpers.Scene) error {
		if err := testhelpers.BasicSceneSetup(s); err != nil {
			return err
		}
		if err := s.Seed.CreateAndCheckoutBranch("feature/x"); err != nil {
			return err
		}
		return s.Seed.PushBranch("origin", "feature/x")
	})
	repo, err := git.OpenRepository(scene.Seed.Dir)
	require.NoError(t, err)

	t.Run("local branches", func(t *testing.T) {
		branches, err := repo.LocalBranches()
		require.NoError(t, err)
		require.Equal(t, []git.BranchRef{
			git.NewLocalBranchRef("feature/x"),
			git.NewLocalBranchRef("main"),
		}, branches)
	})

	t.Run("remote branches", func(t *testing.T) {
		branches, err := repo.RemoteBranches()
		require.NoError(t, err)
		require.Equal(t, []git.BranchRef{
			git.NewRemoteBranchRef("origin", "feature/x"),
			git.NewRemoteBranchRef("origin", "main"),
		}, branches)
		require.Equal(t, "origin/feature/x", branches[0].String())
	})

	t.Run("delete branch removes its config", func(t *testing.T) {
		require.NoError(t, scene.Seed.CheckoutBranch("main"))
		require.NoError(t, repo.DeleteBranch("feature/x"))

		_, err := repo.FindRef(plumbing.NewBranchReferenceName("feature/x"))
		require.ErrorIs(t, err, plumbing.ErrReferenceNotFound)
		_, err = scene.Seed.RunGitCommandAndGetOutput("config", "branch.feature/x.remote")
		require.Error(t, err)
	})
}
