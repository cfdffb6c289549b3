package git_test

import (
	"context"
	"testing"

	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"

	"upsync.dev/upsync/internal/git"
	"upsync.dev/upsync/testhelpers"
)

func TestStatusShort(t *testing.T) {
	status := git.Status{Entries: []git.StatusEntry{
		{Path: "new.txt", Staging: gogit.Untracked, Worktree: gogit.Untracked},
		{Path: "a.txt", Staging: gogit.Modified, Worktree: gogit.Unmodified},
		{Path: "b.txt", Staging: gogit.Unmodified, Worktree: gogit.Modified},
		{Path: "c.txt", Staging: gogit.Renamed, Worktree: gogit.Unmodified, Extra: "old.txt"},
		{Path: "lib", Staging: gogit.Unmodified, Worktree: gogit.Modified, Submodule: []string{git.SubmoduleNewCommits, git.SubmoduleUntrackedContent}},
	}}

	require.Equal(t, "M  a.txt\n M b.txt\nR  old.txt -> c.txt\n M lib (new commits, untracked content)\n?? new.txt", status.Short())
	require.False(t, status.IsClean())
	require.True(t, git.Status{}.IsClean())
}

func TestStatus(t *testing.T) {
	t.Run("clean after commit", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		repo, err := git.OpenRepository(scene.Seed.Dir)
		require.NoError(t, err)

		status, err := repo.Status(context.Background())
		require.NoError(t, err)
		require.True(t, status.IsClean(), status.Short())
	})

	t.Run("reports staged, modified and untracked files", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		require.NoError(t, scene.Seed.CreateChange("staged", "staged", false))
		require.NoError(t, scene.Seed.WriteFile("1_test.txt", "changed"))
		require.NoError(t, scene.Seed.WriteFile("loose.txt", "loose"))

		repo, err := git.OpenRepository(scene.Seed.Dir)
		require.NoError(t, err)
		status, err := repo.Status(context.Background())
		require.NoError(t, err)

		require.Equal(t, " M 1_test.txt\nA  staged_test.txt\n?? loose.txt", status.Short())
	})

	t.Run("ignored files are excluded", func(t *testing.T) {
		scene := testhelpers.NewScene(t, func(s *testhelpers.Scene) error {
			if err := s.Seed.WriteFile(".gitignore", "*.log\n"); err != nil {
				return err
			}
			return s.Seed.CommitAll("ignore logs")
		})
		require.NoError(t, scene.Seed.WriteFile("debug.log", "noise"))

		repo, err := git.OpenRepository(scene.Seed.Dir)
		require.NoError(t, err)
		status, err := repo.Status(context.Background())
		require.NoError(t, err)
		require.True(t, status.IsClean(), status.Short())
	})
}
