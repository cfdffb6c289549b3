package git_test

import (
	"testing"

	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"upsync.dev/upsync/internal/git"
	"upsync.dev/upsync/testhelpers"
)

func configWith(t *testing.T, text string) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	require.NoError(t, cfg.Unmarshal([]byte(text)))
	return cfg
}

func TestLayeredConfig(t *testing.T) {
	local := configWith(t, "[branch \"main\"]\n\tpushRemote = fork\n")
	global := configWith(t, "[remote]\n\tpushDefault = mine\n[branch \"main\"]\n\tpushRemote = ignored\n")
	system := configWith(t, "[remote]\n\tpushDefault = ignored\n[core]\n\teditor = vi\n")

	layered := git.NewLayeredConfig(local, global, nil, system)

	t.Run("highest layer wins", func(t *testing.T) {
		value, ok := layered.Get("branch", "main", "pushRemote")
		require.True(t, ok)
		require.Equal(t, "fork", value)

		value, ok = layered.Get("remote", "", "pushDefault")
		require.True(t, ok)
		require.Equal(t, "mine", value)
	})

	t.Run("falls through to lower layers", func(t *testing.T) {
		value, ok := layered.Get("core", "", "editor")
		require.True(t, ok)
		require.Equal(t, "vi", value)
	})

	t.Run("missing keys", func(t *testing.T) {
		_, ok := layered.Get("branch", "other", "pushRemote")
		require.False(t, ok)
		_, ok = layered.Get("nothing", "", "here")
		require.False(t, ok)
	})
}

func TestUpstream(t *testing.T) {
	t.Run("finds the tracking branch", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		repo, err := git.OpenRepository(scene.Seed.Dir)
		require.NoError(t, err)

		upstream, found, err := repo.Upstream("main")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, git.NewRemoteBranchRef("origin", "main"), upstream)
	})

	t.Run("no upstream configured", func(t *testing.T) {
		scene := testhelpers.NewScene(t, func(s *testhelpers.Scene) error {
			if err := testhelpers.BasicSceneSetup(s); err != nil {
				return err
			}
			return s.Seed.CreateBranch("local-only")
		})
		repo, err := git.OpenRepository(scene.Seed.Dir)
		require.NoError(t, err)

		_, found, err := repo.Upstream("local-only")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("set upstream round trips", func(t *testing.T) {
		scene := testhelpers.NewScene(t, func(s *testhelpers.Scene) error {
			if err := testhelpers.BasicSceneSetup(s); err != nil {
				return err
			}
			return s.Seed.CreateBranch("topic")
		})
		repo, err := git.OpenRepository(scene.Seed.Dir)
		require.NoError(t, err)

		require.NoError(t, repo.SetUpstream("topic", "origin", plumbing.NewBranchReferenceName("main")))
		upstream, found, err := repo.Upstream("topic")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, plumbing.ReferenceName("refs/remotes/origin/main"), upstream.FullName)

		merge, err := scene.Seed.RunGitCommandAndGetOutput("config", "branch.topic.merge")
		require.NoError(t, err)
		require.Equal(t, "refs/heads/main", merge)
	})
}
