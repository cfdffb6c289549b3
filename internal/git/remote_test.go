package git_test

import (
	"context"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"upsync.dev/upsync/internal/git"
	"upsync.dev/upsync/testhelpers"
)

func TestRemoteConfiguration(t *testing.T) {
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	repo, err := git.OpenRepository(scene.Seed.Dir)
	require.NoError(t, err)

	t.Run("add and read a remote", func(t *testing.T) {
		require.NoError(t, repo.AddRemote("up", "https://example.com/up.git"))
		info, err := repo.RemoteInfo("up")
		require.NoError(t, err)
		require.Equal(t, git.RemoteInfo{Name: "up", FetchURL: "https://example.com/up.git"}, info)
	})

	t.Run("set urls", func(t *testing.T) {
		require.NoError(t, repo.SetRemoteURL("up", "https://example.com/other.git"))
		require.NoError(t, repo.SetRemotePushURL("up", "git@example.com:me/other.git"))

		info, err := repo.RemoteInfo("up")
		require.NoError(t, err)
		require.Equal(t, "https://example.com/other.git", info.FetchURL)
		require.Equal(t, "git@example.com:me/other.git", info.PushURL)

		pushURL, err := scene.Seed.RunGitCommandAndGetOutput("config", "remote.up.pushurl")
		require.NoError(t, err)
		require.Equal(t, "git@example.com:me/other.git", pushURL)
	})

	t.Run("missing remote", func(t *testing.T) {
		_, err := repo.RemoteInfo("nope")
		require.Error(t, err)
	})

	t.Run("remote names", func(t *testing.T) {
		names, err := repo.RemoteNames()
		require.NoError(t, err)
		require.Equal(t, []string{"origin", "up"}, names)
	})
}

func TestFetchRemote(t *testing.T) {
	t.Run("fetches new commits", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		repo, _, err := git.OpenOrInitRepository(scene.Target)
		require.NoError(t, err)
		require.NoError(t, repo.AddRemote("origin", scene.Upstream))

		updated, err := repo.FetchRemote(context.Background(), "origin", nil)
		require.NoError(t, err)
		require.True(t, updated)

		hash, err := repo.ResolveRef(plumbing.NewRemoteReferenceName("origin", "main"))
		require.NoError(t, err)
		require.Equal(t, revision(t, scene.Seed, "main"), hash)

		updated, err = repo.FetchRemote(context.Background(), "origin", nil)
		require.NoError(t, err)
		require.False(t, updated)
	})

	t.Run("empty remote is not an error", func(t *testing.T) {
		scene := testhelpers.NewScene(t, nil)
		repo, _, err := git.OpenOrInitRepository(scene.Target)
		require.NoError(t, err)
		require.NoError(t, repo.AddRemote("origin", scene.Upstream))

		updated, err := repo.FetchRemote(context.Background(), "origin", nil)
		require.NoError(t, err)
		require.False(t, updated)

		refs, err := repo.ListRemote(context.Background(), "origin", nil)
		require.NoError(t, err)
		_, ok := git.AdvertisedDefaultBranch(refs)
		require.False(t, ok)
	})

	t.Run("lists the default branch", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
		repo, _, err := git.OpenOrInitRepository(scene.Target)
		require.NoError(t, err)
		require.NoError(t, repo.AddRemote("origin", scene.Upstream))

		refs, err := repo.ListRemote(context.Background(), "origin", nil)
		require.NoError(t, err)
		branch, ok := git.AdvertisedDefaultBranch(refs)
		require.True(t, ok)
		require.Equal(t, "main", branch)
	})
}

func TestAdvertisedDefaultBranch(t *testing.T) {
	tip := plumbing.NewHash("1111111111111111111111111111111111111111")
	other := plumbing.NewHash("2222222222222222222222222222222222222222")

	t.Run("symbolic HEAD", func(t *testing.T) {
		branch, ok := git.AdvertisedDefaultBranch([]*plumbing.Reference{
			plumbing.NewSymbolicReference(plumbing.HEAD, "refs/heads/trunk"),
			plumbing.NewHashReference("refs/heads/trunk", tip),
		})
		require.True(t, ok)
		require.Equal(t, "trunk", branch)
	})

	t.Run("hash HEAD prefers main", func(t *testing.T) {
		branch, ok := git.AdvertisedDefaultBranch([]*plumbing.Reference{
			plumbing.NewHashReference(plumbing.HEAD, tip),
			plumbing.NewHashReference("refs/heads/alpha", tip),
			plumbing.NewHashReference("refs/heads/main", tip),
			plumbing.NewHashReference("refs/heads/zeta", other),
		})
		require.True(t, ok)
		require.Equal(t, "main", branch)
	})

	t.Run("hash HEAD without a preferred name", func(t *testing.T) {
		branch, ok := git.AdvertisedDefaultBranch([]*plumbing.Reference{
			plumbing.NewHashReference(plumbing.HEAD, tip),
			plumbing.NewHashReference("refs/heads/zeta", tip),
			plumbing.NewHashReference("refs/heads/beta", tip),
		})
		require.True(t, ok)
		require.Equal(t, "beta", branch)
	})

	t.Run("no HEAD", func(t *testing.T) {
		_, ok := git.AdvertisedDefaultBranch([]*plumbing.Reference{
			plumbing.NewHashReference("refs/heads/main", tip),
		})
		require.False(t, ok)
	})
}
