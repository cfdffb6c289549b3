// Package testhelpers provides testing utilities for upsync, including a
// scene system backed by real git repositories and custom assertions.
package testhelpers

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// ExpectBranches asserts that the repository has exactly the expected local branches.
func ExpectBranches(t *testing.T, repo *GitRepo, expected []string) {
	t.Helper()

	branches, err := repo.GetLocalBranches()
	require.NoError(t, err, "Failed to list branches")

	sort.Strings(branches)
	expected = append([]string{}, expected...)
	sort.Strings(expected)
	require.Equal(t, expected, branches, "Branches do not match")
}

// ExpectHead asserts that HEAD is attached to branch.
func ExpectHead(t *testing.T, repo *GitRepo, branch string) {
	t.Helper()

	current, err := repo.CurrentBranchName()
	require.NoError(t, err, "Failed to read HEAD")
	require.Equal(t, branch, current, "HEAD is on the wrong branch")
}

// ExpectSameRevision asserts that two revisions, possibly in different
// repositories, name the same commit.
func ExpectSameRevision(t *testing.T, repo *GitRepo, rev string, other *GitRepo, otherRev string) {
	t.Helper()

	a, err := repo.GetRevision(rev)
	require.NoError(t, err)
	b, err := other.GetRevision(otherRev)
	require.NoError(t, err)
	require.Equal(t, b, a, "%s does not match %s", rev, otherRev)
}

// ExpectFile asserts the content of a file in the working tree.
func ExpectFile(t *testing.T, repo *GitRepo, name, content string) {
	t.Helper()

	actual, err := repo.ReadFile(name)
	require.NoError(t, err, "Failed to read %s", name)
	require.Equal(t, content, actual, "Unexpected content in %s", name)
}

// ExpectClean asserts that the working tree has no changes.
func ExpectClean(t *testing.T, repo *GitRepo) {
	t.Helper()

	status, err := repo.ShortStatus()
	require.NoError(t, err)
	require.Empty(t, status, "Working tree is not clean")
}
