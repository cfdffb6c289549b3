package git_test

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"upsync.dev/upsync/internal/git"
	"upsync.dev/upsync/testhelpers"
)

func TestAnalyzeMerge(t *testing.T) {
	setup := func(s *testhelpers.Scene) error {
		repo := s.Seed
		if err := repo.CreateChangeAndCommit("1", "1"); err != nil {
			return err
		}
		if err := repo.CreateBranch("behind"); err != nil {
			return err
		}
		if err := repo.CreateChangeAndCommit("2", "2"); err != nil {
			return err
		}
		if err := repo.CreateAndCheckoutBranch("diverged"); err != nil {
			return err
		}
		if err := repo.RunGitCommand("reset", "--hard", "behind"); err != nil {
			return err
		}
		if err := repo.CreateChangeAndCommit("3", "3"); err != nil {
			return err
		}
		return repo.CheckoutBranch("main")
	}

	scene := testhelpers.NewScene(t, setup)
	repo, err := git.OpenRepository(scene.Seed.Dir)
	require.NoError(t, err)
	mainTip := revision(t, scene.Seed, "main")

	tests := []struct {
		name      string
		branch    plumbing.ReferenceName
		candidate plumbing.Hash
		expected  git.MergeOutcome
	}{
		{"same commit", plumbing.NewBranchReferenceName("main"), mainTip, git.MergeAlreadyUpToDate},
		{"candidate is an ancestor", plumbing.NewBranchReferenceName("main"), revision(t, scene.Seed, "behind"), git.MergeAlreadyUpToDate},
		{"branch is behind", plumbing.NewBranchReferenceName("behind"), mainTip, git.MergeFastForward},
		{"histories diverged", plumbing.NewBranchReferenceName("diverged"), mainTip, git.MergeDiverged},
		{"branch does not exist", plumbing.NewBranchReferenceName("missing"), mainTip, git.MergeFastForward},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := repo.AnalyzeMerge(tt.branch, tt.candidate)
			require.NoError(t, err)
			require.Equal(t, tt.expected, outcome)
		})
	}
}

func TestMergeBases(t *testing.T) {
	scene := testhelpers.NewScene(t, func(s *testhelpers.Scene) error {
		if err := s.Seed.CreateChangeAndCommit("1", "1"); err != nil {
			return err
		}
		if err := s.Seed.CreateAndCheckoutBranch("feature"); err != nil {
			return err
		}
		return s.Seed.CreateChangeAndCommit("2", "2")
	})
	repo, err := git.OpenRepository(scene.Seed.Dir)
	require.NoError(t, err)

	bases, err := repo.MergeBases(revision(t, scene.Seed, "main"), revision(t, scene.Seed, "feature"))
	require.NoError(t, err)
	require.Equal(t, []plumbing.Hash{revision(t, scene.Seed, "main")}, bases)
}
