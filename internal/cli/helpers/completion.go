// Package helpers provides shared helper functions for CLI commands.
package helpers

import (
	"sort"

	"github.com/spf13/cobra"

	"upsync.dev/upsync/internal/config"
	"upsync.dev/upsync/internal/git"
)

// CompleteBranches returns a completion function for a branch flag. It
// lists the local and remote-tracking branch names of the repository named
// by the command's pathFlag.
func CompleteBranches(pathFlag string) cobra.CompletionFunc {
	return func(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		path, err := cmd.Flags().GetString(pathFlag)
		if err != nil || path == "" {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		if path, err = config.ExpandPath(path); err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		repo, err := git.OpenRepository(path)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		names, err := BranchNames(repo)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}
}

// BranchNames returns the distinct short names of repo's local and
// remote-tracking branches, sorted.
func BranchNames(repo git.Backend) ([]string, error) {
	locals, err := repo.LocalBranches()
	if err != nil {
		return nil, err
	}
	remotes, err := repo.RemoteBranches()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var names []string
	for _, branch := range append(locals, remotes...) {
		if !seen[branch.ShortName] {
			seen[branch.ShortName] = true
			names = append(names, branch.ShortName)
		}
	}
	sort.Strings(names)
	return names, nil
}
