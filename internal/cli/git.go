package cli

import (
	"github.com/spf13/cobra"

	"upsync.dev/upsync/internal/cli/helpers"
	"upsync.dev/upsync/internal/config"
	"upsync.dev/upsync/internal/runtime"
)

// newGitCmd creates the git command
func newGitCmd() *cobra.Command {
	var (
		gitURL  string
		gitPath string
		remote  string
		branch  string
		prune   bool
	)

	cmd := &cobra.Command{
		Use:   "git",
		Short: "Clone or update a single git repository",
		Long: `Clone or update a single git repository.

A missing directory is created and the remote's default branch checked out.
An existing repository is fetched and its branch fast-forwarded. Uncommitted
changes are never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				path, err := config.ExpandPath(gitPath)
				if err != nil {
					return err
				}
				target := config.RepoTarget{
					Path:    path,
					Branch:  branch,
					Remotes: []config.RemoteSpec{{Name: remote, FetchURL: gitURL}},
					Prune:   prune,
				}

				didWork, err := ctx.SyncEngine().Sync(ctx.Context, target)
				if err != nil {
					return err
				}
				if didWork {
					ctx.Splog.Success("Updated %s.", path)
				} else {
					ctx.Splog.Info("%s is up to date.", path)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&gitURL, "git-url", "", "URL of the git repository to sync")
	cmd.Flags().StringVar(&gitPath, "git-path", "", "Path to clone or update the repository in")
	cmd.Flags().StringVar(&remote, "remote", config.DefaultRemoteName, "Remote to set and fetch")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to check out. Defaults to the remote's default branch for new clones and the current branch otherwise")
	cmd.Flags().BoolVar(&prune, "prune", false, "Delete local branches whose changes have been merged upstream")
	_ = cmd.MarkFlagRequired("git-url")
	_ = cmd.MarkFlagRequired("git-path")
	_ = cmd.MarkFlagDirname("git-path")
	_ = cmd.RegisterFlagCompletionFunc("branch", helpers.CompleteBranches("git-path"))

	return cmd
}
