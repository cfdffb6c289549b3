package cli

import (
	"github.com/spf13/cobra"

	"upsync.dev/upsync/internal/cli/helpers"
	"upsync.dev/upsync/internal/config"
	"upsync.dev/upsync/internal/generate"
	"upsync.dev/upsync/internal/runtime"
)

// newGenerateCmd creates the generate command
func newGenerateCmd() *cobra.Command {
	var (
		outputPath  string
		searchPaths []string
		excludes    []string
		remoteOrder []string
		prune       bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a task file describing the repositories under some directories",
		Long: `Write a task file describing the repositories under some directories.

Every directory containing a .git directory becomes one entry, with its remotes
as currently configured. Repositories inside other repositories are skipped.
The file is only rewritten when its content would change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				opts := generate.Options{
					Excludes:    excludes,
					RemoteOrder: remoteOrder,
					Prune:       prune,
				}

				var err error
				if opts.Output, err = config.ExpandPath(outputPath); err != nil {
					return err
				}
				for _, path := range searchPaths {
					expanded, err := config.ExpandPath(path)
					if err != nil {
						return err
					}
					opts.SearchPaths = append(opts.SearchPaths, expanded)
				}

				_, err = generate.Run(ctx.Splog, opts)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", defaultTaskFile(), "Task file to write")
	cmd.Flags().StringSliceVar(&searchPaths, "search-path", []string{"~"}, "Directories to search for repositories")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "Skip paths containing this value, e.g. /tmp/")
	cmd.Flags().StringSliceVar(&remoteOrder, "remote-order", nil, "Remotes to list first, in order; the first present becomes the default remote")
	cmd.Flags().BoolVar(&prune, "prune", false, "Mark every repository for pruning of merged branches")

	return cmd
}
