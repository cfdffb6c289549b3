package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"upsync.dev/upsync/internal/cli/helpers"
	"upsync.dev/upsync/internal/config"
	"upsync.dev/upsync/internal/runtime"
	"upsync.dev/upsync/internal/tasks"
)

// defaultTaskFile returns the task file used when none is given
func defaultTaskFile() string {
	return filepath.Join(filepath.Dir(config.DefaultConfigPath()), "repos.yaml")
}

// newRunCmd creates the run command
func newRunCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sync every repository listed in a task file",
		Long: `Sync every repository listed in a task file, several at a time.

A failing repository does not stop the others. Every failure is reported once
all syncs have finished, and the command then exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return runTasks(ctx, file)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", defaultTaskFile(), "Task file listing the repositories to sync")
	cmd.Flags().IntP("jobs", "j", 0, "Number of repositories to sync at once (default: number of CPUs)")
	cmd.Flags().Duration("slow-threshold", 0, "Report syncs that take longer than this (default 1m)")
	_ = cmd.MarkFlagFilename("file", "yaml", "yml")

	return cmd
}

func runTasks(ctx *runtime.Context, file string) error {
	path, err := config.ExpandPath(file)
	if err != nil {
		return err
	}
	targets, err := config.LoadTaskFile(path)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		ctx.Splog.Info("No repositories listed in %s.", path)
		return nil
	}

	scheduler := tasks.NewScheduler(ctx.SyncEngine(), ctx.Splog, tasks.Options{
		Jobs:          ctx.Settings.Jobs,
		SlowThreshold: ctx.Settings.SlowThreshold,
	})
	summary, err := scheduler.Run(ctx.Context, targets)
	if summary.Results == nil {
		return err
	}

	updated, unchanged, failed := summary.Counts()
	line := fmt.Sprintf("%d updated, %d unchanged, %d failed.", updated, unchanged, failed)
	switch summary.Status() {
	case tasks.StatusFailed:
		ctx.Splog.Error("%s", line)
		return fmt.Errorf("%d of %d repositories failed to sync", failed, len(targets))
	case tasks.StatusPassed:
		ctx.Splog.Success("%s", line)
	default:
		ctx.Splog.Info("%s", line)
	}
	return nil
}
