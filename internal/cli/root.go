package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"upsync.dev/upsync/internal/config"
	"upsync.dev/upsync/internal/output"
	"upsync.dev/upsync/internal/runtime"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	var configFile string
	v := config.NewViper()

	rootCmd := &cobra.Command{
		Use:   "upsync",
		Short: "Keep many git checkouts in sync with their remotes",
		Long: `upsync clones missing repositories and fast-forwards existing ones to match
their remotes, without ever touching uncommitted work.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			bindFlags(v, cmd.Flags())

			settings, err := config.LoadSettings(v, configFile)
			if err != nil {
				return err
			}

			splog, err := output.NewSplogWithOptions(output.Options{
				Writer:  cmd.OutOrStdout(),
				Debug:   settings.Debug,
				LogFile: settings.LogFile,
			})
			if err != nil {
				return err
			}
			splog.Debug("Settings: jobs=%d slow_threshold=%s auth_retries=%d auth_retry_interval=%s",
				settings.Jobs, settings.SlowThreshold, settings.AuthRetries, settings.AuthRetryInterval)

			cmd.SetContext(runtime.WithContext(cmd.Context(), runtime.NewContext(cmd.Context(), splog, settings)))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if rc := runtime.FromContext(cmd.Context()); rc != nil {
				return rc.Splog.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("Settings file (default %s)", config.DefaultConfigPath()))
	rootCmd.PersistentFlags().Bool("debug", false, "Print debug output")
	rootCmd.PersistentFlags().String("log-file", "", "Also write a full debug log to this file")

	// Add subcommands
	rootCmd.AddCommand(newGitCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	return rootCmd
}

// bindFlags binds every settings key to the flag of the same name, with
// dashes for underscores, when the running command has one.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for _, key := range []string{
		config.KeyJobs,
		config.KeySlowThreshold,
		config.KeyLogFile,
		config.KeyAuthRetries,
		config.KeyAuthRetryInterval,
		config.KeyDebug,
	} {
		if flag := flags.Lookup(strings.ReplaceAll(key, "_", "-")); flag != nil {
			_ = v.BindPFlag(key, flag)
		}
	}
}
