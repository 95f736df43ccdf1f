// Package main is the entry point for the chatwork-autoread CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/chatwork-autoread/internal/daemon"
	"github.com/flemzord/chatwork-autoread/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatwork-autoread",
		Short:         "Mark Chatwork rooms as read, leaving mentions unread",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to a single configuration file")
	root.PersistentFlags().String("config-dir", "", "Directory holding default.yaml and <mode>.yaml")
	root.PersistentFlags().String("mode", "", "Overlay file to load (default $RUN_MODE or development)")
	root.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")

	root.AddCommand(versionCmd(), runCmd(), scheduleCmd(), configCmd(), serviceCmd())
	return root
}

// paramsFromFlags collects the persistent flags shared by every command.
func paramsFromFlags(cmd *cobra.Command) app.Params {
	flags := cmd.Flags()
	cfgPath, _ := flags.GetString("config")
	cfgDir, _ := flags.GetString("config-dir")
	mode, _ := flags.GetString("mode")
	level, _ := flags.GetString("log-level")

	return app.Params{
		ConfigPath: cfgPath,
		ConfigDir:  cfgDir,
		Mode:       mode,
		LogLevel:   level,
		Version:    version,
		Commit:     commit,
		Date:       date,
		Stderr:     cmd.ErrOrStderr(),
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatwork-autoread %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one sweep over all rooms and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := paramsFromFlags(cmd)
			p.DryRun, _ = cmd.Flags().GetBool("dry-run")
			p.Timeout, _ = cmd.Flags().GetDuration("timeout")
			return app.RunOnce(p)
		},
	}
	cmd.Flags().Bool("dry-run", false, "Select targets without marking anything as read")
	cmd.Flags().Duration("timeout", 0, "Abort the sweep after this duration (0 = no limit)")
	return cmd
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run sweeps on the configured cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := paramsFromFlags(cmd)
			p.DryRun, _ = cmd.Flags().GetBool("dry-run")
			return app.RunScheduled(p)
		},
	}
	cmd.Flags().Bool("dry-run", false, "Select targets without marking anything as read")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load and validate configuration, then print it with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(paramsFromFlags(cmd))
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), cfg.Redacted())
		},
	})
	return cmd
}

func printConfig(w io.Writer, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Configuration OK")
	_, err = w.Write(out)
	return err
}

func serviceCmd() *cobra.Command {
	actions := daemon.Actions()
	return &cobra.Command{
		Use:       "service <" + strings.Join(actions, "|") + ">",
		Short:     "Manage the OS service running the scheduler",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: actions,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunService(paramsFromFlags(cmd), args[0], cmd.OutOrStdout())
		},
	}
}
