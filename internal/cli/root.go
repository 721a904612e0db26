// Package cli implements the msfstats command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pbarry-r7/metasploit-stats/internal/config"
	"github.com/pbarry-r7/metasploit-stats/internal/console"
	clierrors "github.com/pbarry-r7/metasploit-stats/internal/errors"
	"github.com/pbarry-r7/metasploit-stats/internal/git"
	"github.com/pbarry-r7/metasploit-stats/internal/tracker"
)

// Command group IDs for organizing help output
const (
	GroupRelease       = "release"
	GroupConfiguration = "configuration"
)

var (
	cfgFile     string
	debugMode   bool
	plainOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "msfstats",
	Short: "Release engineering helpers for metasploit-framework",
	Long: `msfstats collects what landed in metasploit-framework between two releases
and turns it into release notes and the weekly wrapup.

  notes    landed pull requests and their release notes, saved as HTML
  diff     names, summary and full diff between two release tags
  fix      msftidy and module info for the modules a diff summary adds
  wrapup   the "New Modules" Markdown for the weekly blog post

The framework checkout is read from MSFDIR or repo_path in the config.
Tracker access uses GITHUB_OAUTH_TOKEN when set.`,
	Example: `  # Release notes for everything landed since 4.11.0
  msfstats notes 4.11.0

  # Diff artifacts for the two newest tags
  msfstats diff

  # Weekly wrapup comparing the newest tag with HEAD
  msfstats wrapup --head --framework-path ~/rapid7/msf`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureDebug(cmd.ErrOrStderr(), debugMode)
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupRelease, Title: "Release Commands:"},
		&cobra.Group{ID: GroupConfiguration, Title: "Configuration Commands:"},
	)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: .msfstats/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Debug output")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false, "Plain output without colors")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return clierrors.NewArgumentErrorWithUsage(err.Error(), cmd.UseLine(), "Run '"+cmd.CommandPath()+" --help' for usage")
	})
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	return reportError(os.Stderr, err, plainOutput)
}

// configureDebug routes the package debug hooks to w when enabled.
func configureDebug(w io.Writer, enabled bool) {
	var logger func(format string, args ...any)
	if enabled {
		logger = func(format string, args ...any) {
			fmt.Fprintf(w, format+"\n", args...)
		}
	}
	git.SetDebugLogger(logger)
	console.SetDebugLogger(logger)
	tracker.SetDebugLogger(logger)
}

// loadConfig loads configuration honouring --config.
func loadConfig() (*config.Configuration, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, clierrors.InvalidConfig(err)
	}
	return cfg, nil
}

// maxArgs rejects more than n positional arguments as a usage error.
func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) <= n {
			return nil
		}
		return clierrors.NewArgumentErrorWithUsage(
			fmt.Sprintf("accepts at most %d arg(s), received %d", n, len(args)),
			cmd.UseLine(),
			"Run '"+cmd.CommandPath()+" --help' for usage",
		)
	}
}
