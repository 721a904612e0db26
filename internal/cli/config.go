package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pbarry-r7/metasploit-stats/internal/config"
	clierrors "github.com/pbarry-r7/metasploit-stats/internal/errors"
)

var (
	configInitUser  bool
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create msfstats configuration",
	Long: `Show the effective configuration or write a commented config file.

Configuration is layered, later layers winning:
  defaults
  user config      <UserConfigDir>/msfstats/config.yml
  project config   .msfstats/config.yml (or .msfstats/config.json)
  MSFDIR and GITHUB_OAUTH_TOKEN
  MSFSTATS_* environment variables (MSFSTATS_TRACKER__MAX_RETRIES=5)`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  maxArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return cfg.WriteYAML(cmd.OutOrStdout())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented config file",
	Example: `  # Project config in .msfstats/config.yml
  msfstats config init

  # User config, replacing an existing one
  msfstats config init --user --force`,
	Args: maxArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigInit(cmd.OutOrStdout(), configInitUser, configInitForce)
	},
}

func init() {
	configCmd.GroupID = GroupConfiguration
	configInitCmd.Flags().BoolVar(&configInitUser, "user", false, "Write the user config instead of the project config")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(out io.Writer, user, force bool) error {
	path := config.ProjectConfigPath()
	if user {
		var err error
		if path, err = config.UserConfigPath(); err != nil {
			return clierrors.Wrap(err, clierrors.Configuration, "Set XDG_CONFIG_HOME or HOME")
		}
	}

	if err := config.WriteTemplate(path, force); err != nil {
		return clierrors.WrapWithMessage(err, clierrors.Configuration, "writing config",
			"Pass --force to overwrite the existing file",
		)
	}
	fmt.Fprintf(out, "Created %s\n", path)
	return nil
}
