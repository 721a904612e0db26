// Package config provides layered configuration for msfstats using koanf.
// Values are loaded with priority: MSFSTATS_* environment variables > legacy
// environment variables (MSFDIR, GITHUB_OAUTH_TOKEN) > project config
// (.msfstats/config.yml or .json) > user config (<UserConfigDir>/msfstats/config.yml)
// > defaults.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/pbarry-r7/metasploit-stats/internal/changes"
	"github.com/pbarry-r7/metasploit-stats/internal/console"
	"github.com/pbarry-r7/metasploit-stats/internal/report"
	"github.com/pbarry-r7/metasploit-stats/internal/tracker"
)

// EnvPrefix is the prefix of environment overrides.
// Nested keys use a double underscore: MSFSTATS_TRACKER__MAX_RETRIES.
const EnvPrefix = "MSFSTATS_"

// legacyEnv maps the variables the original release scripts read onto config keys.
var legacyEnv = map[string]string{
	"MSFDIR":             "repo_path",
	"GITHUB_OAUTH_TOKEN": "tracker.token",
}

// Configuration represents the msfstats configuration.
type Configuration struct {
	// RepoPath is the metasploit-framework checkout whose history is read.
	RepoPath string `koanf:"repo_path" yaml:"repo_path"`
	// FrameworkPath is where msfconsole and msftidy run. Defaults to RepoPath.
	FrameworkPath string `koanf:"framework_path" yaml:"framework_path"`
	// OutputDir receives the diff artifacts and the release notes page.
	OutputDir string `koanf:"output_dir" yaml:"output_dir" validate:"required"`

	Tracker TrackerConfig `koanf:"tracker" yaml:"tracker"`
	Console ConsoleConfig `koanf:"console" yaml:"console"`
	Modules ModulesConfig `koanf:"modules" yaml:"modules"`
}

// TrackerConfig configures pull request lookups.
type TrackerConfig struct {
	Owner       string        `koanf:"owner" yaml:"owner" validate:"required"`
	Repo        string        `koanf:"repo" yaml:"repo" validate:"required"`
	Token       string        `koanf:"token" yaml:"token,omitempty"`
	BaseURL     string        `koanf:"base_url" yaml:"base_url,omitempty" validate:"omitempty,url"`
	MaxRetries  int           `koanf:"max_retries" yaml:"max_retries" validate:"min=0,max=10"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout" validate:"min=0"`
	Concurrency int           `koanf:"concurrency" yaml:"concurrency" validate:"min=1,max=16"`
}

// ConsoleConfig holds the command templates for the external framework tools.
type ConsoleConfig struct {
	Command     string        `koanf:"command" yaml:"command" validate:"required"`
	TidyCommand string        `koanf:"tidy_command" yaml:"tidy_command" validate:"required"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout" validate:"min=0"`
}

// ModulesConfig controls module classification and extraction.
type ModulesConfig struct {
	BaseURL      string `koanf:"base_url" yaml:"base_url" validate:"required,url"`
	SkipPayloads bool   `koanf:"skip_payloads" yaml:"skip_payloads"`
	SkipEncoders bool   `koanf:"skip_encoders" yaml:"skip_encoders"`
}

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// ConfigPath replaces the project config path (default: .msfstats/config.yml).
	ConfigPath string
	// UserConfigPath replaces the user config path. Set to "-" to skip the user layer.
	UserConfigPath string
}

// Load loads configuration from defaults, config files and the environment.
func Load(configPath string) (*Configuration, error) {
	return LoadWithOptions(LoadOptions{ConfigPath: configPath})
}

// LoadWithOptions loads configuration with custom options.
func LoadWithOptions(opts LoadOptions) (*Configuration, error) {
	k := koanf.New(".")

	loadDefaults(k)

	if err := loadUserConfig(k, opts.UserConfigPath); err != nil {
		return nil, err
	}
	if err := loadProjectConfig(k, opts.ConfigPath); err != nil {
		return nil, err
	}
	if err := loadEnvironmentConfig(k); err != nil {
		return nil, err
	}

	return finalizeConfig(k)
}

func loadDefaults(k *koanf.Koanf) {
	for key, value := range GetDefaults() {
		k.Set(key, value)
	}
}

func loadUserConfig(k *koanf.Koanf, override string) error {
	path := override
	if path == "-" {
		return nil
	}
	if path == "" {
		path, _ = UserConfigPath()
	}
	if !fileExists(path) {
		return nil
	}
	if err := loadConfigFile(k, path, "user"); err != nil {
		return fmt.Errorf("loading user config: %w", err)
	}
	return nil
}

// loadProjectConfig loads .msfstats/config.yml, falling back to .msfstats/config.json.
// An explicit path must exist.
func loadProjectConfig(k *koanf.Koanf, customPath string) error {
	if customPath != "" {
		if !fileExists(customPath) {
			return fmt.Errorf("config file not found: %s", customPath)
		}
		if err := loadConfigFile(k, customPath, "project"); err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		return nil
	}

	for _, path := range []string{ProjectConfigPath(), ProjectJSONConfigPath()} {
		if !fileExists(path) {
			continue
		}
		if err := loadConfigFile(k, path, "project"); err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		return nil
	}
	return nil
}

// loadConfigFile picks the parser from the extension and validates YAML syntax first.
func loadConfigFile(k *koanf.Koanf, path, configType string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
		}
		return nil
	}

	if err := ValidateYAMLSyntax(path); err != nil {
		return fmt.Errorf("validating YAML syntax for %s config: %w", configType, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s config %s: %w", configType, path, err)
	}
	return nil
}

// loadEnvironmentConfig applies the legacy variables, then MSFSTATS_* on top.
func loadEnvironmentConfig(k *koanf.Koanf) error {
	if err := k.Load(env.ProviderWithValue("", ".", legacyTransform), nil); err != nil {
		return fmt.Errorf("failed to load legacy environment config: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return fmt.Errorf("failed to load environment config: %w", err)
	}
	return nil
}

func finalizeConfig(k *koanf.Koanf) (*Configuration, error) {
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.RepoPath = expandHomePath(cfg.RepoPath)
	cfg.FrameworkPath = expandHomePath(cfg.FrameworkPath)
	cfg.OutputDir = expandHomePath(cfg.OutputDir)
	if cfg.FrameworkPath == "" {
		cfg.FrameworkPath = cfg.RepoPath
	}

	if err := ValidateConfigValues(&cfg, "config"); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// legacyTransform keeps only the non-empty variables named in legacyEnv.
// koanf drops keys mapped to the empty string.
func legacyTransform(key, value string) (string, interface{}) {
	if value == "" {
		return "", nil
	}
	return legacyEnv[key], value
}

// envTransform converts environment variable names to config keys.
// Example: MSFSTATS_TRACKER__MAX_RETRIES -> tracker.max_retries
func envTransform(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// expandHomePath expands ~ to the user's home directory.
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// Project returns the repository whose pull requests are reported on.
func (c *Configuration) Project() report.Project {
	return report.Project{Owner: c.Tracker.Owner, Repo: c.Tracker.Repo}
}

// TrackerClientConfig returns the settings for a tracker client.
func (c *Configuration) TrackerClientConfig() tracker.Config {
	return tracker.Config{
		Owner:      c.Tracker.Owner,
		Repo:       c.Tracker.Repo,
		Token:      c.Tracker.Token,
		BaseURL:    c.Tracker.BaseURL,
		MaxRetries: c.Tracker.MaxRetries,
		Timeout:    c.Tracker.Timeout,
	}
}

// ExtractPolicy returns which module subtrees to skip in diff summaries.
func (c *Configuration) ExtractPolicy() changes.ExtractPolicy {
	return changes.ExtractPolicy{
		SkipPayloads: c.Modules.SkipPayloads,
		SkipEncoders: c.Modules.SkipEncoders,
	}
}

// ConsoleRunner returns a runner for msfconsole in the framework checkout.
func (c *Configuration) ConsoleRunner() *console.Runner {
	r := console.NewConsoleRunner(c.Console.Command, c.FrameworkPath)
	r.Timeout = c.Console.Timeout
	return r
}

// TidyRunner returns a runner for msftidy in the framework checkout.
func (c *Configuration) TidyRunner() *console.Runner {
	r := console.NewTidyRunner(c.Console.TidyCommand, c.FrameworkPath)
	r.Timeout = c.Console.Timeout
	return r
}

// Redacted returns a copy with secrets masked, for display.
func (c *Configuration) Redacted() Configuration {
	out := *c
	if out.Tracker.Token != "" {
		out.Tracker.Token = "********"
	}
	return out
}

// WriteYAML writes the configuration with secrets masked.
func (c *Configuration) WriteYAML(w io.Writer) error {
	redacted := c.Redacted()
	enc := yamlv3.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&redacted); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// WriteTemplate writes the commented default config to path.
// An existing file is left alone unless force is set.
func WriteTemplate(path string, force bool) error {
	if fileExists(path) && !force {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GetDefaultConfigTemplate()), 0o644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
