package config

import (
	"time"

	"github.com/pbarry-r7/metasploit-stats/internal/console"
	"github.com/pbarry-r7/metasploit-stats/internal/module"
	"github.com/pbarry-r7/metasploit-stats/internal/tracker"
)

// DefaultOutputDir is where artifacts go when output_dir is unset.
const DefaultOutputDir = "."

// GetDefaultConfigTemplate returns a commented config file listing every option.
func GetDefaultConfigTemplate() string {
	return `# msfstats configuration
# Environment overrides use MSFSTATS_<KEY>, nested keys joined by "__"
# (e.g. MSFSTATS_TRACKER__MAX_RETRIES). MSFDIR and GITHUB_OAUTH_TOKEN are honoured too.

repo_path: ""                         # metasploit-framework checkout (or set MSFDIR)
framework_path: ""                    # where msfconsole runs (default: repo_path)
output_dir: .                         # diff artifacts and release notes pages

tracker:
  owner: rapid7
  repo: metasploit-framework
  token: ""                           # prefer GITHUB_OAUTH_TOKEN over storing it here
  base_url: ""                        # API endpoint override (GitHub Enterprise)
  max_retries: 3                      # retries per request after the first attempt
  timeout: 30s                        # per-request timeout
  concurrency: 1                      # parallel pull request lookups (1-16)

console:
  command: ./msfconsole -q -L -r {{RC}}
  tidy_command: tools/dev/msftidy.rb {{MODULE}}
  timeout: 0s                         # 0 = no limit

modules:
  base_url: https://www.rapid7.com/db/modules/
  skip_payloads: true
  skip_encoders: true
`
}

// GetDefaults returns the default value of every config key.
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"repo_path":             "",
		"framework_path":        "",
		"output_dir":            DefaultOutputDir,
		"tracker.owner":         tracker.DefaultOwner,
		"tracker.repo":          tracker.DefaultRepo,
		"tracker.token":         "",
		"tracker.base_url":      "",
		"tracker.max_retries":   tracker.DefaultMaxRetries,
		"tracker.timeout":       tracker.DefaultTimeout,
		"tracker.concurrency":   1,
		"console.command":       console.DefaultConsoleCommand,
		"console.tidy_command":  console.DefaultTidyCommand,
		"console.timeout":       time.Duration(0),
		"modules.base_url":      module.DefaultBaseURL,
		"modules.skip_payloads": true,
		"modules.skip_encoders": true,
	}
}
