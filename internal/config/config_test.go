// Package config tests layered loading, environment overrides and validation.
// Related: internal/config/config.go, internal/config/defaults.go, internal/config/validate.go
// Tags: config, koanf, env, yaml, validation

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate clears the variables Load reads so the host environment cannot leak in.
func isolate(t *testing.T) {
	t.Helper()
	for _, name := range []string{"MSFDIR", "GITHUB_OAUTH_TOKEN"} {
		t.Setenv(name, "")
	}
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix) {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
	t.Chdir(t.TempDir())
}

func load(t *testing.T, configPath string) *Configuration {
	t.Helper()
	cfg, err := LoadWithOptions(LoadOptions{ConfigPath: configPath, UserConfigPath: "-"})
	require.NoError(t, err)
	return cfg
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg := load(t, "")

	assert.Equal(t, "", cfg.RepoPath)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, "rapid7", cfg.Tracker.Owner)
	assert.Equal(t, "metasploit-framework", cfg.Tracker.Repo)
	assert.Equal(t, 3, cfg.Tracker.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Tracker.Timeout)
	assert.Equal(t, 1, cfg.Tracker.Concurrency)
	assert.Equal(t, "./msfconsole -q -L -r {{RC}}", cfg.Console.Command)
	assert.Equal(t, "tools/dev/msftidy.rb {{MODULE}}", cfg.Console.TidyCommand)
	assert.Equal(t, "https://www.rapid7.com/db/modules/", cfg.Modules.BaseURL)
	assert.True(t, cfg.Modules.SkipPayloads)
	assert.True(t, cfg.Modules.SkipEncoders)
}

func TestLoad_Layering(t *testing.T) {
	tests := map[string]struct {
		user    string
		project string
		env     map[string]string
		check   func(t *testing.T, cfg *Configuration)
	}{
		"project overrides user": {
			user:    "repo_path: /user/msf\ntracker:\n  concurrency: 2\n",
			project: "repo_path: /project/msf\n",
			check: func(t *testing.T, cfg *Configuration) {
				assert.Equal(t, "/project/msf", cfg.RepoPath)
				assert.Equal(t, 2, cfg.Tracker.Concurrency)
			},
		},
		"legacy variables override files": {
			project: "repo_path: /project/msf\n",
			env:     map[string]string{"MSFDIR": "/legacy/msf", "GITHUB_OAUTH_TOKEN": "legacy-token"},
			check: func(t *testing.T, cfg *Configuration) {
				assert.Equal(t, "/legacy/msf", cfg.RepoPath)
				assert.Equal(t, "legacy-token", cfg.Tracker.Token)
			},
		},
		"empty legacy variable is ignored": {
			project: "repo_path: /project/msf\n",
			env:     map[string]string{"MSFDIR": ""},
			check: func(t *testing.T, cfg *Configuration) {
				assert.Equal(t, "/project/msf", cfg.RepoPath)
			},
		},
		"prefixed variables override legacy": {
			env: map[string]string{
				"MSFDIR":                          "/legacy/msf",
				"MSFSTATS_REPO_PATH":              "/env/msf",
				"MSFSTATS_TRACKER__MAX_RETRIES":   "5",
				"MSFSTATS_TRACKER__TIMEOUT":       "2s",
				"MSFSTATS_MODULES__SKIP_ENCODERS": "false",
			},
			check: func(t *testing.T, cfg *Configuration) {
				assert.Equal(t, "/env/msf", cfg.RepoPath)
				assert.Equal(t, 5, cfg.Tracker.MaxRetries)
				assert.Equal(t, 2*time.Second, cfg.Tracker.Timeout)
				assert.False(t, cfg.Modules.SkipEncoders)
			},
		},
		"framework path defaults to repo path": {
			project: "repo_path: /project/msf\n",
			check: func(t *testing.T, cfg *Configuration) {
				assert.Equal(t, "/project/msf", cfg.FrameworkPath)
			},
		},
		"framework path kept when set": {
			project: "repo_path: /project/msf\nframework_path: /opt/msf\n",
			check: func(t *testing.T, cfg *Configuration) {
				assert.Equal(t, "/opt/msf", cfg.FrameworkPath)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			opts := LoadOptions{UserConfigPath: "-"}
			if tt.user != "" {
				opts.UserConfigPath = writeFile(t, filepath.Join(t.TempDir(), "user.yml"), tt.user)
			}
			if tt.project != "" {
				writeFile(t, ProjectConfigPath(), tt.project)
			}

			cfg, err := LoadWithOptions(opts)
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_ProjectJSONFallback(t *testing.T) {
	isolate(t)
	writeFile(t, ProjectJSONConfigPath(), `{"repo_path": "/json/msf", "tracker": {"owner": "fork"}}`)

	cfg := load(t, "")
	assert.Equal(t, "/json/msf", cfg.RepoPath)
	assert.Equal(t, "fork", cfg.Tracker.Owner)
}

func TestLoad_YAMLPreferredOverJSON(t *testing.T) {
	isolate(t)
	writeFile(t, ProjectJSONConfigPath(), `{"repo_path": "/json/msf"}`)
	writeFile(t, ProjectConfigPath(), "repo_path: /yaml/msf\n")

	cfg := load(t, "")
	assert.Equal(t, "/yaml/msf", cfg.RepoPath)
}

func TestLoad_ExplicitPath(t *testing.T) {
	isolate(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "custom.yml"), "output_dir: /tmp/notes\n")

	cfg := load(t, path)
	assert.Equal(t, "/tmp/notes", cfg.OutputDir)

	_, err := LoadWithOptions(LoadOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.yml"), UserConfigPath: "-"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_HomeExpansion(t *testing.T) {
	isolate(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MSFDIR", "~/rapid7/msf")

	cfg := load(t, "")
	assert.Equal(t, filepath.Join(home, "rapid7", "msf"), cfg.RepoPath)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]struct {
		project  string
		contains string
	}{
		"bad yaml syntax": {
			project:  "tracker:\n  owner: [unclosed\n",
			contains: "validating YAML syntax",
		},
		"concurrency out of range": {
			project:  "tracker:\n  concurrency: 0\n",
			contains: "field 'tracker.concurrency': must be at least 1",
		},
		"retries out of range": {
			project:  "tracker:\n  max_retries: 50\n",
			contains: "field 'tracker.max_retries': must be at most 10",
		},
		"module base url not a url": {
			project:  "modules:\n  base_url: not a url\n",
			contains: "field 'modules.base_url': must be a URL",
		},
		"console command without placeholder": {
			project:  "console:\n  command: ./msfconsole -q\n",
			contains: "field 'console.command': must contain {{RC}} placeholder",
		},
		"tidy command without placeholder": {
			project:  "console:\n  tidy_command: msftidy\n",
			contains: "field 'console.tidy_command': must contain {{MODULE}} placeholder",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			writeFile(t, ProjectConfigPath(), tt.project)

			_, err := LoadWithOptions(LoadOptions{UserConfigPath: "-"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestValidateYAMLSyntax(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, ValidateYAMLSyntax(filepath.Join(dir, "missing.yml")))
	assert.NoError(t, ValidateYAMLSyntax(writeFile(t, filepath.Join(dir, "empty.yml"), "  \n")))
	assert.NoError(t, ValidateYAMLSyntax(writeFile(t, filepath.Join(dir, "ok.yml"), "repo_path: /msf\n")))

	err := ValidateYAMLSyntax(writeFile(t, filepath.Join(dir, "bad.yml"), "a: b\n  c: d\n"))
	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Greater(t, vErr.Line, 0)
}

func TestConfigurationAccessors(t *testing.T) {
	isolate(t)
	writeFile(t, ProjectConfigPath(), `
repo_path: /msf
tracker:
  owner: someone
  repo: framework-fork
  token: abc
  max_retries: 1
console:
  timeout: 90s
modules:
  skip_payloads: false
`)

	cfg := load(t, "")

	assert.Equal(t, "someone/framework-fork", cfg.Project().Slug())

	tc := cfg.TrackerClientConfig()
	assert.Equal(t, "abc", tc.Token)
	assert.Equal(t, 1, tc.MaxRetries)

	policy := cfg.ExtractPolicy()
	assert.False(t, policy.SkipPayloads)
	assert.True(t, policy.SkipEncoders)

	r := cfg.ConsoleRunner()
	assert.Equal(t, "/msf", r.Dir)
	assert.Equal(t, 90*time.Second, r.Timeout)
	assert.NoError(t, r.Validate())
	assert.NoError(t, cfg.TidyRunner().Validate())
}

func TestWriteYAML_RedactsToken(t *testing.T) {
	cfg := &Configuration{Tracker: TrackerConfig{Owner: "rapid7", Token: "secret", Timeout: 30 * time.Second}}

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))

	assert.NotContains(t, buf.String(), "secret")
	assert.Contains(t, buf.String(), "********")
	assert.Contains(t, buf.String(), "timeout: 30s")
	assert.Equal(t, "secret", cfg.Tracker.Token)
}

func TestWriteTemplate(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), ".msfstats", "config.yml")

	require.NoError(t, WriteTemplate(path, false))
	assert.Error(t, WriteTemplate(path, false))
	assert.NoError(t, WriteTemplate(path, true))

	cfg := load(t, path)
	assert.Equal(t, GetDefaults()["tracker.owner"], cfg.Tracker.Owner)
	assert.Equal(t, 1, cfg.Tracker.Concurrency)
}

func TestEnvTransform(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"top level": {in: "MSFSTATS_REPO_PATH", want: "repo_path"},
		"nested":    {in: "MSFSTATS_TRACKER__MAX_RETRIES", want: "tracker.max_retries"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, envTransform(tt.in))
		})
	}
}
