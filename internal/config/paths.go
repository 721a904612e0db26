package config

import (
	"os"
	"path/filepath"
)

// UserConfigPath returns the path to the user-level config file:
// <UserConfigDir>/msfstats/config.yml, which honours XDG_CONFIG_HOME on Linux.
func UserConfigPath() (string, error) {
	configDir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yml"), nil
}

// UserConfigDir returns the path to the user-level config directory.
func UserConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "msfstats"), nil
}

// ProjectConfigDir returns the project-level config directory.
func ProjectConfigDir() string {
	return ".msfstats"
}

// ProjectConfigPath returns the project-level YAML config file.
func ProjectConfigPath() string {
	return filepath.Join(ProjectConfigDir(), "config.yml")
}

// ProjectJSONConfigPath returns the project-level JSON config file,
// read only when no YAML file exists.
func ProjectJSONConfigPath() string {
	return filepath.Join(ProjectConfigDir(), "config.json")
}
