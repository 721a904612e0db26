package errors

import "fmt"

// Common error messages for the msfstats CLI.
// These templates keep the wording and the suggested fixes consistent.

// MissingRepoPath is returned when no metasploit-framework checkout is configured.
func MissingRepoPath() *CLIError {
	return NewConfigError(
		"no metasploit-framework checkout configured",
		"Set MSFDIR to your local metasploit-framework repository, e.g. export MSFDIR=\"$HOME/rapid7/msf\"",
		"Or set repo_path in .msfstats/config.yml",
	)
}

// UnknownRevision is returned when a release marker does not resolve.
func UnknownRevision(rev string, err error) *CLIError {
	return &CLIError{
		Category: Prerequisite,
		Message:  fmt.Sprintf("unknown revision or path not in the working tree: %s", rev),
		Remediation: []string{
			"Make sure your checkout is current: git pull upstream-master",
			"Check the release tags exist: git tag",
		},
		Err: err,
	}
}

// MissingStartTag is returned when notes is run without a starting tag.
func MissingStartTag() *CLIError {
	return NewArgumentErrorWithUsage(
		"you need to specify at least one tag",
		"msfstats notes <start-tag> [<end-tag>]",
		"Example: msfstats notes 4.11.0 4.12.5",
		"Without an end tag, everything from the start tag to the most recent commit is collected",
	)
}

// NoReleaseTags is returned when a range has to be inferred from tags and there are none.
func NoReleaseTags(err error) *CLIError {
	return &CLIError{
		Category: Prerequisite,
		Message:  "no release tags found to compare",
		Remediation: []string{
			"Fetch the tags: git fetch upstream --tags",
			"Or name the markers explicitly: msfstats diff <prev> <release>",
		},
		Err: err,
	}
}

// MissingSummary is returned when fix cannot read a diff summary.
func MissingSummary(path string, err error) *CLIError {
	return &CLIError{
		Category: Prerequisite,
		Message:  fmt.Sprintf("diff summary not found: %s", path),
		Remediation: []string{
			"Run 'msfstats diff' first to write summary.txt",
			"Or point --infile at an existing summary",
		},
		Err: err,
	}
}

// InvalidConfig is returned when configuration cannot be loaded.
func InvalidConfig(err error) *CLIError {
	return &CLIError{
		Category: Configuration,
		Message:  fmt.Sprintf("loading configuration: %v", err),
		Remediation: []string{
			"Check .msfstats/config.yml and your user config for typos",
			"Run with --debug to see which files were read",
		},
		Err: err,
	}
}

// ConsoleFailed is returned when msfconsole produced nothing usable.
func ConsoleFailed(frameworkPath string, err error) *CLIError {
	return &CLIError{
		Category: Runtime,
		Message:  fmt.Sprintf("msfconsole failed: %v", err),
		Remediation: []string{
			fmt.Sprintf("Check that msfconsole runs from %s", frameworkPath),
			"Set --framework-path or framework_path to your metasploit-framework checkout",
			"Override the command with console.command in the config",
		},
		Err: err,
	}
}
