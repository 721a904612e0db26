package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	clierrors "github.com/pbarry-r7/metasploit-stats/internal/errors"
)

// Exit codes for the msfstats CLI
const (
	// ExitSuccess indicates successful command execution
	ExitSuccess = 0

	// ExitFailure indicates a runtime failure
	ExitFailure = 1

	// ExitInvalidArguments indicates invalid command arguments
	ExitInvalidArguments = 3

	// ExitMissingPrerequisite indicates missing configuration, checkout, tags or tools
	ExitMissingPrerequisite = 4
)

// exitCodeFor maps an error onto an exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if cliErr := clierrors.AsCLIError(err); cliErr != nil {
		switch cliErr.Category {
		case clierrors.Argument:
			return ExitInvalidArguments
		case clierrors.Configuration, clierrors.Prerequisite:
			return ExitMissingPrerequisite
		}
	}
	return ExitFailure
}

// reportError prints err for the user and returns the exit code.
func reportError(w io.Writer, err error, plain bool) int {
	code := exitCodeFor(err)
	if err == nil {
		return code
	}

	if stderrors.Is(err, context.Canceled) {
		fmt.Fprintln(w, "Interrupted.")
		return code
	}

	fmt.Fprint(w, clierrors.FormatSimpleError(err, clierrors.Runtime, plain))
	return code
}
