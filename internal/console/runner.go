package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

// Template placeholders.
const (
	ScriptPlaceholder = "{{RC}}"
	ModulePlaceholder = "{{MODULE}}"
)

// Default command templates, run from the framework checkout.
const (
	DefaultConsoleCommand = "./msfconsole -q -L -r " + ScriptPlaceholder
	DefaultTidyCommand    = "tools/dev/msftidy.rb " + ModulePlaceholder
)

// ErrNoOutput is returned when a tool exits non-zero without printing anything.
var ErrNoOutput = errors.New("command failed without output")

// debugLogger is a function that logs debug messages when debug mode is enabled.
// By default, it's a no-op. Set it via SetDebugLogger to enable debug output.
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for console operations.
// Pass nil to disable debug logging.
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}

// Runner runs an external tool from a command template holding one placeholder.
type Runner struct {
	Template    string
	Placeholder string
	// Dir is the working directory, normally the framework checkout.
	// Relative command paths in Template resolve against it.
	Dir string
	// Env is appended to the current environment.
	Env []string
	// Stderr receives the tool's stderr. Discarded when nil.
	Stderr io.Writer
	// Timeout bounds one run; zero means no limit.
	Timeout time.Duration
}

// NewConsoleRunner returns a runner for msfconsole resource scripts.
func NewConsoleRunner(template, dir string) *Runner {
	if template == "" {
		template = DefaultConsoleCommand
	}
	return &Runner{Template: template, Placeholder: ScriptPlaceholder, Dir: dir}
}

// NewTidyRunner returns a runner for msftidy.
func NewTidyRunner(template, dir string) *Runner {
	if template == "" {
		template = DefaultTidyCommand
	}
	return &Runner{Template: template, Placeholder: ModulePlaceholder, Dir: dir}
}

// Validate checks that the template parses and carries its placeholder.
func (r *Runner) Validate() error {
	if !strings.Contains(r.Template, r.Placeholder) {
		return fmt.Errorf("command template %q must contain %s", r.Template, r.Placeholder)
	}
	parts, err := shlex.Split(strings.ReplaceAll(r.Template, r.Placeholder, "x"))
	if err != nil {
		return fmt.Errorf("invalid command template: %w", err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("command template produces no command")
	}
	return nil
}

// Command expands the template with value and builds the command.
func (r *Runner) Command(ctx context.Context, value string) (*exec.Cmd, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	expanded := strings.ReplaceAll(r.Template, r.Placeholder, quoteForShlex(value))
	args, err := shlex.Split(expanded)
	if err != nil {
		return nil, fmt.Errorf("expanding command template: %w", err)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), r.Env...)
	return cmd, nil
}

// Run runs the tool once, blocking until it exits, and returns its stdout.
// A non-zero exit is only an error when nothing was printed; tools like
// msfconsole report per-item problems in their output and still exit badly.
func (r *Runner) Run(ctx context.Context, value string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd, err := r.Command(ctx, value)
	if err != nil {
		return "", err
	}

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = io.Discard
	}

	logDebug("[console] running %v in %s", cmd.Args, r.Dir)
	start := time.Now()
	err = cmd.Run()
	logDebug("[console] %s finished in %s (%d bytes)", cmd.Args[0], time.Since(start).Round(time.Millisecond), stdout.Len())

	if ctxErr := ctx.Err(); ctxErr != nil {
		return stdout.String(), fmt.Errorf("running %s: %w", cmd.Args[0], ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("running %s: %w", cmd.Args[0], err)
		}
		if stdout.Len() == 0 {
			return "", fmt.Errorf("running %s: exit status %d: %w", cmd.Args[0], exitErr.ExitCode(), ErrNoOutput)
		}
		logDebug("[console] %s exited with %d, keeping output", cmd.Args[0], exitErr.ExitCode())
	}

	return stdout.String(), nil
}

// quoteForShlex wraps a string in single quotes for safe shlex parsing.
// Single quotes preserve literal values, escaping embedded single quotes.
func quoteForShlex(s string) string {
	if s == "" {
		return "''"
	}
	// 'don't' becomes 'don'\''t'
	escaped := strings.ReplaceAll(s, "'", `'\''`)
	return "'" + escaped + "'"
}
