// Package testutil provides test helpers for metasploit-stats tests.
//
// Its main piece is a helper process that stands in for msfconsole and
// msftidy: tests point a command template at the test binary and the binary
// re-enters itself in TestHelperProcess, behaving according to a JSON config
// passed through the environment.
package testutil

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// HelperProcessConfig configures the behavior of TestHelperProcess.
type HelperProcessConfig struct {
	// ExitCode is the exit code to return (default 0).
	ExitCode int `json:"exit_code"`
	// Stdout is written before anything else.
	Stdout string `json:"stdout"`
	// Stderr is the content to write to stderr.
	Stderr string `json:"stderr"`
	// Info maps module names to the text the fake console prints for "info <name>".
	// Unknown names print an invalid module error like msfconsole does.
	Info map[string]string `json:"info,omitempty"`
	// Tidy maps module paths to the text the fake msftidy prints for them.
	Tidy map[string]string `json:"tidy,omitempty"`
	// CallLog, when set, is a YAML file every invocation appends itself to.
	CallLog string `json:"call_log,omitempty"`
}

// HelperProcessEnvVars contains the environment variable names used by TestHelperProcess.
const (
	// EnvWantHelperProcess signals that the test binary should run as a helper process.
	EnvWantHelperProcess = "GO_WANT_HELPER_PROCESS"
	// EnvHelperProcessConfig contains JSON-encoded HelperProcessConfig.
	EnvHelperProcessConfig = "GO_HELPER_PROCESS_CONFIG"
)

// TestHelperProcess is a function to be called from a test function to
// implement the helper process pattern. When invoked with
// GO_WANT_HELPER_PROCESS=1, it behaves as a fake tool and exits without
// returning.
//
// Usage in test file:
//
//	func TestHelperProcess(t *testing.T) {
//	    testutil.TestHelperProcess(t)
//	}
//
// Arguments after "--" are the tool's arguments. "-r <file>" makes it act as
// msfconsole running a resource script; a single argument makes it act as
// msftidy for that module path.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(EnvWantHelperProcess) != "1" {
		return
	}

	config := parseHelperConfig()
	os.Exit(runHelperProcess(config, toolArgs(os.Args), os.Stdout, os.Stderr))
}

// parseHelperConfig parses HelperProcessConfig from environment variable.
func parseHelperConfig() HelperProcessConfig {
	config := HelperProcessConfig{}
	configJSON := os.Getenv(EnvHelperProcessConfig)
	if configJSON != "" {
		// Ignore parse errors; use defaults on failure
		_ = json.Unmarshal([]byte(configJSON), &config)
	}
	return config
}

// toolArgs returns the arguments after the first "--".
func toolArgs(args []string) []string {
	for i, a := range args {
		if a == "--" {
			return args[i+1:]
		}
	}
	return nil
}

// runHelperProcess executes the helper process behavior and returns its exit code.
func runHelperProcess(config HelperProcessConfig, args []string, stdout, stderr io.Writer) int {
	if config.CallLog != "" {
		wd, _ := os.Getwd()
		_ = AppendCallLog(config.CallLog, CallLogEntry{Args: args, Dir: wd, ExitCode: config.ExitCode})
	}

	fmt.Fprint(stdout, config.Stdout)
	fmt.Fprint(stderr, config.Stderr)

	if rc := resourceScript(args); rc != "" {
		if err := runResourceScript(config, rc, stdout); err != nil {
			fmt.Fprintf(stderr, "[-] %v\n", err)
			return 1
		}
	} else if len(args) == 1 {
		fmt.Fprint(stdout, config.Tidy[args[0]])
	}

	return config.ExitCode
}

func resourceScript(args []string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "-r" {
			return args[i+1]
		}
	}
	return ""
}

// runResourceScript interprets the few console commands the driver emits.
// Output goes to stdout and, after a spool command, to the spool file too.
func runResourceScript(config HelperProcessConfig, path string, stdout io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening resource script: %w", err)
	}
	defer f.Close()

	out := stdout
	fmt.Fprintf(out, "[*] Processing %s for ERB directives.\n", path)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fmt.Fprintf(out, "resource (%s)> %s\n", path, line)

		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "spool":
			spool, err := os.Create(arg)
			if err != nil {
				return fmt.Errorf("spooling: %w", err)
			}
			defer spool.Close()
			out = io.MultiWriter(stdout, spool)
			fmt.Fprintf(out, "[*] Spooling to file %s...\n", arg)
		case "echo":
			fmt.Fprintln(out, arg)
		case "info":
			text, ok := config.Info[arg]
			if !ok {
				fmt.Fprintf(out, "[-] Invalid module: %s\n", arg)
				continue
			}
			fmt.Fprintln(out, text)
		case "exit":
			return nil
		default:
			fmt.Fprintf(out, "[-] Unknown command: %s.\n", cmd)
		}
	}
	return scanner.Err()
}

// HelperCommand returns a command template prefix that re-runs the test
// binary as the helper process registered under testName. Tool arguments
// follow it.
func HelperCommand(t *testing.T, testName string) string {
	t.Helper()

	testBinary, err := os.Executable()
	if err != nil {
		t.Fatalf("failed to get test binary path: %v", err)
	}
	return QuoteForShlex(testBinary) + " -test.run=^" + testName + "$ --"
}

// HelperEnv returns the environment entries that switch the test binary into
// helper mode with the given config.
func HelperEnv(t *testing.T, config HelperProcessConfig) []string {
	t.Helper()

	configJSON, err := json.Marshal(config)
	if err != nil {
		t.Fatalf("marshaling helper config: %v", err)
	}
	return []string{
		EnvWantHelperProcess + "=1",
		EnvHelperProcessConfig + "=" + string(configJSON),
	}
}

// ConfigureTestCommand creates an exec.Cmd that invokes the test binary
// as a helper process instead of the real tool.
func ConfigureTestCommand(t *testing.T, testName string, config HelperProcessConfig, args ...string) *exec.Cmd {
	t.Helper()

	testBinary, err := os.Executable()
	if err != nil {
		t.Fatalf("failed to get test binary path: %v", err)
	}

	cmdArgs := append([]string{"-test.run=^" + testName + "$", "--"}, args...)
	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Env = append(os.Environ(), HelperEnv(t, config)...)
	return cmd
}

// QuoteForShlex wraps a string in single quotes for safe shlex parsing.
// 'don't' becomes 'don'\''t'.
func QuoteForShlex(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
