// Package console drives msfconsole non-interactively.
//
// A Describe run writes a resource script that spools console output to a
// side file and asks for the info of every module between BEGIN/END echo
// markers, runs the console once against it and hands the captured transcript
// to the modinfo parser. Scratch files live in a per-run directory owned by the
// caller.
package console

import (
	"fmt"
	"os"
	"strings"

	"github.com/pbarry-r7/metasploit-stats/internal/module"
)

// BuildScript renders the resource script for refs. Console output is spooled
// to spoolPath and the script ends with exit so the console terminates.
func BuildScript(refs []module.Ref, spoolPath string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "spool %s\n", spoolPath)
	for _, ref := range refs {
		fmt.Fprintf(&sb, "echo BEGIN: %s\n", ref.URL)
		fmt.Fprintf(&sb, "info %s\n", ref.Name)
		fmt.Fprintf(&sb, "echo END: %s\n", ref.URL)
	}
	sb.WriteString("exit\n")
	return sb.String()
}

// WriteScript writes the resource script to path, replacing any previous one.
func WriteScript(path string, refs []module.Ref, spoolPath string) error {
	if err := os.WriteFile(path, []byte(BuildScript(refs, spoolPath)), 0o600); err != nil {
		return fmt.Errorf("writing resource script: %w", err)
	}
	return nil
}
