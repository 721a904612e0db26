// Package output provides terminal status lines for the msfstats CLI.
// This package has no dependencies on other internal packages.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// GetTerminalWidth returns the terminal width, defaulting to 80 if unavailable.
func GetTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// Printer writes colored status lines. Colors are off when plain is set
// or NO_COLOR is present in the environment.
type Printer struct {
	out   io.Writer
	plain bool
}

// New returns a Printer writing to out.
func New(out io.Writer, plain bool) *Printer {
	return &Printer{out: out, plain: plain || os.Getenv("NO_COLOR") != ""}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) style(attrs ...color.Attribute) func(a ...interface{}) string {
	c := color.New(attrs...)
	if p.plain {
		c.DisableColor()
	} else {
		c.EnableColor()
	}
	return c.SprintFunc()
}

// Step prints the start of a pipeline step (e.g., "→ Collecting landed pull requests").
func (p *Printer) Step(format string, args ...any) {
	magenta := p.style(color.FgMagenta)
	fmt.Fprintf(p.out, "%s %s\n", magenta("→"), fmt.Sprintf(format, args...))
}

// Success prints a green checkmark line, typically naming a written artifact.
func (p *Printer) Success(format string, args ...any) {
	green := p.style(color.FgGreen, color.Bold)
	cyan := p.style(color.FgCyan)
	fmt.Fprintf(p.out, "%s %s\n", green("✓"), cyan(fmt.Sprintf(format, args...)))
}

// Warn prints a non-fatal problem.
func (p *Printer) Warn(format string, args ...any) {
	yellow := p.style(color.FgYellow, color.Bold)
	fmt.Fprintf(p.out, "%s %s\n", yellow("warning:"), fmt.Sprintf(format, args...))
}

// Header prints a bold section title followed by a rule of the same width.
func (p *Printer) Header(title string) {
	bold := p.style(color.Bold)
	dim := p.style(color.Faint)
	fmt.Fprintf(p.out, "%s\n%s\n", bold(title), dim(strings.Repeat("─", len([]rune(title)))))
}

// Field prints an aligned "label: value" line.
func (p *Printer) Field(label, value string) {
	cyan := p.style(color.FgCyan)
	fmt.Fprintf(p.out, "  %-10s %s\n", cyan(label+":"), value)
}
