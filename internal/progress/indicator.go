package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
)

const spinnerInterval = 100 * time.Millisecond

// Indicator reports one step at a time.
type Indicator struct {
	out     io.Writer
	caps    TerminalCapabilities
	symbols ProgressSymbols
	spin    *spinner.Spinner
	step    string
	started time.Time
	now     func() time.Time
}

// NewIndicator returns an Indicator writing to out.
func NewIndicator(out io.Writer, caps TerminalCapabilities) *Indicator {
	return &Indicator{
		out:     out,
		caps:    caps,
		symbols: SelectSymbols(caps),
		now:     time.Now,
	}
}

// Start begins a step. Any step still running is stopped without a result line.
func (i *Indicator) Start(step string) {
	i.stopSpinner()
	i.step = step
	i.started = i.now()

	if !i.caps.IsTTY {
		fmt.Fprintf(i.out, "%s...\n", step)
		return
	}

	i.spin = spinner.New(spinner.CharSets[i.symbols.SpinnerSet], spinnerInterval, spinner.WithWriter(i.out))
	i.spin.Suffix = " " + step
	if i.caps.SupportsColor {
		_ = i.spin.Color("cyan")
	}
	i.spin.Start()
}

// Done ends the step successfully. detail, when set, is shown in parentheses.
func (i *Indicator) Done(detail string) {
	i.finish(i.symbols.Checkmark, detail)
}

// Fail ends the step with err.
func (i *Indicator) Fail(err error) {
	i.finish(i.symbols.Failure, err.Error())
}

func (i *Indicator) finish(symbol, detail string) {
	i.stopSpinner()
	if i.step == "" {
		return
	}

	elapsed := i.now().Sub(i.started).Round(100 * time.Millisecond)
	if detail != "" {
		fmt.Fprintf(i.out, "%s %s (%s) [%s]\n", symbol, i.step, detail, elapsed)
	} else {
		fmt.Fprintf(i.out, "%s %s [%s]\n", symbol, i.step, elapsed)
	}
	i.step = ""
}

func (i *Indicator) stopSpinner() {
	if i.spin != nil {
		i.spin.Stop()
		i.spin = nil
	}
}
