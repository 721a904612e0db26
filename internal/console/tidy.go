package console

import (
	"context"
	"strings"
)

// Finding is msftidy's complaint about one module.
type Finding struct {
	Path   string
	Output string
}

// Tidy runs msftidy over every module path and returns the modules it had
// something to say about, in input order. A module whose run fails is
// reported with the error text so the remaining modules are still checked.
func Tidy(ctx context.Context, r *Runner, paths []string) ([]Finding, error) {
	var findings []Finding
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		logDebug("[console] %2d: %s", i, p)

		out, err := r.Run(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return findings, ctx.Err()
			}
			findings = append(findings, Finding{Path: p, Output: err.Error()})
			continue
		}
		if len(strings.TrimSpace(out)) <= 1 {
			continue
		}
		findings = append(findings, Finding{Path: p, Output: out})
	}
	return findings, nil
}
