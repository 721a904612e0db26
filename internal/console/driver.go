package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pbarry-r7/metasploit-stats/internal/modinfo"
	"github.com/pbarry-r7/metasploit-stats/internal/module"
)

// Driver gathers module info from one console run.
type Driver struct {
	Runner *Runner
	// ScratchParent is where the per-run scratch directory is created.
	// Empty means the system temp directory.
	ScratchParent string
	// Follow, when set, receives the spool file as it grows.
	Follow io.Writer
}

// Result is the outcome of a Describe run.
type Result struct {
	Buckets    modinfo.Buckets
	Transcript string
}

// Describe runs info for every ref in a single console process and parses
// the transcript. Modules the console could not describe come back with
// empty names or are missing; that is not an error.
func (d *Driver) Describe(ctx context.Context, refs []module.Ref) (*Result, error) {
	scratch, err := NewScratch(d.ScratchParent)
	if err != nil {
		return nil, err
	}
	defer scratch.Close()

	if err := WriteScript(scratch.ScriptPath(), refs, scratch.SpoolPath()); err != nil {
		return nil, err
	}
	logDebug("[console] resource script with %d modules at %s", len(refs), scratch.ScriptPath())

	stopFollow := d.follow(ctx, scratch.SpoolPath())
	transcript, err := d.Runner.Run(ctx, scratch.ScriptPath())
	stopFollow()
	if err != nil {
		return nil, fmt.Errorf("running console: %w", err)
	}

	buckets, err := modinfo.Parse(strings.NewReader(transcript))
	if err != nil {
		return nil, err
	}
	logDebug("[console] parsed %d exploits and %d other modules", len(buckets.Exploits), len(buckets.Others))

	return &Result{Buckets: buckets, Transcript: transcript}, nil
}

// follow starts streaming the spool file to d.Follow and returns a function
// that stops it and waits for the remaining lines to be written.
func (d *Driver) follow(ctx context.Context, spoolPath string) func() {
	if d.Follow == nil {
		return func() {}
	}

	follower, err := NewSpoolFollower(spoolPath)
	if err != nil {
		logDebug("[console] not following spool: %v", err)
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		follower.CopyTo(ctx, d.Follow, "[spool] ")
	}()

	return func() {
		cancel()
		wg.Wait()
		_ = follower.Close()
	}
}
