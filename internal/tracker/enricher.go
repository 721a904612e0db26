package tracker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Source is what the enricher needs from the tracker.
type Source interface {
	Milestone(ctx context.Context, number int) (string, error)
	Comments(ctx context.Context, number int) ([]string, error)
}

// Note is the tracker data for one pull request.
type Note struct {
	Number    int
	Milestone string
	Notes     string
	// Err is set when the tracker could not be read and sentinels were used.
	Err error
}

// Enricher looks up notes for a list of pull requests.
type Enricher struct {
	Source Source
	// Concurrency bounds in-flight lookups; values below 1 mean sequential.
	Concurrency int
	// Warn is told about lookups that fell back to sentinels. It may be
	// called from several goroutines when Concurrency is above 1.
	Warn func(format string, args ...any)
}

// Enrich returns one note per number, in the order given. Tracker failures
// degrade to the NoMilestone and NotWritten sentinels; only cancellation of
// ctx is returned as an error.
func (e *Enricher) Enrich(ctx context.Context, numbers []int) ([]Note, error) {
	notes := make([]Note, len(numbers))

	limit := e.Concurrency
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, n := range numbers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			notes[i] = e.lookup(gctx, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func (e *Enricher) lookup(ctx context.Context, number int) Note {
	note := Note{Number: number, Milestone: NoMilestone, Notes: NotWritten}

	milestone, err := e.Source.Milestone(ctx, number)
	if err != nil {
		note.Err = err
		e.warn("PR #%d: milestone unavailable: %v", number, err)
	} else {
		note.Milestone = milestone
	}

	comments, err := e.Source.Comments(ctx, number)
	if err != nil {
		if note.Err == nil {
			note.Err = err
		}
		e.warn("PR #%d: comments unavailable: %v", number, err)
		return note
	}
	if text, ok := ReleaseNotes(comments); ok && text != "" {
		note.Notes = text
	}
	logDebug("[tracker] #%d milestone=%q notes=%d bytes", number, note.Milestone, len(note.Notes))
	return note
}

func (e *Enricher) warn(format string, args ...any) {
	if e.Warn != nil {
		e.Warn(format, args...)
	}
}
