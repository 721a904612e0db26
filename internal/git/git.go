// Package git reads release history from a local metasploit-framework checkout.
// It uses go-git for every query (log between release markers, tags ordered by
// tagger date, commit dates and release diffs) so no git binary is required.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// HeadRevision is the marker used when no end revision is given.
const HeadRevision = "HEAD"

// ErrUnknownRevision is returned when a release marker does not resolve to a commit.
var ErrUnknownRevision = errors.New("unknown revision or path not in the working tree")

// RevisionError names the marker that did not resolve. It matches
// ErrUnknownRevision under errors.Is.
type RevisionError struct {
	Rev string
}

func (e *RevisionError) Error() string {
	return ErrUnknownRevision.Error() + ": " + e.Rev
}

// Is reports whether target is ErrUnknownRevision.
func (e *RevisionError) Is(target error) bool {
	return target == ErrUnknownRevision
}

// debugLogger is a function that logs debug messages when debug mode is enabled.
// By default, it's a no-op. Set it via SetDebugLogger to enable debug output.
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for git operations.
// Pass nil to disable debug logging.
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}

// Commit is a single entry of the release history.
type Commit struct {
	ID      string
	Message string
	Author  string
	When    time.Time
}

// Repo is an opened checkout.
type Repo struct {
	repo *git.Repository
}

// Open opens the repository containing path, walking up to find .git.
// If path is empty, the current working directory is used.
func Open(path string) (*Repo, error) {
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting current directory: %w", err)
		}
	}

	logDebug("[git] opening repository at %s", path)

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}

	return &Repo{repo: repo}, nil
}

// resolve turns a tag, branch, hash or HEAD into a commit.
// Annotated tags are peeled to the commit they point at.
func (r *Repo) resolve(rev string) (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		logDebug("[git] resolve %q: %v", rev, err)
		return nil, &RevisionError{Rev: rev}
	}

	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, &RevisionError{Rev: rev}
	}
	return commit, nil
}

// LogBetween returns the commits reachable from end but not from start, newest
// first, stopping after limit entries (limit <= 0 means no cap). An empty end
// means HEAD.
func (r *Repo) LogBetween(ctx context.Context, start, end string, limit int) ([]Commit, error) {
	if end == "" {
		end = HeadRevision
	}

	startCommit, err := r.resolve(start)
	if err != nil {
		return nil, err
	}
	endCommit, err := r.resolve(end)
	if err != nil {
		return nil, err
	}

	w := newRangeWalk(r.repo)
	w.push(endCommit, false)
	w.push(startCommit, true)

	var commits []Commit
	for w.pending() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("walking log %s..%s: %w", start, end, err)
		}
		c, excluded, err := w.next()
		if err != nil {
			return nil, fmt.Errorf("walking log %s..%s: %w", start, end, err)
		}
		if excluded {
			continue
		}
		commits = append(commits, Commit{
			ID:      c.Hash.String(),
			Message: c.Message,
			Author:  c.Author.Name,
			When:    c.Author.When,
		})
		if limit > 0 && len(commits) >= limit {
			break
		}
	}

	logDebug("[git] LogBetween %s..%s: %d commits, %d visited", start, end, len(commits), len(w.marks))
	return commits, nil
}

const (
	markQueued uint8 = 1 << iota
	markExcluded
)

// rangeWalk visits the commits of start..end newest first by committer time.
// Exclusion spreads from start down its parents, and the walk stops once every
// queued commit is excluded, so history below the merge base is not read.
type rangeWalk struct {
	repo  *git.Repository
	queue []*object.Commit
	marks map[plumbing.Hash]uint8
	// included counts queued commits not marked excluded.
	included int
}

func newRangeWalk(repo *git.Repository) *rangeWalk {
	return &rangeWalk{repo: repo, marks: make(map[plumbing.Hash]uint8)}
}

func (w *rangeWalk) pending() bool {
	return w.included > 0
}

func (w *rangeWalk) push(c *object.Commit, excluded bool) {
	m := w.marks[c.Hash]
	if excluded {
		if m&markExcluded != 0 {
			return
		}
		w.marks[c.Hash] = m | markExcluded | markQueued
		if m&markQueued != 0 {
			// Already waiting in the queue as an included commit.
			w.included--
			return
		}
	} else {
		if m&markQueued != 0 {
			return
		}
		w.marks[c.Hash] = m | markQueued
		w.included++
	}

	when := c.Committer.When
	i := sort.Search(len(w.queue), func(i int) bool {
		return w.queue[i].Committer.When.Before(when)
	})
	w.queue = append(w.queue, nil)
	copy(w.queue[i+1:], w.queue[i:])
	w.queue[i] = c
}

// next pops the newest queued commit and queues its parents with its mark.
func (w *rangeWalk) next() (*object.Commit, bool, error) {
	c := w.queue[0]
	w.queue = w.queue[1:]
	excluded := w.marks[c.Hash]&markExcluded != 0
	if !excluded {
		w.included--
	}

	for _, h := range c.ParentHashes {
		parent, err := w.repo.CommitObject(h)
		if err != nil {
			return nil, false, fmt.Errorf("reading parent %s of %s: %w", h, c.Hash, err)
		}
		w.push(parent, excluded)
	}
	return c, excluded, nil
}

// TagsByDate returns tag names ordered by tagger date, oldest first.
// Lightweight tags carry no tagger date and sort before annotated ones,
// matching git for-each-ref --sort=taggerdate; ties break by name.
func (r *Repo) TagsByDate() ([]string, error) {
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer iter.Close()

	type datedTag struct {
		name string
		when time.Time
	}

	var tags []datedTag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tag := datedTag{name: ref.Name().Short()}
		if obj, err := r.repo.TagObject(ref.Hash()); err == nil {
			tag.when = obj.Tagger.When
		}
		tags = append(tags, tag)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}

	sort.SliceStable(tags, func(i, j int) bool {
		if !tags[i].when.Equal(tags[j].when) {
			return tags[i].when.Before(tags[j].when)
		}
		return tags[i].name < tags[j].name
	})

	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.name
	}

	logDebug("[git] TagsByDate: %d tags", len(names))
	return names, nil
}

// CommitDate returns the author date of the commit rev points at.
func (r *Repo) CommitDate(rev string) (time.Time, error) {
	commit, err := r.resolve(rev)
	if err != nil {
		return time.Time{}, err
	}
	return commit.Author.When, nil
}
