package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Diff is the difference between two release markers.
// It is computed once and then viewed as names, summary or full text.
type Diff struct {
	From  string
	To    string
	patch *object.Patch
}

// Diff computes the tree difference from..to.
func (r *Repo) Diff(ctx context.Context, from, to string) (*Diff, error) {
	fromCommit, err := r.resolve(from)
	if err != nil {
		return nil, err
	}
	toCommit, err := r.resolve(to)
	if err != nil {
		return nil, err
	}

	patch, err := fromCommit.PatchContext(ctx, toCommit)
	if err != nil {
		return nil, fmt.Errorf("diffing %s..%s: %w", from, to, err)
	}

	logDebug("[git] Diff %s..%s: %d files", from, to, len(patch.FilePatches()))
	return &Diff{From: from, To: to, patch: patch}, nil
}

// Names lists the changed paths, one per file, like git diff --name-only.
func (d *Diff) Names() []string {
	var names []string
	for _, fp := range d.patch.FilePatches() {
		from, to := fp.Files()
		if to != nil {
			names = append(names, to.Path())
		} else if from != nil {
			names = append(names, from.Path())
		}
	}
	return names
}

// Summary renders the structural summary of git diff --summary:
// create, delete, rename and mode change lines.
func (d *Diff) Summary() string {
	var sb strings.Builder
	for _, fp := range d.patch.FilePatches() {
		from, to := fp.Files()
		switch {
		case from == nil && to != nil:
			fmt.Fprintf(&sb, " create mode %s %s\n", octalMode(to.Mode()), to.Path())
		case from != nil && to == nil:
			fmt.Fprintf(&sb, " delete mode %s %s\n", octalMode(from.Mode()), from.Path())
		case from != nil && to != nil && from.Path() != to.Path():
			fmt.Fprintf(&sb, " rename %s => %s\n", from.Path(), to.Path())
		case from != nil && to != nil && from.Mode() != to.Mode():
			fmt.Fprintf(&sb, " mode change %s => %s %s\n", octalMode(from.Mode()), octalMode(to.Mode()), to.Path())
		}
	}
	return sb.String()
}

// Full renders the unified diff text.
func (d *Diff) Full() string {
	return d.patch.String()
}

func octalMode(m filemode.FileMode) string {
	return fmt.Sprintf("%06o", uint32(m))
}
