package changes

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pbarry-r7/metasploit-stats/internal/git"
)

// ErrNoTags is returned when a range has to be inferred but the repository has no tags.
var ErrNoTags = errors.New("no release tags found")

// Artifact file names written next to each other by WriteArtifacts.
const (
	NamesFile   = "names.txt"
	SummaryFile = "summary.txt"
	DiffFile    = "details.diff"
)

// Range is a pair of release markers with the author dates of their commits.
type Range struct {
	Prev        string
	Release     string
	PrevDate    time.Time
	ReleaseDate time.Time
}

func (r Range) String() string {
	return r.Prev + "..." + r.Release
}

// TagLister lists tags oldest first.
type TagLister interface {
	TagsByDate() ([]string, error)
}

// ResolveRange picks the markers for a diff based run.
//
// Explicit args win. Otherwise the release marker is the newest tag and the
// previous marker the tag before it. With head set, the release marker becomes
// HEAD and the previous marker defaults to the newest tag.
func ResolveRange(tags TagLister, args []string, head bool) (Range, error) {
	var r Range
	if len(args) > 0 {
		r.Prev = args[0]
	}
	if len(args) > 1 {
		r.Release = args[1]
	}

	if r.Release == "" || (!head && r.Prev == "") {
		names, err := tags.TagsByDate()
		if err != nil {
			return Range{}, err
		}
		if len(names) > 2 {
			names = names[len(names)-2:]
		}
		if len(names) > 0 {
			if r.Release == "" {
				r.Release = names[len(names)-1]
			}
			if !head && r.Prev == "" {
				r.Prev = names[0]
			}
		}
	}

	if head {
		if r.Prev == "" {
			r.Prev = r.Release
		}
		r.Release = git.HeadRevision
	}

	if r.Prev == "" || r.Release == "" {
		return Range{}, ErrNoTags
	}
	return r, nil
}

// Dater looks up the date of a marker.
type Dater interface {
	CommitDate(rev string) (time.Time, error)
}

// Date fills in the commit dates of both markers.
func (r Range) Date(d Dater) (Range, error) {
	var err error
	if r.PrevDate, err = d.CommitDate(r.Prev); err != nil {
		return r, err
	}
	if r.ReleaseDate, err = d.CommitDate(r.Release); err != nil {
		return r, err
	}
	return r, nil
}

// ExtractPolicy selects which module subtrees NewModules skips.
type ExtractPolicy struct {
	SkipPayloads bool
	SkipEncoders bool
}

// DefaultPolicy skips payloads and encoders, which have no info page worth reporting.
func DefaultPolicy() ExtractPolicy {
	return ExtractPolicy{SkipPayloads: true, SkipEncoders: true}
}

var createModePattern = regexp.MustCompile(`^\s+create mode \S+ (modules.*?)\r?$`)

// NewModules returns the paths of files created under modules/ according to
// a diff summary, honouring the policy's subtree exclusions.
func NewModules(summary string, policy ExtractPolicy) []string {
	var modules []string
	for _, line := range strings.Split(summary, "\n") {
		match := createModePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		path := match[1]
		if policy.SkipPayloads && strings.Contains(path, "modules/payload") {
			continue
		}
		if policy.SkipEncoders && strings.Contains(path, "modules/encoders") {
			continue
		}
		modules = append(modules, path)
	}
	return modules
}

// DiffViews is what WriteArtifacts needs from a diff.
type DiffViews interface {
	Names() []string
	Summary() string
	Full() string
}

// Artifacts are the paths WriteArtifacts produced.
type Artifacts struct {
	Names   string
	Summary string
	Diff    string
}

// WriteArtifacts writes the changed names, the summary and the full diff into dir.
// Existing files are overwritten.
func WriteArtifacts(dir string, d DiffViews) (Artifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("creating artifact directory: %w", err)
	}

	a := Artifacts{
		Names:   filepath.Join(dir, NamesFile),
		Summary: filepath.Join(dir, SummaryFile),
		Diff:    filepath.Join(dir, DiffFile),
	}

	names := strings.Join(d.Names(), "\n")
	if names != "" {
		names += "\n"
	}

	files := []struct {
		path    string
		content string
	}{
		{a.Names, names},
		{a.Summary, d.Summary()},
		{a.Diff, d.Full()},
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
			return Artifacts{}, fmt.Errorf("writing %s: %w", f.path, err)
		}
	}

	return a, nil
}

// ReadSummary loads a summary written earlier by WriteArtifacts or by
// git diff --summary.
func ReadSummary(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading summary: %w", err)
	}
	return string(data), nil
}
