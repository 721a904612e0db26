// Package changes tests landed-commit filtering, range selection and module extraction.
// Related: internal/changes/changes.go, internal/changes/diff.go
// Tags: changes, land, diff, summary

package changes

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pbarry-r7/metasploit-stats/internal/git"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	commits  []git.Commit
	err      error
	gotLimit int
	gotStart string
	gotEnd   string
}

func (f *fakeHistory) LogBetween(_ context.Context, start, end string, limit int) ([]git.Commit, error) {
	f.gotStart, f.gotEnd, f.gotLimit = start, end, limit
	return f.commits, f.err
}

func commitsOf(messages ...string) []git.Commit {
	commits := make([]git.Commit, len(messages))
	for i, m := range messages {
		commits[i] = git.Commit{ID: string(rune('a' + i)), Message: m}
	}
	return commits
}

func messagesOf(commits []git.Commit) []string {
	out := make([]string, len(commits))
	for i, c := range commits {
		out[i] = c.Message
	}
	return out
}

func TestLanded_EndToEnd(t *testing.T) {
	h := &fakeHistory{commits: commitsOf("Land #10 foo", "Fix #5 bar", "unrelated")}

	landed, err := Landed(context.Background(), h, "4.11.0", "4.12.0")
	require.NoError(t, err)

	assert.Equal(t, []string{"Land #10 foo", "Fix #5 bar"}, messagesOf(landed))
	assert.Equal(t, []int{10}, LandedNumbers(landed))
	assert.Equal(t, DefaultLogLimit, h.gotLimit)
	assert.Equal(t, "4.11.0", h.gotStart)
	assert.Equal(t, "4.12.0", h.gotEnd)
}

func TestLanded_PropagatesUnknownRevision(t *testing.T) {
	h := &fakeHistory{err: git.ErrUnknownRevision}

	_, err := Landed(context.Background(), h, "nope", "")
	assert.True(t, errors.Is(err, git.ErrUnknownRevision))
}

func TestIsLanded(t *testing.T) {
	tests := map[string]struct {
		message string
		want    bool
	}{
		"land with number":       {message: "Land #6123, Add MS17-010", want: true},
		"land lowercase":         {message: "land the thing", want: true},
		"land without number":    {message: "Landing page tweaks", want: true},
		"see reference":          {message: "See #7001", want: true},
		"fix reference":          {message: "Fix #42 crash", want: true},
		"fix without number":     {message: "Fix typo", want: false},
		"land on later line":     {message: "Merge branch\n\nLand #99", want: true},
		"unrelated":              {message: "Bump version", want: false},
		"land not at line start": {message: "Re-Land #3", want: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLanded(tt.message))
		})
	}
}

func TestLandedNumbers(t *testing.T) {
	tests := map[string]struct {
		messages []string
		want     []int
	}{
		"descending order": {
			messages: []string{"Land #10, a", "Land #300, b", "Land #42, c"},
			want:     []int{300, 42, 10},
		},
		"duplicates removed": {
			messages: []string{"Land #7", "Land #7, again"},
			want:     []int{7},
		},
		"zero dropped": {
			messages: []string{"Land #0", "Land #3"},
			want:     []int{3},
		},
		"see and fix contribute nothing": {
			messages: []string{"See #11", "Fix #12", "Land #13"},
			want:     []int{13},
		},
		"land without number ignored": {
			messages: []string{"Land the big refactor"},
			want:     nil,
		},
		"any single separator accepted": {
			messages: []string{"Land-#21", "Land #22"},
			want:     []int{22, 21},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, LandedNumbers(commitsOf(tt.messages...)))
		})
	}
}

func TestLandedSubjects(t *testing.T) {
	commits := commitsOf(
		"Land #10, add exploit\n\nLong description",
		"Fix #5 bar",
		"Merge\r\nLand #11, windows fix\r\n",
	)

	assert.Equal(t, []string{"Land #10, add exploit", "Land #11, windows fix"}, LandedSubjects(commits))
}

type fakeTags struct {
	names []string
	err   error
}

func (f fakeTags) TagsByDate() ([]string, error) { return f.names, f.err }

func TestResolveRange(t *testing.T) {
	tags := fakeTags{names: []string{"4.11.0", "4.12.0", "4.12.1"}}

	tests := map[string]struct {
		tags    fakeTags
		args    []string
		head    bool
		want    Range
		wantErr error
	}{
		"last two tags": {
			tags: tags,
			want: Range{Prev: "4.12.0", Release: "4.12.1"},
		},
		"explicit markers": {
			tags: tags,
			args: []string{"4.11.0", "4.12.0"},
			want: Range{Prev: "4.11.0", Release: "4.12.0"},
		},
		"explicit prev only": {
			tags: tags,
			args: []string{"4.11.0"},
			want: Range{Prev: "4.11.0", Release: "4.12.1"},
		},
		"head compares newest tag with HEAD": {
			tags: tags,
			head: true,
			want: Range{Prev: "4.12.1", Release: "HEAD"},
		},
		"head keeps explicit prev": {
			tags: tags,
			args: []string{"4.11.0"},
			head: true,
			want: Range{Prev: "4.11.0", Release: "HEAD"},
		},
		"single tag compares with itself": {
			tags: fakeTags{names: []string{"4.11.0"}},
			want: Range{Prev: "4.11.0", Release: "4.11.0"},
		},
		"no tags": {
			tags:    fakeTags{},
			wantErr: ErrNoTags,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ResolveRange(tt.tags, tt.args, tt.head)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakeDater map[string]time.Time

func (f fakeDater) CommitDate(rev string) (time.Time, error) {
	when, ok := f[rev]
	if !ok {
		return time.Time{}, git.ErrUnknownRevision
	}
	return when, nil
}

func TestRangeDate(t *testing.T) {
	d1 := time.Date(2017, 1, 5, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2017, 1, 12, 10, 0, 0, 0, time.UTC)
	dater := fakeDater{"4.13.0": d1, "HEAD": d2}

	r, err := Range{Prev: "4.13.0", Release: "HEAD"}.Date(dater)
	require.NoError(t, err)
	assert.Equal(t, d1, r.PrevDate)
	assert.Equal(t, d2, r.ReleaseDate)
	assert.Equal(t, "4.13.0...HEAD", r.String())

	_, err = Range{Prev: "missing", Release: "HEAD"}.Date(dater)
	assert.ErrorIs(t, err, git.ErrUnknownRevision)
}

const sampleSummary = ` create mode 100644 modules/exploits/windows/smb/ms17_010_eternalblue.rb
 create mode 100644 modules/auxiliary/scanner/http/title.rb
 delete mode 100644 modules/post/windows/gather/old.rb
 create mode 100644 modules/payloads/singles/cmd/unix/reverse.rb
 create mode 100644 modules/encoders/x86/shikata.rb
 create mode 100644 lib/msf/core/thing.rb
 create mode 100644 documentation/modules/exploit/windows/smb/ms17_010_eternalblue.md
 create mode 100755 modules/post/linux/gather/creds.rb` + "\r\n"

func TestNewModules(t *testing.T) {
	tests := map[string]struct {
		policy ExtractPolicy
		want   []string
	}{
		"default skips payloads and encoders": {
			policy: DefaultPolicy(),
			want: []string{
				"modules/exploits/windows/smb/ms17_010_eternalblue.rb",
				"modules/auxiliary/scanner/http/title.rb",
				"modules/post/linux/gather/creds.rb",
			},
		},
		"encoders included when toggled off": {
			policy: ExtractPolicy{SkipPayloads: true},
			want: []string{
				"modules/exploits/windows/smb/ms17_010_eternalblue.rb",
				"modules/auxiliary/scanner/http/title.rb",
				"modules/encoders/x86/shikata.rb",
				"modules/post/linux/gather/creds.rb",
			},
		},
		"nothing skipped": {
			policy: ExtractPolicy{},
			want: []string{
				"modules/exploits/windows/smb/ms17_010_eternalblue.rb",
				"modules/auxiliary/scanner/http/title.rb",
				"modules/payloads/singles/cmd/unix/reverse.rb",
				"modules/encoders/x86/shikata.rb",
				"modules/post/linux/gather/creds.rb",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewModules(sampleSummary, tt.policy))
		})
	}
}

type fakeDiff struct{}

func (fakeDiff) Names() []string { return []string{"a.rb", "modules/exploits/x.rb"} }
func (fakeDiff) Summary() string { return " create mode 100644 modules/exploits/x.rb\n" }
func (fakeDiff) Full() string    { return "diff --git a/x b/x\n" }

func TestWriteArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	a, err := WriteArtifacts(dir, fakeDiff{})
	require.NoError(t, err)

	names, err := os.ReadFile(a.Names)
	require.NoError(t, err)
	assert.Equal(t, "a.rb\nmodules/exploits/x.rb\n", string(names))

	summary, err := ReadSummary(a.Summary)
	require.NoError(t, err)
	assert.Equal(t, []string{"modules/exploits/x.rb"}, NewModules(summary, DefaultPolicy()))

	full, err := os.ReadFile(a.Diff)
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/x b/x\n", string(full))
}

func TestReadSummary_Missing(t *testing.T) {
	_, err := ReadSummary(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading summary")
}
