// Package report renders release notes and new-module write-ups.
//
// Release notes are an HTML table of landed pull requests with their
// author-written notes rendered from Markdown. Module reports come as an HTML
// list, a short digest, a Markdown wrap-up with the usual "Get it" footer, or
// bare URLs. Output depends only on the input, so re-rendering the same data
// gives the same bytes.
package report

import (
	"fmt"
	"time"
)

// Project names the GitHub repository links point into.
type Project struct {
	Owner string
	Repo  string
}

// DefaultProject is metasploit-framework.
var DefaultProject = Project{Owner: "rapid7", Repo: "metasploit-framework"}

// Slug is owner/repo.
func (p Project) Slug() string {
	return p.Owner + "/" + p.Repo
}

// PullURL links a pull request.
func (p Project) PullURL(number int) string {
	return fmt.Sprintf("https://github.com/%s/pull/%d", p.Slug(), number)
}

// CompareURL links the full diff between two markers.
func (p Project) CompareURL(prev, release string) string {
	return fmt.Sprintf("https://github.com/%s/compare/%s...%s", p.Slug(), prev, release)
}

// MergedPullsURL links the pull requests merged between two dates.
func (p Project) MergedPullsURL(from, to time.Time) string {
	return fmt.Sprintf(`https://github.com/%s/pulls?q=is:pr+merged:"%s+..+%s"`,
		p.Slug(), from.Format(time.RFC3339), to.Format(time.RFC3339))
}
