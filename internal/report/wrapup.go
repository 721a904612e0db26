package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pbarry-r7/metasploit-stats/internal/changes"
	"github.com/pbarry-r7/metasploit-stats/internal/modinfo"
)

const getIt = `
# Get it

As always, you can update to the latest Metasploit Framework with ` + "`msfupdate`" + `
and you can get more details on the changes since the last blog post from
GitHub:

  * [Pull Requests %[1]s...%[2]s][prs-landed]
  * [Full diff %[1]s...%[2]s][diff]

To install fresh, check out the open-source-only [Nightly
Installers][nightly], or the [binary installers][binary] which also include
the commercial editions.

[binary]: https://www.rapid7.com/products/metasploit/download.jsp
[diff]: %[3]s
[prs-landed]: %[4]s
[nightly]: https://github.com/%[5]s/wiki/Nightly-Installers

`

// WriteWrapup writes the Markdown "New Modules" section for a release
// followed by the update instructions for the range.
func WriteWrapup(w io.Writer, project Project, b modinfo.Buckets, r changes.Range) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("# New Modules\n\n")
	for _, s := range sections(b) {
		if len(s.records) == 0 {
			continue
		}
		fmt.Fprintf(bw, "*%s* *(%d new)*\n", s.title, len(s.records))
		for _, rec := range s.records {
			fmt.Fprintf(bw, "  * [%s](%s) by %s", displayName(rec), rec.URL, rec.Authors)
			if rec.HasReference() {
				fmt.Fprintf(bw, " exploits %s", rec.Reference)
			}
			bw.WriteString("\n")
		}
	}

	fmt.Fprintf(bw, getIt,
		r.Prev, r.Release,
		project.CompareURL(r.Prev, r.Release),
		project.MergedPullsURL(r.PrevDate, r.ReleaseDate),
		project.Slug())
	return bw.Flush()
}
