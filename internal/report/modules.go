package report

import (
	"bufio"
	"fmt"
	"io"

	"golang.org/x/net/html"

	"github.com/pbarry-r7/metasploit-stats/internal/modinfo"
)

// section is one bucket of a module report.
type section struct {
	title   string
	noun    string
	records []modinfo.Record
}

func sections(b modinfo.Buckets) []section {
	return []section{
		{title: "Exploit modules", noun: "exploit", records: b.Exploits},
		{title: "Auxiliary and post modules", noun: "other module", records: b.Others},
	}
}

// displayName falls back to the URL for modules the console could not describe.
func displayName(r modinfo.Record) string {
	if r.Name != "" {
		return r.Name
	}
	return r.URL
}

// WriteModulesHTML writes an HTML list per non-empty bucket.
func WriteModulesHTML(w io.Writer, b modinfo.Buckets) error {
	bw := bufio.NewWriter(w)
	for _, s := range sections(b) {
		if len(s.records) == 0 {
			continue
		}
		fmt.Fprintf(bw, "<p><em>%s</em></p>\n<ul>\n", s.title)
		for _, r := range s.records {
			fmt.Fprintf(bw, `<li><a href="%s">%s</a> by %s`,
				html.EscapeString(r.URL), html.EscapeString(displayName(r)), html.EscapeString(r.Authors))
			if r.HasReference() {
				fmt.Fprintf(bw, " exploits %s", html.EscapeString(r.Reference))
			}
			bw.WriteString("</li>\n")
		}
		bw.WriteString("</ul>\n<p></p>\n")
	}
	return bw.Flush()
}

// WriteDigest writes the module counts with one link per module.
func WriteDigest(w io.Writer, b modinfo.Buckets) error {
	bw := bufio.NewWriter(w)
	for _, s := range sections(b) {
		if len(s.records) == 0 {
			continue
		}
		fmt.Fprintf(bw, "* %d new %s\n", len(s.records), plural(s.noun, len(s.records)))
		for _, r := range s.records {
			fmt.Fprintf(bw, "  * [%s](%s)\n", displayName(r), r.URL)
		}
	}
	bw.WriteString("As always, you can update to the latest Metasploit Framework with a simple msfupdate and the full diff is available on GitHub: \n")
	return bw.Flush()
}

// WriteURLs writes one module URL per line, exploits first.
func WriteURLs(w io.Writer, b modinfo.Buckets) error {
	bw := bufio.NewWriter(w)
	for _, s := range sections(b) {
		for _, r := range s.records {
			fmt.Fprintln(bw, r.URL)
		}
	}
	return bw.Flush()
}

func plural(noun string, n int) string {
	if n == 1 {
		return noun
	}
	return noun + "s"
}
