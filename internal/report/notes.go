package report

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pbarry-r7/metasploit-stats/internal/tracker"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	paragraphTags = regexp.MustCompile(`</*p>`)
)

// NotesFileName is release_notes_<start>.html, or
// release_notes_<start>_<end>.html when an end marker was given.
func NotesFileName(start, end string) string {
	name := "release_notes_" + start
	if end != "" {
		name += "_" + end
	}
	return name + ".html"
}

// NoteLine is the one-line terminal summary of a note.
func NoteLine(n tracker.Note) string {
	line := fmt.Sprintf("PR #%d (%s) - %s", n.Number, n.Milestone, n.Notes)
	return strings.ReplaceAll(line, "\r\n", " ")
}

// RenderNotes converts a Markdown notes body into markup for a table cell:
// paragraph tags are dropped and newlines become <br>.
func RenderNotes(body string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	out := paragraphTags.ReplaceAllString(buf.String(), "")
	out = strings.TrimRight(out, "\n")
	return strings.ReplaceAll(out, "\n", "<br>"), nil
}

// WriteNotesHTML writes the release notes table, one row per note in order.
func WriteNotesHTML(w io.Writer, project Project, notes []tracker.Note) error {
	table := element(atom.Table, attr("border", "0px"))

	for _, n := range notes {
		comment, err := RenderNotes(n.Notes)
		if err != nil {
			return fmt.Errorf("PR #%d: %w", n.Number, err)
		}

		link := element(atom.A, attr("href", project.PullURL(n.Number)))
		link.AppendChild(text(fmt.Sprintf("#%d", n.Number)))

		pr := element(atom.Td, attr("valign", "top"), attr("nowrap", ""))
		pr.AppendChild(element(atom.Li))
		pr.AppendChild(text("PR "))
		pr.AppendChild(link)

		sep := element(atom.Td, attr("valign", "top"))
		sep.AppendChild(text("-"))

		cell := element(atom.Td)
		cell.AppendChild(&html.Node{Type: html.RawNode, Data: comment})

		row := element(atom.Tr)
		row.AppendChild(pr)
		row.AppendChild(sep)
		row.AppendChild(cell)
		table.AppendChild(row)
	}

	body := element(atom.Body)
	body.AppendChild(table)
	root := element(atom.Html)
	root.AppendChild(body)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(root)

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("rendering release notes: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
