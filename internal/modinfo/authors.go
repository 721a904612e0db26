package modinfo

import (
	"sort"
	"strings"
)

// NoAuthors is rendered when a module lists nobody.
const NoAuthors = "NOBODY"

// promotion is one known alias moved to the front of an author list.
// canonical, when set, replaces the alias.
type promotion struct {
	alias     string
	canonical string
}

// promotions are applied in order, each one moving its name to the front, so
// the last promoted name found ends up first.
var promotions = []promotion{
	{alias: "todb"},
	{alias: "hdm"},
	{alias: "egyp7"},
	{alias: "egypt", canonical: "egyp7"},
	{alias: "juan vazquez"},
	{alias: "juan", canonical: "juan vazquez"},
	{alias: "sinn3r"},
	{alias: "wvu"},
	{alias: "joev"},
}

// CleanAuthor drops contact details after the first '<' and trims the rest.
func CleanAuthor(line string) string {
	if i := strings.IndexByte(line, '<'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// OrderAuthors sorts names, promotes the known aliases and removes duplicates.
func OrderAuthors(raw []string) []string {
	names := make([]string, 0, len(raw))
	for _, r := range raw {
		if name := CleanAuthor(r); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, p := range promotions {
		if !contains(names, p.alias) {
			continue
		}
		front := p.alias
		if p.canonical != "" {
			front = p.canonical
		}
		names = append([]string{front}, without(names, p.alias)...)
	}

	return dedupe(names)
}

// ReduceAuthors renders an author list for a report line:
// "NOBODY", "a", "a and b" or "a, b, and c".
func ReduceAuthors(raw []string) string {
	names := OrderAuthors(raw)
	switch len(names) {
	case 0:
		return NoAuthors
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func without(names []string, name string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
