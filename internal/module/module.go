// Package module maps metasploit-framework module paths to the names msfconsole
// understands and the public module database URLs used in reports.
package module

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// DefaultBaseURL is the public module database every report links into.
const DefaultBaseURL = "https://www.rapid7.com/db/modules/"

// ErrUnknownKind is returned for paths outside the known module categories.
var ErrUnknownKind = errors.New("path is not in a known module category")

// Kind is the category of a module.
type Kind int

// Kinds are checked in declaration order against the directory segments of a
// path, so a path is an exploit before it is anything else.
const (
	Unknown Kind = iota
	Exploit
	Auxiliary
	Post
	Encoder
	Nop
)

type category struct {
	kind Kind
	name string
	dir  string
}

var categories = []category{
	{kind: Exploit, name: "exploit", dir: "exploits"},
	{kind: Auxiliary, name: "auxiliary", dir: "auxiliary"},
	{kind: Post, name: "post", dir: "post"},
	{kind: Encoder, name: "encoder", dir: "encoders"},
	{kind: Nop, name: "nop", dir: "nops"},
}

func (k Kind) String() string {
	for _, c := range categories {
		if c.kind == k {
			return c.name
		}
	}
	return "unknown"
}

// Ref identifies one module.
type Ref struct {
	Kind Kind
	// Name is what msfconsole's info command takes, e.g. exploit/windows/smb/ms08_067_netapi.
	Name string
	URL  string
	// Path is the repository path the ref was derived from.
	Path string
}

// Classifier derives refs against a base URL.
type Classifier struct {
	BaseURL string
}

// NewClassifier returns a classifier for baseURL, or DefaultBaseURL when empty.
// A missing trailing slash is added.
func NewClassifier(baseURL string) *Classifier {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Classifier{BaseURL: baseURL}
}

// Classify derives the ref for a module path such as
// modules/exploits/windows/smb/ms08_067_netapi.rb. The result depends only on
// the path and the base URL.
func (c *Classifier) Classify(modulePath string) (Ref, error) {
	p := strings.TrimPrefix(path.Clean(strings.ReplaceAll(modulePath, "\\", "/")), "./")
	segments := strings.Split(p, "/")

	for _, cat := range categories {
		i := categoryIndex(segments, cat.dir)
		if i < 0 {
			continue
		}
		rest := strings.TrimSuffix(strings.Join(segments[i+1:], "/"), ".rb")
		if rest == "" {
			continue
		}

		name := cat.name + "/" + rest
		return Ref{
			Kind: cat.kind,
			Name: name,
			URL:  c.BaseURL + name,
			Path: modulePath,
		}, nil
	}

	return Ref{}, fmt.Errorf("%w: %s", ErrUnknownKind, modulePath)
}

// categoryIndex finds dir as a whole directory segment with something below it.
func categoryIndex(segments []string, dir string) int {
	for i, seg := range segments[:len(segments)-1] {
		if seg == dir {
			return i
		}
	}
	return -1
}

// ClassifyAll classifies every path, skipping the ones in unknown categories.
// The skipped paths are returned so callers can report them.
func (c *Classifier) ClassifyAll(paths []string) (refs []Ref, skipped []string) {
	for _, p := range paths {
		ref, err := c.Classify(p)
		if err != nil {
			skipped = append(skipped, p)
			continue
		}
		refs = append(refs, ref)
	}
	return refs, skipped
}

var defaultClassifier = NewClassifier(DefaultBaseURL)

// Classify classifies against DefaultBaseURL.
func Classify(modulePath string) (Ref, error) {
	return defaultClassifier.Classify(modulePath)
}

// KindFromURL recovers the kind from a module URL or name: the first path
// segment naming a kind decides.
func KindFromURL(url string) Kind {
	for _, seg := range strings.Split(url, "/") {
		for _, cat := range categories {
			if seg == cat.name {
				return cat.kind
			}
		}
	}
	return Unknown
}

// IsExploit reports whether a module URL belongs in the exploit bucket.
func IsExploit(url string) bool {
	return KindFromURL(url) == Exploit
}
