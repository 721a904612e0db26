// Package modinfo parses the transcript msfconsole prints while running a
// batch of info commands, one BEGIN/END delimited section per module.
//
// Parsing is a line-driven state machine. Its states and transitions live in
// a single table so the tolerated shapes of a transcript are visible at a
// glance: sections without an END are dropped, unknown lines are ignored, and
// missing Provided by / References sections fall back to sentinels.
package modinfo

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pbarry-r7/metasploit-stats/internal/module"
)

// Record is what one finished section says about a module.
type Record struct {
	URL       string
	Name      string
	Authors   string
	Reference string
}

// HasReference reports whether the record cites something worth printing.
func (r Record) HasReference() bool {
	return HasReference(r.Reference)
}

// Buckets groups records the way reports present them, each in transcript order.
type Buckets struct {
	Exploits []Record
	Others   []Record
}

// Len returns the total number of records.
func (b Buckets) Len() int {
	return len(b.Exploits) + len(b.Others)
}

// Get returns the record for url.
func (b Buckets) Get(url string) (Record, bool) {
	for _, list := range [][]Record{b.Exploits, b.Others} {
		for _, r := range list {
			if r.URL == url {
				return r, true
			}
		}
	}
	return Record{}, false
}

// add files r by kind. A second record for the same URL replaces the first in place.
func (b *Buckets) add(r Record) {
	list := &b.Others
	if module.IsExploit(r.URL) {
		list = &b.Exploits
	}
	for i := range *list {
		if (*list)[i].URL == r.URL {
			(*list)[i] = r
			return
		}
	}
	*list = append(*list, r)
}

type state int

const (
	stateIdle state = iota
	stateOpen
	stateAuthors
	stateReferences
)

type event int

const (
	eventText event = iota
	eventBlank
	eventBegin
	eventEnd
	eventName
	eventAuthorsHeader
	eventReferencesHeader
)

var (
	beginLine      = regexp.MustCompile(`^\s*BEGIN:\s*(\S+)\s*$`)
	endLine        = regexp.MustCompile(`^\s*END:\s*(\S+)\s*$`)
	nameLine       = regexp.MustCompile(`^\s*Name:\s*(.*?)\s*$`)
	authorsHeader  = regexp.MustCompile(`^\s*Provided by:\s*$`)
	referencesHead = regexp.MustCompile(`^\s*References:\s*$`)
)

type transition struct {
	next   state
	action func(p *parser, arg string)
}

// transitions lists every handled (state, event) pair. Pairs not listed leave
// the state unchanged and do nothing, so a BEGIN inside an open section is
// ignored and only its own END closes it.
var transitions = map[state]map[event]transition{
	stateIdle: {
		eventBegin: {stateOpen, (*parser).open},
	},
	stateOpen: {
		eventEnd:              {stateIdle, (*parser).finish},
		eventName:             {stateOpen, (*parser).setName},
		eventAuthorsHeader:    {stateAuthors, (*parser).startAuthors},
		eventReferencesHeader: {stateReferences, (*parser).startReferences},
	},
	stateAuthors: {
		eventText:             {stateAuthors, (*parser).addAuthor},
		eventName:             {stateAuthors, (*parser).addAuthor},
		eventBlank:            {stateOpen, (*parser).closeAuthors},
		eventEnd:              {stateIdle, (*parser).finish},
		eventAuthorsHeader:    {stateAuthors, (*parser).startAuthors},
		eventReferencesHeader: {stateReferences, (*parser).startReferences},
	},
	stateReferences: {
		eventText:             {stateReferences, (*parser).addReference},
		eventName:             {stateReferences, (*parser).addReference},
		eventBlank:            {stateOpen, (*parser).closeReferences},
		eventEnd:              {stateIdle, (*parser).finish},
		eventAuthorsHeader:    {stateAuthors, (*parser).startAuthors},
		eventReferencesHeader: {stateReferences, (*parser).startReferences},
	},
}

type parser struct {
	state   state
	current Record
	// nil when not collecting.
	authors    []string
	references []string
	sawAuthors bool
	buckets    Buckets
}

// Parse reads a console transcript and returns the finished records.
// Only read errors are returned; malformed sections are tolerated.
func Parse(r io.Reader) (Buckets, error) {
	p := &parser{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.feed(strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return Buckets{}, fmt.Errorf("reading transcript: %w", err)
	}

	return p.buckets, nil
}

func (p *parser) feed(line string) {
	ev, arg := p.classify(line)
	t, ok := transitions[p.state][ev]
	if !ok {
		return
	}
	if t.action != nil {
		t.action(p, arg)
	}
	p.state = t.next
}

func (p *parser) classify(line string) (event, string) {
	if m := beginLine.FindStringSubmatch(line); m != nil {
		return eventBegin, m[1]
	}
	if m := endLine.FindStringSubmatch(line); m != nil {
		// An END for some other section is just text.
		if p.state != stateIdle && m[1] == p.current.URL {
			return eventEnd, m[1]
		}
		return eventText, line
	}
	if authorsHeader.MatchString(line) {
		return eventAuthorsHeader, ""
	}
	if referencesHead.MatchString(line) {
		return eventReferencesHeader, ""
	}
	if strings.TrimSpace(line) == "" {
		return eventBlank, ""
	}
	if m := nameLine.FindStringSubmatch(line); m != nil {
		return eventName, m[1]
	}
	return eventText, line
}

func (p *parser) open(url string) {
	p.current = Record{URL: url}
	p.authors = nil
	p.references = nil
	p.sawAuthors = false
}

func (p *parser) setName(name string) {
	p.current.Name = name
}

func (p *parser) startAuthors(string) {
	p.closeReferences("")
	p.authors = []string{}
}

func (p *parser) addAuthor(line string) {
	p.authors = append(p.authors, CleanAuthor(line))
}

func (p *parser) closeAuthors(string) {
	if p.authors == nil {
		return
	}
	p.current.Authors = ReduceAuthors(p.authors)
	p.sawAuthors = true
	p.authors = nil
}

func (p *parser) startReferences(string) {
	p.closeAuthors("")
	p.references = []string{}
}

func (p *parser) addReference(line string) {
	p.references = append(p.references, strings.TrimSpace(line))
}

func (p *parser) closeReferences(string) {
	if p.references == nil {
		return
	}
	p.current.Reference = SelectReference(p.references)
	p.references = nil
}

func (p *parser) finish(string) {
	p.closeAuthors("")
	p.closeReferences("")
	if !p.sawAuthors {
		p.current.Authors = NoAuthors
	}
	p.buckets.add(p.current)
	p.current = Record{}
}
