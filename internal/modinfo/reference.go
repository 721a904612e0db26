package modinfo

import (
	"regexp"
	"strings"
)

// NoReference is the selection result when references were listed but none
// was recognised. The empty string means no References section was seen.
const NoReference = "XXX-NOREF"

// rank orders reference schemes. A candidate replaces the current best when
// its rank is at least the current one.
type rank int

const (
	rankUnset rank = iota
	rankNone
	rankBID
	rankOSVDB
	rankCVE
	rankZDI
	rankMS
)

type scheme struct {
	rank     rank
	patterns []*regexp.Regexp
	prefix   string
}

// schemes is checked in order; the first pattern that matches a line decides
// its scheme. The first capture group is the identifier.
var schemes = []scheme{
	{
		rank: rankMS,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`microsoft\.com.*bulletin[\\/](.*)\.msp`),
			regexp.MustCompile(`(?i)^(MS\d{2}-\d{3})$`),
		},
	},
	{
		rank: rankZDI,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`zerodayinitiative\.com[\\/]advisories[\\/]([^\\/]+)`),
			regexp.MustCompile(`(?i)^(ZDI-\d{2}-\d+)$`),
		},
	},
	{
		rank:   rankCVE,
		prefix: "CVE-",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`cve\.mitre.*name=(.*)`),
			regexp.MustCompile(`cvedetails\.com[\\/]cve[\\/]([^\\/]*)`),
			regexp.MustCompile(`nvd\.nist\.gov[\\/]vuln[\\/]detail[\\/]([^\\/]+)`),
			regexp.MustCompile(`(?i)^CVE[-:]\s*(\d{4}-\d+)$`),
		},
	},
	{
		rank:   rankOSVDB,
		prefix: "OSVDB-",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`osvdb\.org[\\/](\d+)`),
			regexp.MustCompile(`(?i)^OSVDB[-:]\s*(\d+)$`),
		},
	},
	{
		rank:   rankBID,
		prefix: "BID-",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`securityfocus\.com[\\/]bid[\\/](\d+)`),
			regexp.MustCompile(`(?i)^BID[-:]\s*(\d+)$`),
		},
	},
}

// classifyReference returns the rank and normalised value of one reference line.
func classifyReference(line string) (rank, string) {
	line = strings.TrimSpace(line)
	for _, s := range schemes {
		for _, re := range s.patterns {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			val := strings.TrimSpace(m[1])
			if s.prefix != "" && !strings.HasPrefix(strings.ToUpper(val), s.prefix) {
				val = s.prefix + val
			}
			return s.rank, val
		}
	}
	return rankNone, NoReference
}

// SelectReference picks the best reference from the lines of a References
// section: Microsoft bulletin, then ZDI advisory, then CVE, then OSVDB, then
// BID. Lines are scanned in order and a later candidate of equal rank wins.
// When nothing is recognised the result is NoReference.
func SelectReference(refs []string) string {
	best, bestRank := NoReference, rankUnset
	for _, ref := range refs {
		r, val := classifyReference(ref)
		if r < bestRank {
			continue
		}
		best, bestRank = val, r
	}
	return best
}

// HasReference reports whether a selected reference is worth printing.
func HasReference(ref string) bool {
	return ref != "" && ref != NoReference
}
