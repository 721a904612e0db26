// Package changes collects landed work between two release markers.
//
// It filters commit history down to the merge conventions used on
// metasploit-framework ("Land #N", "See #N", "Fix #N"), pulls pull request
// numbers out of Land messages, picks the release range for diff based
// workflows and extracts newly created modules from a diff summary.
package changes

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pbarry-r7/metasploit-stats/internal/git"
)

// DefaultLogLimit bounds history walks so an open-ended range always terminates.
const DefaultLogLimit = 9000

var (
	landPattern       = regexp.MustCompile(`(?im)^Land`)
	seePattern        = regexp.MustCompile(`(?im)^See #\d+`)
	fixPattern        = regexp.MustCompile(`(?im)^Fix #\d+`)
	landNumberPattern = regexp.MustCompile(`(?m)^Land.#(\d+)`)
	landSubject       = regexp.MustCompile(`(?im)^(Land.+)$`)
)

// History is the slice of the version control collaborator the collector needs.
type History interface {
	LogBetween(ctx context.Context, start, end string, limit int) ([]git.Commit, error)
}

// Landed returns the commits between start and end (empty end means the most
// recent commit) whose message follows one of the landing conventions.
// Unknown markers surface as git.ErrUnknownRevision.
func Landed(ctx context.Context, h History, start, end string) ([]git.Commit, error) {
	commits, err := h.LogBetween(ctx, start, end, DefaultLogLimit)
	if err != nil {
		return nil, err
	}
	return FilterLanded(commits), nil
}

// FilterLanded keeps commits whose message matches Land, See #N or Fix #N.
func FilterLanded(commits []git.Commit) []git.Commit {
	var landed []git.Commit
	for _, c := range commits {
		if IsLanded(c.Message) {
			landed = append(landed, c)
		}
	}
	return landed
}

// IsLanded reports whether a message follows a landing convention.
func IsLanded(message string) bool {
	return landPattern.MatchString(message) ||
		seePattern.MatchString(message) ||
		fixPattern.MatchString(message)
}

// LandedNumbers extracts pull request numbers from "Land #N" messages.
// See/Fix messages contribute nothing. The result is de-duplicated and
// sorted in descending order; zero and unparsable matches are dropped.
func LandedNumbers(commits []git.Commit) []int {
	seen := make(map[int]bool)
	var numbers []int

	for _, c := range commits {
		match := landNumberPattern.FindStringSubmatch(c.Message)
		if len(match) < 2 {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil || n == 0 || seen[n] {
			continue
		}
		seen[n] = true
		numbers = append(numbers, n)
	}

	sort.Sort(sort.Reverse(sort.IntSlice(numbers)))
	return numbers
}

// LandedSubjects returns the first "Land..." line of each commit that has one.
func LandedSubjects(commits []git.Commit) []string {
	var subjects []string
	for _, c := range commits {
		if match := landSubject.FindStringSubmatch(c.Message); len(match) == 2 {
			subjects = append(subjects, strings.TrimRight(match[1], "\r"))
		}
	}
	return subjects
}
