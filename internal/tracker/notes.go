package tracker

import (
	"regexp"
	"strings"
)

// Sentinels used when a pull request carries no data.
const (
	NoMilestone = "No milestone"
	NotWritten  = "Not written."
)

var releaseNotesHeading = regexp.MustCompile(`(?is)\A\s*#{1,3}[ \t]*Release Notes(.*)\z`)

// ReleaseNotes returns the text following the "Release Notes" heading of the
// first comment that starts with one (level 1 to 3, any case).
func ReleaseNotes(comments []string) (string, bool) {
	for _, body := range comments {
		if m := releaseNotesHeading.FindStringSubmatch(body); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}
