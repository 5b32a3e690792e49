package blog

import (
	"regexp"
	"strings"
)

const slugSeparator = "-"

var nonWordRun = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Slugify lower-cases text, collapses every run of non-word characters into a single
// hyphen and trims hyphens from both ends. The result may be empty when text has no
// word characters.
func Slugify(text string) string {
	lowered := strings.ToLower(text)
	collapsed := nonWordRun.ReplaceAllString(lowered, slugSeparator)
	return strings.Trim(collapsed, slugSeparator)
}
