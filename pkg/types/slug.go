package types

import (
	"regexp"
	"strings"
)

var (
	slugStrip  = regexp.MustCompile(`[^\w\s-]+`)
	slugSpaces = regexp.MustCompile(`\s+`)
)

// Slugify derives a URL slug from a display name: lower-cased, characters
// other than word characters, whitespace and hyphens removed, and each
// internal run of whitespace replaced by a single hyphen.
//
// Slugify is idempotent: Slugify(Slugify(s)) == Slugify(s).
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = slugStrip.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return slugSpaces.ReplaceAllString(s, "-")
}
