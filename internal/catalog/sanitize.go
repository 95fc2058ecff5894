package catalog

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxFilenameLen caps sanitized names well below common filesystem limits.
const maxFilenameLen = 200

// illegalChars are characters not allowed in filenames on common filesystems,
// plus ASCII control characters.
var illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// whitespaceRuns matches runs of consecutive whitespace.
var whitespaceRuns = regexp.MustCompile(`\s+`)

// leadingDots matches dots at the start of a name.
var leadingDots = regexp.MustCompile(`^\.+`)

// SanitizeFilename transforms an arbitrary title into a name that is safe to
// use as a filename inside the catalog. Illegal and control characters are
// stripped, whitespace runs collapse to a single space, leading dots are
// removed and the result is capped at 200 characters. An input that
// sanitizes to nothing falls back to "download".
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)
	name = illegalChars.ReplaceAllString(name, "")
	name = whitespaceRuns.ReplaceAllString(name, " ")
	name = leadingDots.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	if runes := []rune(name); len(runes) > maxFilenameLen {
		name = string(runes[:maxFilenameLen])
	}

	if name == "" {
		return "download"
	}
	return name
}
