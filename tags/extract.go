package tags

import (
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	hashtagPattern   = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
	slugStripPattern = regexp.MustCompile(`[^a-z0-9_\s-]`)
	slugDashPattern  = regexp.MustCompile(`[-\s]+`)
)

// ExtractHashtags returns the distinct lower-cased hashtags of text, sorted.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	result := make([]string, 0, len(matches))
	for _, match := range matches {
		name := strings.ToLower(match[1])
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Slugify folds name to an ASCII, URL-safe identifier. Names with nothing
// representable in ASCII produce an empty slug.
func Slugify(name string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
	folded, _, err := transform.String(t, name)
	if err != nil {
		return ""
	}
	folded = slugStripPattern.ReplaceAllString(strings.ToLower(folded), "")
	folded = slugDashPattern.ReplaceAllString(folded, "-")
	return strings.Trim(folded, "-_")
}
