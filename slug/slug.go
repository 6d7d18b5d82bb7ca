// Package slug turns folder names into unique, hierarchical URL paths.
package slug

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var symbols = map[rune]string{
	'&': "and",
	'$': "dollar",
	'%': "percent",
	'<': "less",
	'>': "greater",
	'|': "or",
	'€': "euro",
	'£': "pound",
	'¥': "yen",
	'©': "c",
	'®': "r",
}

// Normalize lowercases name and reduces it to ASCII letters and digits
// joined by single hyphens. Accents are folded, a few symbols are spelled
// out, other scripts are transliterated and everything else is dropped.
// The result may be empty.
func Normalize(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range unidecode.Unidecode(spellSymbols(folded)) {
		switch {
		case r == '-' || unicode.IsSpace(r):
			b.WriteByte(' ')
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		}
	}

	return strings.ToLower(strings.Join(strings.Fields(b.String()), "-"))
}

func spellSymbols(s string) string {
	var b strings.Builder
	for _, r := range s {
		if word, ok := symbols[r]; ok {
			b.WriteString(word)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Unique returns candidate, or candidate with the smallest "-N" suffix that
// is not in existing.
func Unique(candidate string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s] = struct{}{}
	}

	unique := candidate
	for n := 1; ; n++ {
		if _, ok := taken[unique]; !ok {
			return unique
		}
		unique = candidate + "-" + strconv.Itoa(n)
	}
}

// Resolve computes the slug of a new folder called name created while
// viewing currentPath. Uniqueness is checked against every existing slug,
// not only the siblings. Nested slugs are the plain concatenation of
// currentPath and the unique top-level slug.
func Resolve(name string, existing []string, currentPath string) string {
	unique := Unique("/"+Normalize(name), existing)
	if strings.HasSuffix(currentPath, "/") {
		return unique
	}
	return currentPath + unique
}

// Parent returns the slug with its last segment removed, "/" for top-level
// slugs.
func Parent(s string) string {
	i := strings.LastIndex(s, "/")
	if i <= 0 {
		return "/"
	}
	return s[:i]
}

// Depth counts the "/"-delimited segments after the root. The degenerate
// slug "/" has one empty segment.
func Depth(s string) int {
	return strings.Count(s, "/")
}
