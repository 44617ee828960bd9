// Package slug derives stable identifiers from display names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Letters without a canonical decomposition into a base letter.
var undecomposed = strings.NewReplacer(
	"ı", "i", "ß", "ss", "æ", "ae", "ø", "o", "ł", "l", "đ", "d", "œ", "oe",
)

// Generate lowercases name, strips diacritics and joins the remaining runs
// of letters and digits with single hyphens.
//
// Examples:
//   - "Kadın Giyim" → "kadin-giyim"
//   - "Crème Brûlée" → "creme-brulee"
//   - "Shoes / Running" → "shoes-running"
func Generate(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(name))
	if err != nil {
		folded = name
	}
	s := undecomposed.Replace(strings.ToLower(folded))
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Path slugs every segment and joins them with "/".
func Path(segments ...string) string {
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if s := Generate(seg); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}
