package vibes

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/unicode/norm"
)

//
// ------------------------------------
// Name normalization
// ------------------------------------
//

func stripDiacritics(s string) string {
	t := norm.NFD.String(s)
	out := make([]rune, 0, len(t))
	for _, r := range t {
		if unicode.IsMark(r) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// NormalizeName produces the store key for an artist: lower-cased,
// diacritics stripped, inner whitespace collapsed. "  Motörhead " and
// "motorhead" normalize to the same key.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = stripDiacritics(s)
	s = strings.ReplaceAll(s, "&", " and ")
	return strings.Join(strings.Fields(s), " ")
}

// sameNameThreshold is the levenshtein similarity above which a search
// hit is accepted as the artist that was actually asked for.
const sameNameThreshold = 0.82

// SameName reports whether a source's canonical hit plausibly matches
// the requested name. Source search is fuzzy; "Megadeth" must not be
// accepted when "Megadeath Tribute Band" was the top hit.
func SameName(requested, hit string) bool {
	a := NormalizeName(requested)
	b := NormalizeName(hit)
	if a == b {
		return true
	}
	if strings.HasPrefix(b, a) || strings.HasPrefix(a, b) {
		return true
	}
	return levenshtein.Similarity(a, b, nil) >= sameNameThreshold
}
