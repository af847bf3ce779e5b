package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics decomposes s and drops combining marks.
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, _ := transform.String(t, s)
	return out
}

// CompareKey lowercases and strips diacritics. Comparison only, never display.
func CompareKey(s string) string {
	return StripDiacritics(strings.ToLower(s))
}

// Fingerprint hashes the ASCII-folded, lowercased parts. Used to correlate
// log lines of the same address; "Zürich" and "Zurich" share a fingerprint.
func Fingerprint(parts ...string) string {
	folded := make([]string, len(parts))
	for i, p := range parts {
		folded[i] = strings.Join(strings.Fields(strings.ToLower(unidecode.Unidecode(p))), " ")
	}
	sum := sha256.Sum256([]byte(strings.Join(folded, "|")))
	return hex.EncodeToString(sum[:8])
}
