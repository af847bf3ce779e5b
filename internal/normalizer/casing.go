package normalizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Capitalize upper-cases the first rune, only when it is lower case.
func Capitalize(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 || !unicode.IsLower(r) {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// TitleCase title-cases a person name ("jean-pierre" -> "Jean-Pierre").
// An apostrophe starts a new word: "o'brien" -> "O'Brien".
func TitleCase(name string) string {
	if name == "" {
		return ""
	}
	// Caser keeps state; not shared across calls. String resets it per segment.
	caser := cases.Title(language.Und)

	var b strings.Builder
	start := 0
	for i, r := range name {
		if r == '\'' || r == '\u2019' {
			b.WriteString(caser.String(name[start:i]))
			b.WriteRune(r)
			start = i + utf8.RuneLen(r)
		}
	}
	b.WriteString(caser.String(name[start:]))
	return b.String()
}
