package normalizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// boundedRule is a case-insensitive literal that only matches when the
// characters around it satisfy the boundary checks.
type boundedRule struct {
	literal     string
	replacement string
	pattern     *regexp.Regexp
	checkAfter  bool
}

func newBoundedRule(literal, replacement string, checkAfter bool) boundedRule {
	return boundedRule{
		literal:     literal,
		replacement: replacement,
		pattern:     regexp.MustCompile(`(?i)` + regexp.QuoteMeta(literal)),
		checkAfter:  checkAfter,
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// apply replaces every bounded occurrence. replace receives the matched text.
func (br boundedRule) apply(s string, badBefore func(rune) bool, replace func(match string) string) string {
	locs := br.pattern.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if start > 0 {
			if r, _ := utf8.DecodeLastRuneInString(s[:start]); badBefore(r) {
				continue
			}
		}
		if br.checkAfter && end < len(s) {
			if r, _ := utf8.DecodeRuneInString(s[end:]); isWordRune(r) {
				continue
			}
		}
		b.WriteString(s[last:start])
		b.WriteString(replace(s[start:end]))
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}
