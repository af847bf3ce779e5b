package normalizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var streetAbbreviations = compileAbbreviations(defaultRules.StreetAbbreviations)

func compileAbbreviations(table map[string]string) []boundedRule {
	keys := make([]string, 0, len(table))
	for k := range table {
		if !strings.Contains(k, ".") {
			continue
		}
		keys = append(keys, k)
	}
	longestFirst(keys)

	rules := make([]boundedRule, 0, len(keys))
	for _, k := range keys {
		// a trailing dot already ends the token
		rules = append(rules, newBoundedRule(k, table[k], !strings.HasSuffix(k, ".")))
	}
	return rules
}

func abbreviationBoundary(r rune) bool {
	return r == '.' || isWordRune(r)
}

// ExpandAbbreviations expands dotted street-type abbreviations that stand as
// their own token ("Av. de la Gare" -> "Avenue de la Gare"). A capitalised
// abbreviation yields a capitalised expansion.
func ExpandAbbreviations(street string) string {
	if street == "" {
		return street
	}
	result := street
	for _, rule := range streetAbbreviations {
		full := rule.replacement
		result = rule.apply(result, abbreviationBoundary, func(match string) string {
			if r, _ := utf8.DecodeRuneInString(match); unicode.IsUpper(r) {
				return Capitalize(full)
			}
			return full
		})
	}
	return result
}
