package normalizer

import (
	"regexp"
	"strings"
)

// NumberPosition where the house number was found in the raw street.
type NumberPosition int

const (
	NumberNone NumberPosition = iota
	NumberLeading
	NumberTrailing
	NumberGlued
)

const houseNumberPattern = `\d+[a-zA-Z]?(?:[/-]\d+[a-zA-Z]?)?`

var (
	commaPattern          = regexp.MustCompile(`,\s*`)
	leadingNumberPattern  = regexp.MustCompile(`^(` + houseNumberPattern + `)\s+(.+)$`)
	trailingNumberPattern = regexp.MustCompile(`^(.*?)[\s,\-]+(` + houseNumberPattern + `)$`)
	gluedNumberPattern    = regexp.MustCompile(`^(.*?)(` + houseNumberPattern + `)$`)
	swissPostcodePattern  = regexp.MustCompile(`^\d{4}$`)
)

// StreetParts kết quả tách tên đường và số nhà
type StreetParts struct {
	Name            string
	Number          string
	Position        NumberPosition
	Collapsed       string // street after comma collapse
	CommasCollapsed bool
}

// CollapseCommas replaces each comma and the whitespace after it with one space.
func CollapseCommas(s string) string {
	return commaPattern.ReplaceAllString(s, " ")
}

// ParseStreet splits a raw street into name and house number. Rules are tried
// in order: leading number ("94 Pfingstweidstrasse"), trailing number after a
// space/comma/dash ("Hauptstrasse 43"), glued number ("Hauptstrasse43").
func ParseStreet(raw string) StreetParts {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StreetParts{}
	}

	// a trailing comma leaves a trailing space behind
	collapsed := CollapseCommas(trimmed)
	parts := StreetParts{
		CommasCollapsed: collapsed != trimmed,
	}
	collapsed = strings.TrimSpace(collapsed)
	parts.Collapsed = collapsed

	if m := leadingNumberPattern.FindStringSubmatch(collapsed); m != nil {
		parts.Name = strings.TrimSpace(m[2])
		parts.Number = strings.TrimSpace(m[1])
		parts.Position = NumberLeading
		return parts
	}
	if m := trailingNumberPattern.FindStringSubmatch(collapsed); m != nil {
		parts.Name = strings.TrimSpace(m[1])
		parts.Number = strings.TrimSpace(m[2])
		parts.Position = NumberTrailing
		return parts
	}
	if m := gluedNumberPattern.FindStringSubmatch(collapsed); m != nil && m[1] != "" {
		parts.Name = strings.TrimSpace(m[1])
		parts.Number = strings.TrimSpace(m[2])
		parts.Position = NumberGlued
		return parts
	}

	parts.Name = collapsed
	return parts
}

// SplitStreet returns (name, number); number is empty when no rule matched.
func SplitStreet(raw string) (string, string) {
	p := ParseStreet(raw)
	return p.Name, p.Number
}

// JoinStreet is the display form "{name} {number}".
func JoinStreet(name, number string) string {
	return strings.TrimSpace(name + " " + number)
}

// IsSwissPostcode reports a 4-digit postcode.
func IsSwissPostcode(s string) bool {
	return swissPostcodePattern.MatchString(strings.TrimSpace(s))
}
