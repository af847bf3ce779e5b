package pipeline

import (
	"strings"

	"github.com/address-validator/internal/normalizer"
	"github.com/address-validator/internal/swisspost"
)

// MatchStrategy tầng matching đã chọn ứng viên
type MatchStrategy string

const (
	MatchNone       MatchStrategy = ""
	MatchSingle     MatchStrategy = "single_entry"
	MatchExact      MatchStrategy = "exact"
	MatchPrefix     MatchStrategy = "prefix"
	MatchContains   MatchStrategy = "contains"
	MatchSimilarity MatchStrategy = "similarity"
)

// Similarity gates of the two city passes. They differ on purpose; do not merge.
const (
	PrimaryCityThreshold  = 0.3
	EnhancedCityThreshold = 0.2
)

// CityCandidates flattens zip entries into city18/city27 names, entry order
// first, city18 before city27. Empty names are skipped.
func CityCandidates(zips []swisspost.ZipCity) []string {
	candidates := make([]string, 0, len(zips)*2)
	for _, z := range zips {
		candidates = append(candidates, z.Names()...)
	}
	return candidates
}

// MatchCity runs the cascade exact -> prefix -> contains -> similarity over
// candidates. Comparisons are case-insensitive. A lower tier is only reached
// when no candidate satisfies a higher one; the similarity tier keeps the
// first candidate with the highest score strictly above threshold.
func MatchCity(input string, candidates []string, threshold float64) (string, MatchStrategy) {
	needle := strings.ToLower(strings.TrimSpace(input))
	if needle == "" || len(candidates) == 0 {
		return "", MatchNone
	}

	for _, c := range candidates {
		if strings.ToLower(c) == needle {
			return c, MatchExact
		}
	}
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), needle) {
			return c, MatchPrefix
		}
	}
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), needle) {
			return c, MatchContains
		}
	}

	best, bestScore := "", 0.0
	for _, c := range candidates {
		score := normalizer.Similarity(input, c)
		if score > bestScore && score > threshold {
			best, bestScore = c, score
		}
	}
	if best == "" {
		return "", MatchNone
	}
	return best, MatchSimilarity
}

// BestBySimilarity picks the candidate with the highest similarity to input,
// no cascade and no threshold. Ties keep the earlier candidate; a best score
// of 0 yields nothing.
func BestBySimilarity(input string, candidates []string) (string, bool) {
	best, bestScore := "", 0.0
	for _, c := range candidates {
		if score := normalizer.Similarity(input, c); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, best != ""
}
