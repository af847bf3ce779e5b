package normalizer

import "strings"

// Similarity is the bag-of-characters overlap of the comparison keys of a and
// b, divided by the longer space-stripped key. Symmetric, in [0,1], 0 when
// either key is empty. Not an edit distance.
func Similarity(a, b string) float64 {
	ka := strings.ReplaceAll(CompareKey(a), " ", "")
	kb := strings.ReplaceAll(CompareKey(b), " ", "")
	if ka == "" || kb == "" {
		return 0
	}

	fa := charFrequency(ka)
	fb := charFrequency(kb)

	overlap := 0
	for r, ca := range fa {
		if cb := fb[r]; cb < ca {
			overlap += cb
		} else {
			overlap += ca
		}
	}

	la, lb := len([]rune(ka)), len([]rune(kb))
	longest := la
	if lb > longest {
		longest = lb
	}
	return float64(overlap) / float64(longest)
}

func charFrequency(s string) map[rune]int {
	freq := make(map[rune]int, len(s))
	for _, r := range s {
		freq[r]++
	}
	return freq
}
