package resolution

import "strings"

// Similarity blends token-set and edit-distance scores half and half.
// Token overlap catches word reordering and dropped words, the edit
// component catches in-word typos; neither alone separates food-vendor
// names reliably. Inputs are expected to be Normalize output.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return 0.5*TokenSetSimilarity(a, b) + 0.5*EditSimilarity(a, b)
}

// TokenSetSimilarity is the Jaccard index over the distinct tokens of the
// two strings. Repeated tokens count once.
func TokenSetSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection

	return float64(intersection) / float64(union)
}

// EditSimilarity is the Damerau-Levenshtein distance normalized to [0, 1]
// by the longer string's rune length.
func EditSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1.0
	}

	return 1.0 - float64(damerauLevenshtein(a, b))/float64(longest)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// damerauLevenshtein counts insertions, deletions, substitutions and
// adjacent transpositions needed to turn a into b.
func damerauLevenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	lenA := len(ra)
	lenB := len(rb)

	if lenA == 0 {
		return lenB
	}
	if lenB == 0 {
		return lenA
	}

	matrix := make([][]int, lenA+1)
	for i := range matrix {
		matrix[i] = make([]int, lenB+1)
		matrix[i][0] = i
	}
	for j := 0; j <= lenB; j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= lenA; i++ {
		for j := 1; j <= lenB; j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)

			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				matrix[i][j] = min(matrix[i][j], matrix[i-2][j-2]+cost) // transposition
			}
		}
	}

	return matrix[lenA][lenB]
}
