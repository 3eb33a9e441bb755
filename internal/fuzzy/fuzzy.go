// Package fuzzy scores string similarity for title matching and
// typo-tolerant keyword detection.
//
// Similarity is the matching-blocks ratio: recursively find the longest
// common block, score the regions to either side, and divide twice the
// total matched length by the combined length of both strings. Identical
// strings score 1.0 and the measure is symmetric.
package fuzzy

import (
	"strings"

	"github.com/voltgrid/supportbot/internal/textutil"
)

// DefaultTitleThreshold is the combined-score floor for fault title matching.
const DefaultTitleThreshold = 0.6

// KeywordThreshold is the per-word similarity floor for typo-tolerant
// keyword matching.
const KeywordThreshold = 0.70

// Similarity returns the matching-blocks ratio of a and b in [0.0, 1.0].
func Similarity(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	total := len(ar) + len(br)
	if total == 0 {
		return 1.0
	}
	matched := matchingSize(ar, br, 0, len(ar), 0, len(br))
	return 2.0 * float64(matched) / float64(total)
}

// matchingSize sums the lengths of all matching blocks between
// a[alo:ahi] and b[blo:bhi].
func matchingSize(a, b []rune, alo, ahi, blo, bhi int) int {
	i, j, size := longestMatch(a, b, alo, ahi, blo, bhi)
	if size == 0 {
		return 0
	}
	return size +
		matchingSize(a, b, alo, i, blo, j) +
		matchingSize(a, b, i+size, ahi, j+size, bhi)
}

// longestMatch finds the longest block of runes common to a[alo:ahi] and
// b[blo:bhi], preferring the earliest occurrence in a, then in b.
func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (besti, bestj, size int) {
	besti, bestj = alo, blo
	runLengths := make(map[int]int)
	for i := alo; i < ahi; i++ {
		next := make(map[int]int)
		for j := blo; j < bhi; j++ {
			if a[i] != b[j] {
				continue
			}
			k := runLengths[j-1] + 1
			next[j] = k
			if k > size {
				besti, bestj, size = i-k+1, j-k+1, k
			}
		}
		runLengths = next
	}
	return besti, bestj, size
}

// BestTitleMatch scans candidate titles in order and returns the one with
// the highest combined score, or "" if no candidate reaches threshold.
//
// The combined score blends normalized string similarity (weight 0.6) with
// the fraction of query words present in the candidate (weight 0.4). The
// first candidate reaching the maximum wins ties, so scan order is the
// tie-break.
func BestTitleMatch(query string, titles []string, threshold float64) string {
	if query == "" || len(titles) == 0 {
		return ""
	}

	queryNorm := textutil.Normalize(query)
	queryWords := uniqueWords(queryNorm)

	best := ""
	bestScore := 0.0
	for _, title := range titles {
		titleNorm := textutil.Normalize(title)
		ratio := Similarity(queryNorm, titleNorm)

		overlap := 0.0
		if len(queryWords) > 0 {
			titleWords := make(map[string]struct{})
			for _, w := range strings.Fields(titleNorm) {
				titleWords[w] = struct{}{}
			}
			shared := 0
			for _, w := range queryWords {
				if _, ok := titleWords[w]; ok {
					shared++
				}
			}
			overlap = float64(shared) / float64(len(queryWords))
		}

		score := ratio*0.6 + overlap*0.4
		if score > bestScore && score >= threshold {
			bestScore = score
			best = title
		}
	}

	return best
}

// uniqueWords splits normalized text into its distinct words, keeping
// first-occurrence order.
func uniqueWords(text string) []string {
	seen := make(map[string]struct{})
	var words []string
	for _, w := range strings.Fields(text) {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}

// MatchesAnyKeyword reports whether any word of message fuzzy-matches any
// of the keywords at KeywordThreshold or above. The check short-circuits
// on the first qualifying pair.
func MatchesAnyKeyword(message string, keywords []string) bool {
	for _, word := range strings.Fields(textutil.Normalize(message)) {
		for _, kw := range keywords {
			if Similarity(word, kw) >= KeywordThreshold {
				return true
			}
		}
	}
	return false
}
