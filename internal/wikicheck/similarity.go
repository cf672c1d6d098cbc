package wikicheck

import "strings"

// Verdict thresholds applied to the blended similarity score.
const (
	// supportedThreshold is the similarity above which a claim counts as
	// SUPPORTED by the matched page.
	supportedThreshold = 0.3

	// neutralThreshold is the similarity above which a claim counts as
	// NEUTRAL. Below it, a matched page gives the claim so little
	// support that the verdict is REFUTED.
	neutralThreshold = 0.15
)

// Similarity scores how well wiki page content matches a claim, in
// [0, 1]. It blends character-level similarity with named-entity overlap
// (weighted toward entities, which matter more than phrasing), then
// takes a word-overlap floor so paraphrased claims still score.
func Similarity(claim, content string) float64 {
	score := bigramSimilarity(strings.ToLower(claim), strings.ToLower(content))

	claimEntities := toSet(ExtractEntities(claim))
	contentEntities := toSet(ExtractEntities(content))
	if len(claimEntities) > 0 && len(contentEntities) > 0 {
		score = score*0.3 + jaccard(claimEntities, contentEntities)*0.7
	}

	claimWords := toSet(strings.Fields(strings.ToLower(claim)))
	contentWords := toSet(strings.Fields(strings.ToLower(content)))
	var wordOverlap float64
	if len(claimWords) > 0 {
		var hits int
		for w := range claimWords {
			if contentWords[w] {
				hits++
			}
		}
		wordOverlap = float64(hits) / float64(len(claimWords))
	}

	if floor := wordOverlap * 0.5; floor > score {
		score = floor
	}
	if score > 1 {
		score = 1
	}
	return score
}

// bigramSimilarity is the Dice coefficient over character bigrams. It
// approximates sequence similarity without quadratic matching cost on
// page-sized content.
func bigramSimilarity(a, b string) float64 {
	aBigrams := bigrams(a)
	bBigrams := bigrams(b)
	if len(aBigrams) == 0 || len(bBigrams) == 0 {
		return 0
	}

	var common int
	for bg, count := range aBigrams {
		if other := bBigrams[bg]; other > 0 {
			if other < count {
				common += other
			} else {
				common += count
			}
		}
	}

	var aTotal, bTotal int
	for _, c := range aBigrams {
		aTotal += c
	}
	for _, c := range bBigrams {
		bTotal += c
	}
	return 2 * float64(common) / float64(aTotal+bTotal)
}

// bigrams counts the character bigrams of s.
func bigrams(s string) map[string]int {
	runes := []rune(s)
	counts := make(map[string]int, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		counts[string(runes[i:i+2])]++
	}
	return counts
}

// jaccard is intersection over union of two sets, case-insensitive keys
// assumed normalized by the caller.
func jaccard(a, b map[string]bool) float64 {
	var intersection int
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// toSet builds a lowercase membership set from a slice.
func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}
