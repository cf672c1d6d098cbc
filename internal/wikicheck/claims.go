package wikicheck

import (
	"sort"
	"strings"
	"unicode"
)

// maxClaimLength caps individual claim sentences. Longer sentences are
// truncated rather than dropped so their leading assertion still gets
// checked.
const maxClaimLength = 300

// minClaimLength is the shortest claim worth checking. Anything shorter
// carries no checkable assertion and is scored NEUTRAL without a search.
const minClaimLength = 10

// maxEntities caps the entities extracted from one text.
const maxEntities = 5

// reportingPrefixes are attribution phrases stripped from the front of a
// claim before checking. The phrase itself is not part of the assertion.
var reportingPrefixes = []string{
	"According to",
	"It is reported that",
	"Sources say",
	"It has been claimed that",
	"Some say",
	"Many believe",
}

// stopwords filters common words out of entity extraction.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"of": true, "for": true, "with": true, "by": true, "from": true,
	"it": true, "its": true, "this": true, "that": true, "these": true,
	"he": true, "she": true, "they": true, "we": true, "i": true,
	"is": true, "was": true, "are": true, "were": true, "be": true,
	"has": true, "have": true, "had": true, "will": true, "would": true,
	"after": true, "before": true, "during": true, "while": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// ExtractClaims pulls checkable claim sentences from the context text of
// each image. Sentences are capped at maxClaimLength, trimmed, and
// deduplicated; the returned order is stable.
func ExtractClaims(contexts []string) []string {
	seen := make(map[string]bool)
	var claims []string
	for _, context := range contexts {
		for _, sentence := range splitSentences(context) {
			if len(sentence) > maxClaimLength {
				sentence = sentence[:maxClaimLength]
			}
			sentence = strings.TrimSpace(sentence)
			if sentence == "" || seen[sentence] {
				continue
			}
			seen[sentence] = true
			claims = append(claims, sentence)
		}
	}
	sort.Strings(claims)
	return claims
}

// PreprocessClaim normalizes whitespace and strips a leading reporting
// prefix, leaving the bare assertion.
func PreprocessClaim(claim string) string {
	claim = strings.Join(strings.Fields(claim), " ")
	for _, prefix := range reportingPrefixes {
		if len(claim) >= len(prefix) && strings.EqualFold(claim[:len(prefix)], prefix) {
			claim = strings.TrimSpace(claim[len(prefix):])
			break
		}
	}
	return claim
}

// ExtractEntities returns likely named entities from the text: words
// starting with an uppercase letter that are not stopwords, capped at
// maxEntities.
func ExtractEntities(text string) []string {
	var entities []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(text) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word == "" {
			continue
		}
		runes := []rune(word)
		if !unicode.IsUpper(runes[0]) {
			continue
		}
		lower := strings.ToLower(word)
		if stopwords[lower] || seen[lower] {
			continue
		}
		seen[lower] = true
		entities = append(entities, word)
		if len(entities) == maxEntities {
			break
		}
	}
	return entities
}

// splitSentences breaks text into sentences at terminal punctuation.
func splitSentences(text string) []string {
	var sentences []string
	var sb strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		sb.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			// Sentence ends here unless the period is part of an
			// abbreviation or a number.
			if i+1 < len(runes) && runes[i+1] != ' ' {
				continue
			}
			if s := strings.TrimSpace(sb.String()); s != "" {
				sentences = append(sentences, s)
			}
			sb.Reset()
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
