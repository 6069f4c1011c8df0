// Package matching implements the medicine matching engine: text normalization, ingredient
// extraction, similarity scoring, catalog matching and the generic resolution pipeline.
// Everything in this package is pure computation over in-memory catalogs, except the
// resolver which pulls its catalogs from an injected CatalogSource.
package matching

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns, compiled once at package initialization
var (
	// Packaging words that carry no identity information for a medicine name
	packagingStopWords = []string{"ip", "tablet", "tablets", "capsule", "capsules", "oral", "solution", "injection", "syrup"}

	packagingStopWordsRegex = regexp.MustCompile(`(?i)\b(?:` + strings.Join(packagingStopWords, "|") + `)\b`)
	nonAlphanumericRegex    = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRegex         = regexp.MustCompile(`\s+`)
	ocrWordRegex            = regexp.MustCompile(`\b[a-zA-Z0-9-]+\b`)
)

// Recurrent OCR noise on medicine packages
var ocrNoiseWords = map[string]struct{}{
	"tablets": {}, "mg": {}, "p": {}, "i": {}, "a": {}, "es": {}, "seers": {},
	"cu": {}, "lh": {}, "ts": {}, "sol": {}, "r": {}, "sere": {},
}

// minTokenLength is the length a token must exceed to be kept by Tokenize
const minTokenLength = 3

// Normalize cleans a medicine-like string into lowercase words and digits
// separated by single spaces. Packaging words (tablet, syrup, ...) are removed.
func Normalize(text string) string {
	return collapseWhitespace(nonAlphanumericRegex.ReplaceAllString(stripPackagingWords(text), ""))
}

// stripPackagingWords applies the first cleaning steps shared by Normalize and
// ExtractIngredients: lowercase, trim and stop word removal.
func stripPackagingWords(text string) string {
	text = strings.TrimSpace(strings.ToLower(text))
	return packagingStopWordsRegex.ReplaceAllString(text, "")
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// cleanField prepares a catalog field for substring matching against OCR tokens
func cleanField(text string) string {
	return collapseWhitespace(strings.ReplaceAll(strings.ToLower(text), "-", " "))
}

// Tokenize extracts the candidate words of OCR output. The recognized lines are
// joined, lowercased and split on anything that is not a letter or a digit
// (hyphens included). Noise words and words of three characters or less are dropped.
// The result is a set: duplicates are removed and first-seen order is kept.
func Tokenize(lines ...string) []string {
	combined := strings.ReplaceAll(strings.ToLower(strings.Join(lines, " ")), "-", " ")

	seen := make(map[string]struct{})
	var tokens []string
	for _, word := range ocrWordRegex.FindAllString(combined, -1) {
		word = cleanField(word)
		if len(word) <= minTokenLength {
			continue
		}
		if _, noise := ocrNoiseWords[word]; noise {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		tokens = append(tokens, word)
	}

	return tokens
}

// NormalizeSaltComposition rewrites package notation such as
// "Paracetamol(500mg)+Caffeine(30mg)" into "paracetamol 500mg caffeine 30mg".
func NormalizeSaltComposition(salt string) string {
	replacer := strings.NewReplacer("+", " ", "(", " ", ")", " ")
	return collapseWhitespace(replacer.Replace(strings.ToLower(salt)))
}
