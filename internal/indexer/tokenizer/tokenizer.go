// Package tokenizer turns raw document text into index terms. It strips a
// fixed set of punctuation characters, splits on single spaces, and
// lower-cases and trims every resulting token.
package tokenizer

import "strings"

// stripped lists the characters removed from text before splitting.
const stripped = "-+.^:,?!"

const separator = " "

// Tokenize returns the ordered terms of text. Empty tokens produced by
// repeated, leading or trailing spaces are dropped.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(stripped, r) {
			return -1
		}
		return r
	}, text)

	words := strings.Split(cleaned, separator)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		term := Normalize(word)
		if term == "" {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

// Normalize folds a single word or query term into its index form.
func Normalize(word string) string {
	return strings.TrimSpace(strings.ToLower(word))
}
