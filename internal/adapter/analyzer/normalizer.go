package analyzer

import (
	"regexp"
	"sort"
	"strings"
)

var (
	footnotePattern    = regexp.MustCompile(`\[\d+\]`)
	verseNumberPattern = regexp.MustCompile(`\b\d+[a-z]?\b`)
	nonWordPattern     = regexp.MustCompile(`[^\p{L}\p{M}\p{Nd}\p{Pc}\s]`)
)

// stopWords is never mutated after init.
var stopWords = func() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "been", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on", "that",
		"the", "to", "was", "were", "will", "with",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// TokenSet is an unordered set of normalized tokens.
type TokenSet map[string]struct{}

// Sorted returns the tokens in string order.
func (s TokenSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Normalize reduces verse text to a comparable form: lower-cased, footnote
// markers and bare verse numbers removed, punctuation replaced by spaces,
// whitespace collapsed.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = footnotePattern.ReplaceAllString(s, "")
	s = verseNumberPattern.ReplaceAllString(s, "")
	s = nonWordPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Tokens normalizes text and returns its token set without stop words.
func Tokens(text string) TokenSet {
	return TokensOf(Normalize(text))
}

// TokensOf splits already-normalized text into a token set.
func TokensOf(normalized string) TokenSet {
	set := make(TokenSet)
	for _, word := range strings.Fields(normalized) {
		if IsStopWord(word) {
			continue
		}
		set[word] = struct{}{}
	}
	return set
}

func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}
