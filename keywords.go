package pathfinder

import (
	"sort"
	"strings"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
)

// normalizeTerm applies Unicode normalization (NFKC) and converts to lowercase.
func normalizeTerm(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// tokenizeText splits text into tokens using UAX#29 word segmentation.
func tokenizeText(s string) []string {
	toks := words.FromString(s)
	var tokens []string
	for toks.Next() {
		tokens = append(tokens, toks.Value())
	}
	return tokens
}

// TopKeywords returns the n most frequent metadata keywords across the given
// documents, ties broken alphabetically ascending.
//
// Keywords are counted case-insensitively (NFKC-folded); the first-seen
// surface form is the one reported. When none of the documents carry
// metadata keywords, terms are mined from the cleaned body text instead,
// with stopwords and single-character tokens dropped.
func TopKeywords(docs []DocumentRecord, n int) []string {
	counts := make(map[string]int)
	display := make(map[string]string)

	for _, doc := range docs {
		for _, kw := range doc.Meta.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			key := normalizeTerm(kw)
			if _, seen := display[key]; !seen {
				display[key] = kw
			}
			counts[key]++
		}
	}

	// No bibliographic keywords anywhere: mine the body text.
	if len(counts) == 0 {
		for _, doc := range docs {
			for _, tok := range tokenizeText(normalizeTerm(doc.CleanedText)) {
				if len(tok) < 2 || !isWordToken(tok) || isStopword(tok) {
					continue
				}
				if _, seen := display[tok]; !seen {
					display[tok] = tok
				}
				counts[tok]++
			}
		}
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return display[keys[i]] < display[keys[j]]
	})

	if len(keys) > n {
		keys = keys[:n]
	}

	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = display[key]
	}
	return out
}

// isWordToken reports whether the token starts with a letter or digit.
// UAX#29 segmentation also emits punctuation and whitespace runs.
func isWordToken(tok string) bool {
	for _, r := range tok {
		return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127
	}
	return false
}

// isStopword reports whether the token is a common English function word.
func isStopword(tok string) bool {
	_, ok := stopwords[tok]
	return ok
}

var stopwords = func() map[string]struct{} {
	list := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was",
		"were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "again", "further", "than",
		"so", "such", "into", "about", "between", "through", "during",
		"before", "after", "above", "below", "out", "off", "own", "same",
		"too", "very", "can", "will", "just", "not", "no", "we", "our",
		"their", "its", "have", "has", "had", "which", "when", "where",
		"while", "also", "each", "both", "more", "most", "other", "some",
	}
	m := make(map[string]struct{}, len(list))
	for _, w := range list {
		m[w] = struct{}{}
	}
	return m
}()
