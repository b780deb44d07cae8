package token

import (
	"unicode"
)

// Token is a single lexical unit with its byte span in the source text
type Token struct {
	Text  string
	Start int // byte offset, inclusive
	End   int // byte offset, exclusive
}

// Tokenize splits text on Unicode whitespace and punctuation. Punctuation
// runs are discarded; only word-like runs become tokens. The algorithm is
// fully deterministic so repeated runs over identical input always produce
// identical spans.
func Tokenize(text string) []Token {
	tokens := make([]Token, 0, len(text)/5)

	start := -1
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, Token{Text: text[start:i], Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Text: text[start:], Start: start, End: len(text)})
	}

	return tokens
}

// Count returns the approximate token count of text
func Count(text string) int {
	return len(Tokenize(text))
}

func isWordRune(r rune) bool {
	return !unicode.IsSpace(r) && !unicode.IsPunct(r) && !unicode.IsSymbol(r)
}
