package hybrid

import (
	"strings"
	"unicode"
)

// TokenKind classifies a token.
type TokenKind int

const (
	// Whitespace is a run of whitespace characters.
	Whitespace TokenKind = iota
	// Word is a token that looks like a natural-language word.
	Word
	// NonWord is anything else: numbers, code, URLs, symbols.
	NonWord
	// Passage labels the segment of a pure letter or phoneme strategy,
	// which encodes the input unsplit. Tokenize never produces it.
	Passage
)

func (k TokenKind) String() string {
	switch k {
	case Whitespace:
		return "whitespace"
	case Word:
		return "word"
	case NonWord:
		return "non-word"
	case Passage:
		return "passage"
	default:
		return "unknown"
	}
}

// Token is a maximal run of whitespace or non-whitespace characters.
type Token struct {
	Text string
	Kind TokenKind
}

// edgePunctuation is stripped from both ends of a token before it is
// classified or looked up in the common-word set.
const edgePunctuation = ".,!?;:"

// codeChars mark a token as code, a path or an address.
const codeChars = `/:@#$\`

// Tokenize splits text into alternating whitespace and non-whitespace runs
// and classifies each one. Concatenating the token texts yields the input.
func Tokenize(text string) []Token {
	var tokens []Token
	start := 0
	inSpace := false

	flush := func(end int) {
		if end <= start {
			return
		}
		s := text[start:end]
		kind := Whitespace
		if !inSpace {
			kind = classify(s)
		}
		tokens = append(tokens, Token{Text: s, Kind: kind})
		start = end
	}

	for i, r := range text {
		space := unicode.IsSpace(r)
		if i == 0 {
			inSpace = space
			continue
		}
		if space != inSpace {
			flush(i)
			inSpace = space
		}
	}
	flush(len(text))

	return tokens
}

func classify(s string) TokenKind {
	if IsWord(s) {
		return Word
	}
	return NonWord
}

// StripPunctuation removes sentence punctuation from both ends of s.
func StripPunctuation(s string) string {
	return strings.Trim(s, edgePunctuation)
}

// IsWord reports whether token looks like a natural-language word. The
// token must not contain code characters anywhere. After stripping edge
// punctuation it must be non-empty and consist only of letters, apostrophes
// and hyphens, with at least one letter. Any digit disqualifies it, so
// numbers and mixed tokens such as "3D" or "2nd" are never words.
func IsWord(token string) bool {
	if strings.ContainsAny(token, codeChars) {
		return false
	}

	cleaned := StripPunctuation(token)
	letters := 0
	for _, r := range cleaned {
		switch {
		case r == '\'' || r == '-':
		case unicode.IsLetter(r):
			letters++
		default:
			return false
		}
	}
	return letters > 0
}
