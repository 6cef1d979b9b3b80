package hybrid

import (
	"sort"
	"strings"
)

// commonWords are the high-frequency English words the word-level strategy
// renders phonetically.
var commonWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		the be to of and a in that have it
		for not on with he as you do at this
		but his from they we say her she or an
		will my one all would there their what so
		up out if about who get which go me when
		make can like time no just him know take
		people into year your good some could them
		see other than then now look only come its
		over think also back after use two how our
		work first well way even new want because any
		these give day most us`) {
		commonWords[w] = struct{}{}
	}
}

// IsCommonWord reports whether word, lower-cased and stripped of edge
// punctuation, is in the common-word set.
func IsCommonWord(word string) bool {
	_, ok := commonWords[StripPunctuation(strings.ToLower(word))]
	return ok
}

// CommonWords returns the common-word set, sorted.
func CommonWords() []string {
	words := make([]string, 0, len(commonWords))
	for w := range commonWords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
