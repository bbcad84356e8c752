// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_session

import "strings"

// fillerWords are transcripts that gate out an LLM turn on their own.
var fillerWords = map[string]struct{}{
	"so": {}, "um": {}, "uh": {}, "hmm": {}, "ah": {}, "er": {},
	"well": {}, "and": {}, "the": {}, "but": {}, "oh": {},
}

// Meaningful decides whether a transcript justifies a dialogue turn.
// Trimmed lowercase text must not be empty or a lone filler, must be at
// least 4 runes, and must carry either two words or one word of at
// least 5 runes.
func Meaningful(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	if _, filler := fillerWords[t]; filler {
		return false
	}
	if len([]rune(t)) < 4 {
		return false
	}
	words := strings.Fields(t)
	if len(words) >= 2 {
		return true
	}
	return len(words) == 1 && len([]rune(words[0])) >= 5
}
