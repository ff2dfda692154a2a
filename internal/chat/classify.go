package chat

import "strings"

// casualPhrases are greetings and pleasantries answered without retrieval.
var casualPhrases = []string{
	"hi", "hello", "hey", "how are you", "thanks", "thank you",
	"bye", "goodbye", "good morning", "good evening", "sup",
	"what's up", "wassup", "yo", "howdy", "good night",
}

// casualFragments catch common informal spellings of "how are you".
var casualFragments = []string{
	"how are", "how r u", "how r you", "hows it going", "how do you do",
}

// IsCasualQuery reports whether the query is small talk rather than a
// document question. Casual queries skip retrieval entirely.
func IsCasualQuery(query string) bool {
	normalized := normalizeQuery(query)
	if normalized == "" {
		return false
	}

	for _, phrase := range casualPhrases {
		if normalized == phrase {
			return true
		}
	}

	words := strings.Fields(normalized)
	if len(words) <= 2 {
		for _, phrase := range casualPhrases {
			if strings.Contains(normalized, phrase) {
				return true
			}
		}
	}

	for _, fragment := range casualFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}

	// A single short word is never a real document question.
	if len(words) == 1 && len([]rune(words[0])) <= 6 {
		return true
	}
	return false
}

func normalizeQuery(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	return strings.Trim(normalized, "!?.,;: ")
}
