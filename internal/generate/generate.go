// Package generate produces the free-form fallback responses used when no
// routing stage matches. The OpenAI generator is the real implementation;
// the static generator serves offline deployments and tests.
package generate

import "strings"

// canned picks a deterministic reply for a message. Used by the static
// generator and as the failure mask for the OpenAI generator.
func canned(message string) string {
	normalized := strings.ToLower(message)

	switch {
	case strings.Contains(normalized, "thank"):
		return "You're welcome! Let me know if anything else comes up with your charging station."
	case strings.Contains(normalized, "help"):
		return "I'm here to help with EV charging questions. You can report an error code, troubleshoot an issue, or ask about your wallet."
	case hasQuestionWord(normalized):
		return "That's a good question about EV charging. Could you share an error code or describe what the station is showing?"
	default:
		return "I'm not sure I understood that. Try describing the issue or picking one of the menu options."
	}
}

var questionWords = []string{"what", "how", "why", "when", "where", "which", "can i", "?"}

func hasQuestionWord(normalized string) bool {
	for _, w := range questionWords {
		if strings.Contains(normalized, w) {
			return true
		}
	}
	return false
}
