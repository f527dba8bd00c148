package providers

import "strings"

// refusalPhrases catch refusals that arrive as ordinary text: a model that
// refuses to transcribe a page may still return 200 with prose explaining
// why. The providers report a response that matches as an LlmApiErrorError
// instead of returning the prose as the page's transcription.
var refusalPhrases = []string{
	"i cannot assist",
	"i'm unable to help",
	"i cannot provide",
	"i cannot process",
	"against my guidelines",
	"i'm not able to",
	"i can't help with",
	"i'm not comfortable",
	"violates my programming",
	"i must decline",
	"i should not",
	"i will not",
	"against my values",
}

func looksLikeRefusal(content string) bool {
	if len(content) < 10 {
		return false
	}
	lower := strings.ToLower(content)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
