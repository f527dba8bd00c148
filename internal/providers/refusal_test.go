package providers

import "testing"

func TestLooksLikeRefusalMatchesKnownPhrases(t *testing.T) {
	cases := []string{
		"I cannot assist with that request.",
		"I'm unable to help with this image.",
		"Sorry, I cannot provide a transcription here.",
		"This goes against my guidelines.",
		"I must decline to continue.",
	}
	for _, c := range cases {
		if !looksLikeRefusal(c) {
			t.Errorf("expected refusal match for %q", c)
		}
	}
}

func TestLooksLikeRefusalIgnoresOrdinaryTranscription(t *testing.T) {
	cases := []string{
		"# Quarterly Report\n\nRevenue increased 12% year over year.",
		"| Name | Value |\n| --- | --- |\n| A | 1 |",
		"",
		"short",
	}
	for _, c := range cases {
		if looksLikeRefusal(c) {
			t.Errorf("did not expect refusal match for %q", c)
		}
	}
}

func TestLooksLikeRefusalIsCaseInsensitive(t *testing.T) {
	if !looksLikeRefusal("I CANNOT ASSIST with this particular page.") {
		t.Error("expected case-insensitive match")
	}
}
