package meeting

import (
	"fmt"
	"strings"
)

const (
	SummarySystemPrompt   = "You are an assistant that writes concise meeting summaries."
	TranslateSystemPrompt = "You translate text accurately while preserving meaning and tone."
)

// Languages offered as translation targets. The API accepts any non-empty target.
var Languages = []string{
	"English",
	"Spanish",
	"French",
	"German",
	"Italian",
	"Portuguese",
	"Japanese",
	"Chinese (Simplified)",
}

// SummaryPrompt builds the user message for a summary, in the given style when non-blank.
func SummaryPrompt(transcript, style string) string {
	if trimmed(style) != "" {
		return fmt.Sprintf("Summarize the following transcript in 5-8 bullet points with action items and decisions, written in the style of: %s. Keep it readable and faithful to the content.\n\nTranscript: ", style) + transcript
	}
	return "Summarize the following meeting transcript in 5-8 bullet points with action items and decisions. Transcript: " + transcript
}

// TranslatePrompt builds the user message for a translation.
func TranslatePrompt(text, target string) string {
	return fmt.Sprintf("Translate the following text into %s. Return only the translated text.\n\n%s", target, text)
}

// SpeechInput prefixes text with a reading instruction when a style is given.
func SpeechInput(text, style string) string {
	if trimmed(style) == "" {
		return text
	}
	return fmt.Sprintf("Read the following in the style of %s:\n\n", style) + text
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
