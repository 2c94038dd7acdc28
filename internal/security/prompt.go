package security

import "strings"

// systemPromptMarkers indicate system instructions leaked into a user
// question, typically by a misbehaving caller concatenating its prompt.
// Matched case-sensitively: the markers are literal header strings, and
// a user legitimately quoting them in lowercase should not be truncated.
var systemPromptMarkers = []string{
	"SYSTEM INSTRUCTIONS",
	"SYSTEM_PROMPT",
}

// ContainsSystemPrompt reports whether text carries a leaked
// system-instruction marker.
func ContainsSystemPrompt(text string) bool {
	for _, marker := range systemPromptMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// StripSystemPrompt truncates text at the first system-instruction
// marker, keeping only the part before it. Leaked instruction text must
// never enter generation or conversational memory.
func StripSystemPrompt(text string) string {
	for _, marker := range systemPromptMarkers {
		if idx := strings.Index(text, marker); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}
