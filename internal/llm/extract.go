package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON pulls a JSON object out of a model reply. Structured output
// usually returns bare JSON, but some gateways wrap it in a code fence or
// add a sentence around it. Returns "" when no valid object is found.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if json.Valid([]byte(text)) {
		return text
	}
	if m := fencedBlock.FindStringSubmatch(text); len(m) > 1 && json.Valid([]byte(m[1])) {
		return m[1]
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if candidate := text[start : end+1]; json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return ""
}
