package llm

import "strings"

// CleanJSONBlock strips markdown code fences and any prose around the first
// JSON object in s. Input without braces is returned trimmed.
func CleanJSONBlock(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	// a top-level array or string stays as is so it is rejected as a non-object
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, `"`) {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}
