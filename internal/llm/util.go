// Package llm - util.go provides shared utilities for LLM response processing.
package llm

// FirstJSONArray returns the first balanced [...] span in text, or "" if none exists.
// Brackets inside JSON strings are ignored.
func FirstJSONArray(text string) string {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		if span := extractJSONArray(text[i:]); span != "" {
			return span
		}
	}
	return ""
}

// extractJSONArray returns the balanced [...] prefix of s, or "" if s does not start with one
func extractJSONArray(s string) string {
	return extractBalanced(s, '[', ']')
}

func extractBalanced(s string, open, closing byte) string {
	if len(s) == 0 || s[0] != open {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
