package parse

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"bookvoice/internal/util"
)

var (
	thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
	thinkOpenRe  = regexp.MustCompile(`(?s)<think>.*`)
)

// ExtractJSON recovers the first complete JSON value from free-form model
// output: reasoning tags and code fences are stripped, leading/trailing
// prose is ignored, and when the model emitted several concatenated values
// only the first is kept. Returns "" when no balanced value exists.
func ExtractJSON(raw string) string {
	s := thinkBlockRe.ReplaceAllString(raw, "")
	s = thinkOpenRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "/no_think", "")
	s = stripFences(s)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	end := balancedEnd(s, start)
	if end < 0 {
		return ""
	}
	payload := s[start : end+1]
	if rest := s[end+1:]; strings.ContainsAny(rest, "{[") {
		log.Warn("discarding trailing content after first JSON value",
			"discarded", util.DisplaySnippet(rest, 120))
	}
	return payload
}

// stripFences removes markdown code fence markers while leaving the fenced
// content in place.
func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	s = strings.ReplaceAll(s, "```json", "\n")
	s = strings.ReplaceAll(s, "```", "\n")
	return s
}

// balancedEnd walks from the opening brace/bracket at start to its matching
// close, honoring JSON string literals and escapes. Returns -1 when the
// value is truncated.
func balancedEnd(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
