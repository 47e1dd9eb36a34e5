package generation

import "strings"

// ExtractCodeBlock pulls the first fenced code block for lang out of an
// LLM response. It falls back to an unlabeled fence, then to the raw text,
// so a model that skips the fence still yields a candidate; an unusable
// candidate fails in the runner and feeds the repair loop.
func ExtractCodeBlock(response, lang string) string {
	for _, marker := range []string{"```" + lang, "```"} {
		start := strings.Index(response, marker)
		if start == -1 {
			continue
		}

		rest := response[start+len(marker):]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}

		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(response)
}
