// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import "strings"

// CleanCodeBlock strips markdown code-fence markers for the given languages
// from generated source. Models wrap code in ```cpp ... ``` blocks even when
// told not to; absence of fences is a no-op.
func CleanCodeBlock(text string, langs ...string) string {
	for _, lang := range langs {
		text = strings.ReplaceAll(text, "```"+lang+"\n", "")
		text = strings.ReplaceAll(text, "```"+lang, "")
	}
	text = strings.ReplaceAll(text, "```\n", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	// Handle ```json ... ``` blocks
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	// Handle generic ``` ... ``` blocks
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip a potential language identifier on the first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}
