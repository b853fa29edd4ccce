package ai

// Token budgeting uses a fixed characters-per-token estimate rather than a
// model-specific tokeniser. The estimate is deliberately conservative: a
// prompt that fits under it also fits under the real tokeniser for the
// supported model families.

// charsPerToken is the rough estimate of 4 characters per token.
const charsPerToken = 4

// safetyMarginTokens is reserved on top of prompt and completion budgets.
const safetyMarginTokens = 128

// EstimateTokens returns the estimated token count for text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	runes := len([]rune(text))
	return (runes + charsPerToken - 1) / charsPerToken
}

// TruncateTokens truncates text to at most maxTokens estimated tokens,
// preserving rune boundaries. Returns text unchanged when it already fits.
// A non-positive budget yields the empty string.
func TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if EstimateTokens(text) <= maxTokens {
		return text
	}
	runes := []rune(text)
	limit := maxTokens * charsPerToken
	if limit > len(runes) {
		limit = len(runes)
	}
	return string(runes[:limit])
}

// availableContext computes how many tokens of article content fit in a
// model's context window after reserving room for the prompt scaffolding,
// the expected completion and a safety margin.
func availableContext(contextTokens, promptTokens, completionTokens int) int {
	available := contextTokens - promptTokens - completionTokens - safetyMarginTokens
	if available < 0 {
		return 0
	}
	return available
}
