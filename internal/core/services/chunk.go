package services

import (
	"strings"

	"github.com/lectern-labs/lectern-cli/internal/adapters/driven/ai"
)

// chunk is one sentence-aligned slice of article content with its
// estimated token length, used to length-weight similarity scores.
type chunk struct {
	text   string
	tokens int
}

// chunkText splits text into sentence-aligned chunks that each fit within
// maxTokens. A single sentence over the budget is truncated into its own
// chunk. Short texts come back as one chunk.
func chunkText(text string, maxTokens int) []chunk {
	sentences := strings.Split(text, ". ")

	var chunks []chunk
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, chunk{text: strings.TrimSpace(current.String()), tokens: currentTokens})
			current.Reset()
			currentTokens = 0
		}
	}

	for _, sentence := range sentences {
		tokens := ai.EstimateTokens(sentence)

		// A single oversized sentence becomes its own truncated chunk.
		if tokens > maxTokens {
			flush()
			chunks = append(chunks, chunk{text: ai.TruncateTokens(sentence, maxTokens), tokens: maxTokens})
			continue
		}

		if currentTokens+tokens > maxTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(". ")
		}
		current.WriteString(sentence)
		currentTokens += tokens
	}
	flush()

	return chunks
}
