// Package ai provides the shared request client for LLM-backed pipeline
// stages: synchronous single calls and provider batch jobs with per-item
// fallback.
package ai

import (
	"fmt"
	"net/http"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
)

// dialect captures everything that varies between provider families:
// endpoint layout, request payload shape, auth headers, response shape and
// batch capability. A dialect is selected once at client construction; no
// provider dispatch happens per request.
type dialect interface {
	// endpointURL returns the full chat endpoint for the given base URL.
	endpointURL(baseURL string) string

	// batchEndpointPath returns the endpoint path written into batch job
	// descriptions (without the base URL).
	batchEndpointPath() string

	// buildPayload builds the request body for one user prompt.
	buildPayload(s domain.LLMSettings, userPrompt string) map[string]any

	// setHeaders applies the provider's auth and version headers.
	setHeaders(s domain.LLMSettings, h http.Header)

	// parseResponse extracts the response text from a raw response body.
	parseResponse(body []byte) (string, error)

	// supportsBatch reports whether the provider has a native
	// files+batches bulk API.
	supportsBatch() bool
}

// newDialect returns the dialect for a provider family.
func newDialect(p domain.AIProvider) (dialect, error) {
	switch p {
	case domain.AIProviderOpenAI:
		return openaiDialect{}, nil
	case domain.AIProviderOllama:
		return ollamaDialect{}, nil
	case domain.AIProviderAnthropic:
		return anthropicDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", p)
	}
}

// chatMessage is the role/content pair shared by all three dialects.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// buildMessages assembles the message list from settings and user prompt.
func buildMessages(s domain.LLMSettings, userPrompt string) []chatMessage {
	var messages []chatMessage
	if s.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: s.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})
	return messages
}
