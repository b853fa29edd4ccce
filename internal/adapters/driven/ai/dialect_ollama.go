package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
)

// ollamaDialect speaks the Ollama /api/chat convention: a single "message"
// object instead of a choices array, and completion options nested under
// "options" with num_predict in place of max_tokens.
type ollamaDialect struct{}

// ollamaChatResponse is the Ollama /api/chat response format.
type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

func (ollamaDialect) endpointURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/api/chat"
}

func (ollamaDialect) batchEndpointPath() string {
	return "/api/chat"
}

func (ollamaDialect) buildPayload(s domain.LLMSettings, userPrompt string) map[string]any {
	options := map[string]any{}
	if s.MaxTokens > 0 {
		options["num_predict"] = s.MaxTokens
	}
	if s.Temperature > 0 {
		options["temperature"] = s.Temperature
	}
	payload := map[string]any{
		"model":    s.Model,
		"messages": buildMessages(s, userPrompt),
		"stream":   false,
	}
	if len(options) > 0 {
		payload["options"] = options
	}
	return payload
}

func (ollamaDialect) setHeaders(s domain.LLMSettings, h http.Header) {
	h.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		h.Set("Authorization", "Bearer "+s.APIKey)
	}
}

func (ollamaDialect) parseResponse(body []byte) (string, error) {
	var resp ollamaChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode ollama response: %w", domain.ErrMalformedResponse, err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", resp.Error)
	}
	if resp.Message.Content == "" {
		return "", fmt.Errorf("%w: ollama: empty message content", domain.ErrMalformedResponse)
	}
	return resp.Message.Content, nil
}

func (ollamaDialect) supportsBatch() bool {
	return false
}
