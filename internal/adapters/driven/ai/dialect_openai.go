package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
)

// openaiDialect speaks the OpenAI /chat/completions convention. It also
// covers OpenAI-compatible inference servers that accept the same shapes.
type openaiDialect struct{}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (openaiDialect) endpointURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/chat/completions"
}

func (openaiDialect) batchEndpointPath() string {
	return "/v1/chat/completions"
}

func (openaiDialect) buildPayload(s domain.LLMSettings, userPrompt string) map[string]any {
	payload := map[string]any{
		"model":    s.Model,
		"messages": buildMessages(s, userPrompt),
		"stream":   false,
	}
	if s.MaxTokens > 0 {
		payload["max_tokens"] = s.MaxTokens
	}
	if s.Temperature > 0 {
		payload["temperature"] = s.Temperature
	}
	return payload
}

func (openaiDialect) setHeaders(s domain.LLMSettings, h http.Header) {
	h.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		h.Set("Authorization", "Bearer "+s.APIKey)
	}
}

func (openaiDialect) parseResponse(body []byte) (string, error) {
	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode openai response: %w", domain.ErrMalformedResponse, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("openai error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: no response choices returned", domain.ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (openaiDialect) supportsBatch() bool {
	return true
}
