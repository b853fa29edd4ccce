package ai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
)

// anthropicVersion is the required API version header.
const anthropicVersion = "2023-06-01"

// anthropicDialect speaks the Anthropic /v1/messages convention: a content
// block array in responses, x-api-key auth and a mandatory max_tokens.
type anthropicDialect struct{}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (anthropicDialect) endpointURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/v1/messages"
}

func (anthropicDialect) batchEndpointPath() string {
	return "/v1/messages"
}

func (anthropicDialect) buildPayload(s domain.LLMSettings, userPrompt string) map[string]any {
	// Anthropic requires max_tokens to be set.
	maxTokens := s.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	payload := map[string]any{
		"model":      s.Model,
		"messages":   []chatMessage{{Role: "user", Content: userPrompt}},
		"max_tokens": maxTokens,
	}
	if s.SystemPrompt != "" {
		payload["system"] = s.SystemPrompt
	}
	if s.Temperature > 0 {
		payload["temperature"] = s.Temperature
	}
	return payload
}

func (anthropicDialect) setHeaders(s domain.LLMSettings, h http.Header) {
	h.Set("Content-Type", "application/json")
	h.Set("x-api-key", s.APIKey)
	h.Set("anthropic-version", anthropicVersion)
}

func (anthropicDialect) parseResponse(body []byte) (string, error) {
	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode anthropic response: %w", domain.ErrMalformedResponse, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("anthropic error: %s", resp.Error.Message)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("%w: anthropic: no response content returned", domain.ErrMalformedResponse)
	}

	// Concatenate all text content blocks.
	var result strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return result.String(), nil
}

func (anthropicDialect) supportsBatch() bool {
	return false
}
