package ai

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
)

func TestNewDialect(t *testing.T) {
	tests := []struct {
		provider      domain.AIProvider
		supportsBatch bool
	}{
		{domain.AIProviderOpenAI, true},
		{domain.AIProviderOllama, false},
		{domain.AIProviderAnthropic, false},
	}

	for _, tt := range tests {
		t.Run(tt.provider.String(), func(t *testing.T) {
			d, err := newDialect(tt.provider)
			require.NoError(t, err)
			assert.Equal(t, tt.supportsBatch, d.supportsBatch())
		})
	}

	_, err := newDialect(domain.AIProvider("cohere"))
	assert.Error(t, err)
}

func TestOpenAIDialect_BuildPayload(t *testing.T) {
	d := openaiDialect{}
	settings := domain.LLMSettings{
		Model:        "gpt-4o-mini",
		SystemPrompt: "be terse",
		MaxTokens:    256,
		Temperature:  0.3,
	}

	payload := d.buildPayload(settings, "rate this")

	assert.Equal(t, "gpt-4o-mini", payload["model"])
	assert.Equal(t, 256, payload["max_tokens"])
	assert.Equal(t, 0.3, payload["temperature"])
	assert.Equal(t, false, payload["stream"])

	messages, ok := payload["messages"].([]chatMessage)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "be terse", messages[0].Content)
	assert.Equal(t, "user", messages[1].Role)
	assert.Equal(t, "rate this", messages[1].Content)
}

func TestOpenAIDialect_BuildPayloadOmitsUnsetOptions(t *testing.T) {
	payload := openaiDialect{}.buildPayload(domain.LLMSettings{Model: "m"}, "x")

	assert.NotContains(t, payload, "max_tokens")
	assert.NotContains(t, payload, "temperature")

	messages := payload["messages"].([]chatMessage)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].Role)
}

func TestOpenAIDialect_EndpointURL(t *testing.T) {
	d := openaiDialect{}
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", d.endpointURL("https://api.openai.com/v1"))
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", d.endpointURL("https://api.openai.com/v1/"))
}

func TestOpenAIDialect_ParseResponse(t *testing.T) {
	d := openaiDialect{}

	text, err := d.parseResponse([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = d.parseResponse([]byte(`{"choices":[]}`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	_, err = d.parseResponse([]byte(`{"error":{"message":"rate limited"}}`))
	assert.ErrorContains(t, err, "rate limited")

	_, err = d.parseResponse([]byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestOllamaDialect_BuildPayload(t *testing.T) {
	d := ollamaDialect{}
	settings := domain.LLMSettings{Model: "llama3", MaxTokens: 512, Temperature: 0.1}

	payload := d.buildPayload(settings, "summarise this")

	options, ok := payload["options"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 512, options["num_predict"])
	assert.Equal(t, 0.1, options["temperature"])

	// No options block when nothing is set.
	bare := d.buildPayload(domain.LLMSettings{Model: "llama3"}, "x")
	assert.NotContains(t, bare, "options")
}

func TestOllamaDialect_ParseResponse(t *testing.T) {
	d := ollamaDialect{}

	text, err := d.parseResponse([]byte(`{"message":{"role":"assistant","content":"hi"},"done":true}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", text)

	_, err = d.parseResponse([]byte(`{"error":"model not found"}`))
	assert.ErrorContains(t, err, "model not found")

	_, err = d.parseResponse([]byte(`{"message":{"content":""}}`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestAnthropicDialect_BuildPayload(t *testing.T) {
	d := anthropicDialect{}
	settings := domain.LLMSettings{Model: "claude-sonnet", SystemPrompt: "be terse"}

	payload := d.buildPayload(settings, "rate this")

	// max_tokens is mandatory and defaulted when unset.
	assert.Equal(t, 1024, payload["max_tokens"])
	assert.Equal(t, "be terse", payload["system"])

	messages, ok := payload["messages"].([]chatMessage)
	require.True(t, ok)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].Role)
}

func TestAnthropicDialect_SetHeaders(t *testing.T) {
	h := http.Header{}
	anthropicDialect{}.setHeaders(domain.LLMSettings{APIKey: "sk-ant"}, h)

	assert.Equal(t, "sk-ant", h.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, h.Get("anthropic-version"))
	assert.Empty(t, h.Get("Authorization"))
}

func TestAnthropicDialect_ParseResponse(t *testing.T) {
	d := anthropicDialect{}

	text, err := d.parseResponse([]byte(
		`{"content":[{"type":"text","text":"part one "},{"type":"tool_use"},{"type":"text","text":"part two"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "part one part two", text)

	_, err = d.parseResponse([]byte(`{"content":[]}`))
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	_, err = d.parseResponse([]byte(`{"error":{"type":"overloaded_error","message":"overloaded"}}`))
	assert.ErrorContains(t, err, "overloaded")
}
