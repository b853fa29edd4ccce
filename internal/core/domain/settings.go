package domain

const unknownDescription = "Unknown"

// FunnelStrategy defines which narrowing stages the selection funnel runs.
// It replaces threshold sentinels with an explicit three-way selector.
type FunnelStrategy string

// Available funnel strategies.
const (
	// StrategySimilarityOnly ranks by embedding similarity alone.
	StrategySimilarityOnly FunnelStrategy = "similarity_only"

	// StrategyRatingOnly skips similarity and rates every candidate.
	StrategyRatingOnly FunnelStrategy = "rating_only"

	// StrategyFull narrows by similarity first, then by LLM rating.
	StrategyFull FunnelStrategy = "full"
)

// IsValid returns true if the strategy is recognised.
func (s FunnelStrategy) IsValid() bool {
	switch s {
	case StrategySimilarityOnly, StrategyRatingOnly, StrategyFull:
		return true
	default:
		return false
	}
}

// UsesSimilarity returns true if this strategy needs an embedding provider.
func (s FunnelStrategy) UsesSimilarity() bool {
	return s == StrategySimilarityOnly || s == StrategyFull
}

// UsesRating returns true if this strategy needs an LLM rating provider.
func (s FunnelStrategy) UsesRating() bool {
	return s == StrategyRatingOnly || s == StrategyFull
}

// String returns the string representation.
func (s FunnelStrategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s FunnelStrategy) Description() string {
	switch s {
	case StrategySimilarityOnly:
		return "Similarity Only (embedding ranking)"
	case StrategyRatingOnly:
		return "Rating Only (LLM ranking)"
	case StrategyFull:
		return "Full (similarity then LLM rating)"
	default:
		return unknownDescription
	}
}

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// SupportsBatch returns true if this provider exposes a native
// files+batches bulk-processing API.
func (p AIProvider) SupportsBatch() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// ContextTokens is the model's context window budget.
	ContextTokens int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration for one pipeline role
// (rating or summarisation).
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// SystemPrompt is prepended to every request.
	SystemPrompt string

	// MaxTokens bounds the completion length.
	MaxTokens int

	// Temperature controls sampling randomness.
	Temperature float64

	// ContextTokens is the model's context window budget.
	ContextTokens int

	// RequestsPerSecond throttles sequential single calls.
	// Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}
