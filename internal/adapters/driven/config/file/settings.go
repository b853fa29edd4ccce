package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
)

// Default settings values.
const (
	DefaultTopK             = 30
	DefaultMaxSelected      = 6
	DefaultTTLDays          = 90
	DefaultArtifactBudgetMB = 1024
	DefaultMaxWaitMinutes   = 1440
	DefaultPollSeconds      = 30
)

// Settings is the full Lectern configuration, loaded from a TOML file
// with API keys overlaid from the environment.
type Settings struct {
	// Query is the interest statement candidates are ranked against.
	Query string `toml:"query"`

	Funnel    FunnelSettings          `toml:"funnel"`
	Embedding ProviderSettings        `toml:"embedding"`
	Rating    ProviderSettings        `toml:"rating"`
	Summary   ProviderSettings        `toml:"summary"`
	Batch     BatchSettings           `toml:"batch"`
	Cache     CacheSettings           `toml:"cache"`
	Criteria  map[string]CriterionTOML `toml:"criteria"`
}

// FunnelSettings configures the selection funnel.
type FunnelSettings struct {
	Strategy    string `toml:"strategy"`
	TopK        int    `toml:"top_k"`
	MaxSelected int    `toml:"max_selected"`
	Workers     int    `toml:"workers"`
}

// ProviderSettings configures one AI provider role.
type ProviderSettings struct {
	Provider          string  `toml:"provider"`
	Model             string  `toml:"model"`
	BaseURL           string  `toml:"base_url"`
	MaxTokens         int     `toml:"max_tokens"`
	Temperature       float64 `toml:"temperature"`
	ContextTokens     int     `toml:"context_tokens"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// BatchSettings configures bulk LLM processing.
type BatchSettings struct {
	Enabled         bool `toml:"enabled"`
	MaxWaitMinutes  int  `toml:"max_wait_minutes"`
	PollSeconds     int  `toml:"poll_seconds"`
	FallbackOnError bool `toml:"fallback_on_error"`
}

// CacheSettings configures the persistent caches.
type CacheSettings struct {
	Dir              string `toml:"dir"`
	TTLDays          int    `toml:"ttl_days"`
	ArtifactBudgetMB int64  `toml:"artifact_budget_mb"`
}

// CriterionTOML is one named rating criterion.
type CriterionTOML struct {
	Description string  `toml:"description"`
	Weight      float64 `toml:"weight"`
}

// defaultCriteria is used when the config file defines none.
var defaultCriteria = map[string]CriterionTOML{
	"relevance": {
		Description: "How directly the article addresses the stated research interests",
		Weight:      2.0,
	},
	"novelty": {
		Description: "Whether the article presents genuinely new results or methods",
		Weight:      1.0,
	},
	"rigour": {
		Description: "Quality of methodology, evidence and argumentation",
		Weight:      1.0,
	},
}

// LoadSettings reads TOML settings from path, applies defaults and overlays
// API keys from the environment. A .env file next to the config file is
// loaded first if present; a missing .env is not an error.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(home, ".lectern", "config.toml")
	}

	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var s Settings
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	s.applyDefaults(filepath.Dir(path))
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// applyDefaults fills zero-valued fields.
func (s *Settings) applyDefaults(configDir string) {
	if s.Funnel.Strategy == "" {
		s.Funnel.Strategy = domain.StrategyFull.String()
	}
	if s.Funnel.TopK <= 0 {
		s.Funnel.TopK = DefaultTopK
	}
	if s.Funnel.MaxSelected <= 0 {
		s.Funnel.MaxSelected = DefaultMaxSelected
	}
	if s.Embedding.Provider == "" {
		s.Embedding.Provider = domain.AIProviderOllama.String()
	}
	if s.Rating.Provider == "" {
		s.Rating.Provider = domain.AIProviderOllama.String()
	}
	if s.Summary.Provider == "" {
		s.Summary = s.Rating
	}
	if s.Batch.MaxWaitMinutes <= 0 {
		s.Batch.MaxWaitMinutes = DefaultMaxWaitMinutes
	}
	if s.Batch.PollSeconds <= 0 {
		s.Batch.PollSeconds = DefaultPollSeconds
	}
	if s.Cache.Dir == "" {
		s.Cache.Dir = filepath.Join(configDir, "data")
	}
	if s.Cache.TTLDays == 0 {
		s.Cache.TTLDays = DefaultTTLDays
	}
	if s.Cache.ArtifactBudgetMB == 0 {
		s.Cache.ArtifactBudgetMB = DefaultArtifactBudgetMB
	}
	if len(s.Criteria) == 0 {
		s.Criteria = defaultCriteria
	}
}

// Validate checks the settings for coherence.
func (s *Settings) Validate() error {
	if s.Query == "" {
		return fmt.Errorf("%w: query must be set", domain.ErrInvalidInput)
	}
	strategy := domain.FunnelStrategy(s.Funnel.Strategy)
	if !strategy.IsValid() {
		return fmt.Errorf("%w: unknown funnel strategy %q", domain.ErrInvalidInput, s.Funnel.Strategy)
	}
	if strategy.UsesSimilarity() && !domain.AIProvider(s.Embedding.Provider).IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, s.Embedding.Provider)
	}
	if strategy.UsesRating() && !domain.AIProvider(s.Rating.Provider).IsValid() {
		return fmt.Errorf("%w: unknown rating provider %q", domain.ErrInvalidInput, s.Rating.Provider)
	}
	if !domain.AIProvider(s.Summary.Provider).IsValid() {
		return fmt.Errorf("%w: unknown summary provider %q", domain.ErrInvalidInput, s.Summary.Provider)
	}
	for name, c := range s.Criteria {
		if c.Weight <= 0 {
			return fmt.Errorf("%w: criterion %q must have positive weight", domain.ErrInvalidInput, name)
		}
	}
	return nil
}

// EmbeddingSettings materialises the embedding provider configuration,
// resolving the API key from the environment.
func (s *Settings) EmbeddingSettings() domain.EmbeddingSettings {
	return domain.EmbeddingSettings{
		Provider:      domain.AIProvider(s.Embedding.Provider),
		Model:         s.Embedding.Model,
		BaseURL:       s.Embedding.BaseURL,
		APIKey:        apiKeyFor(domain.AIProvider(s.Embedding.Provider)),
		ContextTokens: s.Embedding.ContextTokens,
	}
}

// RatingSettings materialises the rating LLM configuration.
func (s *Settings) RatingSettings(systemPrompt string) domain.LLMSettings {
	return llmSettings(s.Rating, systemPrompt)
}

// SummarySettings materialises the summarisation LLM configuration.
func (s *Settings) SummarySettings(systemPrompt string) domain.LLMSettings {
	return llmSettings(s.Summary, systemPrompt)
}

func llmSettings(p ProviderSettings, systemPrompt string) domain.LLMSettings {
	return domain.LLMSettings{
		Provider:          domain.AIProvider(p.Provider),
		Model:             p.Model,
		BaseURL:           p.BaseURL,
		APIKey:            apiKeyFor(domain.AIProvider(p.Provider)),
		SystemPrompt:      systemPrompt,
		MaxTokens:         p.MaxTokens,
		Temperature:       p.Temperature,
		ContextTokens:     p.ContextTokens,
		RequestsPerSecond: p.RequestsPerSecond,
	}
}

// apiKeyFor resolves a provider's API key from the environment.
func apiKeyFor(p domain.AIProvider) string {
	switch p {
	case domain.AIProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case domain.AIProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}

// RatingCriteria converts the configured criteria to domain form.
func (s *Settings) RatingCriteria() map[string]domain.RatingCriterion {
	out := make(map[string]domain.RatingCriterion, len(s.Criteria))
	for name, c := range s.Criteria {
		out[name] = domain.RatingCriterion{
			Description: c.Description,
			Weight:      c.Weight,
		}
	}
	return out
}

// CacheTTL returns the configured record lifetime.
func (s *Settings) CacheTTL() time.Duration {
	if s.Cache.TTLDays < 0 {
		return 0
	}
	return time.Duration(s.Cache.TTLDays) * 24 * time.Hour
}

// MaxWait returns the batch wait budget.
func (s *Settings) MaxWait() time.Duration {
	return time.Duration(s.Batch.MaxWaitMinutes) * time.Minute
}

// PollInterval returns the batch polling cadence.
func (s *Settings) PollInterval() time.Duration {
	return time.Duration(s.Batch.PollSeconds) * time.Second
}

// ScoringConfig returns the configuration subset that determines cached
// score validity. Changing any of these fields invalidates cached scores
// on the next run; delivery history is unaffected.
func (s *Settings) ScoringConfig() map[string]any {
	criteria := make(map[string]any, len(s.Criteria))
	for name, c := range s.Criteria {
		criteria[name] = map[string]any{
			"description": c.Description,
			"weight":      c.Weight,
		}
	}
	return map[string]any{
		"query":              s.Query,
		"strategy":           s.Funnel.Strategy,
		"embedding_provider": s.Embedding.Provider,
		"embedding_model":    s.Embedding.Model,
		"rating_provider":    s.Rating.Provider,
		"rating_model":       s.Rating.Model,
		"rating_temperature": s.Rating.Temperature,
		"criteria":           criteria,
	}
}
