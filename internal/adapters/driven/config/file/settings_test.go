package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadSettings_Minimal(t *testing.T) {
	path := writeConfig(t, `query = "quantum error correction"`)

	s, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "quantum error correction", s.Query)
	assert.Equal(t, domain.StrategyFull.String(), s.Funnel.Strategy)
	assert.Equal(t, DefaultTopK, s.Funnel.TopK)
	assert.Equal(t, DefaultMaxSelected, s.Funnel.MaxSelected)
	assert.Equal(t, domain.AIProviderOllama.String(), s.Embedding.Provider)
	assert.Equal(t, DefaultTTLDays, s.Cache.TTLDays)
	assert.Equal(t, int64(DefaultArtifactBudgetMB), s.Cache.ArtifactBudgetMB)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data"), s.Cache.Dir)
	assert.NotEmpty(t, s.Criteria, "default criteria apply when none configured")
}

func TestLoadSettings_Full(t *testing.T) {
	path := writeConfig(t, `
query = "ml systems"

[funnel]
strategy = "similarity_only"
top_k = 40
max_selected = 5
workers = 8

[embedding]
provider = "openai"
model = "text-embedding-3-small"

[rating]
provider = "openai"
model = "gpt-4o-mini"
temperature = 0.2
requests_per_second = 2.5

[batch]
enabled = true
max_wait_minutes = 60
poll_seconds = 15
fallback_on_error = true

[cache]
ttl_days = 30
artifact_budget_mb = 512

[criteria.relevance]
description = "matches interests"
weight = 3.0
`)

	s, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "similarity_only", s.Funnel.Strategy)
	assert.Equal(t, 40, s.Funnel.TopK)
	assert.Equal(t, time.Hour, s.MaxWait())
	assert.Equal(t, 15*time.Second, s.PollInterval())
	assert.Equal(t, 30*24*time.Hour, s.CacheTTL())
	assert.Equal(t, int64(512), s.Cache.ArtifactBudgetMB)

	criteria := s.RatingCriteria()
	require.Contains(t, criteria, "relevance")
	assert.Equal(t, 3.0, criteria["relevance"].Weight)

	// Summary falls back to the rating provider when not configured.
	assert.Equal(t, "openai", s.Summary.Provider)
	assert.Equal(t, "gpt-4o-mini", s.Summary.Model)

	// The throttle reaches the materialised LLM settings for both roles.
	assert.Equal(t, 2.5, s.RatingSettings("sys").RequestsPerSecond)
	assert.Equal(t, 2.5, s.SummarySettings("sys").RequestsPerSecond)
}

func TestLoadSettings_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing query", content: `[funnel]` + "\n" + `strategy = "full"`},
		{name: "unknown strategy", content: "query = \"q\"\n[funnel]\nstrategy = \"vibes\""},
		{name: "unknown provider", content: "query = \"q\"\n[rating]\nprovider = \"cohere\""},
		{name: "zero weight criterion", content: "query = \"q\"\n[criteria.x]\nweight = 0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSettings(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestLoadSettings_MissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestSettings_APIKeysFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	path := writeConfig(t, `
query = "q"

[embedding]
provider = "openai"

[rating]
provider = "anthropic"
`)
	s, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-openai", s.EmbeddingSettings().APIKey)
	assert.Equal(t, "sk-ant", s.RatingSettings("sys").APIKey)
	assert.Equal(t, "sys", s.RatingSettings("sys").SystemPrompt)
}

func TestSettings_ScoringConfigCoversInvalidatingFields(t *testing.T) {
	path := writeConfig(t, `query = "q"`)
	s, err := LoadSettings(path)
	require.NoError(t, err)

	cfg := s.ScoringConfig()
	assert.Contains(t, cfg, "query")
	assert.Contains(t, cfg, "strategy")
	assert.Contains(t, cfg, "embedding_model")
	assert.Contains(t, cfg, "rating_model")
	assert.Contains(t, cfg, "criteria")

	// Changing the query changes the scoring config.
	s.Query = "different"
	assert.NotEqual(t, cfg["query"], s.ScoringConfig()["query"])
}

func TestSettings_NegativeTTLDisablesExpiry(t *testing.T) {
	path := writeConfig(t, "query = \"q\"\n[cache]\nttl_days = -1")
	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), s.CacheTTL())
}
