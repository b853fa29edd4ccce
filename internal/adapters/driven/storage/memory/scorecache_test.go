package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
)

func TestScoreCache_RoundTrip(t *testing.T) {
	cache := NewScoreCache()
	ctx := context.Background()

	record, err := cache.GetScore(ctx, domain.ScoreSimilarity, "a1")
	require.NoError(t, err)
	assert.Nil(t, record)

	require.NoError(t, cache.PutScore(ctx, domain.ScoreSimilarity, "a1", 0.7, ""))

	record, err = cache.GetScore(ctx, domain.ScoreSimilarity, "a1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 0.7, record.Score)
	assert.Equal(t, domain.ScoreSimilarity, record.Kind)
}

func TestScoreCache_InvalidKind(t *testing.T) {
	cache := NewScoreCache()

	err := cache.PutScore(context.Background(), domain.ScoreKind("elo"), "a1", 1, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestScoreCache_Processed(t *testing.T) {
	cache := NewScoreCache()
	ctx := context.Background()

	done, err := cache.IsProcessed(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, cache.MarkProcessed(ctx, "a1", ""))

	done, err = cache.IsProcessed(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestScoreCache_ReconcileMatchesSQLiteSemantics(t *testing.T) {
	cache := NewScoreCache()
	ctx := context.Background()

	// First reconcile records the hash without clearing.
	require.NoError(t, cache.PutScore(ctx, domain.ScoreSimilarity, "a1", 0.5, ""))
	require.NoError(t, cache.ReconcileConfig(ctx, map[string]any{"query": "v1"}))

	record, err := cache.GetScore(ctx, domain.ScoreSimilarity, "a1")
	require.NoError(t, err)
	assert.NotNil(t, record)

	// Unchanged config keeps scores.
	require.NoError(t, cache.ReconcileConfig(ctx, map[string]any{"query": "v1"}))
	record, err = cache.GetScore(ctx, domain.ScoreSimilarity, "a1")
	require.NoError(t, err)
	assert.NotNil(t, record)

	// Changed config clears scores but keeps processed markers.
	require.NoError(t, cache.MarkProcessed(ctx, "a1", ""))
	require.NoError(t, cache.ReconcileConfig(ctx, map[string]any{"query": "v2"}))

	record, err = cache.GetScore(ctx, domain.ScoreSimilarity, "a1")
	require.NoError(t, err)
	assert.Nil(t, record)

	done, err := cache.IsProcessed(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestScoreCache_Stats(t *testing.T) {
	cache := NewScoreCache()
	ctx := context.Background()

	require.NoError(t, cache.PutScore(ctx, domain.ScoreSimilarity, "a1", 0.5, ""))
	require.NoError(t, cache.PutScore(ctx, domain.ScoreRating, "a1", 8.0, "{}"))
	require.NoError(t, cache.MarkProcessed(ctx, "a2", ""))

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SimilarityCount)
	assert.Equal(t, 1, stats.RatingCount)
	assert.Equal(t, 1, stats.ProcessedCount)
}
