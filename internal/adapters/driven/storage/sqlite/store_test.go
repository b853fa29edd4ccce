package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "lectern-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// backdate rewrites a record's timestamp so expiry tests don't sleep.
func backdate(t *testing.T, store *Store, table, column, articleID string, age time.Duration) {
	t.Helper()
	stamp := time.Now().UTC().Add(-age).Format(sqliteTimeLayout)
	_, err := store.db.Exec(
		"UPDATE "+table+" SET "+column+" = ? WHERE article_id = ?", stamp, articleID)
	require.NoError(t, err)
}

func TestNewStore_ErrorHandling(t *testing.T) {
	_, err := NewStore("/invalid\x00path")
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
	assert.Contains(t, err.Error(), "creating data directory")
}

func TestNewStore_Success(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "lectern-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	dbPath := filepath.Join(tempDir, "cache.db")
	assert.Equal(t, dbPath, store.Path())
	assert.FileExists(t, dbPath)

	assert.NoError(t, store.db.Ping())
}

func TestNewStore_Migrations(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	var count int
	err := store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Greater(t, count, 0, "should have at least one migration")

	tables := []string{
		"similarity_scores",
		"rating_scores",
		"processed_articles",
		"config_history",
	}

	for _, table := range tables {
		var tableExists int
		err := store.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&tableExists)
		require.NoError(t, err)
		assert.Equal(t, 1, tableExists, "table %s should exist", table)
	}
}

func TestStore_ScoreRoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	err := store.PutScore(ctx, domain.ScoreSimilarity, "arxiv/2401.00001", 0.8234, "")
	require.NoError(t, err)

	record, err := store.GetScore(ctx, domain.ScoreSimilarity, "arxiv/2401.00001")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "arxiv/2401.00001", record.ArticleID)
	assert.Equal(t, domain.ScoreSimilarity, record.Kind)
	assert.Equal(t, 0.8234, record.Score)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestStore_ScoreMiss(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	record, err := store.GetScore(context.Background(), domain.ScoreSimilarity, "unknown")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestStore_ScoreUnknownKind(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.GetScore(context.Background(), domain.ScoreKind("elo"), "a")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = store.PutScore(context.Background(), domain.ScoreKind("elo"), "a", 1, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_ScoreUpsertReplaces(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.PutScore(ctx, domain.ScoreRating, "a1", 4.0, `{"ratings":{"relevance":4}}`))
	require.NoError(t, store.PutScore(ctx, domain.ScoreRating, "a1", 7.5, `{"ratings":{"relevance":7.5}}`))

	record, err := store.GetScore(ctx, domain.ScoreRating, "a1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 7.5, record.Score)
	assert.Contains(t, record.Details, "7.5")

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM rating_scores").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestStore_RatingCarriesDetails(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	details := `{"ratings":{"relevance":8,"novelty":6},"justifications":{"relevance":"on topic"}}`
	require.NoError(t, store.PutScore(ctx, domain.ScoreRating, "a1", 7.33, details))

	record, err := store.GetScore(ctx, domain.ScoreRating, "a1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.JSONEq(t, details, record.Details)
}

func TestStore_ProcessedLifecycle(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	done, err := store.IsProcessed(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, store.MarkProcessed(ctx, "a1", `{"title":"T"}`))
	// Marking twice is a no-op, not an error.
	require.NoError(t, store.MarkProcessed(ctx, "a1", `{"title":"T"}`))

	done, err = store.IsProcessed(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, done)

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM processed_articles").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestHashConfig_OrderIndependent(t *testing.T) {
	a := map[string]any{"query": "quantum error correction", "top_k": 30, "model": "gpt-4o-mini"}
	b := map[string]any{"model": "gpt-4o-mini", "top_k": 30, "query": "quantum error correction"}

	hashA, err := HashConfig(a)
	require.NoError(t, err)
	hashB, err := HashConfig(b)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
	assert.Len(t, hashA, 64)
}

func TestHashConfig_ValueSensitive(t *testing.T) {
	hashA, err := HashConfig(map[string]any{"top_k": 30})
	require.NoError(t, err)
	hashB, err := HashConfig(map[string]any{"top_k": 31})
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
}

func TestStore_ReconcileConfig_FirstRunKeepsScores(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.PutScore(ctx, domain.ScoreSimilarity, "a1", 0.5, ""))

	// First reconcile only records the hash.
	require.NoError(t, store.ReconcileConfig(ctx, map[string]any{"query": "q"}))

	record, err := store.GetScore(ctx, domain.ScoreSimilarity, "a1")
	require.NoError(t, err)
	assert.NotNil(t, record)
}

func TestStore_ReconcileConfig_UnchangedIsNoOp(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	cfg := map[string]any{"query": "q", "top_k": 30}
	require.NoError(t, store.ReconcileConfig(ctx, cfg))
	require.NoError(t, store.PutScore(ctx, domain.ScoreSimilarity, "a1", 0.5, ""))

	require.NoError(t, store.ReconcileConfig(ctx, cfg))

	record, err := store.GetScore(ctx, domain.ScoreSimilarity, "a1")
	require.NoError(t, err)
	assert.NotNil(t, record)
}

func TestStore_ReconcileConfig_ChangeClearsScoresOnly(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.ReconcileConfig(ctx, map[string]any{"query": "old interests"}))
	require.NoError(t, store.PutScore(ctx, domain.ScoreSimilarity, "a1", 0.5, ""))
	require.NoError(t, store.PutScore(ctx, domain.ScoreRating, "a1", 8.0, "{}"))
	require.NoError(t, store.MarkProcessed(ctx, "a1", ""))

	require.NoError(t, store.ReconcileConfig(ctx, map[string]any{"query": "new interests"}))

	sim, err := store.GetScore(ctx, domain.ScoreSimilarity, "a1")
	require.NoError(t, err)
	assert.Nil(t, sim, "similarity scores should be cleared")

	rating, err := store.GetScore(ctx, domain.ScoreRating, "a1")
	require.NoError(t, err)
	assert.Nil(t, rating, "rating scores should be cleared")

	done, err := store.IsProcessed(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, done, "processed markers must survive invalidation")
}

func TestStore_Clear(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.PutScore(ctx, domain.ScoreSimilarity, "a1", 0.5, ""))
	require.NoError(t, store.MarkProcessed(ctx, "a1", ""))

	require.NoError(t, store.Clear(ctx, false))

	record, err := store.GetScore(ctx, domain.ScoreSimilarity, "a1")
	require.NoError(t, err)
	assert.Nil(t, record)

	done, err := store.IsProcessed(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, done)

	require.NoError(t, store.Clear(ctx, true))

	done, err = store.IsProcessed(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestStore_Expire(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.PutScore(ctx, domain.ScoreSimilarity, "old", 0.1, ""))
	require.NoError(t, store.PutScore(ctx, domain.ScoreSimilarity, "new", 0.9, ""))
	require.NoError(t, store.PutScore(ctx, domain.ScoreRating, "old", 3.0, "{}"))
	require.NoError(t, store.MarkProcessed(ctx, "old", ""))

	backdate(t, store, "similarity_scores", "created_at", "old", 120*24*time.Hour)
	backdate(t, store, "rating_scores", "created_at", "old", 120*24*time.Hour)
	backdate(t, store, "processed_articles", "processed_at", "old", 120*24*time.Hour)

	removed, err := store.Expire(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	old, err := store.GetScore(ctx, domain.ScoreSimilarity, "old")
	require.NoError(t, err)
	assert.Nil(t, old)

	fresh, err := store.GetScore(ctx, domain.ScoreSimilarity, "new")
	require.NoError(t, err)
	assert.NotNil(t, fresh)

	done, err := store.IsProcessed(ctx, "old")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestStore_Stats(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.PutScore(ctx, domain.ScoreSimilarity, "a1", 0.5, ""))
	require.NoError(t, store.PutScore(ctx, domain.ScoreSimilarity, "a2", 0.6, ""))
	require.NoError(t, store.PutScore(ctx, domain.ScoreRating, "a1", 7.0, "{}"))
	require.NoError(t, store.MarkProcessed(ctx, "a1", ""))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SimilarityCount)
	assert.Equal(t, 1, stats.RatingCount)
	assert.Equal(t, 1, stats.ProcessedCount)
	assert.Greater(t, stats.SizeBytes, int64(0))
}
