// Package memory provides in-memory implementations of driven port
// interfaces, used in tests and as a fallback when no data directory is
// available.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lectern-labs/lectern-cli/internal/adapters/driven/storage/sqlite"
	"github.com/lectern-labs/lectern-cli/internal/core/domain"
	"github.com/lectern-labs/lectern-cli/internal/core/ports/driven"
)

// Ensure ScoreCache implements the interface.
var _ driven.ScoreCache = (*ScoreCache)(nil)

// ScoreCache is an in-memory implementation of driven.ScoreCache with the
// same invalidation semantics as the SQLite store.
type ScoreCache struct {
	mu         sync.RWMutex
	scores     map[domain.ScoreKind]map[string]domain.ScoreRecord
	processed  map[string]domain.ProcessedRecord
	configHash string
}

// NewScoreCache creates a new in-memory score cache.
func NewScoreCache() *ScoreCache {
	return &ScoreCache{
		scores: map[domain.ScoreKind]map[string]domain.ScoreRecord{
			domain.ScoreSimilarity: {},
			domain.ScoreRating:     {},
		},
		processed: make(map[string]domain.ProcessedRecord),
	}
}

// GetScore returns the cached score of the given kind, or (nil, nil) on a miss.
func (c *ScoreCache) GetScore(_ context.Context, kind domain.ScoreKind, articleID string) (*domain.ScoreRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, ok := c.scores[kind][articleID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// PutScore stores a score, replacing any prior record of the same kind.
func (c *ScoreCache) PutScore(_ context.Context, kind domain.ScoreKind, articleID string, score float64, details string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !kind.IsValid() {
		return domain.ErrInvalidInput
	}
	c.scores[kind][articleID] = domain.ScoreRecord{
		ArticleID: articleID,
		Kind:      kind,
		Score:     score,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// IsProcessed reports whether the article was ever marked processed.
func (c *ScoreCache) IsProcessed(_ context.Context, articleID string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.processed[articleID]
	return ok, nil
}

// MarkProcessed permanently excludes the article from reselection.
func (c *ScoreCache) MarkProcessed(_ context.Context, articleID string, metadata string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processed[articleID] = domain.ProcessedRecord{
		ArticleID:   articleID,
		ProcessedAt: time.Now().UTC(),
		Metadata:    metadata,
	}
	return nil
}

// ReconcileConfig clears score maps (never processed markers) when the
// configuration hash changes.
func (c *ScoreCache) ReconcileConfig(_ context.Context, cfg any) error {
	hash, err := sqlite.HashConfig(cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configHash == hash {
		return nil
	}
	if c.configHash != "" {
		c.scores[domain.ScoreSimilarity] = map[string]domain.ScoreRecord{}
		c.scores[domain.ScoreRating] = map[string]domain.ScoreRecord{}
	}
	c.configHash = hash
	return nil
}

// Expire deletes score and processed records older than ttl.
func (c *ScoreCache) Expire(_ context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	deleted := 0
	for kind := range c.scores {
		for id, record := range c.scores[kind] {
			if record.CreatedAt.Before(cutoff) {
				delete(c.scores[kind], id)
				deleted++
			}
		}
	}
	for id, record := range c.processed {
		if record.ProcessedAt.Before(cutoff) {
			delete(c.processed, id)
			deleted++
		}
	}
	return deleted, nil
}

// Stats reports record counts. SizeBytes is always zero in memory.
func (c *ScoreCache) Stats(_ context.Context) (domain.CacheStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.CacheStats{
		SimilarityCount: len(c.scores[domain.ScoreSimilarity]),
		RatingCount:     len(c.scores[domain.ScoreRating]),
		ProcessedCount:  len(c.processed),
	}, nil
}
