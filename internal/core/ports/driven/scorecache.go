package driven

import (
	"context"
	"time"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
)

// ScoreCache persists computed scores and processed-article markers across
// runs. All operations are safe to call repeatedly; writes are last-write-wins
// upserts keyed by article ID.
type ScoreCache interface {
	// GetScore returns the cached score of the given kind, or (nil, nil)
	// on a cache miss.
	GetScore(ctx context.Context, kind domain.ScoreKind, articleID string) (*domain.ScoreRecord, error)

	// PutScore stores a score, replacing any prior record of the same
	// kind for the article. Details is an opaque JSON blob and may be
	// empty.
	PutScore(ctx context.Context, kind domain.ScoreKind, articleID string, score float64, details string) error

	// IsProcessed reports whether the article was ever marked processed.
	IsProcessed(ctx context.Context, articleID string) (bool, error)

	// MarkProcessed permanently excludes the article from reselection.
	// Calling it again for the same article is a no-op.
	MarkProcessed(ctx context.Context, articleID string, metadata string) error

	// ReconcileConfig hashes the effective configuration and, when the
	// hash differs from the most recently recorded one, clears both score
	// tables (similarity and rating) while preserving processed markers,
	// then records the new hash. Must run once per pipeline invocation
	// before any scoring.
	ReconcileConfig(ctx context.Context, cfg any) error

	// Expire deletes score and processed records older than ttl.
	Expire(ctx context.Context, ttl time.Duration) (int, error)

	// Stats reports record counts and on-disk size.
	Stats(ctx context.Context) (domain.CacheStats, error)
}

// ArtifactCache stores bulk binary artifacts (e.g. downloaded source
// documents) on disk, keyed by a hash of their origin reference.
type ArtifactCache interface {
	// Put stores an artifact for the given origin reference.
	Put(origin string, data []byte) error

	// Get returns the cached artifact, or domain.ErrNotFound.
	Get(origin string) ([]byte, error)

	// Evict removes least-recently-used artifacts not named in keep until
	// total size fits the budget policy: the larger of 80% of budget and
	// budget minus a fixed margin.
	Evict(keep []string, budgetBytes int64) (int, error)
}
