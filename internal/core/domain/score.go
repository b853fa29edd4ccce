package domain

import "time"

// ScoreKind distinguishes the two independent score caches.
type ScoreKind string

// Available score kinds.
const (
	// ScoreSimilarity is the cheap embedding-similarity score.
	ScoreSimilarity ScoreKind = "similarity"

	// ScoreRating is the expensive LLM rating score.
	ScoreRating ScoreKind = "rating"
)

// IsValid returns true if the score kind is recognised.
func (k ScoreKind) IsValid() bool {
	switch k {
	case ScoreSimilarity, ScoreRating:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k ScoreKind) String() string {
	return string(k)
}

// ScoreRecord is one cached score for one article. At most one record of
// each kind exists per article; writes replace any prior record.
type ScoreRecord struct {
	ArticleID string
	Kind      ScoreKind
	Score     float64

	// Details is an opaque JSON blob attached to rating scores
	// (per-criterion judgments). Empty for similarity scores.
	Details string

	CreatedAt time.Time
}

// ProcessedRecord marks an article as delivered. Its presence permanently
// excludes the article from reselection, surviving score-cache invalidation.
type ProcessedRecord struct {
	ArticleID   string
	ProcessedAt time.Time

	// Metadata is an opaque JSON blob recorded at processing time.
	Metadata string
}

// CacheStats summarises the state of the score cache.
type CacheStats struct {
	SimilarityCount int
	RatingCount     int
	ProcessedCount  int
	SizeBytes       int64
}
