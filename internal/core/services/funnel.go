package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
	"github.com/lectern-labs/lectern-cli/internal/core/ports/driven"
	"github.com/lectern-labs/lectern-cli/internal/logger"
)

// DefaultWorkers is the embedding worker pool size.
const DefaultWorkers = 4

// FunnelConfig controls the coarse-to-fine narrowing.
type FunnelConfig struct {
	// Strategy selects which narrowing stages run.
	Strategy domain.FunnelStrategy

	// TopK is the survivor count after similarity narrowing.
	TopK int

	// MaxSelected is the final bounded selection size.
	MaxSelected int

	// Workers bounds per-item scoring parallelism (default: 4).
	Workers int
}

// Funnel narrows a candidate set in two stages: cheap embedding similarity
// first, then expensive LLM rating. Scores are read from and written back
// to the score cache so each article is scored at most once across runs.
type Funnel struct {
	cache    driven.ScoreCache
	embedder *Embedder
	rater    *Rater
	cfg      FunnelConfig
}

// NewFunnel creates a selection funnel. The embedder is required for
// strategies that narrow by similarity, the rater for strategies that
// narrow by rating.
func NewFunnel(cache driven.ScoreCache, embedder *Embedder, rater *Rater, cfg FunnelConfig) (*Funnel, error) {
	if !cfg.Strategy.IsValid() {
		return nil, fmt.Errorf("%w: funnel strategy %q", domain.ErrInvalidInput, cfg.Strategy)
	}
	if cfg.Strategy.UsesSimilarity() && embedder == nil {
		return nil, fmt.Errorf("%w: strategy %s needs an embedder", domain.ErrEmbeddingUnavailable, cfg.Strategy)
	}
	if cfg.Strategy.UsesRating() && rater == nil {
		return nil, fmt.Errorf("%w: strategy %s needs a rater", domain.ErrLLMUnavailable, cfg.Strategy)
	}
	if cfg.TopK <= 0 && cfg.Strategy.UsesSimilarity() && cfg.Strategy.UsesRating() {
		return nil, fmt.Errorf("%w: top-k must be positive", domain.ErrInvalidInput)
	}
	if cfg.MaxSelected <= 0 {
		return nil, fmt.Errorf("%w: max selected must be positive", domain.ErrInvalidInput)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	return &Funnel{
		cache:    cache,
		embedder: embedder,
		rater:    rater,
		cfg:      cfg,
	}, nil
}

// Select narrows candidates to an ordered, size-bounded selection. Failed
// items are dropped from the survivor set without aborting the run; an
// empty selection is a normal result.
func (f *Funnel) Select(ctx context.Context, candidates []domain.Article) ([]domain.Article, error) {
	logger.Section("Selection Funnel")
	logger.Info("Narrowing %d candidates with strategy %s", len(candidates), f.cfg.Strategy)

	survivors := candidates

	if f.cfg.Strategy.UsesSimilarity() {
		keep := f.cfg.TopK
		if !f.cfg.Strategy.UsesRating() {
			// Similarity is the only signal, so it selects directly.
			keep = f.cfg.MaxSelected
		}
		survivors = f.stageSimilarity(ctx, survivors, keep)
		logger.Info("Similarity stage kept %d candidates", len(survivors))
	}

	if f.cfg.Strategy.UsesRating() {
		survivors = f.stageRating(ctx, survivors)
		logger.Info("Rating stage kept %d candidates", len(survivors))
	}

	return survivors, nil
}

// stageSimilarity scores candidates without a cached similarity score,
// ranks all scored candidates descending and truncates to keep. Fewer
// survivors than keep are all retained.
func (f *Funnel) stageSimilarity(ctx context.Context, candidates []domain.Article, keep int) []domain.Article {
	toScore := make([]int, 0, len(candidates))
	for i := range candidates {
		if !candidates[i].HasSimilarity() {
			toScore = append(toScore, i)
		}
	}
	logger.Debug("%d candidates have cached similarity scores, %d to score",
		len(candidates)-len(toScore), len(toScore))

	// Each worker scores one article end-to-end: one embedding round trip,
	// one cache write, one slot in the shared slice.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Workers)
	for _, idx := range toScore {
		article := &candidates[idx]
		g.Go(func() error {
			score, err := f.embedder.Similarity(gctx, article.Content)
			if err != nil {
				logger.Warn("Similarity scoring failed for %s: %v", article.ID, err)
				return nil
			}
			article.Similarity = &score
			if err := f.cache.PutScore(gctx, domain.ScoreSimilarity, article.ID, score, ""); err != nil {
				logger.Warn("Failed to cache similarity score for %s: %v", article.ID, err)
			}
			return nil
		})
	}
	// Workers never return errors; per-item failures only drop that item.
	_ = g.Wait()

	scored := make([]domain.Article, 0, len(candidates))
	for _, article := range candidates {
		if article.HasSimilarity() {
			scored = append(scored, article)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return *scored[i].Similarity > *scored[j].Similarity
	})
	if len(scored) > keep {
		scored = scored[:keep]
	}
	return scored
}

// stageRating rates survivors without a cached rating score through the
// batch path, ranks descending and truncates to the final selection size.
func (f *Funnel) stageRating(ctx context.Context, candidates []domain.Article) []domain.Article {
	rated := make([]domain.Article, 0, len(candidates))
	var toRate []domain.Article
	for _, article := range candidates {
		if article.HasRating() {
			rated = append(rated, article)
		} else {
			toRate = append(toRate, article)
		}
	}
	logger.Debug("%d candidates have cached rating scores, %d to rate", len(rated), len(toRate))

	if len(toRate) > 0 {
		contents := make([]string, len(toRate))
		for i, article := range toRate {
			contents[i] = article.Content
		}

		outcomes, err := f.rater.RateBatch(ctx, contents)
		if err != nil {
			// Systemic rating failure: proceed with whatever has a score.
			logger.Warn("Rating stage failed (%v), keeping %d already-rated candidates", err, len(rated))
			outcomes = nil
		}

		for i, outcome := range outcomes {
			article := toRate[i]
			if !outcome.OK {
				logger.Warn("Rating failed for %s: %v", article.ID, outcome.Err)
				continue
			}
			score := outcome.Score
			article.Rating = &score

			details, err := json.Marshal(outcome.Details)
			if err != nil {
				details = nil
			}
			if err := f.cache.PutScore(ctx, domain.ScoreRating, article.ID, score, string(details)); err != nil {
				logger.Warn("Failed to cache rating score for %s: %v", article.ID, err)
			}
			rated = append(rated, article)
		}
	}

	sort.SliceStable(rated, func(i, j int) bool {
		return *rated[i].Rating > *rated[j].Rating
	})
	if len(rated) > f.cfg.MaxSelected {
		rated = rated[:f.cfg.MaxSelected]
	}
	return rated
}
