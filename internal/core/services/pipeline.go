package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
	"github.com/lectern-labs/lectern-cli/internal/core/ports/driven"
	"github.com/lectern-labs/lectern-cli/internal/logger"
)

// PipelineConfig controls the cross-cutting run parameters.
type PipelineConfig struct {
	// ScoringConfig is the scoring-relevant configuration subset whose
	// hash gates score-cache validity across runs.
	ScoringConfig any

	// CacheTTL expires cache records older than this (default: 90 days,
	// zero or negative disables expiry).
	CacheTTL time.Duration

	// ArtifactBudgetBytes bounds the artifact cache (zero disables
	// eviction).
	ArtifactBudgetBytes int64
}

// DefaultCacheTTL is how long cache records live before expiry.
const DefaultCacheTTL = 90 * 24 * time.Hour

// Pipeline runs one end-to-end digest cycle: fetch candidates, drop
// already-processed ones, narrow through the funnel, summarize, deliver,
// and finally expire stale cache records and evict surplus artifacts.
type Pipeline struct {
	fetcher    driven.Fetcher
	cache      driven.ScoreCache
	artifacts  driven.ArtifactCache
	funnel     *Funnel
	summarizer *Summarizer
	deliverer  driven.Deliverer
	cfg        PipelineConfig
}

// NewPipeline assembles a pipeline. The artifact cache is optional; all
// other collaborators are required.
func NewPipeline(
	fetcher driven.Fetcher,
	cache driven.ScoreCache,
	artifacts driven.ArtifactCache,
	funnel *Funnel,
	summarizer *Summarizer,
	deliverer driven.Deliverer,
	cfg PipelineConfig,
) (*Pipeline, error) {
	if fetcher == nil || cache == nil || funnel == nil || summarizer == nil || deliverer == nil {
		return nil, fmt.Errorf("%w: pipeline is missing a collaborator", domain.ErrInvalidInput)
	}
	return &Pipeline{
		fetcher:    fetcher,
		cache:      cache,
		artifacts:  artifacts,
		funnel:     funnel,
		summarizer: summarizer,
		deliverer:  deliverer,
		cfg:        cfg,
	}, nil
}

// Run executes one digest cycle. A run with no candidates, or one where
// every candidate was already processed or dropped by the funnel,
// completes normally with nothing delivered.
func (p *Pipeline) Run(ctx context.Context) error {
	// Scoring config changes invalidate cached scores before anything
	// reads them. Processed markers survive.
	if err := p.cache.ReconcileConfig(ctx, p.cfg.ScoringConfig); err != nil {
		return fmt.Errorf("reconciling cache configuration: %w", err)
	}

	candidates, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching candidates: %w", err)
	}
	logger.Info("Fetched %d candidates", len(candidates))

	fresh, err := p.dropProcessed(ctx, candidates)
	if err != nil {
		return err
	}
	logger.Info("%d candidates remain after dropping processed articles", len(fresh))

	if err := p.attachCachedScores(ctx, fresh); err != nil {
		return err
	}

	selected, err := p.funnel.Select(ctx, fresh)
	if err != nil {
		return fmt.Errorf("selecting articles: %w", err)
	}

	digests, err := p.summarizer.Summarize(ctx, selected)
	if err != nil {
		return fmt.Errorf("summarizing selection: %w", err)
	}

	if len(digests) > 0 {
		if err := p.deliverer.Deliver(ctx, digests); err != nil {
			return fmt.Errorf("delivering digests: %w", err)
		}
		for _, digest := range digests {
			meta, err := json.Marshal(map[string]string{
				"title": digest.Article.Title,
				"url":   digest.Article.URL,
			})
			if err != nil {
				meta = nil
			}
			if err := p.cache.MarkProcessed(ctx, digest.Article.ID, string(meta)); err != nil {
				return fmt.Errorf("marking %s processed: %w", digest.Article.ID, err)
			}
		}
		logger.Info("Delivered %d digests", len(digests))
	} else {
		logger.Info("Nothing to deliver this run")
	}

	p.maintain(ctx, candidates)
	return nil
}

// dropProcessed filters out articles already delivered in a prior run.
func (p *Pipeline) dropProcessed(ctx context.Context, candidates []domain.Article) ([]domain.Article, error) {
	fresh := make([]domain.Article, 0, len(candidates))
	for _, article := range candidates {
		done, err := p.cache.IsProcessed(ctx, article.ID)
		if err != nil {
			return nil, fmt.Errorf("checking processed state of %s: %w", article.ID, err)
		}
		if !done {
			fresh = append(fresh, article)
		}
	}
	return fresh, nil
}

// attachCachedScores populates candidates with scores from prior runs so
// the funnel skips recomputing them.
func (p *Pipeline) attachCachedScores(ctx context.Context, candidates []domain.Article) error {
	hits := 0
	for i := range candidates {
		sim, err := p.cache.GetScore(ctx, domain.ScoreSimilarity, candidates[i].ID)
		if err != nil {
			return fmt.Errorf("reading cached similarity for %s: %w", candidates[i].ID, err)
		}
		if sim != nil {
			score := sim.Score
			candidates[i].Similarity = &score
			hits++
		}

		rating, err := p.cache.GetScore(ctx, domain.ScoreRating, candidates[i].ID)
		if err != nil {
			return fmt.Errorf("reading cached rating for %s: %w", candidates[i].ID, err)
		}
		if rating != nil {
			score := rating.Score
			candidates[i].Rating = &score
			hits++
		}
	}
	logger.Debug("Attached %d cached scores", hits)
	return nil
}

// maintain runs the post-delivery housekeeping. Failures here are logged
// and never fail a run that already delivered.
func (p *Pipeline) maintain(ctx context.Context, candidates []domain.Article) {
	ttl := p.cfg.CacheTTL
	if ttl > 0 {
		expired, err := p.cache.Expire(ctx, ttl)
		if err != nil {
			logger.Warn("Cache expiry failed: %v", err)
		} else if expired > 0 {
			logger.Info("Expired %d stale cache records", expired)
		}
	}

	if p.artifacts != nil && p.cfg.ArtifactBudgetBytes > 0 {
		keep := make([]string, 0, len(candidates))
		for _, article := range candidates {
			if article.URL != "" {
				keep = append(keep, article.URL)
			}
		}
		if _, err := p.artifacts.Evict(keep, p.cfg.ArtifactBudgetBytes); err != nil {
			logger.Warn("Artifact eviction failed: %v", err)
		}
	}
}
