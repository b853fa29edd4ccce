package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
	"github.com/lectern-labs/lectern-cli/internal/core/ports/driven"
	"github.com/lectern-labs/lectern-cli/internal/logger"
)

// Summarizer turns selected articles into digests through the batch
// processing path. Articles whose summary fails are dropped from the
// output rather than failing the run.
type Summarizer struct {
	processor driven.TextProcessor
}

// NewSummarizer creates a summarizer over the given text processor.
func NewSummarizer(processor driven.TextProcessor) (*Summarizer, error) {
	if processor == nil {
		return nil, fmt.Errorf("%w: summarizer needs a text processor", domain.ErrLLMUnavailable)
	}
	return &Summarizer{processor: processor}, nil
}

// Summarize produces one digest per successfully summarized article,
// preserving input order.
func (s *Summarizer) Summarize(ctx context.Context, articles []domain.Article) ([]domain.Digest, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	logger.Section("Summarization")
	logger.Info("Summarizing %d articles with %s", len(articles), s.processor.ModelName())

	contents := make([]string, len(articles))
	for i, article := range articles {
		contents[i] = article.Content
	}

	results, err := s.processor.ProcessBatch(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize articles: %w", err)
	}

	digests := make([]domain.Digest, 0, len(articles))
	now := time.Now().UTC()
	for i, result := range results {
		if !result.OK {
			logger.Warn("Summary failed for %s, dropping from digest", articles[i].ID)
			continue
		}
		summary := strings.TrimSpace(result.Text)
		if summary == "" {
			logger.Warn("Empty summary for %s, dropping from digest", articles[i].ID)
			continue
		}
		digests = append(digests, domain.Digest{
			Article:     articles[i],
			Summary:     summary,
			GeneratedAt: now,
		})
	}

	logger.Info("Produced %d digests", len(digests))
	return digests, nil
}
