package services

import (
	"context"
	"fmt"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
	"github.com/lectern-labs/lectern-cli/internal/core/ports/driven"
	"github.com/lectern-labs/lectern-cli/internal/logger"
)

// Embedder scores article content against a fixed interest query by cosine
// similarity. The query embedding is computed once at construction and
// reused for every candidate.
type Embedder struct {
	service        driven.EmbeddingService
	queryEmbedding []float64
}

// NewEmbedder creates an embedder and precomputes the interest-query
// embedding. The query describes what the user wants to read, e.g. an
// interests sentence rendered into a query template.
func NewEmbedder(ctx context.Context, service driven.EmbeddingService, query string) (*Embedder, error) {
	if service == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	queryEmbedding, err := service.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding interest query: %w", err)
	}
	logger.Debug("Interest query embedded (%d dimensions)", len(queryEmbedding))

	return &Embedder{
		service:        service,
		queryEmbedding: queryEmbedding,
	}, nil
}

// Similarity computes the cosine similarity between the content and the
// interest query. Content over the embedder's context budget is split into
// sentence-aligned chunks, each scored separately and combined by a
// length-weighted average.
func (e *Embedder) Similarity(ctx context.Context, content string) (float64, error) {
	chunks := chunkText(content, e.service.ContextTokens())
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: empty content", domain.ErrInvalidInput)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.text
	}

	embeddings, err := e.service.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding content chunks: %w", err)
	}

	var weightedSum, totalTokens float64
	for i, embedding := range embeddings {
		weight := float64(chunks[i].tokens)
		weightedSum += weight * cosineSimilarity(embedding, e.queryEmbedding)
		totalTokens += weight
	}
	if totalTokens == 0 {
		return 0, nil
	}
	return weightedSum / totalTokens, nil
}
