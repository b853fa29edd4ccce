package services

import (
	"context"
	"fmt"
	"math"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
	"github.com/lectern-labs/lectern-cli/internal/core/ports/driven"
)

// vecFor returns a unit vector whose cosine against [1, 0] equals sim.
func vecFor(sim float64) []float64 {
	return []float64{sim, math.Sqrt(1 - sim*sim)}
}

// fakeEmbeddingService serves canned embeddings keyed by input text.
type fakeEmbeddingService struct {
	vectors       map[string][]float64
	contextTokens int
	embedCalls    int
}

var _ driven.EmbeddingService = (*fakeEmbeddingService)(nil)

func (f *fakeEmbeddingService) Embed(_ context.Context, text string) ([]float64, error) {
	f.embedCalls++
	vec, ok := f.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no embedding for %q", text)
	}
	return vec, nil
}

func (f *fakeEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbeddingService) ContextTokens() int {
	if f.contextTokens > 0 {
		return f.contextTokens
	}
	return 8192
}

func (f *fakeEmbeddingService) ModelName() string          { return "fake-embed" }
func (f *fakeEmbeddingService) Ping(context.Context) error { return nil }
func (f *fakeEmbeddingService) Close() error               { return nil }

// fakeProcessor serves canned responses keyed by input content.
type fakeProcessor struct {
	responses  map[string]string
	batchErr   error
	singleErr  error
	batchCalls int
}

var _ driven.TextProcessor = (*fakeProcessor)(nil)

func (f *fakeProcessor) ProcessSingle(_ context.Context, content string) (string, error) {
	if f.singleErr != nil {
		return "", f.singleErr
	}
	text, ok := f.responses[content]
	if !ok {
		return "", fmt.Errorf("no response for %q", content)
	}
	return text, nil
}

func (f *fakeProcessor) ProcessBatch(_ context.Context, contents []string) ([]driven.Result, error) {
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	results := make([]driven.Result, len(contents))
	for i, content := range contents {
		if text, ok := f.responses[content]; ok {
			results[i] = driven.Result{Text: text, OK: true}
		}
	}
	return results, nil
}

func (f *fakeProcessor) ModelName() string { return "fake-llm" }
func (f *fakeProcessor) Close() error      { return nil }

// fakeFetcher returns a fixed candidate set.
type fakeFetcher struct {
	articles []domain.Article
	err      error
}

var _ driven.Fetcher = (*fakeFetcher)(nil)

func (f *fakeFetcher) Fetch(context.Context) ([]domain.Article, error) {
	return f.articles, f.err
}

// fakeDeliverer records every delivery.
type fakeDeliverer struct {
	deliveries [][]domain.Digest
	err        error
}

var _ driven.Deliverer = (*fakeDeliverer)(nil)

func (f *fakeDeliverer) Deliver(_ context.Context, digests []domain.Digest) error {
	if f.err != nil {
		return f.err
	}
	f.deliveries = append(f.deliveries, digests)
	return nil
}
