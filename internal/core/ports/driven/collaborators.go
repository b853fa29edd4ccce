package driven

import (
	"context"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
)

// Fetcher supplies the candidate articles for one run: identifiers plus
// extracted text content. Retrieval and text extraction happen behind this
// boundary; the core never fetches or parses source material itself.
type Fetcher interface {
	// Fetch returns the current candidate set. An empty slice is a
	// normal result, not an error.
	Fetch(ctx context.Context) ([]domain.Article, error)
}

// Deliverer receives the finished digests for rendering and delivery
// (PDF/HTML/e-book generation, email). The core guarantees each digest's
// article is marked processed only after delivery hand-off succeeds.
type Deliverer interface {
	Deliver(ctx context.Context, digests []domain.Digest) error
}
