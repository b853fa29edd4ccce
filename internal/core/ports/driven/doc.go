// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - ScoreCache: Persistent score/processed-marker cache with
//     configuration-change invalidation
//   - Fetcher: Supplies candidate articles (metadata + extracted text)
//   - TextProcessor: Single and batch LLM request execution
//
// # Optional Interfaces
//
// These can be nil depending on the funnel strategy:
//
//   - EmbeddingService: Generates vector embeddings. Required only when
//     the strategy includes similarity narrowing.
//   - Deliverer: Hands finished digests to rendering/delivery. When nil,
//     digests are reported but not delivered.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
