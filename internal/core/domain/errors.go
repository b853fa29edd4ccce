package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Stages requiring an LLM (rating, summarisation) are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Similarity scoring is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrCacheUnavailable indicates the score cache store is unreachable.
	// This is systemic and aborts the run, unlike per-item failures.
	ErrCacheUnavailable = errors.New("score cache unavailable")

	// ErrBatchUnsupported indicates the provider has no native batch API
	// and per-item fallback is disabled.
	ErrBatchUnsupported = errors.New("batch processing unsupported by provider")

	// ErrBatchTimeout indicates a batch job did not reach a terminal
	// status within the configured wall-clock ceiling.
	ErrBatchTimeout = errors.New("batch job timed out")

	// ErrBatchFailed indicates a batch job reached a terminal status
	// other than completed.
	ErrBatchFailed = errors.New("batch job failed")

	// ErrMalformedResponse indicates a provider response that could not
	// be parsed, even after the lenient repair pass.
	ErrMalformedResponse = errors.New("malformed provider response")
)
