package driven

import "context"

// BatchStatus is the closed set of provider-side batch job states.
type BatchStatus string

// Batch job states. Created, Submitted and Polling are transient;
// the rest are terminal.
const (
	BatchCreated   BatchStatus = "created"
	BatchSubmitted BatchStatus = "submitted"
	BatchPolling   BatchStatus = "polling"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
	BatchExpired   BatchStatus = "expired"
	BatchCancelled BatchStatus = "cancelled"

	// BatchTimedOut is a client-side terminal state: the job did not
	// reach a provider terminal status within the polling ceiling.
	BatchTimedOut BatchStatus = "timed_out"
)

// IsTerminal returns true if the provider will not advance this status.
func (s BatchStatus) IsTerminal() bool {
	switch s {
	case BatchCompleted, BatchFailed, BatchExpired, BatchCancelled, BatchTimedOut:
		return true
	default:
		return false
	}
}

// Result is one per-item outcome of batch processing. Absent results keep
// their slot so output always aligns index-for-index with input.
type Result struct {
	// Text is the extracted response text. Empty when not OK.
	Text string

	// OK reports whether this item produced a usable response.
	OK bool
}

// TextProcessor executes LLM requests for one pipeline role (rating or
// summarisation), either one at a time or as a provider batch job.
//
// Implementations must guarantee that ProcessBatch returns exactly one
// Result per input, in input order, regardless of the order the provider
// reports completions in, and must degrade to sequential single calls for
// providers without a native batch API.
type TextProcessor interface {
	// ProcessSingle issues one synchronous request for the given content
	// and returns the extracted response text.
	ProcessSingle(ctx context.Context, content string) (string, error)

	// ProcessBatch processes many contents, preferring the provider's
	// batch API. Per-item failures are absent Results, never errors.
	// The returned error is reserved for systemic failures (batch
	// unsupported with fallback disabled, job failure with fallback
	// disabled).
	ProcessBatch(ctx context.Context, contents []string) ([]Result, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
