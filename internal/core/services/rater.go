package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
	"github.com/lectern-labs/lectern-cli/internal/core/ports/driven"
	"github.com/lectern-labs/lectern-cli/internal/logger"
)

// RateOutcome is the result of rating one article. Failed ratings are
// reported per item, never as batch-wide errors.
type RateOutcome struct {
	Score   float64
	Details domain.RatingDetails
	OK      bool
	Err     error
}

// Rater turns article content into weighted rating scores through a
// structured LLM prompt. The criteria listing is baked into the processor's
// prompt template; Rater owns response parsing and score aggregation.
type Rater struct {
	processor driven.TextProcessor
	criteria  map[string]domain.RatingCriterion
}

// NewRater creates a rater over the given processor and criteria.
func NewRater(processor driven.TextProcessor, criteria map[string]domain.RatingCriterion) *Rater {
	return &Rater{
		processor: processor,
		criteria:  criteria,
	}
}

// RateBatch rates many articles, preferring the processor's batch path.
// Returns one outcome per input, in input order.
func (r *Rater) RateBatch(ctx context.Context, contents []string) ([]RateOutcome, error) {
	results, err := r.processor.ProcessBatch(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("rating batch: %w", err)
	}

	outcomes := make([]RateOutcome, len(results))
	for i, result := range results {
		if !result.OK {
			outcomes[i] = RateOutcome{Err: fmt.Errorf("no response for item %d", i)}
			continue
		}
		outcomes[i] = r.parse(result.Text)
	}
	return outcomes, nil
}

// Rate rates a single article synchronously.
func (r *Rater) Rate(ctx context.Context, content string) (RateOutcome, error) {
	text, err := r.processor.ProcessSingle(ctx, content)
	if err != nil {
		return RateOutcome{}, err
	}
	return r.parse(text), nil
}

// parse runs the two-phase decode: lenient repair, then strict JSON, then
// weighted aggregation over the configured criteria.
func (r *Rater) parse(text string) RateOutcome {
	var details domain.RatingDetails
	if err := json.Unmarshal([]byte(repairJSON(text)), &details); err != nil {
		return RateOutcome{Err: fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)}
	}
	if len(details.Ratings) == 0 {
		return RateOutcome{Err: fmt.Errorf("%w: response missing ratings", domain.ErrMalformedResponse)}
	}

	score := details.WeightedScore(r.criteria)
	logger.Debug("Parsed rating response: weighted score %.3f over %d criteria", score, len(details.Ratings))
	return RateOutcome{Score: score, Details: details, OK: true}
}
