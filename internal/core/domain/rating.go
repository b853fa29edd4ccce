package domain

// RatingCriterion is one configured evaluation axis for LLM rating.
type RatingCriterion struct {
	// Description is handed to the model verbatim.
	Description string

	// Weight is the criterion's share of the weighted average.
	Weight float64
}

// RatingDetails is the structured response expected from the rating model.
type RatingDetails struct {
	// Ratings maps criterion name to a numeric judgment.
	Ratings map[string]float64 `json:"ratings"`

	// Justifications maps criterion name to a short explanation.
	Justifications map[string]string `json:"justifications"`
}

// WeightedScore computes the weighted average of the judged criteria,
// normalised by the total weight of criteria the model actually scored.
// Criteria absent from the response contribute nothing. Returns 0 when
// no configured criterion was scored.
func (d RatingDetails) WeightedScore(criteria map[string]RatingCriterion) float64 {
	var weightedSum, totalWeight float64
	for name, criterion := range criteria {
		score, ok := d.Ratings[name]
		if !ok {
			continue
		}
		weightedSum += criterion.Weight * score
		totalWeight += criterion.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}
