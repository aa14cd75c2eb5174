// Package scoring turns the text of a submission into a confidence score and verdict.
//
// The score is a deterministic heuristic over character codes so administrators can
// reason about reported values without a model behind them.
package scoring

import "math"

const (
	VerdictLikelyTrue  = "Likely True"
	VerdictNeedsReview = "Needs Review"

	minScore    = 35
	scoreSpread = 66
	maxScore    = 99.9
	emptyScore  = 50.0
	trueCutoff  = 60.0
)

// Predict sums the code points of every value in payload and folds the total into
// [35, 99.9]. Map order does not matter since the sum is commutative.
func Predict(payload map[string]string) float64 {
	var base int
	var seen bool
	for _, v := range payload {
		for _, r := range v {
			base += int(r)
			seen = true
		}
	}
	if !seen {
		return emptyScore
	}

	confidence := math.Min(float64(minScore+base%scoreSpread), maxScore)
	return math.Round(confidence*100) / 100
}

func Verdict(score float64) string {
	if score >= trueCutoff {
		return VerdictLikelyTrue
	}
	return VerdictNeedsReview
}

// Assess scores the fields the upload form produces.
func Assess(idea, description, fileType string) (float64, string) {
	score := Predict(map[string]string{
		"idea":        idea,
		"description": description,
		"file_type":   fileType,
	})
	return score, Verdict(score)
}
