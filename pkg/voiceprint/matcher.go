package voiceprint

import (
	"fmt"
	"math"
	"sort"
)

// Verdict is the result of one identification.
type Verdict struct {
	// Winner is the best-matching identity key, or empty when no
	// candidate cleared the threshold (or none were stored).
	Winner string

	// Score is the similarity of the best candidate. It is reported
	// even when Winner is empty, so callers can see near-misses.
	Score float32

	// Scores holds the similarity of every scored candidate.
	Scores map[string]float32
}

// Cosine computes the cosine similarity of two equal-length vectors.
// If either vector has zero norm the similarity is 0.0, never NaN.
// Accumulation is in float64 for stability, as the embedding
// dimensionality can be large.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// BestMatch scores query against every candidate vector and applies
// the threshold policy.
//
// An empty candidate map yields an empty verdict, not an error.
// Candidates are scored in lexicographic key order and a strictly
// greater score replaces the running best, so exact ties resolve
// deterministically to the lexicographically smallest key.
//
// When the best score is below threshold the verdict has an empty
// Winner but keeps the true best score and the full score map.
//
// A candidate whose dimensionality differs from the query is a data
// integrity failure ([ErrDimensionMismatch]); vectors are never
// truncated or padded to fit.
func BestMatch(query []float32, candidates map[string][]float32, threshold float32) (Verdict, error) {
	v := Verdict{Scores: make(map[string]float32, len(candidates))}
	if len(candidates) == 0 {
		return v, nil
	}

	keys := make([]string, 0, len(candidates))
	for k := range candidates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := ""
	var bestScore float32
	for _, k := range keys {
		c := candidates[k]
		if len(c) != len(query) {
			return Verdict{}, fmt.Errorf("%w: candidate %q has %d values, query has %d",
				ErrDimensionMismatch, k, len(c), len(query))
		}
		score := Cosine(query, c)
		v.Scores[k] = score
		if best == "" || score > bestScore {
			best = k
			bestScore = score
		}
	}

	v.Score = bestScore
	if bestScore >= threshold {
		v.Winner = best
	}
	return v, nil
}
