// Package matcher aligns the clauses of two document revisions by embedding similarity.
package matcher

import (
	"fmt"
	"math"

	"document-diff/internal/models"
)

// DefaultThreshold is the minimum cosine similarity for two clauses to be the same provision.
const DefaultThreshold = 0.75

// CosineSimilarity returns dot(a, b) / (|a| |b|). Vectors of different length or with
// zero norm have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SimilarityMatrix returns m[r][o], the similarity of revised vector r to original vector o.
func SimilarityMatrix(revised, original [][]float32) [][]float64 {
	m := make([][]float64, len(revised))
	for r, rv := range revised {
		row := make([]float64, len(original))
		for o, ov := range original {
			row[o] = CosineSimilarity(rv, ov)
		}
		m[r] = row
	}
	return m
}

// argmax returns the index of the largest value, the lowest index on ties.
func argmax(row []float64) (int, float64) {
	best, bestScore := -1, math.Inf(-1)
	for i, v := range row {
		if v > bestScore {
			best, bestScore = i, v
		}
	}
	return best, bestScore
}

// Match partitions two clause sets into matched pairs, additions and deletions.
//
// Each revised clause, in index order, is paired with the original clause it is most
// similar to when that similarity reaches threshold, and is an addition otherwise.
// Original clauses that no revised clause picked are deletions. The assignment is
// greedy per revised clause, not a one-to-one matching: several revised clauses can
// pick the same original clause and each of them is reported as a matched pair.
func Match(original []models.Clause, originalEmbeddings [][]float32, revised []models.Clause, revisedEmbeddings [][]float32, threshold float64) (models.MatchResult, error) {
	if len(original) != len(originalEmbeddings) {
		return models.MatchResult{}, fmt.Errorf("matcher: %d original clauses but %d embeddings", len(original), len(originalEmbeddings))
	}
	if len(revised) != len(revisedEmbeddings) {
		return models.MatchResult{}, fmt.Errorf("matcher: %d revised clauses but %d embeddings", len(revised), len(revisedEmbeddings))
	}

	result := models.MatchResult{
		Matched: []models.MatchedPair{},
		Added:   []models.Clause{},
		Deleted: []models.Clause{},
	}
	consumed := make([]bool, len(original))

	matrix := SimilarityMatrix(revisedEmbeddings, originalEmbeddings)
	for r, row := range matrix {
		best, score := argmax(row)
		if best >= 0 && score >= threshold {
			result.Matched = append(result.Matched, models.MatchedPair{
				Original:   original[best],
				Revised:    revised[r],
				Similarity: score,
			})
			consumed[best] = true
			continue
		}
		result.Added = append(result.Added, revised[r])
	}

	for o, used := range consumed {
		if !used {
			result.Deleted = append(result.Deleted, original[o])
		}
	}
	return result, nil
}
