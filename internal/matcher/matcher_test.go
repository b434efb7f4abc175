package matcher

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-diff/internal/models"
)

func clauses(texts ...string) []models.Clause {
	out := make([]models.Clause, len(texts))
	for i, t := range texts {
		out[i] = models.Clause{Index: i, Text: t}
	}
	return out
}

func randomSet(rng *rand.Rand, n, dim int) ([]models.Clause, [][]float32) {
	cs := make([]models.Clause, n)
	vs := make([][]float32, n)
	for i := range cs {
		cs[i] = models.Clause{Index: i, Text: fmt.Sprintf("clause number %d", i)}
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		vs[i] = v
	}
	return cs, vs
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 1}, []float32{-1, -1}), 1e-9)
	assert.InDelta(t, 0.7071, CosineSimilarity([]float32{1, 0}, []float32{1, 1}), 1e-4)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}

func TestSimilarityMatrixShape(t *testing.T) {
	m := SimilarityMatrix([][]float32{{1, 0}, {0, 1}, {1, 1}}, [][]float32{{1, 0}, {0, 1}})
	require.Len(t, m, 3)
	for _, row := range m {
		require.Len(t, row, 2)
	}
	assert.InDelta(t, 1.0, m[0][0], 1e-9)
	assert.InDelta(t, 1.0, m[1][1], 1e-9)
	assert.InDelta(t, m[2][0], m[2][1], 1e-9)
}

func TestMatchIdentical(t *testing.T) {
	cs := clauses("alpha clause text", "beta clause text", "gamma clause text")
	vs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	res, err := Match(cs, vs, cs, vs, DefaultThreshold)
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.Empty(t, res.Deleted)
	require.Len(t, res.Matched, 3)
	for i, p := range res.Matched {
		assert.Equal(t, i, p.Original.Index)
		assert.Equal(t, i, p.Revised.Index)
		assert.InDelta(t, 1.0, p.Similarity, 1e-9)
		assert.False(t, p.Changed())
	}
}

func TestMatchPureAddition(t *testing.T) {
	orig := clauses("alpha clause text", "beta clause text")
	origV := [][]float32{{1, 0, 0}, {0, 1, 0}}
	rev := clauses("alpha clause text", "beta clause text", "brand new clause text")
	revV := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	res, err := Match(orig, origV, rev, revV, DefaultThreshold)
	require.NoError(t, err)
	assert.Empty(t, res.Deleted)
	assert.Len(t, res.Matched, 2)
	require.Len(t, res.Added, 1)
	assert.Equal(t, "brand new clause text", res.Added[0].Text)
}

func TestMatchPureDeletion(t *testing.T) {
	orig := clauses("alpha clause text", "beta clause text", "gamma clause text")
	origV := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	rev := clauses("alpha clause text", "gamma clause text")
	revV := [][]float32{{1, 0, 0}, {0, 0, 1}}

	res, err := Match(orig, origV, rev, revV, DefaultThreshold)
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.Len(t, res.Matched, 2)
	require.Len(t, res.Deleted, 1)
	assert.Equal(t, "beta clause text", res.Deleted[0].Text)
	assert.Equal(t, 1, res.Deleted[0].Index)
}

func TestMatchReordered(t *testing.T) {
	orig := clauses("first clause text", "second clause text")
	origV := [][]float32{{1, 0}, {0, 1}}
	rev := clauses("second clause text", "first clause text")
	revV := [][]float32{{0, 1}, {1, 0}}

	res, err := Match(orig, origV, rev, revV, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, res.Matched, 2)
	assert.Equal(t, 1, res.Matched[0].Original.Index)
	assert.Equal(t, 0, res.Matched[0].Revised.Index)
	assert.Equal(t, 0, res.Matched[1].Original.Index)
	assert.Equal(t, 1, res.Matched[1].Revised.Index)
}

func TestMatchParaphrase(t *testing.T) {
	orig := clauses("The tenant must pay rent on the first day of every month.")
	rev := clauses("Rent is due from the lessee at the start of each calendar month.")
	// 0.8 similarity
	res, err := Match(orig, [][]float32{{1, 0}}, rev, [][]float32{{0.8, 0.6}}, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, res.Matched, 1)
	assert.InDelta(t, 0.8, res.Matched[0].Similarity, 1e-6)
	assert.True(t, res.Matched[0].Changed())
}

func TestMatchManyToOne(t *testing.T) {
	orig := clauses("shared original clause", "unrelated original clause")
	origV := [][]float32{{1, 0, 0}, {0, 0, 1}}
	rev := clauses("first rewrite of shared", "second rewrite of shared")
	revV := [][]float32{{0.9, 0.1, 0}, {0.95, -0.1, 0}}

	res, err := Match(orig, origV, rev, revV, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, res.Matched, 2)
	assert.Equal(t, 0, res.Matched[0].Original.Index)
	assert.Equal(t, 0, res.Matched[1].Original.Index)
	require.Len(t, res.Deleted, 1)
	assert.Equal(t, 1, res.Deleted[0].Index)
	assert.Empty(t, res.Added)
}

func TestMatchTieGoesToLowestIndex(t *testing.T) {
	orig := clauses("duplicate clause text", "duplicate clause text")
	origV := [][]float32{{1, 0}, {1, 0}}
	rev := clauses("duplicate clause text")

	res, err := Match(orig, origV, rev, [][]float32{{1, 0}}, DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, res.Matched, 1)
	assert.Equal(t, 0, res.Matched[0].Original.Index)
	require.Len(t, res.Deleted, 1)
	assert.Equal(t, 1, res.Deleted[0].Index)
}

func TestMatchThresholdIsInclusive(t *testing.T) {
	orig := clauses("some original clause")
	rev := clauses("some revised clause")
	// cos = 0.75 exactly for (1,0)·(0.75, sqrt(1-0.5625))
	revV := [][]float32{{0.75, 0.6614378}}

	res, err := Match(orig, [][]float32{{1, 0}}, rev, revV, 0.75-1e-7)
	require.NoError(t, err)
	assert.Len(t, res.Matched, 1)

	res, err = Match(orig, [][]float32{{1, 0}}, rev, revV, 0.76)
	require.NoError(t, err)
	assert.Empty(t, res.Matched)
	assert.Len(t, res.Added, 1)
	assert.Len(t, res.Deleted, 1)
}

func TestMatchEmptySides(t *testing.T) {
	cs := clauses("only clause in here")
	vs := [][]float32{{1, 0}}

	res, err := Match(nil, nil, cs, vs, DefaultThreshold)
	require.NoError(t, err)
	assert.Len(t, res.Added, 1)
	assert.Empty(t, res.Matched)
	assert.Empty(t, res.Deleted)

	res, err = Match(cs, vs, nil, nil, DefaultThreshold)
	require.NoError(t, err)
	assert.Len(t, res.Deleted, 1)
	assert.Empty(t, res.Added)
}

func TestMatchLengthMismatch(t *testing.T) {
	cs := clauses("only clause in here")
	_, err := Match(cs, nil, cs, [][]float32{{1}}, DefaultThreshold)
	require.Error(t, err)
	_, err = Match(cs, [][]float32{{1}}, cs, nil, DefaultThreshold)
	require.Error(t, err)
}

// every original index is matched or deleted, never both; same for revised vs added
func assertPartition(t *testing.T, res models.MatchResult, nOrig, nRev int) {
	t.Helper()
	origMatched := map[int]bool{}
	revSeen := map[int]int{}
	for _, p := range res.Matched {
		origMatched[p.Original.Index] = true
		revSeen[p.Revised.Index]++
	}
	for _, c := range res.Added {
		revSeen[c.Index]++
	}
	deleted := map[int]bool{}
	for _, c := range res.Deleted {
		require.False(t, deleted[c.Index], "original %d deleted twice", c.Index)
		deleted[c.Index] = true
	}
	for i := 0; i < nOrig; i++ {
		require.True(t, origMatched[i] != deleted[i], "original %d must be in exactly one group", i)
	}
	for i := 0; i < nRev; i++ {
		require.Equal(t, 1, revSeen[i], "revised %d must be in exactly one group", i)
	}
}

func TestMatchPartitionInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		orig, origV := randomSet(rng, rng.Intn(8), 3)
		rev, revV := randomSet(rng, rng.Intn(8), 3)
		threshold := rng.Float64()*2 - 1

		res, err := Match(orig, origV, rev, revV, threshold)
		require.NoError(t, err)
		assertPartition(t, res, len(orig), len(rev))
	}
}

func TestMatchThresholdMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 100; trial++ {
		orig, origV := randomSet(rng, 1+rng.Intn(6), 4)
		rev, revV := randomSet(rng, 1+rng.Intn(6), 4)

		prevMatched := len(rev) + 1
		prevAdded, prevDeleted := -1, -1
		for _, threshold := range []float64{-1, -0.5, 0, 0.25, 0.5, 0.75, 0.9, 1.01} {
			res, err := Match(orig, origV, rev, revV, threshold)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(res.Matched), prevMatched)
			assert.GreaterOrEqual(t, len(res.Added), prevAdded)
			assert.GreaterOrEqual(t, len(res.Deleted), prevDeleted)
			prevMatched, prevAdded, prevDeleted = len(res.Matched), len(res.Added), len(res.Deleted)
		}
	}
}
