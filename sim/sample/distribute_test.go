package sample

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistribute_DomainErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	err := Distribute(-1, []float64{1}, Multinomial, rng, make([]int64, 1))
	assert.ErrorIs(t, err, ErrDomain, "negative total")

	err = Distribute(3, []float64{0, 0}, Multinomial, rng, make([]int64, 2))
	assert.ErrorIs(t, err, ErrDomain, "zero-sum weights")

	err = Distribute(3, []float64{1, -1}, Multinomial, rng, make([]int64, 2))
	assert.ErrorIs(t, err, ErrDomain, "negative weight")

	err = Distribute(3, []float64{1, 1}, Method("bogus"), rng, make([]int64, 2))
	assert.ErrorIs(t, err, ErrDomain, "unknown method")
}

func TestDistribute_ZeroDeficitReturnsImmediately(t *testing.T) {
	bins := make([]int64, 4)
	err := Distribute(8, []float64{1, 1, 1, 1}, Systematic, nil, bins)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 2, 2, 2}, bins)
}

// c=7 across five flat bins by ordered systematic sampling: the result is a
// permutation of (2,1,2,1,1) with sum 7.
func TestDistribute_FlatWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	bins := make([]int64, 5)
	err := Distribute(7, []float64{1, 1, 1, 1, 1}, Systematic, rng, bins)
	require.NoError(t, err)

	var sum int64
	sorted := append([]int64(nil), bins...)
	for _, b := range bins {
		sum += b
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	assert.Equal(t, int64(7), sum)
	assert.Equal(t, []int64{1, 1, 1, 2, 2}, sorted)
}

// Exactness: sum(bins) == c for every method, every trial.
func TestDistribute_ExactTotalAllMethods(t *testing.T) {
	weights := []float64{0.5, 1.5, 2.0, 3.0, 0.25, 1.75}
	for _, method := range Methods() {
		t.Run(string(method), func(t *testing.T) {
			rng := rand.New(rand.NewSource(13))
			bins := make([]int64, len(weights))
			for trial := 0; trial < 200; trial++ {
				c := int64(rng.Intn(50))
				require.NoError(t, Distribute(c, weights, method, rng, bins))
				var sum int64
				for _, b := range bins {
					sum += b
				}
				assert.Equal(t, c, sum, "method=%s trial=%d c=%d", method, trial, c)
			}
		})
	}
}

// c=100 across geometric weights 2^i: trial means approximate the
// proportional shares within 1%.
func TestDistribute_GeometricWeights_Means(t *testing.T) {
	weights := []float64{1, 2, 4, 8}
	want := []float64{100.0 / 15, 200.0 / 15, 400.0 / 15, 800.0 / 15}

	rng := rand.New(rand.NewSource(21))
	const trials = 10000
	sums := make([]float64, len(weights))
	bins := make([]int64, len(weights))
	for trial := 0; trial < trials; trial++ {
		require.NoError(t, Distribute(100, weights, Systematic, rng, bins))
		var total int64
		for i, b := range bins {
			sums[i] += float64(b)
			total += b
		}
		require.Equal(t, int64(100), total)
	}
	for i := range weights {
		mean := sums[i] / trials
		assert.InDelta(t, want[i], mean, 0.01*want[i], "bin %d", i)
	}
}

func TestIsValidMethod(t *testing.T) {
	for _, m := range Methods() {
		assert.True(t, IsValidMethod(string(m)))
	}
	assert.False(t, IsValidMethod("steps"))
}
