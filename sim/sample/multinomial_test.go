package sample

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultinomialDraw_SizeIsExact(t *testing.T) {
	s, err := NewMultinomialDraw(5, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 5, s.MinSize())
	assert.Equal(t, 5, s.MaxSize())
	assert.Equal(t, 3, s.PopulationSize())

	rng := rand.New(rand.NewSource(1))
	emitted := 0
	count, err := s.Sample(func(int) { emitted++ }, rng)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, 5, emitted)
}

func TestMultinomialDraw_InvalidWeights_Fails(t *testing.T) {
	_, err := NewMultinomialDraw(2, []float64{-1, 1})
	assert.ErrorIs(t, err, ErrDomain)
}

func TestMultinomialDraw_EmpiricalProportions(t *testing.T) {
	weights := []float64{1, 3, 6}
	s, err := NewMultinomialDraw(10, weights)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(99))
	const trials = 20000
	counts := make([]int, len(weights))
	for trial := 0; trial < trials; trial++ {
		_, err := s.Sample(func(i int) { counts[i]++ }, rng)
		require.NoError(t, err)
	}
	total := float64(10 * trials)
	for i, w := range weights {
		assert.InDelta(t, w/10, float64(counts[i])/total, 0.01, "bin %d", i)
	}
}
