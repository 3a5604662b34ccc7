package sample

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPSRejective_DomainErrors(t *testing.T) {
	opts := DefaultCPSOptions()

	_, err := NewCPSRejective(1, []float64{0, 0.5, 0.5}, opts)
	assert.ErrorIs(t, err, ErrDomain, "zero inclusion probability")

	_, err = NewCPSRejective(1, []float64{0.3, 0.3}, opts)
	assert.ErrorIs(t, err, ErrDomain, "probabilities not summing to n")

	_, err = NewCPSRejective(3, []float64{1, 1, 1}, opts)
	assert.ErrorIs(t, err, ErrDomain, "sample size not below population")
}

// The conditional-on-size recurrence must preserve the size constraint:
// psi(rho; n) sums to n.
func TestPsi_SumsToSampleSize(t *testing.T) {
	rho := []float64{0.1, 0.25, 0.4, 0.6, 0.15}
	for n := 1; n <= 4; n++ {
		ps := psi(rho, n)
		sum := 0.0
		for _, p := range ps {
			sum += p
		}
		assert.InDelta(t, float64(n), sum, 1e-12, "n=%d", n)
	}
}

func TestCalibrate_ReproducesTargets(t *testing.T) {
	pi := []float64{0.2, 0.4, 0.6, 0.8} // sums to 2
	opts := DefaultCPSOptions()
	opts.AbsTol = 1e-12
	rho, err := calibrate(pi, 2, opts)
	require.NoError(t, err)

	ps := psi(rho, 2)
	for i := range pi {
		assert.InDelta(t, pi[i], ps[i], 1e-9, "element %d", i)
	}
	for i, r := range rho {
		assert.Greater(t, r, 0.0, "rho[%d]", i)
		assert.Less(t, r, 1.0, "rho[%d]", i)
	}
}

func testCPSOptions() CPSOptions {
	opts := DefaultCPSOptions()
	opts.AbsTol = 1e-12
	return opts
}

// Target inclusion probabilities (0.1, 0.2, 0.3, 0.4) with sample size 1:
// empirical first-order inclusion frequencies match within 0.01.
func TestCPSRejective_InclusionFrequencies(t *testing.T) {
	pi := []float64{0.1, 0.2, 0.3, 0.4}
	s, err := NewCPSRejective(1, pi, testCPSOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, s.MinSize())
	assert.Equal(t, 1, s.MaxSize())
	assert.Equal(t, 4, s.PopulationSize())

	rng := rand.New(rand.NewSource(42))
	const trials = 100000
	hits := make([]int, len(pi))
	for trial := 0; trial < trials; trial++ {
		count, err := s.Sample(func(i int) { hits[i]++ }, rng)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	}
	for i, p := range pi {
		assert.InDelta(t, p, float64(hits[i])/trials, 0.01, "element %d", i)
	}
}

func TestCPSRejective_SamplesAreDistinct(t *testing.T) {
	pi := []float64{0.5, 0.5, 0.5, 0.5} // sums to 2
	s, err := NewCPSRejective(2, pi, testCPSOptions())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(8))
	for trial := 0; trial < 1000; trial++ {
		seen := map[int]bool{}
		count, err := s.Sample(func(i int) { seen[i] = true }, rng)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Len(t, seen, 2)
	}
}
