package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinWeights_ProfilesSumToBinCount(t *testing.T) {
	for _, tc := range []struct {
		profile string
		ratio   float64
	}{
		{weightsConstant, 1},
		{weightsLinear, 3},
		{weightsGeometric, 8},
	} {
		w := binWeights(6, tc.profile, tc.ratio)
		sum := 0.0
		for _, x := range w {
			sum += x
		}
		assert.InDelta(t, 6.0, sum, 1e-9, "profile %s", tc.profile)
	}
}

func TestBinWeights_GeometricRatio(t *testing.T) {
	w := binWeights(5, weightsGeometric, 16)
	assert.InDelta(t, 16.0, w[4]/w[0], 1e-9)
}

func TestBinWeights_SingleBin(t *testing.T) {
	w := binWeights(1, weightsGeometric, 4)
	assert.Equal(t, []float64{1}, w)
}
