package sample

import (
	"fmt"
	"math"
)

// OrderedSystematic is ordered systematic sampling without replacement over
// inclusion probabilities pi[i]. One uniform draw u on [0,1) is walked along
// the prefix sums of pi; element i is emitted each time u falls below the
// prefix, with u advanced by 1 per emission. The sample size is either
// floor or ceil of the probability total.
type OrderedSystematic struct {
	prefix []float64
	total  float64
}

// NewOrderedSystematic builds the sampler from inclusion probabilities.
func NewOrderedSystematic(pi []float64) (*OrderedSystematic, error) {
	s := &OrderedSystematic{prefix: make([]float64, len(pi))}
	sum := 0.0
	for i, p := range pi {
		if p < 0 {
			return nil, fmt.Errorf("%w: negative inclusion probability %g at %d", ErrDomain, p, i)
		}
		sum += p
		s.prefix[i] = sum
	}
	// A total within rounding error of an integer is snapped to it, so that
	// probabilities summing to an integer n give samples of size exactly n.
	if r := math.Round(sum); r != sum && math.Abs(sum-r) <= 1e-9*math.Max(1, r) {
		sum = r
		s.prefix[len(s.prefix)-1] = r
	}
	s.total = sum
	return s, nil
}

// MinSize returns the floor of the probability total.
func (s *OrderedSystematic) MinSize() int { return int(math.Floor(s.total)) }

// MaxSize returns the ceiling of the probability total.
func (s *OrderedSystematic) MaxSize() int { return int(math.Ceil(s.total)) }

// PopulationSize returns the number of inclusion probabilities supplied.
func (s *OrderedSystematic) PopulationSize() int { return len(s.prefix) }

// Sample walks the prefix sums with a single uniform draw.
func (s *OrderedSystematic) Sample(emit func(i int), rng UniformSource) (int, error) {
	u := rng.Float64()
	count := 0
	for i, sum := range s.prefix {
		for u < sum {
			emit(i)
			count++
			u++
		}
	}
	return count, nil
}
