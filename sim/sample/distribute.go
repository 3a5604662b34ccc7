package sample

import (
	"fmt"
	"math"
)

// Method selects the weighted sampling design used for residual
// distribution.
type Method string

// Residual distribution methods.
const (
	Multinomial Method = "multinomial"
	Systematic  Method = "oss"
	AdjPareto   Method = "adjpareto"
	Efraimidis  Method = "efraimidis"
	CPSRej      Method = "cpsrej"
)

// Methods lists the recognised method keywords.
func Methods() []Method {
	return []Method{Multinomial, Systematic, AdjPareto, Efraimidis, CPSRej}
}

// IsValidMethod reports whether name names a distribution method.
func IsValidMethod(name string) bool {
	for _, m := range Methods() {
		if string(m) == name {
			return true
		}
	}
	return false
}

// Distribute allocates the integer total c across bins in expected
// proportion to the weights: bins[i] gets the floor of its fractional share
// q_i = c*w_i/sum(w), and the remaining deficit is distributed one unit per
// index drawn by the selected sampler over the fractional residuals.
// The allocation is exact: sum(bins) == c on return.
//
// bins must have the same length as weights; it is overwritten.
func Distribute(c int64, weights []float64, method Method, rng UniformSource, bins []int64) error {
	if c < 0 {
		return fmt.Errorf("%w: negative total %d", ErrDomain, c)
	}
	if len(bins) != len(weights) {
		return fmt.Errorf("%w: bins length %d does not match weights length %d", ErrDomain, len(bins), len(weights))
	}
	if len(bins) == 0 {
		if c != 0 {
			return fmt.Errorf("%w: cannot distribute %d across zero bins", ErrDomain, c)
		}
		return nil
	}

	total := 0.0
	for i, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight %g at %d", ErrDomain, w, i)
		}
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("%w: weights sum to zero", ErrDomain)
	}

	// Floor assignment, residual weights.
	residual := make([]float64, len(weights))
	assigned := int64(0)
	for i, w := range weights {
		q := float64(c) * w / total
		a := math.Floor(q)
		bins[i] = int64(a)
		residual[i] = q - a
		assigned += int64(a)
	}
	deficit := c - assigned
	if deficit == 0 {
		return nil
	}

	// The residuals sum to the deficit up to rounding; rescale so designs
	// parameterised by inclusion probabilities see an exact total.
	rsum := 0.0
	for _, r := range residual {
		rsum += r
	}
	if rsum > 0 {
		scale := float64(deficit) / rsum
		for i := range residual {
			residual[i] = math.Min(residual[i]*scale, 1)
		}
	}

	s, index, err := newResidualSampler(int(deficit), residual, method)
	if err != nil {
		return err
	}
	_, err = s.Sample(func(i int) {
		if index != nil {
			i = index[i]
		}
		bins[i]++
	}, rng)
	return err
}

// newResidualSampler constructs the selected design over the residuals.
// Without-replacement designs with domain constraints on zero entries are
// built over the positive-residual subpopulation; index maps subpopulation
// positions back to bin indices and is nil when no compaction happened.
func newResidualSampler(n int, residual []float64, method Method) (Sampler, []int, error) {
	switch method {
	case Multinomial:
		s, err := NewMultinomialDraw(n, residual)
		return s, nil, err
	case Systematic:
		s, err := NewOrderedSystematic(residual)
		return s, nil, err
	case AdjPareto:
		s, err := NewAdjustedPareto(n, residual)
		return s, nil, err
	case Efraimidis:
		s, err := NewEfraimidisSpirakis(n, residual)
		return s, nil, err
	case CPSRej:
		compact, index := compactPositive(residual)
		// Residual distribution needs statistical, not machine-precision,
		// calibration accuracy.
		opts := DefaultCPSOptions()
		opts.AbsTol = 1e-9
		s, err := NewCPSRejective(n, compact, opts)
		return s, index, err
	default:
		return nil, nil, fmt.Errorf("%w: unknown method %q", ErrDomain, method)
	}
}

func compactPositive(residual []float64) ([]float64, []int) {
	compact := make([]float64, 0, len(residual))
	index := make([]int, 0, len(residual))
	for i, r := range residual {
		if r > 0 {
			compact = append(compact, r)
			index = append(index, i)
		}
	}
	if len(compact) == len(residual) {
		return compact, nil
	}
	return compact, index
}
