// Package sample implements weighted sampling designs used by the
// simulator's distribution routines: an alias-table categorical
// distribution, ordered systematic sampling, multinomial draws, two
// order-based reservoir designs (adjusted Pareto and Efraimidis-Spirakis)
// and a conditional Poisson multinomial-rejective design.
package sample

import "errors"

// UniformSource is the random-variate surface samplers require: a uniform
// draw on [0,1) and a standard exponential draw. *rand.Rand satisfies it.
type UniformSource interface {
	Float64() float64
	ExpFloat64() float64
}

// Sampler is the common contract of all weighted sampling designs. The
// population is positional: samplers emit indices in [0, PopulationSize())
// to the output sink, in draw order, and return the number emitted.
type Sampler interface {
	// MinSize and MaxSize bound the number of indices a Sample call emits.
	MinSize() int
	MaxSize() int

	// PopulationSize is the population the sampler was parameterised over.
	PopulationSize() int

	// Sample draws once, emitting each selected index to the sink.
	Sample(emit func(i int), rng UniformSource) (int, error)
}

// Package error kinds.
var (
	// ErrDomain indicates a sampler parameterised outside its domain:
	// negative weights, inclusion probabilities outside [0,1], zero-sum
	// weight vectors.
	ErrDomain = errors.New("sample: parameter out of domain")

	// ErrConvergence indicates an iterative calibration that failed to
	// reach its tolerance.
	ErrConvergence = errors.New("sample: calibration did not converge")
)
