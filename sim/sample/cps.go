package sample

import (
	"fmt"
	"math"
)

// CPSOptions configures the conditional Poisson calibration.
type CPSOptions struct {
	AbsTol      float64 // termination tolerance on max |pi - psi|
	AlphaRelax  float64 // relaxation toward 1 on an accepted step
	AlphaShrink float64 // shrink factor on a rejected step
	AlphaInit   float64 // initial step scale
}

// DefaultCPSOptions returns the calibration defaults.
func DefaultCPSOptions() CPSOptions {
	eps := math.Nextafter(1, 2) - 1
	return CPSOptions{
		AbsTol:      4 * eps,
		AlphaRelax:  0.8,
		AlphaShrink: 0.1,
		AlphaInit:   1.0,
	}
}

// CPSRejective is a conditional Poisson sampling design realised by a
// multinomial rejective scheme. Construction calibrates per-element Poisson
// parameters so the conditional-on-size design reproduces the target
// inclusion probabilities; sampling draws n indices with replacement from
// the calibrated categorical and restarts whenever an index repeats.
type CPSRejective struct {
	n     int
	table *AliasTable
	seen  []bool
}

// NewCPSRejective builds the sampler for sample size n over target
// inclusion probabilities pi (which must lie in (0,1] and sum to n).
func NewCPSRejective(n int, pi []float64, opts CPSOptions) (*CPSRejective, error) {
	rho, err := calibrate(pi, n, opts)
	if err != nil {
		return nil, err
	}

	// Expected multinomial draw weights mu_i proportional to the Poisson
	// odds rho/(1-rho).
	mu := make([]float64, len(rho))
	for i, r := range rho {
		mu[i] = r / (1 - r)
	}
	table, err := NewAliasTable(mu)
	if err != nil {
		return nil, err
	}
	return &CPSRejective{n: n, table: table, seen: make([]bool, len(pi))}, nil
}

// MinSize returns the sample size.
func (s *CPSRejective) MinSize() int { return s.n }

// MaxSize returns the sample size.
func (s *CPSRejective) MaxSize() int { return s.n }

// PopulationSize returns the number of inclusion probabilities supplied.
func (s *CPSRejective) PopulationSize() int { return len(s.seen) }

// Sample draws n distinct indices by rejection: any draw with a repeated
// index restarts in full. The expected number of restarts grows mildly with
// n relative to the population size.
func (s *CPSRejective) Sample(emit func(i int), rng UniformSource) (int, error) {
	picked := make([]int, s.n)
draw:
	for {
		for i := range s.seen {
			s.seen[i] = false
		}
		for i := 0; i < s.n; i++ {
			j := s.table.Draw(rng)
			if s.seen[j] {
				continue draw
			}
			s.seen[j] = true
			picked[i] = j
		}
		break
	}
	for _, j := range picked {
		emit(j)
	}
	return s.n, nil
}

// psi computes the conditional-on-size inclusion probabilities of the
// Poisson design with parameters rho, by the recurrence
// psi(0) = 0; psi(j) = rho/(1-rho)*(1-psi(j-1)), rescaled to sum to j,
// for j = 1..n.
func psi(rho []float64, n int) []float64 {
	cur := make([]float64, len(rho))
	next := make([]float64, len(rho))
	for j := 1; j <= n; j++ {
		sum := 0.0
		for i, r := range rho {
			next[i] = r / (1 - r) * (1 - cur[i])
			sum += next[i]
		}
		scale := float64(j) / sum
		for i := range next {
			next[i] *= scale
		}
		cur, next = next, cur
	}
	return cur
}

// calibrate finds Poisson parameters rho in (0,1) whose conditional design
// has marginal inclusion probabilities pi, by damped quasi-Newton
// iteration: rho += alpha*(pi - psi(rho)). The step scale alpha relaxes
// toward 1 on acceptance and shrinks on rejection (a candidate outside
// (0,1) or a non-decreasing deviation); it underflowing the tolerance is a
// convergence failure.
func calibrate(pi []float64, n int, opts CPSOptions) ([]float64, error) {
	N := len(pi)
	sum := 0.0
	for i, p := range pi {
		if p <= 0 || p > 1 {
			return nil, fmt.Errorf("%w: inclusion probability %g at %d outside (0,1]", ErrDomain, p, i)
		}
		sum += p
	}
	if math.Abs(sum-float64(n)) > 1e-6*float64(n) {
		return nil, fmt.Errorf("%w: inclusion probabilities sum to %g, want %d", ErrDomain, sum, n)
	}
	if n >= N {
		return nil, fmt.Errorf("%w: sample size %d must be below population size %d", ErrDomain, n, N)
	}

	// Start from the target, pulled strictly inside (0,1).
	rho := make([]float64, N)
	for i, p := range pi {
		rho[i] = math.Min(p, 1-1e-9)
	}

	dev := func(ps []float64) float64 {
		d := 0.0
		for i := range ps {
			d = math.Max(d, math.Abs(pi[i]-ps[i]))
		}
		return d
	}

	alpha := opts.AlphaInit
	ps := psi(rho, n)
	best := dev(ps)
	cand := make([]float64, N)

	for best >= opts.AbsTol {
		if alpha < opts.AbsTol {
			return nil, fmt.Errorf("%w: step scale underflow at deviation %g", ErrConvergence, best)
		}

		ok := true
		for i := range rho {
			cand[i] = rho[i] + alpha*(pi[i]-ps[i])
			if cand[i] <= 0 || cand[i] >= 1 {
				ok = false
				break
			}
		}

		var candPsi []float64
		var candDev float64
		if ok {
			candPsi = psi(cand, n)
			candDev = dev(candPsi)
			if candDev >= best {
				ok = false
			}
		}

		if ok {
			copy(rho, cand)
			ps = candPsi
			best = candDev
			alpha = 1 - opts.AlphaRelax*(1-alpha)
		} else {
			alpha *= opts.AlphaShrink
		}
	}
	return rho, nil
}
