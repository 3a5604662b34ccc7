package sim

// DirectSelector samples the next process and waiting time by Gillespie's
// direct method: inverse-CDF over the propensity vector for the process,
// one exponential draw scaled by the total for the time.
//
// The total is maintained incrementally by Update. A Next call that falls
// off the propensity ladder (the linear walk exhausts all processes, which
// can only happen through floating-point drift between the incremental
// total and the vector) returns ErrLadderFalloff and schedules a full total
// recomputation for the following call.
type DirectSelector struct {
	propensity []float64
	total      float64
	recompute  bool
}

// Reset resizes the selector to n processes with all propensities zero.
func (s *DirectSelector) Reset(n int) {
	s.propensity = make([]float64, n)
	s.total = 0
	s.recompute = false
}

// Size returns the number of processes tracked.
func (s *DirectSelector) Size() int { return len(s.propensity) }

// Update sets the propensity of process k, adjusting the running total.
func (s *DirectSelector) Update(k int, r float64) {
	s.total += r - s.propensity[k]
	s.propensity[k] = r
}

// Total returns the running total propensity.
func (s *DirectSelector) Total() float64 { return s.total }

// Propensity returns the current propensity of process k.
func (s *DirectSelector) Propensity(k int) float64 { return s.propensity[k] }

// RecomputeTotal rebuilds the total from the propensity vector, clearing
// any accumulated floating-point drift.
func (s *DirectSelector) RecomputeTotal() {
	t := 0.0
	for _, p := range s.propensity {
		t += p
	}
	s.total = t
	s.recompute = false
}

// Next samples the next event: the firing process k and the waiting time dt
// until it fires. Returns ErrExhausted when the total propensity is zero
// and ErrLadderFalloff on floating-point inconsistency.
func (s *DirectSelector) Next(rng UniformSource) (k int, dt float64, err error) {
	if s.recompute {
		s.RecomputeTotal()
	}
	if s.total <= 0 {
		return 0, 0, ErrExhausted
	}

	x := rng.Float64() * s.total
	for i, p := range s.propensity {
		x -= p
		if x < 0 {
			return i, rng.ExpFloat64() / s.total, nil
		}
	}

	s.recompute = true
	return 0, 0, ErrLadderFalloff
}
