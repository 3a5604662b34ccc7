package sample

import "math"

// RunningStats accumulates mean, variance and extrema of a stream by
// Welford's update.
type RunningStats struct {
	n    int
	m    float64
	m2   float64
	xmin float64
	xmax float64
}

// Insert adds one observation.
func (r *RunningStats) Insert(x float64) {
	s := x - r.m
	r.n++
	r.m += s / float64(r.n)
	r.m2 += s * (x - r.m)

	if r.n == 1 || x < r.xmin {
		r.xmin = x
	}
	if r.n == 1 || x > r.xmax {
		r.xmax = x
	}
}

// N returns the number of observations.
func (r *RunningStats) N() int { return r.n }

// Mean returns the sample mean.
func (r *RunningStats) Mean() float64 { return r.m }

// Variance returns the unbiased sample variance.
func (r *RunningStats) Variance() float64 {
	if r.n < 2 {
		return 0
	}
	return r.m2 / float64(r.n-1)
}

// CV returns the coefficient of variation.
func (r *RunningStats) CV() float64 {
	if r.m == 0 {
		return 0
	}
	return math.Sqrt(r.Variance()) / r.m
}

// Min returns the smallest observation.
func (r *RunningStats) Min() float64 { return r.xmin }

// Max returns the largest observation.
func (r *RunningStats) Max() float64 { return r.xmax }
