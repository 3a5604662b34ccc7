package sample

import (
	"container/heap"
	"fmt"
	"math"
)

// Order-based reservoir sampling: a ranking key is generated per population
// element and the n elements with the smallest keys form the sample. A
// max-heap of size n holds the current reservoir; an element whose key beats
// the heap maximum evicts it.

type keyedItem struct {
	key   float64
	index int
}

// keyMaxHeap is a max-heap on ranking keys.
type keyMaxHeap []keyedItem

func (h keyMaxHeap) Len() int            { return len(h) }
func (h keyMaxHeap) Less(i, j int) bool  { return h[i].key > h[j].key }
func (h keyMaxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *keyMaxHeap) Push(x any)         { *h = append(*h, x.(keyedItem)) }
func (h *keyMaxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// reservoirSample runs the order-based template: keyFor(i) yields element
// i's ranking key; the n smallest-keyed indices are emitted.
func reservoirSample(n, population int, keyFor func(i int, rng UniformSource) float64,
	emit func(i int), rng UniformSource) int {

	if n > population {
		n = population
	}
	h := make(keyMaxHeap, 0, n)
	for i := 0; i < n; i++ {
		h = append(h, keyedItem{key: keyFor(i, rng), index: i})
	}
	heap.Init(&h)

	for i := n; i < population; i++ {
		k := keyFor(i, rng)
		if len(h) > 0 && k < h[0].key {
			h[0] = keyedItem{key: k, index: i}
			heap.Fix(&h, 0)
		}
	}

	for _, item := range h {
		emit(item.index)
	}
	return len(h)
}

// AdjustedPareto is Rosén's adjusted Pareto reservoir design: for target
// inclusion probabilities p[i] in [0,1] summing to the sample size, ranking
// keys are u*q[i]/(1-u) with q[i] = (1-p[i])/p[i] * a[i] and the adjustment
// a[i] = exp(p[i](1-p[i])(p[i]-1/2)/d^2), d = sum p(1-p). The design
// approaches the target pips design as d grows.
type AdjustedPareto struct {
	n int
	q []float64
}

// NewAdjustedPareto builds the sampler for n draws over target inclusion
// probabilities pi.
func NewAdjustedPareto(n int, pi []float64) (*AdjustedPareto, error) {
	d := 0.0
	for i, p := range pi {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: inclusion probability %g at %d outside [0,1]", ErrDomain, p, i)
		}
		d += p * (1 - p)
	}

	s := &AdjustedPareto{n: n, q: make([]float64, len(pi))}
	for i, p := range pi {
		switch {
		case p == 0:
			s.q[i] = math.Inf(1) // ranks last
		case p == 1:
			s.q[i] = 0 // always selected
		default:
			a := math.Exp(p * (1 - p) * (p - 0.5) / (d * d))
			s.q[i] = (1 - p) / p * a
		}
	}
	return s, nil
}

// MinSize returns the sample size.
func (s *AdjustedPareto) MinSize() int { return min(s.n, len(s.q)) }

// MaxSize returns the sample size.
func (s *AdjustedPareto) MaxSize() int { return min(s.n, len(s.q)) }

// PopulationSize returns the number of inclusion probabilities supplied.
func (s *AdjustedPareto) PopulationSize() int { return len(s.q) }

// Sample emits the n indices with the smallest Pareto ranking keys.
func (s *AdjustedPareto) Sample(emit func(i int), rng UniformSource) (int, error) {
	keyFor := func(i int, rng UniformSource) float64 {
		q := s.q[i]
		if q == 0 || math.IsInf(q, 1) {
			return q
		}
		u := rng.Float64()
		return u * q / (1 - u)
	}
	return reservoirSample(s.n, len(s.q), keyFor, emit, rng), nil
}

// EfraimidisSpirakis is the weighted reservoir design of Efraimidis and
// Spirakis: element i's ranking key is an exponential draw scaled by 1/w[i];
// the n smallest keys form a without-replacement sample proportional to the
// weights.
type EfraimidisSpirakis struct {
	n int
	w []float64
}

// NewEfraimidisSpirakis builds the sampler for n draws over weights.
// Zero-weight elements are selected only when n exceeds the number of
// positive weights.
func NewEfraimidisSpirakis(n int, weights []float64) (*EfraimidisSpirakis, error) {
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight %g at %d", ErrDomain, w, i)
		}
	}
	return &EfraimidisSpirakis{n: n, w: append([]float64(nil), weights...)}, nil
}

// MinSize returns the sample size.
func (s *EfraimidisSpirakis) MinSize() int { return min(s.n, len(s.w)) }

// MaxSize returns the sample size.
func (s *EfraimidisSpirakis) MaxSize() int { return min(s.n, len(s.w)) }

// PopulationSize returns the number of weights supplied.
func (s *EfraimidisSpirakis) PopulationSize() int { return len(s.w) }

// Sample emits the n indices with the smallest exponential ranking keys.
func (s *EfraimidisSpirakis) Sample(emit func(i int), rng UniformSource) (int, error) {
	keyFor := func(i int, rng UniformSource) float64 {
		e := rng.ExpFloat64()
		if s.w[i] == 0 {
			return math.Inf(1)
		}
		return e / s.w[i]
	}
	return reservoirSample(s.n, len(s.w), keyFor, emit, rng), nil
}
