package sim

import (
	"fmt"
	"sort"
	"strings"
)

// ProcessDesc describes one elementary event for the process system: a
// within-cell reaction or a directed diffusion jump. Left and Right are
// multisets of population indices; Rate is the process rate constant.
type ProcessDesc struct {
	Left  []int
	Right []int
	Rate  float64
}

// slotRef addresses one factor slot of one process. pop-to-slot entries for
// the same population and the same process are stored contiguously with
// slot indices ascending; the reset walk depends on this.
type slotRef struct {
	k    int // process index
	slot int // factor slot, in [0, MaxOrder)
}

// popDelta is one population adjustment applied when a process fires.
type popDelta struct {
	p     int
	delta int64
}

// factorEntry caches the integer factors whose product with the process
// rate constant is the propensity. Slots beyond the reaction order stay 1.
type factorEntry [MaxOrder]int64

// ProcessSystem maintains process dependencies factored through populations
// and computes propensities on demand from cached factors.
//
// The dependency tables (rate, popToSlots, procDeltas) are built once at
// construction and shared, read-only, across all replicate instances.
// Counts and factor caches are per-instance; distinct instances may be
// mutated concurrently from distinct goroutines.
type ProcessSystem struct {
	nPop       int
	nInstances int

	rate       []float64
	popToSlots [][]slotRef
	procDeltas [][]popDelta

	counts  [][]int64       // [instance][population]
	factors [][]factorEntry // [instance][process]
}

// NewProcessSystem builds a process system over nPop populations for
// nInstances replicate instances from a bulk sequence of process
// descriptors. Process indices are assigned in descriptor order. All
// population counts start at zero; callers initialise them via SetCount.
func NewProcessSystem(nPop, nInstances int, procs []ProcessDesc) (*ProcessSystem, error) {
	if nPop < 0 || nInstances < 1 {
		return nil, fmt.Errorf("process system requires nPop >= 0 and nInstances >= 1, got %d, %d", nPop, nInstances)
	}

	ps := &ProcessSystem{
		nPop:       nPop,
		nInstances: nInstances,
		rate:       make([]float64, 0, len(procs)),
		popToSlots: make([][]slotRef, nPop),
		procDeltas: make([][]popDelta, 0, len(procs)),
	}

	for k, pd := range procs {
		if len(pd.Left) > MaxOrder {
			return nil, fmt.Errorf("process %d has %d reactants, max %d", k, len(pd.Left), MaxOrder)
		}
		if pd.Rate < 0 {
			return nil, fmt.Errorf("process %d has negative rate %g", k, pd.Rate)
		}
		for _, p := range append(append([]int{}, pd.Left...), pd.Right...) {
			if p < 0 || p >= nPop {
				return nil, fmt.Errorf("process %d references population %d out of [0,%d)", k, p, nPop)
			}
		}

		// Net population deltas: -1 per reactant occurrence, +1 per
		// product occurrence, zero entries omitted.
		deltas := map[int]int64{}
		for _, p := range pd.Left {
			deltas[p]--
		}
		for _, p := range pd.Right {
			deltas[p]++
		}
		entry := make([]popDelta, 0, len(deltas))
		for p, d := range deltas {
			if d != 0 {
				entry = append(entry, popDelta{p: p, delta: d})
			}
		}
		sort.Slice(entry, func(i, j int) bool { return entry[i].p < entry[j].p })
		ps.procDeltas = append(ps.procDeltas, entry)

		// Factor slot assignment: reactants sorted by population index;
		// the i-th sorted reactant owns slot i. Repeated populations get
		// consecutive slots, giving the falling-factorial factors.
		left := append([]int{}, pd.Left...)
		sort.Ints(left)
		for i, p := range left {
			ps.popToSlots[p] = append(ps.popToSlots[p], slotRef{k: k, slot: i})
		}

		ps.rate = append(ps.rate, pd.Rate)
	}

	ps.counts = make([][]int64, nInstances)
	ps.factors = make([][]factorEntry, nInstances)
	for j := 0; j < nInstances; j++ {
		ps.counts[j] = make([]int64, nPop)
		ps.factors[j] = make([]factorEntry, len(procs))
	}
	ps.Reset()
	return ps, nil
}

// NumProcesses returns the number of processes.
func (ps *ProcessSystem) NumProcesses() int { return len(ps.rate) }

// NumPopulations returns the number of populations.
func (ps *ProcessSystem) NumPopulations() int { return ps.nPop }

// NumInstances returns the number of replicate instances.
func (ps *ProcessSystem) NumInstances() int { return ps.nInstances }

// Rate returns the rate constant of process k.
func (ps *ProcessSystem) Rate(k int) float64 { return ps.rate[k] }

// Count returns the population count of p in the given instance.
func (ps *ProcessSystem) Count(instance, p int) int64 {
	return ps.counts[instance][p]
}

// Counts returns the population counts of an instance as a borrowed view;
// callers must not mutate it.
func (ps *ProcessSystem) Counts(instance int) []int64 {
	return ps.counts[instance]
}

// SetCount writes population count c for p in the given instance and
// updates every dependent factor slot. notify is invoked exactly once per
// distinct process whose propensity may have changed, in pop-to-slot table
// order; it may be nil.
func (ps *ProcessSystem) SetCount(instance, p int, c int64, notify func(k int)) {
	if c < 0 {
		panic(fmt.Sprintf("SetCount: negative count %d for population %d", c, p))
	}
	delta := c - ps.counts[instance][p]
	ps.counts[instance][p] = c
	ps.applyContribs(instance, p, delta, notify)
}

// Apply fires process k in the given instance: populations are adjusted by
// the process deltas and dependent factor slots updated. notify is invoked
// exactly once per distinct affected process, per adjusted population, in
// table order. Driving any count negative is a logical failure and panics.
func (ps *ProcessSystem) Apply(instance, k int, notify func(k int)) {
	for _, pd := range ps.procDeltas[k] {
		c := ps.counts[instance][pd.p] + pd.delta
		if c < 0 {
			panic(fmt.Sprintf("Apply: process %d drives population %d negative", k, pd.p))
		}
		ps.counts[instance][pd.p] = c
		ps.applyContribs(instance, pd.p, pd.delta, notify)
	}
}

// applyContribs adds delta to every factor slot fed by population p,
// notifying once per distinct process after the last of its slots has been
// updated. Contiguity of same-process entries makes the dedup a single
// comparison against the next entry.
func (ps *ProcessSystem) applyContribs(instance, p int, delta int64, notify func(k int)) {
	factors := ps.factors[instance]
	refs := ps.popToSlots[p]
	for i, ref := range refs {
		factors[ref.k][ref.slot] += delta
		if notify != nil && (i+1 == len(refs) || refs[i+1].k != ref.k) {
			notify(ref.k)
		}
	}
}

// Propensity returns rate(k) times the product of the cached factor slots
// for process k in the given instance.
func (ps *ProcessSystem) Propensity(instance, k int) float64 {
	a := ps.rate[k]
	for _, c := range ps.factors[instance][k] {
		a *= float64(c)
	}
	return a
}

// Reset zeroes all per-instance population counts and rebuilds the factor
// caches to match. The dependency tables are untouched.
//
// The rebuild walks each population's pop-to-slot entries in order: within
// a run of entries sharing a process the successive slots receive
// c, c-1, c-2, ... so that repeated reactants yield falling-factorial
// factors; each new process run restarts from the population count.
func (ps *ProcessSystem) Reset() {
	for j := 0; j < ps.nInstances; j++ {
		for i := range ps.counts[j] {
			ps.counts[j][i] = 0
		}
		factors := ps.factors[j]
		for k := range factors {
			factors[k] = factorEntry{1, 1, 1}
		}
		for p := 0; p < ps.nPop; p++ {
			ps.rebuildSlots(j, p)
		}
	}
}

func (ps *ProcessSystem) rebuildSlots(instance, p int) {
	factors := ps.factors[instance]
	c := ps.counts[instance][p]
	run := c
	prev := -1
	for _, ref := range ps.popToSlots[p] {
		if ref.k != prev {
			run = c
		} else {
			run--
		}
		factors[ref.k][ref.slot] = run
		prev = ref.k
	}
}

// String dumps the dependency tables, for debugging.
func (ps *ProcessSystem) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "process system: nPop=%d nProc=%d\npopToSlots:\n", ps.nPop, len(ps.rate))
	for p, refs := range ps.popToSlots {
		fmt.Fprintf(&b, "  %6d:", p)
		for _, ref := range refs {
			fmt.Fprintf(&b, " %d:%d", ref.k, ref.slot)
		}
		b.WriteByte('\n')
	}
	b.WriteString("procDeltas:\n")
	for k, pds := range ps.procDeltas {
		fmt.Fprintf(&b, "  %6d:", k)
		for _, pd := range pds {
			fmt.Fprintf(&b, " %d:%+d", pd.p, pd.delta)
		}
		b.WriteByte('\n')
	}
	b.WriteString("rate:\n")
	for k, r := range ps.rate {
		fmt.Fprintf(&b, "  %6d: %g\n", k, r)
	}
	return b.String()
}
