package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// instanceState is the mutable per-replicate state: simulated time, the
// event selector, and the cached next event.
//
// stale=true means no valid cached event is held and the selector must be
// polled; it is set whenever an event fires or a mutation invalidates
// propensities. The cached (nextK, nextDT) lets a bounded advance retain an
// event whose firing time exceeded the bound, so the residual waiting time
// carries forward instead of being re-drawn.
type instanceState struct {
	t   float64
	sel DirectSelector

	stale  bool
	nextK  int
	nextDT float64

	events int64
}

// Simulator glues the stochastic engine to a Model: it expands the model
// into process descriptors, owns the process system and one selector per
// replicate instance, and exposes the advance operations.
//
// Distinct instances share only the immutable dependency tables and may be
// advanced concurrently from distinct goroutines, each with its own RNG.
type Simulator struct {
	model    *Model
	nSpecies int
	nCells   int

	procs  *ProcessSystem
	states []instanceState
	t0     float64
}

// NewSimulator builds a simulator with nInstances independent replicate
// trajectories of the model, all starting at time t0.
func NewSimulator(nInstances int, m *Model, t0 float64) (*Simulator, error) {
	if nInstances < 1 {
		return nil, fmt.Errorf("simulator requires at least one instance, got %d", nInstances)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		model:    m,
		nSpecies: m.NSpecies(),
		nCells:   m.NCells(),
		t0:       t0,
	}

	procs, err := NewProcessSystem(s.nSpecies*s.nCells, nInstances, s.buildProcesses())
	if err != nil {
		return nil, err
	}
	s.procs = procs

	s.states = make([]instanceState, nInstances)
	for j := range s.states {
		s.states[j].sel.Reset(procs.NumProcesses())
	}
	s.initialiseInstances()

	logrus.Debugf("simulator: %d species, %d cells, %d processes, %d instances",
		s.nSpecies, s.nCells, procs.NumProcesses(), nInstances)
	return s, nil
}

// buildProcesses expands the model into process descriptors: per cell one
// process per reaction with the volume-scaled rate constant, then one
// directed diffusion jump per (cell, neighbour, species) with a non-zero
// geometric coefficient.
func (s *Simulator) buildProcesses() []ProcessDesc {
	var procs []ProcessDesc

	for c := 0; c < s.nCells; c++ {
		vol := s.model.Cells[c].Volume
		for _, reac := range s.model.Reactions.Items() {
			pd := ProcessDesc{
				Rate: reac.Rate * math.Pow(vol, float64(1-reac.Order())),
			}
			for _, sp := range reac.Left {
				pd.Left = append(pd.Left, s.popIndex(sp, c))
			}
			for _, sp := range reac.Right {
				pd.Right = append(pd.Right, s.popIndex(sp, c))
			}
			procs = append(procs, pd)
		}
	}

	for c := 0; c < s.nCells; c++ {
		for _, nb := range s.model.Cells[c].Neighbours {
			if nb.DiffCoef == 0 {
				continue
			}
			for sp := 0; sp < s.nSpecies; sp++ {
				procs = append(procs, ProcessDesc{
					Left:  []int{s.popIndex(sp, c)},
					Right: []int{s.popIndex(sp, nb.Cell)},
					Rate:  nb.DiffCoef * s.model.Species.At(sp).Diffusivity,
				})
			}
		}
	}
	return procs
}

// initialiseInstances sets initial counts from concentrations and primes
// each selector with the current propensities.
func (s *Simulator) initialiseInstances() {
	for j := range s.states {
		st := &s.states[j]
		st.t = s.t0
		st.stale = true
		st.events = 0

		update := s.updater(j)
		for sp := 0; sp < s.nSpecies; sp++ {
			conc := s.model.Species.At(sp).Concentration
			for c := 0; c < s.nCells; c++ {
				count := int64(math.Round(conc * s.model.Cells[c].Volume))
				s.procs.SetCount(j, s.popIndex(sp, c), count, update)
			}
		}
		for k := 0; k < s.procs.NumProcesses(); k++ {
			update(k)
		}
	}
}

// updater returns the observer that forwards propensity changes of an
// instance's processes to that instance's selector.
func (s *Simulator) updater(instance int) func(k int) {
	sel := &s.states[instance].sel
	return func(k int) {
		sel.Update(k, s.procs.Propensity(instance, k))
	}
}

func (s *Simulator) popIndex(species, cell int) int {
	return cell*s.nSpecies + species
}

// Model returns the model the simulator was built from.
func (s *Simulator) Model() *Model { return s.model }

// Instances returns the number of replicate instances.
func (s *Simulator) Instances() int { return len(s.states) }

// NumProcesses returns the number of expanded processes.
func (s *Simulator) NumProcesses() int { return s.procs.NumProcesses() }

// Time returns the current simulated time of an instance.
func (s *Simulator) Time(instance int) float64 { return s.states[instance].t }

// EventCount returns the number of events fired in an instance.
func (s *Simulator) EventCount(instance int) int64 { return s.states[instance].events }

// Count returns the molecule count of a species in a cell.
func (s *Simulator) Count(instance, species, cell int) int64 {
	return s.procs.Count(instance, s.popIndex(species, cell))
}

// SetCount overrides the molecule count of a species in a cell, updating
// the instance's selector and invalidating any cached event.
func (s *Simulator) SetCount(instance, species, cell int, count int64) {
	st := &s.states[instance]
	s.procs.SetCount(instance, s.popIndex(species, cell), count, s.updater(instance))
	st.stale = true
}

// Total returns the total propensity of an instance.
func (s *Simulator) Total(instance int) float64 {
	return s.states[instance].sel.Total()
}

// Reset returns all instances to their initial state at time t0. The
// dependency tables are untouched.
func (s *Simulator) Reset() {
	s.procs.Reset()
	for j := range s.states {
		s.states[j].sel.Reset(s.procs.NumProcesses())
	}
	s.initialiseInstances()
}

// getNext fills the cached event if it is stale. A ladder fall-off is
// retried once: the selector has recomputed its total by then, so a second
// failure is reported to the caller.
func (s *Simulator) getNext(st *instanceState, rng UniformSource) error {
	if !st.stale {
		return nil
	}
	k, dt, err := st.sel.Next(rng)
	if errors.Is(err, ErrLadderFalloff) {
		logrus.Warnf("selector fell off propensity ladder; recomputing total")
		k, dt, err = st.sel.Next(rng)
	}
	if err != nil {
		return err
	}
	st.nextK, st.nextDT = k, dt
	st.stale = false
	return nil
}

// Advance fires exactly one event in an instance and returns the new
// simulated time. Returns ErrExhausted when no process can fire.
func (s *Simulator) Advance(instance int, rng UniformSource) (float64, error) {
	st := &s.states[instance]
	if err := s.getNext(st, rng); err != nil {
		return st.t, err
	}

	s.procs.Apply(instance, st.nextK, s.updater(instance))
	st.t += st.nextDT
	st.events++
	st.stale = true
	return st.t, nil
}

// AdvanceUntil fires events while the next event time is within tEnd, then
// sets the instance clock to tEnd and returns it. An event drawn beyond
// tEnd is retained: its residual waiting time carries into the next call.
// An exhausted instance (zero total propensity) idles to tEnd.
func (s *Simulator) AdvanceUntil(instance int, tEnd float64, rng UniformSource) (float64, error) {
	st := &s.states[instance]
	update := s.updater(instance)

	for {
		if err := s.getNext(st, rng); err != nil {
			if errors.Is(err, ErrExhausted) {
				// No event is cached: the next call polls the selector again.
				break
			}
			return st.t, err
		}
		if st.t+st.nextDT > tEnd {
			break
		}

		s.procs.Apply(instance, st.nextK, update)
		st.t += st.nextDT
		st.events++
		st.stale = true
	}

	st.nextDT -= tEnd - st.t
	st.t = tEnd
	return st.t, nil
}
