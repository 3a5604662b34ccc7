package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"
)

// RunConfig bounds a driver run. Exactly one of Events and TEnd is active:
// Events > 0 runs a fixed number of events per instance, otherwise the run
// is bounded by simulated time TEnd.
type RunConfig struct {
	Events int64   // number of events per instance
	TEnd   float64 // simulated end time

	SampleEvery int64   // sample cadence in events (event-bounded runs)
	SampleDT    float64 // sample cadence in simulated seconds (time-bounded runs)

	Verbose bool // per-event state dump
}

// Driver runs every replicate instance of a simulator to the configured
// bound and emits samples. Instances are embarrassingly parallel: each gets
// its own goroutine and its own RNG stream, sharing only the simulator's
// immutable tables; the emitter serialises batch output internally.
type Driver struct {
	sim     *Simulator
	rng     *PartitionedRNG
	emitter *Emitter
}

// NewDriver creates a driver over a simulator, RNG partition, and emitter.
func NewDriver(s *Simulator, rng *PartitionedRNG, emitter *Emitter) *Driver {
	return &Driver{sim: s, rng: rng, emitter: emitter}
}

// Run emits the header and the initial state of every instance, advances
// all instances concurrently to the configured bound, and flushes the
// emitter. The first instance error is returned.
func (d *Driver) Run(cfg RunConfig) error {
	if err := d.emitter.Header(); err != nil {
		return err
	}

	// Derive all streams before spawning: PartitionedRNG is not
	// goroutine-safe.
	rngs := make([]*rand.Rand, d.sim.Instances())
	for j := range rngs {
		rngs[j] = d.rng.ForSubsystem(SubsystemInstance(j))
	}

	for j := 0; j < d.sim.Instances(); j++ {
		if err := d.emitter.State(j, d.sim.Time(j), d.sim); err != nil {
			return err
		}
	}

	errs := make([]error, d.sim.Instances())
	var wg sync.WaitGroup
	for j := 0; j < d.sim.Instances(); j++ {
		wg.Add(1)
		go func(j int) {
			defer wg.Done()
			errs[j] = d.runInstance(j, rngs[j], cfg)
		}(j)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return d.emitter.Flush()
}

func (d *Driver) runInstance(j int, rng UniformSource, cfg RunConfig) error {
	if cfg.Events > 0 {
		return d.runEvents(j, rng, cfg)
	}
	return d.runUntil(j, rng, cfg)
}

// runEvents advances instance j exactly cfg.Events events, sampling every
// cfg.SampleEvery events (default: every event). An exhausted instance
// stops early.
func (d *Driver) runEvents(j int, rng UniformSource, cfg RunConfig) error {
	every := cfg.SampleEvery
	if every <= 0 {
		every = 1
	}
	for i := int64(1); i <= cfg.Events; i++ {
		t, err := d.sim.Advance(j, rng)
		if errors.Is(err, ErrExhausted) {
			logrus.Infof("[instance %d] exhausted after %d events at t=%g", j, d.sim.EventCount(j), t)
			break
		}
		if err != nil {
			return fmt.Errorf("instance %d: %w", j, err)
		}
		if cfg.Verbose {
			logrus.Infof("[instance %d] event %d at t=%g", j, i, t)
		}
		if i%every == 0 {
			if err := d.emitter.State(j, t, d.sim); err != nil {
				return err
			}
		}
	}
	return nil
}

// runUntil advances instance j to simulated time cfg.TEnd in sampling
// chunks of cfg.SampleDT (default: one chunk).
func (d *Driver) runUntil(j int, rng UniformSource, cfg RunConfig) error {
	dt := cfg.SampleDT
	if dt <= 0 {
		dt = math.Inf(1)
	}
	for t := d.sim.Time(j); t < cfg.TEnd; {
		next := math.Min(t+dt, cfg.TEnd)
		var err error
		t, err = d.sim.AdvanceUntil(j, next, rng)
		if err != nil {
			return fmt.Errorf("instance %d: %w", j, err)
		}
		if cfg.Verbose {
			logrus.Infof("[instance %d] sample at t=%g after %d events", j, t, d.sim.EventCount(j))
		}
		if err := d.emitter.State(j, t, d.sim); err != nil {
			return err
		}
	}
	return nil
}

// ExpectedSamples estimates the number of emitted rows, for pre-reserving
// the batch buffer.
func ExpectedSamples(s *Simulator, cfg RunConfig) int {
	perInstance := 1 // initial state
	if cfg.Events > 0 {
		every := cfg.SampleEvery
		if every <= 0 {
			every = 1
		}
		perInstance += int(cfg.Events / every)
	} else if cfg.SampleDT > 0 {
		perInstance += int(cfg.TEnd/cfg.SampleDT) + 1
	} else {
		perInstance++
	}
	return s.Instances() * perInstance * s.Model().NCells()
}
