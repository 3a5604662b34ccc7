package sim

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
)

// UniformSource is the random-variate surface required by the selector and
// the samplers: a uniform draw on [0,1) and a standard exponential draw.
// *rand.Rand satisfies it; VanDerCorput provides a quasi-random alternative.
type UniformSource interface {
	Float64() float64
	ExpFloat64() float64
}

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same key and identical model MUST produce bit-for-bit
// identical trajectories.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// SubsystemSampler is the RNG subsystem used by the distribution helper.
const SubsystemSampler = "sampler"

// SubsystemInstance returns the subsystem name for replicate instance N.
func SubsystemInstance(id int) string {
	return fmt.Sprintf("instance_%d", id)
}

// PartitionedRNG provides deterministic, isolated RNG state per subsystem.
// Each replicate instance draws from its own stream, so instances may be
// advanced concurrently and in any interleaving without affecting each
// other's trajectories.
//
// Derivation: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: ForSubsystem is NOT thread-safe; derive all streams before
// handing them to per-instance goroutines.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named
// subsystem. The same name always returns the same *rand.Rand (cached).
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// VanDerCorput is a low-discrepancy UniformSource: successive Float64 calls
// return the base-b radical-inverse sequence 1/b, 2/b, ..., digit-reversed.
// Substituting it for a pseudo-random source turns the inverse-CDF draws in
// the selector into quasi-Monte Carlo sampling.
type VanDerCorput struct {
	base uint64
	n    uint64
}

// NewVanDerCorput creates a Van der Corput sequence in the given base.
// Base must be >= 2.
func NewVanDerCorput(base uint64) *VanDerCorput {
	if base < 2 {
		panic(fmt.Sprintf("NewVanDerCorput: base must be >= 2, got %d", base))
	}
	return &VanDerCorput{base: base, n: 0}
}

// Float64 returns the next element of the sequence, in [0,1).
func (v *VanDerCorput) Float64() float64 {
	v.n++
	r := 0.0
	k := 1.0 / float64(v.base)
	for n := v.n; n != 0; n /= v.base {
		r += float64(n%v.base) * k
		k /= float64(v.base)
	}
	return r
}

// ExpFloat64 returns a standard exponential variate by inverse CDF on the
// next sequence element.
func (v *VanDerCorput) ExpFloat64() float64 {
	return -math.Log(1 - v.Float64())
}
