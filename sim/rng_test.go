package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionedRNG_SameSubsystemSameStream(t *testing.T) {
	a := NewPartitionedRNG(NewSimulationKey(42))
	b := NewPartitionedRNG(NewSimulationKey(42))

	ra := a.ForSubsystem(SubsystemInstance(0))
	rb := b.ForSubsystem(SubsystemInstance(0))
	for i := 0; i < 100; i++ {
		require.Equal(t, ra.Float64(), rb.Float64(), "draw %d", i)
	}
}

func TestPartitionedRNG_CachesStreams(t *testing.T) {
	p := NewPartitionedRNG(NewSimulationKey(1))
	assert.Same(t, p.ForSubsystem("x"), p.ForSubsystem("x"))
	assert.Equal(t, SimulationKey(1), p.Key())
}

func TestPartitionedRNG_DistinctSubsystemsDiverge(t *testing.T) {
	p := NewPartitionedRNG(NewSimulationKey(42))
	r0 := p.ForSubsystem(SubsystemInstance(0))
	r1 := p.ForSubsystem(SubsystemInstance(1))

	same := 0
	for i := 0; i < 32; i++ {
		if r0.Float64() == r1.Float64() {
			same++
		}
	}
	assert.Less(t, same, 4, "streams for distinct instances must not coincide")
}

func TestPartitionedRNG_SeedChangesStreams(t *testing.T) {
	a := NewPartitionedRNG(NewSimulationKey(1)).ForSubsystem(SubsystemSampler)
	b := NewPartitionedRNG(NewSimulationKey(2)).ForSubsystem(SubsystemSampler)
	assert.NotEqual(t, a.Float64(), b.Float64())
}

func TestVanDerCorput_Base2Sequence(t *testing.T) {
	v := NewVanDerCorput(2)
	want := []float64{0.5, 0.25, 0.75, 0.125, 0.625, 0.375, 0.875}
	for i, w := range want {
		assert.InDelta(t, w, v.Float64(), 1e-12, "element %d", i)
	}
}

func TestVanDerCorput_InUnitInterval(t *testing.T) {
	v := NewVanDerCorput(10)
	for i := 0; i < 10000; i++ {
		u := v.Float64()
		require.GreaterOrEqual(t, u, 0.0)
		require.Less(t, u, 1.0)
	}
}

func TestVanDerCorput_Equidistribution(t *testing.T) {
	v := NewVanDerCorput(2)
	const n = 4096
	var below int
	for i := 0; i < n; i++ {
		if v.Float64() < 0.5 {
			below++
		}
	}
	assert.InDelta(t, 0.5, float64(below)/n, 0.01)
}

func TestVanDerCorput_ExpFloat64Positive(t *testing.T) {
	v := NewVanDerCorput(2)
	for i := 0; i < 100; i++ {
		assert.GreaterOrEqual(t, v.ExpFloat64(), 0.0)
	}
}

func TestVanDerCorput_InvalidBase_Panics(t *testing.T) {
	assert.Panics(t, func() { NewVanDerCorput(1) })
}
