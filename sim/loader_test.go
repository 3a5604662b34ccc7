package sim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basicModelYAML = `
model: basic
cells:
  wmvol: { name: soma, volume: 2.0 }
species: { name: A, diffusivity: 1.0, concentration: 3.0 }
species: { name: B }
reaction: { name: conv, left: [A], right: [B], rate: [2.0, 0.5] }
reaction: { left: [A, A], right: [], rate: [1.0] }
`

func TestLoadModel_Basic(t *testing.T) {
	m, err := LoadModel(strings.NewReader(basicModelYAML), "")
	require.NoError(t, err)

	assert.Equal(t, "basic", m.Name)
	assert.Equal(t, 2, m.NSpecies())
	assert.Equal(t, 1, m.NCells())
	assert.Equal(t, 2.0, m.Cells[0].Volume)

	a := m.Species.At(m.Species.Index("A"))
	assert.Equal(t, 1.0, a.Diffusivity)
	assert.Equal(t, 3.0, a.Concentration)
	b := m.Species.At(m.Species.Index("B"))
	assert.Equal(t, 0.0, b.Diffusivity)
	assert.Equal(t, 0.0, b.Concentration)

	// conv + synthesized reverse + anonymous dimer decay
	require.Equal(t, 3, m.NReactions())
	conv := m.Reactions.At(m.Reactions.Index("conv"))
	assert.Equal(t, []int{0}, conv.Left)
	assert.Equal(t, []int{1}, conv.Right)
	assert.Equal(t, 2.0, conv.Rate)

	rev := m.Reactions.At(m.Reactions.Index("conv_rev"))
	assert.Equal(t, []int{1}, rev.Left)
	assert.Equal(t, []int{0}, rev.Right)
	assert.Equal(t, 0.5, rev.Rate)

	anon := m.Reactions.At(m.Reactions.Index("_r"))
	assert.Equal(t, []int{0, 0}, anon.Left)
	assert.Empty(t, anon.Right)

	// named wmvol produces a cell set
	assert.Equal(t, []int{0}, m.CellSets.At(m.CellSets.Index("soma")).Cells)
}

func TestLoadModel_SelectsByName(t *testing.T) {
	stream := `
model: first
cells:
  wmvol: { volume: 1.0 }
species: { name: A }
---
model: second
cells:
  wmvol: { volume: 5.0 }
species: { name: X }
`
	m, err := LoadModel(strings.NewReader(stream), "second")
	require.NoError(t, err)
	assert.Equal(t, "second", m.Name)
	assert.Equal(t, 5.0, m.Cells[0].Volume)
	assert.Equal(t, 0, m.Species.Index("X"))

	_, err = LoadModel(strings.NewReader(stream), "third")
	assert.ErrorIs(t, err, ErrModelIO)
}

func TestLoadModel_Grid(t *testing.T) {
	src := `
model: grid2
cells:
  grid: { name: box, extent: [[0, 0, 0], [1, 1, 1]], counts: [2, 1, 1] }
species: { name: A, diffusivity: 0.5 }
`
	m, err := LoadModel(strings.NewReader(src), "")
	require.NoError(t, err)
	require.Equal(t, 2, m.NCells())

	// Two cells of half the unit box each.
	assert.InDelta(t, 0.5, m.Cells[0].Volume, 1e-12)
	// Face coupling along x: 1/(0.5^2) = 4.
	require.Len(t, m.Cells[0].Neighbours, 1)
	assert.Equal(t, 1, m.Cells[0].Neighbours[0].Cell)
	assert.InDelta(t, 4.0, m.Cells[0].Neighbours[0].DiffCoef, 1e-12)
	require.Len(t, m.Cells[1].Neighbours, 1)
	assert.Equal(t, 0, m.Cells[1].Neighbours[0].Cell)

	assert.Equal(t, []int{0, 1}, m.CellSets.At(m.CellSets.Index("box")).Cells)
}

func TestLoadModel_GridInteriorNeighbourCount(t *testing.T) {
	src := `
model: grid27
cells:
  grid: { extent: [[0, 0, 0], [3, 3, 3]], counts: [3, 3, 3] }
species: { name: A }
`
	m, err := LoadModel(strings.NewReader(src), "")
	require.NoError(t, err)
	require.Equal(t, 27, m.NCells())

	// Centre cell has six neighbours, corner cells three.
	centre := 1 + 3*(1+3*1)
	assert.Len(t, m.Cells[centre].Neighbours, 6)
	assert.Len(t, m.Cells[0].Neighbours, 3)
}

func TestLoadModel_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		kind error
	}{
		{"unknown top-level key", "model: m\nbogus: 1\n", ErrModelIO},
		{"unknown geometry", "model: m\ncells:\n  sphere: { volume: 1 }\n", ErrModelIO},
		{"unknown species in reaction", "model: m\ncells:\n  wmvol: { volume: 1 }\nspecies: { name: A }\nreaction: { left: [Z], right: [], rate: [1] }\n", ErrInvalidModel},
		{"missing rate", "model: m\ncells:\n  wmvol: { volume: 1 }\nspecies: { name: A }\nreaction: { left: [A], right: [] }\n", ErrModelIO},
		{"negative rate", "model: m\ncells:\n  wmvol: { volume: 1 }\nspecies: { name: A }\nreaction: { left: [A], right: [], rate: [-1] }\n", ErrInvalidModel},
		{"zero volume", "model: m\ncells:\n  wmvol: { volume: 0 }\nspecies: { name: A }\n", ErrInvalidModel},
		{"negative diffusivity", "model: m\ncells:\n  wmvol: { volume: 1 }\nspecies: { name: A, diffusivity: -1 }\n", ErrInvalidModel},
		{"duplicate species", "model: m\ncells:\n  wmvol: { volume: 1 }\nspecies: { name: A }\nspecies: { name: A }\n", ErrInvalidModel},
		{"unknown species key", "model: m\nspecies: { name: A, colour: red }\n", ErrModelIO},
		{"no model key", "species: { name: A }\n", ErrModelIO},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadModel(strings.NewReader(tc.src), "")
			assert.ErrorIs(t, err, tc.kind)
		})
	}
}
