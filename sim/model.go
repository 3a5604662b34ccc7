package sim

import (
	"fmt"
	"sort"
	"strings"
)

// MaxOrder bounds the number of reactants in a single reaction.
const MaxOrder = 3

// Species describes one chemical species.
type Species struct {
	Name          string
	Diffusivity   float64 // diffusion constant, >= 0
	Concentration float64 // initial concentration, >= 0
}

// Reaction describes one reaction rule. Left and Right hold species indices
// into the model's species collection; repeated indices express
// stoichiometry (A + A -> ...).
type Reaction struct {
	Name  string
	Left  []int
	Right []int
	Rate  float64
}

// Order returns the reaction order (number of reactant molecules).
func (r Reaction) Order() int { return len(r.Left) }

// Neighbour couples a cell to an adjacent cell for diffusion.
type Neighbour struct {
	Cell     int     // neighbour cell index
	DiffCoef float64 // geometric diffusion coefficient, >= 0
}

// Cell is one well-mixed subvolume.
type Cell struct {
	Volume     float64
	Neighbours []Neighbour
}

// CellSet names a group of cells.
type CellSet struct {
	Name  string
	Cells []int
}

// NamedCollection keeps items addressable both by insertion index and by
// unique name. Indices are stable and zero-based.
type NamedCollection[T any] struct {
	items []T
	names []string
	index map[string]int
}

// Len returns the number of items.
func (c *NamedCollection[T]) Len() int { return len(c.items) }

// At returns the item at index i.
func (c *NamedCollection[T]) At(i int) T { return c.items[i] }

// NameAt returns the name of the item at index i.
func (c *NamedCollection[T]) NameAt(i int) string { return c.names[i] }

// Items returns the items in insertion order. The slice is shared; callers
// must not mutate it.
func (c *NamedCollection[T]) Items() []T { return c.items }

// Index returns the index of the named item, or -1 if absent.
func (c *NamedCollection[T]) Index(name string) int {
	if i, ok := c.index[name]; ok {
		return i
	}
	return -1
}

// Insert appends an item under the given name, rejecting duplicates.
func (c *NamedCollection[T]) Insert(name string, v T) error {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if _, ok := c.index[name]; ok {
		return fmt.Errorf("%w: duplicate name %q", ErrInvalidModel, name)
	}
	c.index[name] = len(c.items)
	c.items = append(c.items, v)
	c.names = append(c.names, name)
	return nil
}

// UniqueKey derives a name not yet present in the collection by appending a
// numeric suffix to base.
func (c *NamedCollection[T]) UniqueKey(base string) string {
	key := base
	for suffix := 0; c.Index(key) >= 0; {
		suffix++
		key = fmt.Sprintf("%s%d", base, suffix)
	}
	return key
}

// Model is the immutable description of a reaction-diffusion network:
// species, reaction rules, and a spatial decomposition into well-mixed
// cells with diffusive couplings. It is consumed by the simulator at
// construction and never mutated afterwards.
type Model struct {
	Name      string
	Species   NamedCollection[Species]
	Reactions NamedCollection[Reaction]
	CellSets  NamedCollection[CellSet]
	Cells     []Cell
}

// NSpecies returns the number of species.
func (m *Model) NSpecies() int { return m.Species.Len() }

// NReactions returns the number of reactions.
func (m *Model) NReactions() int { return m.Reactions.Len() }

// NCells returns the number of cells.
func (m *Model) NCells() int { return len(m.Cells) }

// Validate checks the domain invariants of a parsed model.
func (m *Model) Validate() error {
	for _, s := range m.Species.Items() {
		if s.Diffusivity < 0 {
			return fmt.Errorf("%w: species %q has negative diffusivity %g", ErrInvalidModel, s.Name, s.Diffusivity)
		}
		if s.Concentration < 0 {
			return fmt.Errorf("%w: species %q has negative concentration %g", ErrInvalidModel, s.Name, s.Concentration)
		}
	}
	for _, r := range m.Reactions.Items() {
		if r.Rate < 0 {
			return fmt.Errorf("%w: reaction %q has negative rate %g", ErrInvalidModel, r.Name, r.Rate)
		}
		if len(r.Left) > MaxOrder {
			return fmt.Errorf("%w: reaction %q has order %d, max %d", ErrInvalidModel, r.Name, len(r.Left), MaxOrder)
		}
		for _, s := range r.Left {
			if s < 0 || s >= m.NSpecies() {
				return fmt.Errorf("%w: reaction %q references unknown species index %d", ErrInvalidModel, r.Name, s)
			}
		}
		for _, s := range r.Right {
			if s < 0 || s >= m.NSpecies() {
				return fmt.Errorf("%w: reaction %q references unknown species index %d", ErrInvalidModel, r.Name, s)
			}
		}
	}
	for i, c := range m.Cells {
		if c.Volume <= 0 {
			return fmt.Errorf("%w: cell %d has non-positive volume %g", ErrInvalidModel, i, c.Volume)
		}
		for _, nb := range c.Neighbours {
			if nb.Cell < 0 || nb.Cell >= m.NCells() {
				return fmt.Errorf("%w: cell %d references unknown neighbour %d", ErrInvalidModel, i, nb.Cell)
			}
			if nb.DiffCoef < 0 {
				return fmt.Errorf("%w: cell %d has negative diffusion coefficient %g", ErrInvalidModel, i, nb.DiffCoef)
			}
		}
	}
	for _, cs := range m.CellSets.Items() {
		for _, c := range cs.Cells {
			if c < 0 || c >= m.NCells() {
				return fmt.Errorf("%w: cell set %q references unknown cell %d", ErrInvalidModel, cs.Name, c)
			}
		}
	}
	return nil
}

// reactionExpr renders one side of a reaction as "2A + B", or the empty-set
// symbol for an empty side.
func (m *Model) reactionExpr(side []int) string {
	if len(side) == 0 {
		return "Ø"
	}
	counts := map[int]int{}
	order := []int{}
	for _, s := range side {
		if counts[s] == 0 {
			order = append(order, s)
		}
		counts[s]++
	}
	sort.Ints(order)
	var b strings.Builder
	for i, s := range order {
		if i > 0 {
			b.WriteString(" + ")
		}
		if counts[s] > 1 {
			fmt.Fprintf(&b, "%d", counts[s])
		}
		b.WriteString(m.Species.At(s).Name)
	}
	return b.String()
}

// String renders the model for diagnostics: species table, reaction table,
// cell count.
func (m *Model) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "model: %s\nspecies:\n", m.Name)
	for _, s := range m.Species.Items() {
		fmt.Fprintf(&b, "  %10s: diffusivity=%-10g concentration=%-10g\n", s.Name, s.Diffusivity, s.Concentration)
	}
	b.WriteString("reactions:\n")
	for _, r := range m.Reactions.Items() {
		fmt.Fprintf(&b, "  %10s: rate=%-10g %s -> %s\n", r.Name, r.Rate, m.reactionExpr(r.Left), m.reactionExpr(r.Right))
	}
	fmt.Fprintf(&b, "cells: %d\n", m.NCells())
	return b.String()
}
