package sim

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadModelFile reads a model stream from path ("-" means stdin) and returns
// the model named name, or the first model in the stream when name is empty.
func LoadModelFile(path, name string) (*Model, error) {
	if path == "" || path == "-" {
		return LoadModel(os.Stdin, name)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelIO, err)
	}
	defer f.Close()
	return LoadModel(f, name)
}

// LoadModel decodes a YAML model stream. A stream contains one or more
// documents; the document whose top-level `model` key matches name is
// selected. Duplicate top-level keys (repeated `species` and `reaction`
// entries) are honoured by walking the raw node tree rather than decoding
// into a map.
func LoadModel(r io.Reader, name string) (*Model, error) {
	dec := yaml.NewDecoder(r)
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: model specification not found", ErrModelIO)
			}
			return nil, fmt.Errorf("%w: %v", ErrModelIO, err)
		}
		root := &doc
		if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
			root = root.Content[0]
		}
		if root.Kind != yaml.MappingNode {
			continue
		}
		modelName, ok := lookupScalar(root, "model")
		if !ok || (name != "" && name != modelName) {
			continue
		}
		m, err := parseModel(root, modelName)
		if err != nil {
			return nil, err
		}
		if err := m.Validate(); err != nil {
			return nil, err
		}
		return m, nil
	}
}

func parseModel(root *yaml.Node, modelName string) (*Model, error) {
	m := &Model{Name: modelName}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "model":
			// already consumed
		case "cells":
			if err := parseCells(m, val); err != nil {
				return nil, err
			}
		case "species":
			if err := parseSpecies(m, val); err != nil {
				return nil, err
			}
		case "reaction":
			if err := parseReaction(m, val); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unknown key %q at line %d", ErrModelIO, key.Value, key.Line)
		}
	}
	return m, nil
}

func parseCells(m *Model, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: cells must be a mapping, line %d", ErrModelIO, node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "wmvol":
			if err := parseWMVol(m, val); err != nil {
				return err
			}
		case "grid":
			if err := parseGrid(m, val); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown geometry %q at line %d", ErrModelIO, key.Value, key.Line)
		}
	}
	return nil
}

func parseWMVol(m *Model, node *yaml.Node) error {
	var spec struct {
		Name   string  `yaml:"name"`
		Volume float64 `yaml:"volume"`
	}
	if err := decodeStrict(node, &spec, "name", "volume"); err != nil {
		return err
	}
	if spec.Volume <= 0 {
		return fmt.Errorf("%w: wmvol volume must be positive, got %g", ErrInvalidModel, spec.Volume)
	}
	id := len(m.Cells)
	m.Cells = append(m.Cells, Cell{Volume: spec.Volume})

	setName := spec.Name
	if setName == "" {
		setName = m.CellSets.UniqueKey("wmvol")
	}
	return m.CellSets.Insert(setName, CellSet{Name: setName, Cells: []int{id}})
}

func parseGrid(m *Model, node *yaml.Node) error {
	var spec struct {
		Name   string       `yaml:"name"`
		Scale  float64      `yaml:"scale"`
		Extent [][3]float64 `yaml:"extent"`
		Counts [3]int       `yaml:"counts"`
	}
	if err := decodeStrict(node, &spec, "name", "scale", "extent", "counts"); err != nil {
		return err
	}
	if spec.Scale == 0 {
		spec.Scale = 1
	}
	if len(spec.Extent) != 2 {
		return fmt.Errorf("%w: grid extent must be [[x0,y0,z0],[x1,y1,z1]], line %d", ErrModelIO, node.Line)
	}

	var delta [3]float64
	nCells := 1
	for a := 0; a < 3; a++ {
		n := spec.Counts[a]
		if n < 1 {
			return fmt.Errorf("%w: grid counts must be positive, got %d", ErrInvalidModel, n)
		}
		width := (spec.Extent[1][a] - spec.Extent[0][a]) * spec.Scale
		if width <= 0 {
			return fmt.Errorf("%w: grid extent must have positive width on axis %d", ErrInvalidModel, a)
		}
		delta[a] = width / float64(n)
		nCells *= n
	}
	volume := delta[0] * delta[1] * delta[2]

	nx, ny, nz := spec.Counts[0], spec.Counts[1], spec.Counts[2]
	base := len(m.Cells)
	index := func(x, y, z int) int { return base + x + nx*(y+ny*z) }

	ids := make([]int, 0, nCells)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				cell := Cell{Volume: volume}
				at := [3]int{x, y, z}
				for a := 0; a < 3; a++ {
					coef := 1 / (delta[a] * delta[a])
					for _, dir := range [2]int{-1, +1} {
						nb := at
						nb[a] += dir
						if nb[a] < 0 || nb[a] >= spec.Counts[a] {
							continue
						}
						cell.Neighbours = append(cell.Neighbours, Neighbour{
							Cell:     index(nb[0], nb[1], nb[2]),
							DiffCoef: coef,
						})
					}
				}
				ids = append(ids, len(m.Cells))
				m.Cells = append(m.Cells, cell)
			}
		}
	}

	setName := spec.Name
	if setName == "" {
		setName = m.CellSets.UniqueKey("grid")
	}
	return m.CellSets.Insert(setName, CellSet{Name: setName, Cells: ids})
}

func parseSpecies(m *Model, node *yaml.Node) error {
	var spec struct {
		Name          string  `yaml:"name"`
		Diffusivity   float64 `yaml:"diffusivity"`
		Concentration float64 `yaml:"concentration"`
	}
	if err := decodeStrict(node, &spec, "name", "diffusivity", "concentration"); err != nil {
		return err
	}
	if spec.Name == "" {
		return fmt.Errorf("%w: species requires a name, line %d", ErrModelIO, node.Line)
	}
	return m.Species.Insert(spec.Name, Species{
		Name:          spec.Name,
		Diffusivity:   spec.Diffusivity,
		Concentration: spec.Concentration,
	})
}

func parseReaction(m *Model, node *yaml.Node) error {
	var spec struct {
		Name  string    `yaml:"name"`
		Left  []string  `yaml:"left"`
		Right []string  `yaml:"right"`
		Rate  []float64 `yaml:"rate"`
	}
	if err := decodeStrict(node, &spec, "name", "left", "right", "rate"); err != nil {
		return err
	}
	if len(spec.Rate) < 1 || len(spec.Rate) > 2 {
		return fmt.Errorf("%w: reaction rate must be [fwd] or [fwd, rev], line %d", ErrModelIO, node.Line)
	}

	left, err := speciesList(m, spec.Left)
	if err != nil {
		return err
	}
	right, err := speciesList(m, spec.Right)
	if err != nil {
		return err
	}

	name := spec.Name
	if name == "" {
		name = m.Reactions.UniqueKey("_r")
	}
	if err := m.Reactions.Insert(name, Reaction{Name: name, Left: left, Right: right, Rate: spec.Rate[0]}); err != nil {
		return err
	}

	if len(spec.Rate) == 2 {
		rev := m.Reactions.UniqueKey(name + "_rev")
		if err := m.Reactions.Insert(rev, Reaction{Name: rev, Left: right, Right: left, Rate: spec.Rate[1]}); err != nil {
			return err
		}
	}
	return nil
}

func speciesList(m *Model, names []string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, n := range names {
		i := m.Species.Index(n)
		if i < 0 {
			return nil, fmt.Errorf("%w: unknown species %q", ErrInvalidModel, n)
		}
		out = append(out, i)
	}
	return out, nil
}

// decodeStrict decodes a mapping node into out, rejecting keys outside the
// allowed set.
func decodeStrict(node *yaml.Node, out any, allowed ...string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: expected a mapping at line %d", ErrModelIO, node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		known := false
		for _, a := range allowed {
			if key == a {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: unknown key %q at line %d", ErrModelIO, key, node.Content[i].Line)
		}
	}
	if err := node.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrModelIO, err)
	}
	return nil
}

func lookupScalar(mapping *yaml.Node, key string) (string, bool) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key && mapping.Content[i+1].Kind == yaml.ScalarNode {
			return mapping.Content[i+1].Value, true
		}
	}
	return "", false
}
