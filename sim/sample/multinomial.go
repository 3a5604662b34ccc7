package sample

// MultinomialDraw samples n independent indices, with replacement, from the
// categorical distribution over the supplied weights.
type MultinomialDraw struct {
	n     int
	table *AliasTable
}

// NewMultinomialDraw builds the sampler for n draws over weights.
func NewMultinomialDraw(n int, weights []float64) (*MultinomialDraw, error) {
	table, err := NewAliasTable(weights)
	if err != nil {
		return nil, err
	}
	return &MultinomialDraw{n: n, table: table}, nil
}

// MinSize returns n.
func (s *MultinomialDraw) MinSize() int { return s.n }

// MaxSize returns n.
func (s *MultinomialDraw) MaxSize() int { return s.n }

// PopulationSize returns the number of weights supplied.
func (s *MultinomialDraw) PopulationSize() int { return s.table.Size() }

// Sample emits n alias-table draws.
func (s *MultinomialDraw) Sample(emit func(i int), rng UniformSource) (int, error) {
	for i := 0; i < s.n; i++ {
		emit(s.table.Draw(rng))
	}
	return s.n, nil
}
