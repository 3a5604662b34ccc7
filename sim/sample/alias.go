package sample

import "fmt"

// AliasTable is a categorical distribution over n bins with O(1) draws
// after O(n) construction (Vose 1991). Each bin i stores a cutoff q[i] in
// [0,1] and an alias; a draw splits one uniform on [0,n) into bin and
// fraction and returns the bin or its alias.
type AliasTable struct {
	q     []float64
	alias []int
}

// NewAliasTable builds the table from a non-negative weight sequence.
// Construction is deterministic: the small and big worklists are both
// scanned in ascending index order, so two tables built from equal weights
// are identical. An empty weight sequence yields a table that always
// draws 0.
func NewAliasTable(weights []float64) (*AliasTable, error) {
	n := len(weights)
	t := &AliasTable{
		q:     make([]float64, n),
		alias: make([]int, n),
	}
	if n == 0 {
		return t, nil
	}

	sum := 0.0
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight %g at %d", ErrDomain, w, i)
		}
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: weights sum to zero", ErrDomain)
	}

	// Normalise so the probabilities sum to n.
	p := make([]float64, n)
	scale := float64(n) / sum
	var small, big []int
	for i, w := range weights {
		p[i] = w * scale
		if p[i] <= 1 {
			small = append(small, i)
		} else {
			big = append(big, i)
		}
	}

	// Pair each small bin with a big donor. Both lists advance in
	// ascending order; a donor that drops to or below 1 joins the small
	// list behind the current front.
	si, bi := 0, 0
	for si < len(small) && bi < len(big) {
		s, b := small[si], big[bi]
		si++

		t.q[s] = p[s]
		t.alias[s] = b
		p[b] -= 1 - p[s]
		if p[b] <= 1 {
			small = append(small, b)
			bi++
		}
	}
	// Leftovers are saturated bins.
	for ; si < len(small); si++ {
		t.q[small[si]] = 1
		t.alias[small[si]] = small[si]
	}
	for ; bi < len(big); bi++ {
		t.q[big[bi]] = 1
		t.alias[big[bi]] = big[bi]
	}

	return t, nil
}

// Size returns the number of bins.
func (t *AliasTable) Size() int { return len(t.q) }

// Cutoff returns bin i's cutoff probability.
func (t *AliasTable) Cutoff(i int) float64 { return t.q[i] }

// Alias returns bin i's alias.
func (t *AliasTable) Alias(i int) int { return t.alias[i] }

// Draw samples one bin index. An empty table returns 0.
func (t *AliasTable) Draw(rng UniformSource) int {
	n := len(t.q)
	if n == 0 {
		return 0
	}
	u := rng.Float64() * float64(n)
	i := int(u)
	if i >= n { // guard against u == n from rounding
		i = n - 1
	}
	if u-float64(i) < t.q[i] {
		return i
	}
	return t.alias[i]
}
