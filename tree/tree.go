// Package tree implements binary regression trees grown on first and second
// order loss statistics. The same growth routine backs the CART regressor and
// the tree ensembles.
package tree

import (
	"math/rand/v2"
	"sort"
)

// Node is a single node of a fitted tree. Leaves have Left and Right set to -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Samples   int
	Leaf      bool
}

// Tree is a fitted regression tree stored as a flat node slice rooted at 0.
type Tree struct {
	Nodes []Node
}

// Params controls tree growth.
type Params struct {
	// MaxDepth limits the depth of the tree; 0 means unbounded.
	MaxDepth int
	// MinSamplesSplit is the smallest node that may be split.
	MinSamplesSplit int
	// MinSamplesLeaf is the smallest number of samples allowed in a child.
	MinSamplesLeaf int
	// MinChildWeight is the smallest hessian sum allowed in a child.
	MinChildWeight float64
	// MaxFeatures is the number of features examined per split; 0 means all.
	MaxFeatures int
	// Lambda is the L2 penalty on leaf values.
	Lambda float64
	// Gamma is the minimum gain required to make a split.
	Gamma float64
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

type builder struct {
	rows      [][]float64
	grad      []float64
	hess      []float64
	params    Params
	rng       *rand.Rand
	nFeatures int
	tree      *Tree
}

// Grow builds a tree over the samples listed in indices. grad and hess are
// indexed by row. Duplicate indices are allowed and count once per occurrence,
// so bootstrap samples can be passed directly. rng is only used when
// MaxFeatures restricts the candidate features.
func Grow(rows [][]float64, grad, hess []float64, indices []int, p Params, rng *rand.Rand) *Tree {
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	if p.MinSamplesLeaf < 1 {
		p.MinSamplesLeaf = 1
	}
	b := &builder{
		rows:   rows,
		grad:   grad,
		hess:   hess,
		params: p,
		rng:    rng,
		tree:   &Tree{},
	}
	if len(rows) > 0 {
		b.nFeatures = len(rows[0])
	}
	b.grow(append([]int(nil), indices...), 0)
	return b.tree
}

func (b *builder) grow(indices []int, depth int) int {
	id := len(b.tree.Nodes)
	g, h := b.sums(indices)
	b.tree.Nodes = append(b.tree.Nodes, Node{
		Left:    -1,
		Right:   -1,
		Value:   LeafValue(g, h, b.params.Lambda),
		Samples: len(indices),
		Leaf:    true,
	})

	if !b.splittable(indices, depth) {
		return id
	}
	best, ok := b.bestSplit(indices, g, h)
	if !ok {
		return id
	}

	left, right := b.partition(indices, best)
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)

	node := &b.tree.Nodes[id]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = l
	node.Right = r
	node.Leaf = false
	return id
}

func (b *builder) sums(indices []int) (g, h float64) {
	for _, i := range indices {
		g += b.grad[i]
		h += b.hess[i]
	}
	return g, h
}

func (b *builder) splittable(indices []int, depth int) bool {
	p := b.params
	if p.MaxDepth > 0 && depth >= p.MaxDepth {
		return false
	}
	if len(indices) < p.MinSamplesSplit || len(indices) < 2*p.MinSamplesLeaf {
		return false
	}
	// a node with a constant gradient cannot gain from splitting
	first := b.grad[indices[0]]
	for _, i := range indices[1:] {
		if b.grad[i] != first {
			return true
		}
	}
	return false
}

// features returns the candidate features for one split in ascending order.
func (b *builder) features() []int {
	k := b.params.MaxFeatures
	if k <= 0 || k >= b.nFeatures || b.rng == nil {
		all := make([]int, b.nFeatures)
		for j := range all {
			all[j] = j
		}
		return all
	}
	chosen := b.rng.Perm(b.nFeatures)[:k]
	sort.Ints(chosen)
	return chosen
}

func (b *builder) bestSplit(indices []int, g, h float64) (split, bool) {
	p := b.params
	parent := g * g / (h + p.Lambda)
	best := split{gain: 0}
	found := false

	order := make([]int, len(indices))
	for _, f := range b.features() {
		copy(order, indices)
		sort.Slice(order, func(a, c int) bool {
			return b.rows[order[a]][f] < b.rows[order[c]][f]
		})

		var gl, hl float64
		n := len(order)
		for i := 0; i < n-1; i++ {
			gl += b.grad[order[i]]
			hl += b.hess[order[i]]

			v, next := b.rows[order[i]][f], b.rows[order[i+1]][f]
			if v == next {
				continue
			}
			nl, nr := i+1, n-i-1
			if nl < p.MinSamplesLeaf || nr < p.MinSamplesLeaf {
				continue
			}
			gr, hr := g-gl, h-hl
			if hl < p.MinChildWeight || hr < p.MinChildWeight {
				continue
			}

			gain := 0.5*(gl*gl/(hl+p.Lambda)+gr*gr/(hr+p.Lambda)-parent) - p.Gamma
			if gain > best.gain {
				best = split{feature: f, threshold: midpoint(v, next), gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func (b *builder) partition(indices []int, s split) (left, right []int) {
	for _, i := range indices {
		if b.rows[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

// midpoint returns the threshold between two adjacent distinct values, falling
// back to the lower one when rounding would put the midpoint on the upper value.
func midpoint(lo, hi float64) float64 {
	m := lo/2 + hi/2
	if m >= hi {
		return lo
	}
	return m
}

// LeafValue is the optimal leaf weight -G/(H+lambda).
func LeafValue(g, h, lambda float64) float64 {
	if h+lambda == 0 {
		return 0
	}
	return -g / (h + lambda)
}

// Gradients returns the squared-error gradients (f - y) and unit hessians.
// A nil f is treated as an all-zero prediction, which makes the leaf values
// plain target means.
func Gradients(y, f []float64) (grad, hess []float64) {
	grad = make([]float64, len(y))
	hess = make([]float64, len(y))
	for i := range y {
		if f != nil {
			grad[i] = f[i] - y[i]
		} else {
			grad[i] = -y[i]
		}
		hess[i] = 1
	}
	return grad, hess
}

// Indices returns 0..n-1.
func Indices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// PredictRow walks the tree for a single sample.
func (t *Tree) PredictRow(row []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Predict evaluates the tree on every row.
func (t *Tree) Predict(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = t.PredictRow(row)
	}
	return out
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	return t.depth(0)
}

func (t *Tree) depth(i int) int {
	n := &t.Nodes[i]
	if n.Leaf {
		return 0
	}
	return 1 + max(t.depth(n.Left), t.depth(n.Right))
}

// NumLeaves returns the number of leaves.
func (t *Tree) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].Leaf {
			count++
		}
	}
	return count
}
