package ensemble

import (
	"sort"

	"github.com/YuminosukeSato/mlpipe/core/model"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/tree"
	"gonum.org/v1/gonum/mat"
)

// ObliviousTree applies the same (feature, threshold) test to every node of
// a level. Bit d of the leaf index is set when row[Features[d]] > Thresholds[d].
type ObliviousTree struct {
	Features   []int
	Thresholds []float64
	Leaves     []float64
}

// Leaf returns the leaf index reached by row.
func (t *ObliviousTree) Leaf(row []float64) int {
	idx := 0
	for d, f := range t.Features {
		if row[f] > t.Thresholds[d] {
			idx |= 1 << d
		}
	}
	return idx
}

// PredictRow returns the leaf value reached by row.
func (t *ObliviousTree) PredictRow(row []float64) float64 {
	return t.Leaves[t.Leaf(row)]
}

// CatBoostRegressor boosts symmetric (oblivious) trees on squared error.
type CatBoostRegressor struct {
	model.BaseEstimator

	Iterations   int
	LearningRate float64
	Depth        int
	L2LeafReg    float64
	BorderCount  int

	BaseScore float64
	Trees     []*ObliviousTree
	NFeatures int
}

// NewCatBoostRegressor creates a booster with 200 depth-6 trees, learning rate 0.1 and L2 penalty 3.
func NewCatBoostRegressor() *CatBoostRegressor {
	return &CatBoostRegressor{
		Iterations:   200,
		LearningRate: 0.1,
		Depth:        6,
		L2LeafReg:    3,
		BorderCount:  254,
	}
}

// WithIterations sets the number of trees
func (cb *CatBoostRegressor) WithIterations(n int) *CatBoostRegressor {
	cb.Iterations = n
	return cb
}

// WithLearningRate sets the shrinkage
func (cb *CatBoostRegressor) WithLearningRate(lr float64) *CatBoostRegressor {
	cb.LearningRate = lr
	return cb
}

// WithDepth sets the number of levels of each tree
func (cb *CatBoostRegressor) WithDepth(d int) *CatBoostRegressor {
	cb.Depth = d
	return cb
}

// Fit boosts from the target mean, growing one oblivious tree per iteration.
func (cb *CatBoostRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "CatBoostRegressor.Fit")

	if err := model.CheckFitInput("CatBoostRegressor.Fit", X, y); err != nil {
		return err
	}
	if cb.Iterations < 1 {
		return errors.NewValidationError("iterations", "must be positive", cb.Iterations)
	}
	if cb.Depth < 1 || cb.Depth > 16 {
		return errors.NewValidationError("depth", "must be in [1, 16]", cb.Depth)
	}
	if cb.L2LeafReg < 0 {
		return errors.NewValidationError("l2_leaf_reg", "must be non-negative", cb.L2LeafReg)
	}

	rows := model.Rows(X)
	target := model.Column(y)
	g := newObliviousGrower(rows, cb.Depth, cb.L2LeafReg, cb.BorderCount)

	cb.BaseScore = mean(target)
	f := make([]float64, len(target))
	for i := range f {
		f[i] = cb.BaseScore
	}

	cb.Trees = make([]*ObliviousTree, 0, cb.Iterations)
	for it := 0; it < cb.Iterations; it++ {
		grad, hess := tree.Gradients(target, f)
		t := g.grow(grad, hess)
		for i, row := range rows {
			f[i] += cb.LearningRate * t.PredictRow(row)
		}
		cb.Trees = append(cb.Trees, t)
	}

	_, cb.NFeatures = X.Dims()
	cb.SetFitted()
	return nil
}

// Predict returns the base score plus the shrunken leaf values of every tree.
func (cb *CatBoostRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !cb.IsFitted() {
		return nil, errors.NewNotFittedError("CatBoostRegressor", "Predict")
	}
	if err := model.CheckPredictInput("CatBoostRegressor.Predict", X, cb.NFeatures); err != nil {
		return nil, err
	}

	rows := model.Rows(X)
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = cb.BaseScore
		for _, t := range cb.Trees {
			out[i] += cb.LearningRate * t.PredictRow(row)
		}
	}
	return model.ColumnMatrix(out), nil
}

// obliviousGrower holds the per-feature sort orders and candidate borders,
// which do not change between iterations.
type obliviousGrower struct {
	rows    [][]float64
	order   [][]int
	borders [][]float64
	depth   int
	lambda  float64
}

func newObliviousGrower(rows [][]float64, depth int, lambda float64, borderCount int) *obliviousGrower {
	g := &obliviousGrower{rows: rows, depth: depth, lambda: lambda}
	if len(rows) == 0 {
		return g
	}
	nFeatures := len(rows[0])
	g.order = make([][]int, nFeatures)
	g.borders = make([][]float64, nFeatures)
	for f := 0; f < nFeatures; f++ {
		order := tree.Indices(len(rows))
		sort.SliceStable(order, func(a, b int) bool { return rows[order[a]][f] < rows[order[b]][f] })
		g.order[f] = order

		var borders []float64
		for k := 0; k+1 < len(order); k++ {
			lo, hi := rows[order[k]][f], rows[order[k+1]][f]
			if lo != hi {
				borders = append(borders, lo/2+hi/2)
			}
		}
		g.borders[f] = thinBorders(borders, borderCount)
	}
	return g
}

// thinBorders keeps at most limit evenly spaced borders.
func thinBorders(borders []float64, limit int) []float64 {
	if limit <= 0 || len(borders) <= limit {
		return borders
	}
	out := make([]float64, limit)
	for k := range out {
		out[k] = borders[k*len(borders)/limit]
	}
	return out
}

func (g *obliviousGrower) term(grad, hess float64) float64 {
	if hess+g.lambda == 0 {
		return 0
	}
	return grad * grad / (hess + g.lambda)
}

// grow picks, level by level, the single split that maximizes
// Σ_leaves GL²/(HL+λ) + GR²/(HR+λ). Growth stops early when no split improves
// on the current partition.
func (g *obliviousGrower) grow(grad, hess []float64) *ObliviousTree {
	n := len(g.rows)
	leafOf := make([]int, n)
	t := &ObliviousTree{}

	for d := 0; d < g.depth; d++ {
		nLeaves := 1 << d
		G := make([]float64, nLeaves)
		H := make([]float64, nLeaves)
		for i := 0; i < n; i++ {
			G[leafOf[i]] += grad[i]
			H[leafOf[i]] += hess[i]
		}
		var best float64
		for l := 0; l < nLeaves; l++ {
			best += g.term(G[l], H[l])
		}

		bestFeature, bestThreshold := -1, 0.0
		leftG := make([]float64, nLeaves)
		leftH := make([]float64, nLeaves)
		for f, borders := range g.borders {
			clear(leftG)
			clear(leftH)
			order := g.order[f]
			p := 0
			for _, thr := range borders {
				for p < n && g.rows[order[p]][f] <= thr {
					i := order[p]
					leftG[leafOf[i]] += grad[i]
					leftH[leafOf[i]] += hess[i]
					p++
				}
				var score float64
				for l := 0; l < nLeaves; l++ {
					score += g.term(leftG[l], leftH[l]) + g.term(G[l]-leftG[l], H[l]-leftH[l])
				}
				if score > best {
					best, bestFeature, bestThreshold = score, f, thr
				}
			}
		}
		if bestFeature < 0 {
			break
		}

		t.Features = append(t.Features, bestFeature)
		t.Thresholds = append(t.Thresholds, bestThreshold)
		for i, row := range g.rows {
			if row[bestFeature] > bestThreshold {
				leafOf[i] |= 1 << d
			}
		}
	}

	nLeaves := 1 << len(t.Features)
	G := make([]float64, nLeaves)
	H := make([]float64, nLeaves)
	for i := 0; i < n; i++ {
		G[leafOf[i]] += grad[i]
		H[leafOf[i]] += hess[i]
	}
	t.Leaves = make([]float64, nLeaves)
	for l := range t.Leaves {
		t.Leaves[l] = tree.LeafValue(G[l], H[l], g.lambda)
	}
	return t
}

var _ model.Regressor = (*CatBoostRegressor)(nil)
