// Package ensemble provides tree ensemble regressors: bagging, gradient
// boosting, second-order boosting, oblivious-tree boosting and AdaBoost.R2.
package ensemble

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/mlpipe/core/model"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/tree"
	"gonum.org/v1/gonum/mat"
)

// RandomForestRegressor averages CART trees grown on bootstrap samples.
type RandomForestRegressor struct {
	model.BaseEstimator

	NEstimators    int
	MaxDepth       int
	MinSamplesLeaf int
	MaxFeatures    int
	RandomState    int64

	Trees     []*tree.Tree
	NFeatures int
}

// NewRandomForestRegressor creates a forest of 100 unbounded trees seeded with 42.
func NewRandomForestRegressor() *RandomForestRegressor {
	return &RandomForestRegressor{
		NEstimators:    100,
		MinSamplesLeaf: 1,
		RandomState:    42,
	}
}

// WithNEstimators sets the number of trees
func (rf *RandomForestRegressor) WithNEstimators(n int) *RandomForestRegressor {
	rf.NEstimators = n
	return rf
}

// WithMaxDepth sets the maximum depth of each tree
func (rf *RandomForestRegressor) WithMaxDepth(d int) *RandomForestRegressor {
	rf.MaxDepth = d
	return rf
}

// WithMaxFeatures sets the number of features examined per split
func (rf *RandomForestRegressor) WithMaxFeatures(n int) *RandomForestRegressor {
	rf.MaxFeatures = n
	return rf
}

// WithRandomState sets the random seed
func (rf *RandomForestRegressor) WithRandomState(seed int64) *RandomForestRegressor {
	rf.RandomState = seed
	return rf
}

// Fit grows NEstimators trees, each on n rows drawn with replacement.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	if err := model.CheckFitInput("RandomForestRegressor.Fit", X, y); err != nil {
		return err
	}
	if rf.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be positive", rf.NEstimators)
	}

	rows := model.Rows(X)
	grad, hess := tree.Gradients(model.Column(y), nil)
	rng := newRand(rf.RandomState)
	params := tree.Params{
		MaxDepth:       rf.MaxDepth,
		MinSamplesLeaf: rf.MinSamplesLeaf,
		MaxFeatures:    rf.MaxFeatures,
	}

	n := len(rows)
	rf.Trees = make([]*tree.Tree, 0, rf.NEstimators)
	for t := 0; t < rf.NEstimators; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		rf.Trees = append(rf.Trees, tree.Grow(rows, grad, hess, sample, params, rng))
	}

	_, rf.NFeatures = X.Dims()
	rf.SetFitted()
	return nil
}

// Predict averages the predictions of all trees.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !rf.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "Predict")
	}
	if err := model.CheckPredictInput("RandomForestRegressor.Predict", X, rf.NFeatures); err != nil {
		return nil, err
	}

	rows := model.Rows(X)
	out := make([]float64, len(rows))
	for _, t := range rf.Trees {
		for i, row := range rows {
			out[i] += t.PredictRow(row)
		}
	}
	for i := range out {
		out[i] /= float64(len(rf.Trees))
	}
	return model.ColumnMatrix(out), nil
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

func mean(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

var _ model.Regressor = (*RandomForestRegressor)(nil)
