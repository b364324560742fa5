package ensemble

import (
	"github.com/YuminosukeSato/mlpipe/core/model"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/tree"
	"gonum.org/v1/gonum/mat"
)

// GradientBoostingRegressor fits shallow CART trees to squared-error residuals.
type GradientBoostingRegressor struct {
	model.BaseEstimator

	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int

	Init      float64
	Trees     []*tree.Tree
	NFeatures int
}

// NewGradientBoostingRegressor creates a booster with 100 depth-3 stages and learning rate 0.1.
func NewGradientBoostingRegressor() *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		NEstimators:    100,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 1,
	}
}

// WithNEstimators sets the number of boosting stages
func (gb *GradientBoostingRegressor) WithNEstimators(n int) *GradientBoostingRegressor {
	gb.NEstimators = n
	return gb
}

// WithLearningRate sets the shrinkage applied to each stage
func (gb *GradientBoostingRegressor) WithLearningRate(lr float64) *GradientBoostingRegressor {
	gb.LearningRate = lr
	return gb
}

// WithMaxDepth sets the depth of each stage
func (gb *GradientBoostingRegressor) WithMaxDepth(d int) *GradientBoostingRegressor {
	gb.MaxDepth = d
	return gb
}

// Fit starts from the target mean and adds one residual tree per stage.
func (gb *GradientBoostingRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Fit")

	if err := model.CheckFitInput("GradientBoostingRegressor.Fit", X, y); err != nil {
		return err
	}
	if gb.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be positive", gb.NEstimators)
	}
	if gb.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", gb.LearningRate)
	}

	rows := model.Rows(X)
	target := model.Column(y)
	params := tree.Params{MaxDepth: gb.MaxDepth, MinSamplesLeaf: gb.MinSamplesLeaf}

	gb.Init = mean(target)
	f := make([]float64, len(target))
	for i := range f {
		f[i] = gb.Init
	}

	idx := tree.Indices(len(rows))
	gb.Trees = make([]*tree.Tree, 0, gb.NEstimators)
	for s := 0; s < gb.NEstimators; s++ {
		grad, hess := tree.Gradients(target, f)
		t := tree.Grow(rows, grad, hess, idx, params, nil)
		for i, row := range rows {
			f[i] += gb.LearningRate * t.PredictRow(row)
		}
		gb.Trees = append(gb.Trees, t)
	}

	_, gb.NFeatures = X.Dims()
	gb.SetFitted()
	return nil
}

// Predict sums the shrunken stage outputs on top of the initial mean.
func (gb *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !gb.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingRegressor", "Predict")
	}
	if err := model.CheckPredictInput("GradientBoostingRegressor.Predict", X, gb.NFeatures); err != nil {
		return nil, err
	}
	return model.ColumnMatrix(additive(model.Rows(X), gb.Init, gb.LearningRate, gb.Trees)), nil
}

// additive evaluates base + lr * Σ tree(x) for every row.
func additive(rows [][]float64, base, lr float64, trees []*tree.Tree) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = base
		for _, t := range trees {
			out[i] += lr * t.PredictRow(row)
		}
	}
	return out
}

var _ model.Regressor = (*GradientBoostingRegressor)(nil)
