package ensemble

import (
	"github.com/YuminosukeSato/mlpipe/core/model"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/tree"
	"gonum.org/v1/gonum/mat"
)

// XGBRegressor is a second-order gradient booster with L2-regularized leaves
// and a minimum split gain, using the squared-error objective.
type XGBRegressor struct {
	model.BaseEstimator

	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	Lambda         float64
	Gamma          float64
	MinChildWeight float64

	BaseScore float64
	Trees     []*tree.Tree
	NFeatures int
}

// NewXGBRegressor creates a booster with 100 rounds, eta 0.3, depth 6 and lambda 1.
func NewXGBRegressor() *XGBRegressor {
	return &XGBRegressor{
		NEstimators:    100,
		LearningRate:   0.3,
		MaxDepth:       6,
		Lambda:         1,
		MinChildWeight: 1,
	}
}

// WithNEstimators sets the number of boosting rounds
func (xg *XGBRegressor) WithNEstimators(n int) *XGBRegressor {
	xg.NEstimators = n
	return xg
}

// WithLearningRate sets eta
func (xg *XGBRegressor) WithLearningRate(lr float64) *XGBRegressor {
	xg.LearningRate = lr
	return xg
}

// WithMaxDepth sets the tree depth
func (xg *XGBRegressor) WithMaxDepth(d int) *XGBRegressor {
	xg.MaxDepth = d
	return xg
}

// WithRegularization sets the L2 leaf penalty and the minimum split gain
func (xg *XGBRegressor) WithRegularization(lambda, gamma float64) *XGBRegressor {
	xg.Lambda = lambda
	xg.Gamma = gamma
	return xg
}

// Fit boosts from the target mean using gradients f - y and unit hessians.
func (xg *XGBRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "XGBRegressor.Fit")

	if err := model.CheckFitInput("XGBRegressor.Fit", X, y); err != nil {
		return err
	}
	if xg.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be positive", xg.NEstimators)
	}
	if xg.Lambda < 0 || xg.Gamma < 0 {
		return errors.NewValidationError("lambda/gamma", "must be non-negative", [2]float64{xg.Lambda, xg.Gamma})
	}

	rows := model.Rows(X)
	target := model.Column(y)
	params := tree.Params{
		MaxDepth:       xg.MaxDepth,
		MinChildWeight: xg.MinChildWeight,
		Lambda:         xg.Lambda,
		Gamma:          xg.Gamma,
	}

	xg.BaseScore = mean(target)
	f := make([]float64, len(target))
	for i := range f {
		f[i] = xg.BaseScore
	}

	idx := tree.Indices(len(rows))
	xg.Trees = make([]*tree.Tree, 0, xg.NEstimators)
	for round := 0; round < xg.NEstimators; round++ {
		grad, hess := tree.Gradients(target, f)
		t := tree.Grow(rows, grad, hess, idx, params, nil)
		for i, row := range rows {
			f[i] += xg.LearningRate * t.PredictRow(row)
		}
		xg.Trees = append(xg.Trees, t)
	}

	_, xg.NFeatures = X.Dims()
	xg.SetFitted()
	return nil
}

// Predict returns base_score + eta * Σ leaf weights.
func (xg *XGBRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !xg.IsFitted() {
		return nil, errors.NewNotFittedError("XGBRegressor", "Predict")
	}
	if err := model.CheckPredictInput("XGBRegressor.Predict", X, xg.NFeatures); err != nil {
		return nil, err
	}
	return model.ColumnMatrix(additive(model.Rows(X), xg.BaseScore, xg.LearningRate, xg.Trees)), nil
}

var _ model.Regressor = (*XGBRegressor)(nil)
