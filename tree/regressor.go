package tree

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/mlpipe/core/model"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DecisionTreeRegressor is a CART regressor using the squared-error criterion.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	RandomState     int64

	Tree      *Tree
	NFeatures int
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth limits the tree depth. 0 grows until leaves are pure.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum node size that may be split.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MinSamplesLeaf = n }
}

// WithMaxFeatures sets how many randomly chosen features are examined per split.
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeRegressor) { dt.MaxFeatures = n }
}

// WithRandomState sets the seed used for feature sampling.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeRegressor) { dt.RandomState = seed }
}

// NewDecisionTreeRegressor creates an unbounded CART regressor.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		RandomState:     42,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// Params returns the growth parameters for squared-error CART.
func (dt *DecisionTreeRegressor) Params() Params {
	return Params{
		MaxDepth:        dt.MaxDepth,
		MinSamplesSplit: dt.MinSamplesSplit,
		MinSamplesLeaf:  dt.MinSamplesLeaf,
		MaxFeatures:     dt.MaxFeatures,
	}
}

// Fit grows the tree on X and y.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	if err := model.CheckFitInput("DecisionTreeRegressor.Fit", X, y); err != nil {
		return err
	}
	if dt.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.MinSamplesSplit)
	}
	if dt.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.MinSamplesLeaf)
	}

	rows := model.Rows(X)
	grad, hess := Gradients(model.Column(y), nil)
	rng := rand.New(rand.NewPCG(uint64(dt.RandomState), uint64(dt.RandomState)))

	dt.Tree = Grow(rows, grad, hess, Indices(len(rows)), dt.Params(), rng)
	_, dt.NFeatures = X.Dims()
	dt.SetFitted()
	return nil
}

// Predict returns the leaf mean reached by each row.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !dt.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	if err := model.CheckPredictInput("DecisionTreeRegressor.Predict", X, dt.NFeatures); err != nil {
		return nil, err
	}
	return model.ColumnMatrix(dt.Tree.Predict(model.Rows(X))), nil
}

var _ model.Regressor = (*DecisionTreeRegressor)(nil)
