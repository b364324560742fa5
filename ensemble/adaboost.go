package ensemble

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/mlpipe/core/model"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/tree"
	"gonum.org/v1/gonum/mat"
)

// AdaBoostRegressor implements AdaBoost.R2 with the linear loss over
// depth-limited CART trees fitted on weighted bootstrap samples.
type AdaBoostRegressor struct {
	model.BaseEstimator

	NEstimators  int
	LearningRate float64
	MaxDepth     int
	RandomState  int64

	Trees     []*tree.Tree
	Weights   []float64
	Errors    []float64
	NFeatures int
}

// NewAdaBoostRegressor creates a booster of up to 50 depth-3 trees with learning rate 1.
func NewAdaBoostRegressor() *AdaBoostRegressor {
	return &AdaBoostRegressor{
		NEstimators:  50,
		LearningRate: 1.0,
		MaxDepth:     3,
		RandomState:  42,
	}
}

// WithNEstimators sets the maximum number of boosting rounds
func (ab *AdaBoostRegressor) WithNEstimators(n int) *AdaBoostRegressor {
	ab.NEstimators = n
	return ab
}

// WithLearningRate sets the learning rate
func (ab *AdaBoostRegressor) WithLearningRate(lr float64) *AdaBoostRegressor {
	ab.LearningRate = lr
	return ab
}

// WithRandomState sets the random seed
func (ab *AdaBoostRegressor) WithRandomState(seed int64) *AdaBoostRegressor {
	ab.RandomState = seed
	return ab
}

// Fit runs the R2 boosting loop. Boosting stops early when an estimator fits
// perfectly or when its weighted loss reaches 0.5; in the latter case the
// estimator is discarded unless it is the only one.
func (ab *AdaBoostRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "AdaBoostRegressor.Fit")

	if err := model.CheckFitInput("AdaBoostRegressor.Fit", X, y); err != nil {
		return err
	}
	if ab.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be positive", ab.NEstimators)
	}
	if ab.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", ab.LearningRate)
	}

	rows := model.Rows(X)
	target := model.Column(y)
	n := len(rows)
	grad, hess := tree.Gradients(target, nil)
	rng := newRand(ab.RandomState)
	params := tree.Params{MaxDepth: ab.MaxDepth}

	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}
	ab.Trees, ab.Weights, ab.Errors = nil, nil, nil

	cdf := make([]float64, n)
	loss := make([]float64, n)
	for round := 0; round < ab.NEstimators; round++ {
		// weighted bootstrap through the cumulative distribution
		var total float64
		for i, w := range weights {
			total += w
			cdf[i] = total
		}
		sample := make([]int, n)
		for k := range sample {
			u := rng.Float64() * total
			i := sort.Search(n, func(j int) bool { return cdf[j] > u })
			sample[k] = min(i, n-1)
		}

		t := tree.Grow(rows, grad, hess, sample, params, nil)
		ab.Trees = append(ab.Trees, t)

		var maxLoss float64
		for i, row := range rows {
			loss[i] = math.Abs(t.PredictRow(row) - target[i])
			if weights[i] > 0 && loss[i] > maxLoss {
				maxLoss = loss[i]
			}
		}
		if maxLoss != 0 {
			for i := range loss {
				loss[i] /= maxLoss
			}
		}
		var estErr float64
		for i, w := range weights {
			if w > 0 {
				estErr += w * loss[i]
			}
		}

		if estErr <= 0 {
			ab.Weights = append(ab.Weights, 1)
			ab.Errors = append(ab.Errors, 0)
			break
		}
		if estErr >= 0.5 || math.IsNaN(estErr) {
			if len(ab.Trees) > 1 {
				ab.Trees = ab.Trees[:len(ab.Trees)-1]
			} else {
				ab.Weights = append(ab.Weights, 1)
				ab.Errors = append(ab.Errors, estErr)
			}
			break
		}

		beta := estErr / (1 - estErr)
		ab.Weights = append(ab.Weights, ab.LearningRate*math.Log(1/beta))
		ab.Errors = append(ab.Errors, estErr)

		if round == ab.NEstimators-1 {
			break
		}
		var sum float64
		for i, w := range weights {
			if w > 0 {
				weights[i] = w * math.Pow(beta, (1-loss[i])*ab.LearningRate)
			}
			sum += weights[i]
		}
		if sum <= 0 {
			break
		}
		for i := range weights {
			weights[i] /= sum
		}
	}

	_, ab.NFeatures = X.Dims()
	ab.SetFitted()
	return nil
}

// Predict returns the weighted median of the estimator predictions.
func (ab *AdaBoostRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !ab.IsFitted() {
		return nil, errors.NewNotFittedError("AdaBoostRegressor", "Predict")
	}
	if err := model.CheckPredictInput("AdaBoostRegressor.Predict", X, ab.NFeatures); err != nil {
		return nil, err
	}

	rows := model.Rows(X)
	out := make([]float64, len(rows))
	preds := make([]float64, len(ab.Trees))
	order := make([]int, len(ab.Trees))
	for i, row := range rows {
		for k, t := range ab.Trees {
			preds[k] = t.PredictRow(row)
			order[k] = k
		}
		out[i] = weightedMedian(preds, ab.Weights, order)
	}
	return model.ColumnMatrix(out), nil
}

// weightedMedian returns the first prediction, in ascending order, at which the
// cumulative weight reaches half of the total. order is scratch space.
func weightedMedian(preds, weights []float64, order []int) float64 {
	sort.SliceStable(order, func(a, b int) bool { return preds[order[a]] < preds[order[b]] })
	var total float64
	for _, w := range weights {
		total += w
	}
	var cum float64
	for _, k := range order {
		cum += weights[k]
		if cum >= 0.5*total {
			return preds[k]
		}
	}
	return preds[order[len(order)-1]]
}

var _ model.Regressor = (*AdaBoostRegressor)(nil)
