// Package neighbors provides the k-nearest-neighbours regressor.
package neighbors

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/mlpipe/core/model"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KNeighborsRegressor predicts the unweighted mean target of the k nearest
// training rows under the euclidean distance. Equidistant neighbours are
// ordered by training row index.
type KNeighborsRegressor struct {
	model.BaseEstimator

	K int

	X         [][]float64
	Y         []float64
	NFeatures int
}

// NewKNeighborsRegressor creates a regressor with k = 5.
func NewKNeighborsRegressor() *KNeighborsRegressor {
	return &KNeighborsRegressor{K: 5}
}

// WithK sets the number of neighbours
func (kn *KNeighborsRegressor) WithK(k int) *KNeighborsRegressor {
	kn.K = k
	return kn
}

// Fit stores a copy of the training data.
func (kn *KNeighborsRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "KNeighborsRegressor.Fit")

	if err := model.CheckFitInput("KNeighborsRegressor.Fit", X, y); err != nil {
		return err
	}
	if kn.K < 1 {
		return errors.NewValidationError("n_neighbors", "must be positive", kn.K)
	}

	kn.X = model.Rows(X)
	kn.Y = model.Column(y)
	_, kn.NFeatures = X.Dims()
	kn.SetFitted()
	return nil
}

// Predict averages the targets of the K nearest training rows. It fails when
// fewer than K training rows are available.
func (kn *KNeighborsRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !kn.IsFitted() {
		return nil, errors.NewNotFittedError("KNeighborsRegressor", "Predict")
	}
	if err := model.CheckPredictInput("KNeighborsRegressor.Predict", X, kn.NFeatures); err != nil {
		return nil, err
	}
	if len(kn.X) < kn.K {
		return nil, errors.NewValueError("KNeighborsRegressor.Predict",
			fmt.Sprintf("expected n_neighbors <= n_samples, got n_neighbors = %d, n_samples = %d", kn.K, len(kn.X)))
	}

	rows := model.Rows(X)
	out := make([]float64, len(rows))
	order := make([]int, len(kn.X))
	dist := make([]float64, len(kn.X))
	for i, row := range rows {
		for j, train := range kn.X {
			order[j] = j
			dist[j] = floats.Distance(row, train, 2)
		}
		sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] < dist[order[b]] })

		var sum float64
		for _, j := range order[:kn.K] {
			sum += kn.Y[j]
		}
		out[i] = sum / float64(kn.K)
	}
	return model.ColumnMatrix(out), nil
}

var _ model.Regressor = (*KNeighborsRegressor)(nil)
