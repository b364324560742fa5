package linear

import (
	"math"

	"github.com/YuminosukeSato/mlpipe/core/model"
	"github.com/YuminosukeSato/mlpipe/metrics"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression は切片付きの最小二乗線形回帰モデル
type LinearRegression struct {
	model.BaseEstimator
	Weights   []float64 // 重み（係数）
	Intercept float64   // 切片
	NFeatures int       // 特徴量の数
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Fit はモデルを訓練データで学習させる。
//
// X と y を中心化したうえで、特異値分解による最小ノルム最小二乗解を求める。
// one-hot列のように共線性のある特徴量があっても失敗しない。
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")

	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	lr.NFeatures = c

	// 列平均を引いて切片を分離する
	xMean := make([]float64, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			xMean[j] += X.At(i, j) / float64(r)
		}
	}
	yMean := mat.Sum(y) / float64(r)

	Xc := mat.NewDense(r, c, nil)
	Xc.Apply(func(_, j int, v float64) float64 { return v - xMean[j] }, X)
	yc := mat.NewDense(r, 1, nil)
	yc.Apply(func(_, _ int, v float64) float64 { return v - yMean }, y)

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "SVD factorization failed", errors.ErrSingularMatrix)
	}

	lr.Weights = make([]float64, c)
	rcond := float64(max(r, c)) * epsilon
	if rank := svd.Rank(rcond); rank > 0 {
		var w mat.Dense
		svd.SolveTo(&w, yc, rank)
		for j := 0; j < c; j++ {
			lr.Weights[j] = w.At(j, 0)
		}
	}

	lr.Intercept = yMean
	for j := 0; j < c; j++ {
		lr.Intercept -= xMean[j] * lr.Weights[j]
	}

	lr.SetFitted()
	return nil
}

// epsilon は float64 の計算機イプシロン
var epsilon = math.Nextafter(1, 2) - 1

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "Predict")
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	// 予測: y = X * weights + intercept
	var pred mat.VecDense
	pred.MulVec(X, mat.NewVecDense(c, lr.Weights))
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		predictions.Set(i, 0, pred.AtVec(i)+lr.Intercept)
	}
	return predictions, nil
}

// GetWeights は学習された重み（係数）を返す
func (lr *LinearRegression) GetWeights() []float64 {
	return append([]float64(nil), lr.Weights...)
}

// GetIntercept は学習された切片を返す
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.Intercept
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue, err := metrics.VecFromColumn(y)
	if err != nil {
		return 0, err
	}
	yHat, err := metrics.VecFromColumn(yPred)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(yTrue, yHat)
}
