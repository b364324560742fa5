package model

import (
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CheckFitInput は学習データの形状を検証する。
// X は空でなく、y は X と同じ行数の n×1 行列でなければならない。
func CheckFitInput(op string, X, y mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	ry, cy := y.Dims()
	if ry != r {
		return errors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError(op, "y must be a column vector")
	}
	return nil
}

// CheckPredictInput は予測時の特徴量数が学習時と一致するか検証する
func CheckPredictInput(op string, X mat.Matrix, nFeatures int) error {
	if _, c := X.Dims(); c != nFeatures {
		return errors.NewDimensionError(op, nFeatures, c, 1)
	}
	return nil
}
