package preprocessing

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/mlpipe/core/model"
	"github.com/YuminosukeSato/mlpipe/dataset"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// 数値列の補完戦略
const (
	StrategyMedian = "median"
	StrategyMean   = "mean"
)

// SimpleImputer は数値列の欠損値（NaN）を列ごとの統計量で補完する。
// 全ての値が欠損している列は0で補完する。
type SimpleImputer struct {
	model.BaseEstimator

	// Strategy は "median" または "mean"
	Strategy string

	// Statistics は各列の補完値
	Statistics []float64
}

// NewSimpleImputer は新しいSimpleImputerを作成する
func NewSimpleImputer(strategy string) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy}
}

// Fit は各列の補完値を計算する
func (s *SimpleImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}
	if s.Strategy != StrategyMedian && s.Strategy != StrategyMean {
		return errors.NewValidationError("strategy", "must be median or mean", s.Strategy)
	}

	s.Statistics = make([]float64, c)
	present := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		present = present[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				present = append(present, v)
			}
		}
		if len(present) == 0 {
			continue
		}
		if s.Strategy == StrategyMean {
			s.Statistics[j] = stat.Mean(present, nil)
		} else {
			s.Statistics[j] = median(present)
		}
	}

	s.SetFitted()
	return nil
}

// Transform はNaNを学習済みの補完値で置き換える
func (s *SimpleImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("SimpleImputer", "Transform")
	}
	r, c := X.Dims()
	if c != len(s.Statistics) {
		return nil, errors.NewDimensionError("SimpleImputer.Transform", len(s.Statistics), c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, j int, v float64) float64 {
		if math.IsNaN(v) {
			return s.Statistics[j]
		}
		return v
	}, X)
	return result, nil
}

// FitTransform は学習と変換を同時に行う
func (s *SimpleImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// median は中央値を返す。要素数が偶数の場合は中央2値の平均。xは並べ替えられる。
func median(x []float64) float64 {
	sort.Float64s(x)
	n := len(x)
	if n%2 == 1 {
		return x[n/2]
	}
	return (x[n/2-1] + x[n/2]) / 2
}

var _ model.Transformer = (*SimpleImputer)(nil)

// MostFrequentImputer はカテゴリ列の欠損値を最頻値で補完する。
// 最頻値が複数ある場合は辞書順で最小の値を採用する。
type MostFrequentImputer struct {
	model.BaseEstimator

	// Fill は各列の補完値。全て欠損していた列は空文字で、補完しない。
	Fill []string
}

// NewMostFrequentImputer は新しいMostFrequentImputerを作成する
func NewMostFrequentImputer() *MostFrequentImputer {
	return &MostFrequentImputer{}
}

// Fit は列ごとの最頻値を求める。colsは列優先のセル値。
func (m *MostFrequentImputer) Fit(cols [][]string) error {
	if len(cols) == 0 {
		return errors.NewModelError("MostFrequentImputer.Fit", "empty data", errors.ErrEmptyData)
	}
	m.Fill = make([]string, len(cols))
	for j, col := range cols {
		counts := make(map[string]int)
		for _, v := range col {
			if !dataset.IsMissing(v) {
				counts[v]++
			}
		}
		best, bestCount := "", 0
		for v, n := range counts {
			if n > bestCount || (n == bestCount && v < best) {
				best, bestCount = v, n
			}
		}
		m.Fill[j] = best
	}
	m.SetFitted()
	return nil
}

// Transform は欠損セルを補完した列のコピーを返す
func (m *MostFrequentImputer) Transform(cols [][]string) ([][]string, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MostFrequentImputer", "Transform")
	}
	if len(cols) != len(m.Fill) {
		return nil, errors.NewDimensionError("MostFrequentImputer.Transform", len(m.Fill), len(cols), 1)
	}
	out := make([][]string, len(cols))
	for j, col := range cols {
		out[j] = make([]string, len(col))
		for i, v := range col {
			if dataset.IsMissing(v) && m.Fill[j] != "" {
				v = m.Fill[j]
			}
			out[j][i] = v
		}
	}
	return out, nil
}
