package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/mlpipe/core/model"
	"github.com/YuminosukeSato/mlpipe/dataset"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// OneHotEncoder はカテゴリ列を0/1の指示列に展開する。
// カテゴリは列ごとに辞書順で並べられる。学習時に現れなかったカテゴリと欠損値は
// 全て0のブロックに変換される。
type OneHotEncoder struct {
	model.BaseEstimator

	// Categories は各入力列のカテゴリ（辞書順）
	Categories [][]string
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{}
}

// Fit は列ごとのカテゴリ集合を学習する。colsは列優先のセル値。
func (e *OneHotEncoder) Fit(cols [][]string) error {
	if len(cols) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	e.Categories = make([][]string, len(cols))
	for j, col := range cols {
		seen := make(map[string]struct{})
		for _, v := range col {
			if !dataset.IsMissing(v) {
				seen[v] = struct{}{}
			}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		e.Categories[j] = cats
	}
	e.SetFitted()
	return nil
}

// NOutputs は出力列の総数を返す
func (e *OneHotEncoder) NOutputs() int {
	n := 0
	for _, c := range e.Categories {
		n += len(c)
	}
	return n
}

// Transform は指示行列を返す。出力列が0の場合は ValueError。
func (e *OneHotEncoder) Transform(cols [][]string) (*mat.Dense, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	width := e.NOutputs()
	if width == 0 || len(cols) == 0 {
		return nil, errors.NewValueError("OneHotEncoder.Transform", "encoder has no categories")
	}
	dst := mat.NewDense(len(cols[0]), width, nil)
	if err := e.encodeInto(dst, 0, cols); err != nil {
		return nil, err
	}
	return dst, nil
}

// encodeInto は dst の offset 列目以降に指示列を書き込む。
// 学習済みの状態は読むだけで変更しない。
func (e *OneHotEncoder) encodeInto(dst *mat.Dense, offset int, cols [][]string) error {
	if len(cols) != len(e.Categories) {
		return errors.NewDimensionError("OneHotEncoder.Transform", len(e.Categories), len(cols), 1)
	}
	for j, col := range cols {
		cats := e.Categories[j]
		for i, v := range col {
			if k := sort.SearchStrings(cats, v); k < len(cats) && cats[k] == v {
				dst.Set(i, offset+k, 1)
			}
		}
		offset += len(e.Categories[j])
	}
	return nil
}
