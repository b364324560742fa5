package model

import (
	"gonum.org/v1/gonum/mat"
)

// Rows は行列を行ごとのスライスに展開する。木モデルや近傍法のように
// 行単位で走査するアルゴリズムで使う。
func Rows(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	rows := make([][]float64, r)
	if d, ok := X.(*mat.Dense); ok {
		for i := range rows {
			rows[i] = append([]float64(nil), d.RawRowView(i)...)
		}
		return rows
	}
	for i := range rows {
		row := make([]float64, c)
		for j := range row {
			row[j] = X.At(i, j)
		}
		rows[i] = row
	}
	return rows
}

// Column は n×1 の目的変数を []float64 として取り出す
func Column(y mat.Matrix) []float64 {
	r, _ := y.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = y.At(i, 0)
	}
	return out
}

// ColumnMatrix は []float64 を n×1 の行列に包む
func ColumnMatrix(v []float64) *mat.Dense {
	return mat.NewDense(len(v), 1, v)
}

// SplitTarget は末尾列を目的変数とみなし、特徴量行列と目的変数ベクトルに分ける。
// 変換後の訓練・テスト配列はこのレイアウトで受け渡される。
func SplitTarget(data mat.Matrix) (*mat.Dense, *mat.VecDense) {
	r, c := data.Dims()
	X := mat.NewDense(r, c-1, nil)
	y := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c-1; j++ {
			X.Set(i, j, data.At(i, j))
		}
		y.SetVec(i, data.At(i, c-1))
	}
	return X, y
}
