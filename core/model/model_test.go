package model

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestBaseEstimator(t *testing.T) {
	var e BaseEstimator
	if e.IsFitted() {
		t.Fatal("zero value should not be fitted")
	}
	e.SetFitted()
	if !e.IsFitted() {
		t.Fatal("SetFitted should mark the estimator fitted")
	}
}

func TestSplitTarget(t *testing.T) {
	data := mat.NewDense(2, 3, []float64{
		1, 2, 10,
		3, 4, 20,
	})
	X, y := SplitTarget(data)

	if r, c := X.Dims(); r != 2 || c != 2 {
		t.Fatalf("X dims = %dx%d", r, c)
	}
	if X.At(1, 1) != 4 {
		t.Errorf("X[1,1] = %v", X.At(1, 1))
	}
	if y.Len() != 2 || y.AtVec(0) != 10 || y.AtVec(1) != 20 {
		t.Errorf("y = %v", mat.Formatted(y))
	}
}

func TestRowsAndColumn(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	rows := Rows(X)
	rows[0][0] = 99
	if X.At(0, 0) != 1 {
		t.Error("Rows must copy the underlying data")
	}
	if rows[1][1] != 4 {
		t.Errorf("rows[1][1] = %v", rows[1][1])
	}

	y := ColumnMatrix([]float64{5, 6})
	if got := Column(y); len(got) != 2 || got[1] != 6 {
		t.Errorf("Column = %v", got)
	}
	if got := Rows(y.T()); len(got) != 1 || got[0][1] != 6 {
		t.Errorf("Rows on a non-Dense matrix = %v", got)
	}
}

func TestCheckFitInput(t *testing.T) {
	tests := []struct {
		name    string
		X, y    mat.Matrix
		wantErr bool
	}{
		{"valid", mat.NewDense(3, 2, nil), mat.NewDense(3, 1, nil), false},
		{"row mismatch", mat.NewDense(3, 2, nil), mat.NewDense(2, 1, nil), true},
		{"multi-column target", mat.NewDense(3, 2, nil), mat.NewDense(3, 2, nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFitInput("test", tt.X, tt.y)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckFitInput() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if err := CheckPredictInput("test", mat.NewDense(1, 3, nil), 2); err == nil {
		t.Error("CheckPredictInput should reject a feature-count mismatch")
	}
}
