package linear

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// createData は y = 1 + Σ (j+1)*0.5*x_j にノイズを加えたデータを生成する
func createData(rows, cols int, noise float64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(42, 42))

	X := mat.NewDense(rows, cols, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		sum := 1.0
		for j := 0; j < cols; j++ {
			v := rng.Float64()*2.0 - 1.0
			X.Set(i, j, v)
			sum += v * float64(j+1) * 0.5
		}
		sum += (rng.Float64() - 0.5) * noise
		y.Set(i, 0, sum)
	}
	return X, y
}

func TestLinearRegression_RecoversCoefficients(t *testing.T) {
	X, y := createData(200, 3, 0)

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	want := []float64{0.5, 1.0, 1.5}
	for j, w := range lr.GetWeights() {
		if math.Abs(w-want[j]) > 1e-8 {
			t.Errorf("weight[%d] = %v, want %v", j, w, want[j])
		}
	}
	if math.Abs(lr.GetIntercept()-1.0) > 1e-8 {
		t.Errorf("intercept = %v, want 1", lr.GetIntercept())
	}

	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(score-1) > 1e-10 {
		t.Errorf("Score() = %v, want 1", score)
	}
}

func TestLinearRegression_CollinearOneHot(t *testing.T) {
	// The two indicator columns always sum to one, so X^T X is singular.
	X := mat.NewDense(6, 3, []float64{
		0.5, 1, 0,
		1.0, 0, 1,
		1.5, 1, 0,
		2.0, 0, 1,
		2.5, 1, 0,
		3.0, 0, 1,
	})
	y := mat.NewDense(6, 1, nil)
	for i := 0; i < 6; i++ {
		y.Set(i, 0, 2*X.At(i, 0)+3*X.At(i, 1))
	}

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit should handle collinear columns: %v", err)
	}
	pred, err := lr.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		if math.Abs(pred.At(i, 0)-y.At(i, 0)) > 1e-8 {
			t.Errorf("pred[%d] = %v, want %v", i, pred.At(i, 0), y.At(i, 0))
		}
	}
	// minimum-norm solution splits the indicator effect symmetrically
	w := lr.GetWeights()
	if math.Abs((w[1]-w[2])-3) > 1e-8 {
		t.Errorf("indicator contrast = %v, want 3", w[1]-w[2])
	}
}

func TestLinearRegression_ConstantFeatures(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{2, 2, 2})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})

	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pred, _ := lr.Predict(X)
	if math.Abs(pred.At(0, 0)-2) > 1e-12 {
		t.Errorf("constant features should predict the mean, got %v", pred.At(0, 0))
	}
}

func TestLinearRegression_Errors(t *testing.T) {
	lr := NewLinearRegression()
	if _, err := lr.Predict(mat.NewDense(1, 1, nil)); err == nil {
		t.Error("Predict before Fit should fail")
	}

	X, y := createData(10, 2, 0.1)
	if err := lr.Fit(X, mat.NewDense(9, 1, nil)); err == nil {
		t.Error("row mismatch should fail")
	}
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	_, err := lr.Predict(mat.NewDense(2, 3, nil))
	var derr *errors.DimensionError
	if !errors.As(err, &derr) {
		t.Errorf("expected DimensionError, got %v", err)
	}
}

func TestLinearRegression_GobRoundTrip(t *testing.T) {
	X, y := createData(50, 4, 0.1)
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(lr); err != nil {
		t.Fatal(err)
	}
	var loaded LinearRegression
	if err := gob.NewDecoder(&buf).Decode(&loaded); err != nil {
		t.Fatal(err)
	}
	want, _ := lr.Predict(X)
	got, err := loaded.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(got, want, 1e-12) {
		t.Error("reloaded model predicts differently")
	}
}

func BenchmarkLinearRegressionFit(b *testing.B) {
	X, y := createData(1000, 20, 0.1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		lr := NewLinearRegression()
		_ = lr.Fit(X, y)
	}
}
