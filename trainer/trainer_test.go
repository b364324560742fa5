package trainer

import (
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// createMatrix returns [X | y] with y = 2*x0 - x1 + 0.5*x2 + noise.
func createMatrix(rows int, seed uint64) *mat.Dense {
	rng := rand.New(rand.NewPCG(seed, seed))
	data := mat.NewDense(rows, 4, nil)
	for i := 0; i < rows; i++ {
		var y float64
		for j, w := range []float64{2, -1, 0.5} {
			v := rng.Float64()*10 - 5
			data.Set(i, j, v)
			y += w * v
		}
		data.Set(i, 3, y+(rng.Float64()-0.5)*0.2)
	}
	return data
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ModelPath = filepath.Join(t.TempDir(), "artifacts", "model.gob")
	return cfg
}

func TestKind(t *testing.T) {
	want := []string{
		"Random Forest", "Decision Tree", "Gradient Boosting", "Linear Regression",
		"K-Neighbors", "XGBoost", "CatBoost", "AdaBoost",
	}
	kinds := Kinds()
	if len(kinds) != len(want) {
		t.Fatalf("Kinds() = %v", kinds)
	}
	for i, k := range kinds {
		if k.String() != want[i] {
			t.Errorf("Kind(%d) = %q, want %q", i, k, want[i])
		}
		parsed, err := ParseKind(want[i])
		if err != nil || parsed != k {
			t.Errorf("ParseKind(%q) = %v, %v", want[i], parsed, err)
		}
		if m := k.New(); m == nil || m.IsFitted() {
			t.Errorf("%s.New() should return an unfitted model", k)
		}
	}

	if k, err := ParseKind("  linear regression "); err != nil || k != LinearRegression {
		t.Errorf("ParseKind should ignore case and spaces, got %v, %v", k, err)
	}
	if _, err := ParseKind("SVR"); err == nil {
		t.Error("unknown name should fail")
	}
	if Kind(99).String() != "Unknown" {
		t.Error("out of range kind should be Unknown")
	}
}

func TestConfig_Kinds(t *testing.T) {
	cfg := Config{Candidates: []string{"AdaBoost", "Linear Regression", "adaboost"}}
	kinds, err := cfg.Kinds()
	if err != nil {
		t.Fatal(err)
	}
	if len(kinds) != 2 || kinds[0] != LinearRegression || kinds[1] != AdaBoost {
		t.Errorf("Kinds() = %v, want [Linear Regression AdaBoost]", kinds)
	}

	cfg.Candidates = []string{"Perceptron"}
	_, err = cfg.Kinds()
	var verr *errors.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestTrain_SelectsAndPersists(t *testing.T) {
	train := createMatrix(80, 1)
	test := createMatrix(30, 2)
	cfg := testConfig(t)
	cfg.ReportChartPath = filepath.Join(filepath.Dir(cfg.ModelPath), "model_report.png")
	logger, _ := log.NewTestLogger(log.LevelInfo)

	res, err := New(cfg, logger).Train(train, test)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	if res.Report.Len() != 8 {
		t.Fatalf("report has %d entries, want 8", res.Report.Len())
	}
	for _, e := range res.Report.Entries() {
		if e.Score > res.BestScore {
			t.Errorf("%s scored %v above the winner %v", e.Name, e.Score, res.BestScore)
		}
	}
	// the target is linear, so ordinary least squares is hard to beat
	if res.BestName != "Linear Regression" || res.BestScore < 0.99 {
		t.Errorf("best = %s (%v)", res.BestName, res.BestScore)
	}
	if res.ModelPath != cfg.ModelPath {
		t.Errorf("ModelPath = %q", res.ModelPath)
	}
	if _, err := os.Stat(cfg.ReportChartPath); err != nil {
		t.Errorf("chart not written: %v", err)
	}

	env, err := LoadModel(cfg.ModelPath)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if env.Name != res.BestName || env.Kind != res.BestKind {
		t.Errorf("envelope = %s/%v", env.Name, env.Kind)
	}
	X := test.Slice(0, 30, 0, 3)
	want, _ := res.Model.Predict(X)
	got, err := env.Model.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(got, want, 1e-12) {
		t.Error("reloaded model predicts differently")
	}

	for _, msg := range []string{"best found model on both training and testing dataset", "best model error metrics", "saved the best model"} {
		if !logger.ContainsMessage(msg) {
			t.Errorf("missing log %q", msg)
		}
	}

	entries, err := logger.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	var ranked []string
	for _, e := range entries {
		if e["message"] == "candidate ranking" {
			ranked = append(ranked, e[log.ModelNameKey].(string))
		}
	}
	if len(ranked) != 8 || ranked[0] != res.BestName {
		t.Errorf("ranking log = %v", ranked)
	}
}

func TestTrain_Deterministic(t *testing.T) {
	train := createMatrix(50, 3)
	test := createMatrix(20, 4)

	a, err := New(testConfig(t), nil).Train(train, test)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(testConfig(t), nil).Train(train, test)
	if err != nil {
		t.Fatal(err)
	}
	if a.BestName != b.BestName || a.BestScore != b.BestScore {
		t.Fatalf("runs disagree: %s %v vs %s %v", a.BestName, a.BestScore, b.BestName, b.BestScore)
	}
	ea, eb := a.Report.Entries(), b.Report.Entries()
	for i := range ea {
		same := ea[i].Score == eb[i].Score || (math.IsNaN(ea[i].Score) && math.IsNaN(eb[i].Score))
		if ea[i].Name != eb[i].Name || !same {
			t.Errorf("entry %d: %+v vs %+v", i, ea[i], eb[i])
		}
	}
}

func TestTrain_NoViableModel(t *testing.T) {
	train := createMatrix(20, 5)
	test := createMatrix(10, 6)
	for i := 0; i < 20; i++ {
		train.Set(i, 3, math.NaN())
	}
	for i := 0; i < 10; i++ {
		test.Set(i, 3, math.NaN())
	}
	cfg := testConfig(t)
	logger, _ := log.NewTestLogger(log.LevelInfo)

	_, err := New(cfg, logger).Train(train, test)
	var nerr *errors.NoViableModelError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NoViableModelError, got %v", err)
	}
	if nerr.Candidates != 8 || nerr.Sentinel != -1 {
		t.Errorf("error = %+v", nerr)
	}
	if _, statErr := os.Stat(cfg.ModelPath); !os.IsNotExist(statErr) {
		t.Error("no model should be persisted")
	}
	if !logger.ContainsMessage("Error: NoViableModelError occurred in") {
		t.Error("formatted error detail should be logged")
	}
}

func TestTrain_SentinelAboveAllScores(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sentinel = 2
	cfg.Candidates = []string{"Linear Regression"}
	_, err := New(cfg, nil).Train(createMatrix(20, 7), createMatrix(10, 8))
	var nerr *errors.NoViableModelError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NoViableModelError, got %v", err)
	}
}

func TestTrain_CandidateFailureIsRecorded(t *testing.T) {
	// four training rows are fewer than the five neighbours KNN needs
	cfg := testConfig(t)
	cfg.Candidates = []string{"Decision Tree", "Linear Regression", "K-Neighbors"}
	logger, _ := log.NewTestLogger(log.LevelInfo)

	res, err := New(cfg, logger).Train(createMatrix(4, 9), createMatrix(6, 10))
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	score, ok := res.Report.Score("K-Neighbors")
	if !ok || !math.IsNaN(score) {
		t.Errorf("K-Neighbors score = %v, %v; want NaN", score, ok)
	}
	if res.BestName == "K-Neighbors" {
		t.Error("a failed candidate cannot win")
	}
	if !logger.ContainsField(log.ErrorCodeKey, log.ErrorCandidateFailed) {
		t.Error("candidate failure should be logged")
	}
}

func TestTrain_PersistFailureIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.ModelPath = filepath.Join(blocker, "model.gob")
	cfg.Candidates = []string{"Linear Regression"}
	logger, _ := log.NewTestLogger(log.LevelInfo)

	name, score, err := New(cfg, logger).SelectBestModel(createMatrix(30, 11), createMatrix(10, 12))
	if err != nil {
		t.Fatalf("persistence failure should not fail training: %v", err)
	}
	if name != "Linear Regression" || score < 0.99 {
		t.Errorf("SelectBestModel() = %s, %v", name, score)
	}
	if !logger.ContainsMessage("failed to save the best model") {
		t.Error("persistence failure should be logged")
	}
}

func TestTrain_InputErrors(t *testing.T) {
	cfg := testConfig(t)

	_, err := New(cfg, nil).Train(createMatrix(10, 13), mat.NewDense(5, 3, nil))
	var derr *errors.DimensionError
	if !errors.As(err, &derr) {
		t.Errorf("expected DimensionError, got %v", err)
	}

	if _, err := New(cfg, nil).Train(mat.NewDense(5, 1, nil), mat.NewDense(5, 1, nil)); err == nil {
		t.Error("a matrix without feature columns should fail")
	}

	cfg.Candidates = []string{"nope"}
	if _, err := New(cfg, nil).Train(createMatrix(10, 14), createMatrix(5, 15)); err == nil {
		t.Error("unknown candidates should fail")
	}
}
