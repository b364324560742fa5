package transformation

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/mlpipe/dataset"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/pkg/log"
	"gonum.org/v1/gonum/mat"
)

const trainCSV = `,gender,lunch,reading_score,writing_score,math_score
3,female,standard,72,74,72
7,male,free/reduced,,60,47
1,male,standard,57,44,76
9,female,,78,NA,71
5,female,standard,83,78,88
2,male,free/reduced,43,39,40
`

const testCSV = `,gender,lunch,reading_score,writing_score,math_score
0,female,standard,90,88,69
4,male,free/reduced,64,67,64
6,female,standard,60,50,38
8,male,standard,54,70,58
`

func schema() dataset.Schema {
	return dataset.Schema{
		Numeric:     []string{"reading_score", "writing_score"},
		Categorical: []string{"gender", "lunch"},
		Target:      "math_score",
	}
}

func writePartitions(t *testing.T, train, test string) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	trainPath := filepath.Join(dir, "train.csv")
	testPath := filepath.Join(dir, "test.csv")
	if err := os.WriteFile(trainPath, []byte(train), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(testPath, []byte(test), 0o644); err != nil {
		t.Fatal(err)
	}
	return trainPath, testPath, filepath.Join(dir, "out", "preprocessor.gob")
}

func TestFitTransform(t *testing.T) {
	trainPath, testPath, prePath := writePartitions(t, trainCSV, testCSV)
	cfg := Config{PreprocessorPath: prePath, Schema: schema(), Comma: ','}
	logger, _ := log.NewTestLogger(log.LevelInfo)

	train, test, gotPath, err := New(cfg, logger).FitTransform(trainPath, testPath)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	if gotPath != prePath {
		t.Errorf("preprocessor path = %q", gotPath)
	}

	// 2 numeric + gender{female,male} + lunch{free/reduced,standard} + target
	if r, c := train.Dims(); r != 6 || c != 7 {
		t.Fatalf("train dims = %dx%d, want 6x7", r, c)
	}
	if r, c := test.Dims(); r != 4 || c != 7 {
		t.Fatalf("test dims = %dx%d, want 4x7", r, c)
	}
	if train.At(0, 6) != 72 || test.At(3, 6) != 58 {
		t.Error("target should be appended unchanged as the last column")
	}
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			if math.IsNaN(train.At(i, j)) {
				t.Fatalf("train feature [%d,%d] is NaN", i, j)
			}
		}
	}

	pre, err := LoadPreprocessor(prePath)
	if err != nil {
		t.Fatalf("LoadPreprocessor: %v", err)
	}
	testDS, err := dataset.ReadFile(testPath, ',')
	if err != nil {
		t.Fatal(err)
	}
	X, err := pre.Transform(testDS)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(X, test.Slice(0, 4, 0, 6), 1e-12) {
		t.Error("reloaded preprocessor should reproduce the test features")
	}

	if !logger.ContainsMessage("saved preprocessing object") {
		t.Error("missing completion log")
	}
}

func TestFitTransform_MissingTarget(t *testing.T) {
	noTarget := `,gender,lunch,reading_score,writing_score
0,female,standard,90,88
1,male,standard,80,70
`
	trainPath, testPath, prePath := writePartitions(t, trainCSV, noTarget)
	cfg := Config{PreprocessorPath: prePath, Schema: schema()}

	_, _, _, err := New(cfg, nil).FitTransform(trainPath, testPath)
	var serr *errors.SchemaMismatchError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
	if serr.Column != "math_score" || serr.Dataset != "test" {
		t.Errorf("error = %+v", serr)
	}
	if _, statErr := os.Stat(prePath); !os.IsNotExist(statErr) {
		t.Error("nothing should be persisted on failure")
	}
}

func TestFitTransform_NonNumericTarget(t *testing.T) {
	badTest := `,gender,lunch,reading_score,writing_score,math_score
0,female,standard,90,88,high
`
	trainPath, testPath, prePath := writePartitions(t, trainCSV, badTest)
	cfg := Config{PreprocessorPath: prePath, Schema: schema()}

	_, _, _, err := New(cfg, nil).FitTransform(trainPath, testPath)
	var serr *errors.SchemaMismatchError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
}

func TestFitTransform_AllMissingCategory(t *testing.T) {
	train := `,gender,lunch,reading_score,writing_score,math_score
0,,standard,72,74,72
1,NA,free/reduced,69,70,47
2,,standard,57,44,76
`
	test := `,gender,lunch,reading_score,writing_score,math_score
3,female,standard,90,88,69
`
	trainPath, testPath, prePath := writePartitions(t, train, test)
	cfg := Config{PreprocessorPath: prePath, Schema: schema()}

	trainM, testM, _, err := New(cfg, nil).FitTransform(trainPath, testPath)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	// gender contributes a zero-width block: 2 numeric + 2 lunch + target
	if _, c := trainM.Dims(); c != 5 {
		t.Errorf("train columns = %d, want 5", c)
	}
	if _, c := testM.Dims(); c != 5 {
		t.Errorf("test columns = %d, want 5", c)
	}
}

func TestFitTransform_MissingPartition(t *testing.T) {
	_, testPath, prePath := writePartitions(t, trainCSV, testCSV)
	cfg := Config{PreprocessorPath: prePath, Schema: schema()}

	_, _, _, err := New(cfg, nil).FitTransform(filepath.Join(t.TempDir(), "absent.csv"), testPath)
	var lerr *errors.DataLoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected DataLoadError, got %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Schema.Validate(); err != nil {
		t.Fatalf("default schema invalid: %v", err)
	}
	if cfg.Schema.Target != "math_score" || len(cfg.Schema.Categorical) != 5 {
		t.Errorf("unexpected default schema: %+v", cfg.Schema)
	}
}
