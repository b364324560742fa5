package pipeline

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/mlpipe/config"
	"github.com/YuminosukeSato/mlpipe/dataset"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/pkg/log"
	"github.com/YuminosukeSato/mlpipe/registry"
)

const studentsCSV = `gender,race_ethnicity,parental_level_of_education,lunch,test_preparation_course,math_score,reading_score,writing_score
female,group B,bachelor's degree,standard,none,72,72,74
female,group C,some college,standard,completed,69,70,68
female,group B,master's degree,standard,none,90,90,88
male,group A,associate's degree,free/reduced,none,47,47,45
male,group C,some college,standard,none,76,76,75
female,group B,associate's degree,standard,none,71,71,
male,group B,some college,NA,completed,88,88,86
male,group B,some college,free/reduced,none,40,40,41
male,group D,high school,free/reduced,completed,64,64,66
female,group B,high school,free/reduced,none,38,38,40
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	source := filepath.Join(dir, "data", "stud.csv")
	if err := os.MkdirAll(filepath.Dir(source), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(source, []byte(studentsCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Source = source
	cfg.Ingestion.RawDataPath = filepath.Join(dir, "artifacts", "data.csv")
	cfg.Ingestion.TrainDataPath = filepath.Join(dir, "artifacts", "train.csv")
	cfg.Ingestion.TestDataPath = filepath.Join(dir, "artifacts", "test.csv")
	cfg.Transformation.PreprocessorPath = filepath.Join(dir, "artifacts", "preprocessor.gob")
	cfg.Trainer.ModelPath = filepath.Join(dir, "artifacts", "model.gob")
	cfg.RegistryPath = filepath.Join(dir, "artifacts", "runs.db")
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	provider, _ := log.NewTestLoggerProvider(log.LevelInfo)

	res, err := New(cfg, provider).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.TrainRows != 6 || res.TestRows != 4 {
		t.Fatalf("split = %d/%d, want 6/4", res.TrainRows, res.TestRows)
	}

	// one indicator per category seen in the training partition
	train, err := dataset.ReadFile(res.TrainPath, ',')
	if err != nil {
		t.Fatal(err)
	}
	categories := 0
	for _, col := range cfg.Transformation.Schema.Categorical {
		values, _ := train.Column(col)
		seen := map[string]bool{}
		for _, v := range values {
			if !dataset.IsMissing(v) {
				seen[v] = true
			}
		}
		categories += len(seen)
	}
	if res.Features != 2+categories {
		t.Errorf("features = %d, want 2 + %d", res.Features, categories)
	}

	if res.Report.Len() != 8 {
		t.Errorf("report has %d entries, want 8", res.Report.Len())
	}
	if res.BestScore <= cfg.Trainer.Sentinel || math.IsNaN(res.BestScore) {
		t.Errorf("best score = %v", res.BestScore)
	}
	for _, path := range []string{res.TrainPath, res.TestPath, cfg.Ingestion.RawDataPath, res.PreprocessorPath, res.ModelPath} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("artifact %s missing: %v", path, err)
		}
	}

	raw, err := os.ReadFile(cfg.Ingestion.RawDataPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, []byte(studentsCSV)) {
		t.Error("raw copy should match the source")
	}

	reg, err := registry.Open(cfg.RegistryPath)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()
	runs, err := reg.Runs()
	if err != nil || len(runs) != 1 || runs[0].ID != res.RunID || runs[0].BestModel != res.BestName {
		t.Fatalf("Runs() = %+v, %v", runs, err)
	}
	scores, err := reg.Scores(res.RunID)
	if err != nil || len(scores) != 8 {
		t.Errorf("Scores() = %d entries, %v", len(scores), err)
	}

	board, err := reg.Leaderboard(res.RunID)
	if err != nil || len(board) != 8 || board[0].Name != res.BestName {
		t.Errorf("Leaderboard() = %+v, %v", board, err)
	}

	if !provider.ContainsField(log.RunIDKey, res.RunID) {
		t.Error("log records should carry the run id")
	}
}

func TestRun_Deterministic(t *testing.T) {
	a, err := New(testConfig(t), nil).Run()
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(testConfig(t), nil).Run()
	if err != nil {
		t.Fatal(err)
	}
	if a.BestName != b.BestName || a.BestScore != b.BestScore {
		t.Errorf("runs disagree: %s %v vs %s %v", a.BestName, a.BestScore, b.BestName, b.BestScore)
	}

	ta, _ := os.ReadFile(a.TrainPath)
	tb, _ := os.ReadFile(b.TrainPath)
	if !bytes.Equal(ta, tb) {
		t.Error("train partitions should be byte-identical")
	}
}

func TestPredict(t *testing.T) {
	cfg := testConfig(t)
	res, err := New(cfg, nil).Run()
	if err != nil {
		t.Fatal(err)
	}

	input := `gender,race_ethnicity,parental_level_of_education,lunch,test_preparation_course,reading_score,writing_score
female,group E,doctorate,standard,none,80,82
male,group B,some college,free/reduced,completed,55,
`
	ds, err := dataset.Read(bytes.NewBufferString(input), ',')
	if err != nil {
		t.Fatal(err)
	}
	pred, err := Predict(res.PreprocessorPath, res.ModelPath, ds)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(pred) != 2 {
		t.Fatalf("got %d predictions", len(pred))
	}
	for i, p := range pred {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Errorf("prediction %d = %v", i, p)
		}
	}

	if _, err := Predict(res.PreprocessorPath, filepath.Join(t.TempDir(), "absent.gob"), ds); err == nil {
		t.Error("missing model should fail")
	}
}

func TestRun_StageErrors(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Source = filepath.Join(t.TempDir(), "absent.csv")
		_, err := New(cfg, nil).Run()
		var lerr *errors.DataLoadError
		if !errors.As(err, &lerr) {
			t.Errorf("expected DataLoadError, got %v", err)
		}
	})

	t.Run("schema mismatch", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Transformation.Schema.Target = "science_score"
		_, err := New(cfg, nil).Run()
		var serr *errors.SchemaMismatchError
		if !errors.As(err, &serr) {
			t.Errorf("expected SchemaMismatchError, got %v", err)
		}
		if _, statErr := os.Stat(cfg.Trainer.ModelPath); !os.IsNotExist(statErr) {
			t.Error("no model should be written")
		}
	})
}
