// Package pipeline runs ingestion, transformation and training in sequence
// and exposes inference over the persisted artifacts.
package pipeline

import (
	"io"
	"time"

	"github.com/YuminosukeSato/mlpipe/config"
	"github.com/YuminosukeSato/mlpipe/dataset"
	"github.com/YuminosukeSato/mlpipe/ingestion"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/pkg/log"
	"github.com/YuminosukeSato/mlpipe/registry"
	"github.com/YuminosukeSato/mlpipe/report"
	"github.com/YuminosukeSato/mlpipe/trainer"
	"github.com/YuminosukeSato/mlpipe/transformation"
	"github.com/google/uuid"
)

// Result summarizes one run.
type Result struct {
	RunID            string
	TrainPath        string
	TestPath         string
	PreprocessorPath string
	ModelPath        string
	TrainRows        int
	TestRows         int
	Features         int
	BestName         string
	BestScore        float64
	Report           *report.Report
}

// Pipeline wires the stages together.
type Pipeline struct {
	cfg      *config.Config
	provider log.LoggerProvider
}

// New creates a Pipeline. A nil provider discards all log output.
func New(cfg *config.Config, provider log.LoggerProvider) *Pipeline {
	if provider == nil {
		provider = log.NewZerologProvider(log.LevelError, io.Discard)
	}
	return &Pipeline{cfg: cfg, provider: provider}
}

// Run executes the three stages. The transformed matrices are handed to the
// trainer in memory. When a registry path is configured the run is recorded;
// failing to record it is logged and does not fail the run.
func (p *Pipeline) Run() (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := func(component string) log.Logger {
		return p.provider.GetLoggerWithName(component).With(log.RunIDKey, runID)
	}

	plog := logger("pipeline")
	plog.Info("pipeline started", log.SourceKey, p.cfg.Source)

	trainPath, testPath, err := ingestion.New(p.cfg.Ingestion, logger("ingestion")).Ingest(p.cfg.Source)
	if err != nil {
		return nil, err
	}

	train, test, prePath, err := transformation.New(p.cfg.Transformation, logger("transformation")).FitTransform(trainPath, testPath)
	if err != nil {
		return nil, err
	}

	trained, err := trainer.New(p.cfg.Trainer, logger("trainer")).Train(train, test)
	if err != nil {
		return nil, err
	}

	trainRows, cols := train.Dims()
	testRows, _ := test.Dims()
	res := &Result{
		RunID:            runID,
		TrainPath:        trainPath,
		TestPath:         testPath,
		PreprocessorPath: prePath,
		ModelPath:        trained.ModelPath,
		TrainRows:        trainRows,
		TestRows:         testRows,
		Features:         cols - 1,
		BestName:         trained.BestName,
		BestScore:        trained.BestScore,
		Report:           trained.Report,
	}

	if p.cfg.RegistryPath != "" {
		p.record(logger("registry"), start, res)
	}

	plog.Info("pipeline finished",
		log.ModelNameKey, res.BestName,
		log.R2ScoreKey, res.BestScore,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (p *Pipeline) record(logger log.Logger, start time.Time, res *Result) {
	logger = logger.With(log.StageKey, log.StageRegistry)
	reg, err := registry.Open(p.cfg.RegistryPath)
	if err != nil {
		logger.Error("failed to open the run registry", err, log.PathKey, p.cfg.RegistryPath)
		return
	}
	defer reg.Close()

	_, err = reg.Record(registry.Run{
		ID:        res.RunID,
		StartedAt: start,
		Source:    p.cfg.Source,
		BestModel: res.BestName,
		BestScore: res.BestScore,
		ModelPath: res.ModelPath,
	}, res.Report.Ranking())
	if err != nil {
		logger.Error("failed to record the run", err, log.PathKey, p.cfg.RegistryPath)
		return
	}
	logger.Info("run recorded", log.PathKey, p.cfg.RegistryPath)
}

// Predict transforms ds with the preprocessor at preprocessorPath and returns
// the predictions of the model at modelPath, one per row.
func Predict(preprocessorPath, modelPath string, ds *dataset.Dataset) ([]float64, error) {
	pre, err := transformation.LoadPreprocessor(preprocessorPath)
	if err != nil {
		return nil, err
	}
	env, err := trainer.LoadModel(modelPath)
	if err != nil {
		return nil, err
	}
	if env.Model == nil {
		return nil, errors.NewPersistenceError(modelPath, errors.New("artifact holds no model"))
	}

	X, err := pre.Transform(ds)
	if err != nil {
		return nil, err
	}
	pred, err := env.Model.Predict(X)
	if err != nil {
		return nil, err
	}
	r, _ := pred.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = pred.At(i, 0)
	}
	return out, nil
}
