// Package trainer fits every candidate regressor, scores each on the held-out
// partition and persists the best one.
package trainer

import (
	"math"
	"time"

	"github.com/YuminosukeSato/mlpipe/artifact"
	"github.com/YuminosukeSato/mlpipe/core/model"
	"github.com/YuminosukeSato/mlpipe/metrics"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/pkg/log"
	"github.com/YuminosukeSato/mlpipe/report"
	"gonum.org/v1/gonum/mat"
)

// Config controls model selection and persistence.
type Config struct {
	ModelPath       string   `yaml:"model_path"`
	Sentinel        float64  `yaml:"sentinel"`
	Candidates      []string `yaml:"candidates"`
	ReportChartPath string   `yaml:"report_chart_path"`
}

// DefaultConfig evaluates every candidate against a sentinel of -1.
func DefaultConfig() Config {
	return Config{
		ModelPath: "artifacts/model.gob",
		Sentinel:  -1,
	}
}

// Kinds resolves the configured candidate names. The result is always in Kind
// order regardless of the order names were listed in; an empty list selects
// every kind.
func (c Config) Kinds() ([]Kind, error) {
	if len(c.Candidates) == 0 {
		return Kinds(), nil
	}
	enabled := make(map[Kind]bool, len(c.Candidates))
	for _, name := range c.Candidates {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		enabled[k] = true
	}
	var kinds []Kind
	for _, k := range Kinds() {
		if enabled[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// Envelope is the persisted form of the winning model.
type Envelope struct {
	Name  string
	Kind  Kind
	Model model.Regressor
}

// Result is the outcome of a training run.
type Result struct {
	BestName  string
	BestKind  Kind
	BestScore float64
	Report    *report.Report
	Model     model.Regressor
	// ModelPath is empty when the winner could not be persisted.
	ModelPath string
}

// Trainer runs the model selection stage.
type Trainer struct {
	cfg    Config
	logger log.Logger
}

// New creates a Trainer. A nil logger discards output.
func New(cfg Config, logger log.Logger) *Trainer {
	if logger == nil {
		logger = log.Nop()
	}
	return &Trainer{
		cfg:    cfg,
		logger: logger.With(log.StageKey, log.StageTraining),
	}
}

// SelectBestModel trains the candidates and returns the winner's name and
// held-out R² score.
func (t *Trainer) SelectBestModel(train, test mat.Matrix) (string, float64, error) {
	res, err := t.Train(train, test)
	if err != nil {
		return "", 0, err
	}
	return res.BestName, res.BestScore, nil
}

// Train fits each enabled candidate on train and scores it on test. Both
// matrices carry the target in their last column. A candidate that fails is
// recorded with a NaN score. The winner is the first candidate whose score is
// strictly greater than the sentinel and every earlier score. Failing to
// persist the winner or the chart is logged and does not fail the run.
func (t *Trainer) Train(train, test mat.Matrix) (*Result, error) {
	start := time.Now()
	t.logger.Info("split training and test input data")

	kinds, err := t.cfg.Kinds()
	if err != nil {
		return nil, t.fail(err)
	}

	_, cTrain := train.Dims()
	rTest, cTest := test.Dims()
	if cTrain < 2 {
		return nil, t.fail(errors.NewValueError("Trainer.Train", "train matrix needs at least one feature column and a target column"))
	}
	if cTest != cTrain {
		return nil, t.fail(errors.NewDimensionError("Trainer.Train", cTrain, cTest, 1))
	}

	XTrain, yTrain := model.SplitTarget(train)
	XTest, yTest := model.SplitTarget(test)

	rep := report.New()
	models := make([]model.Regressor, len(kinds))
	for i, k := range kinds {
		models[i] = t.evaluate(k, rep, XTrain, yTrain, XTest, yTest)
	}
	t.logger.Info("model report", "report", rep)
	for i, e := range rep.Ranking() {
		t.logger.Info("candidate ranking",
			log.RankKey, i+1,
			log.ModelNameKey, e.Name,
			log.R2ScoreKey, e.Score,
		)
	}

	best, ok := rep.Best(t.cfg.Sentinel)
	if !ok {
		return nil, t.fail(errors.NewNoViableModelError(len(kinds), t.cfg.Sentinel))
	}
	kind := kinds[best.Order]
	winner := models[best.Order]
	t.logger.Info("best found model on both training and testing dataset",
		log.ModelNameKey, best.Name,
		log.R2ScoreKey, best.Score,
	)
	t.logSecondaryMetrics(best.Name, winner, XTest, yTest)

	res := &Result{
		BestName:  best.Name,
		BestKind:  kind,
		BestScore: best.Score,
		Report:    rep,
		Model:     winner,
	}

	env := &Envelope{Name: best.Name, Kind: kind, Model: winner}
	if err := artifact.Save(t.cfg.ModelPath, env); err != nil {
		t.logger.Error("failed to save the best model", err,
			log.PathKey, t.cfg.ModelPath,
			log.ErrorCodeKey, log.ErrorPersistence,
		)
	} else {
		res.ModelPath = t.cfg.ModelPath
		t.logger.Info("saved the best model", log.PathKey, t.cfg.ModelPath)
	}

	if t.cfg.ReportChartPath != "" {
		if err := rep.SaveChart(t.cfg.ReportChartPath); err != nil {
			t.logger.Warn("failed to render the model report", err, log.PathKey, t.cfg.ReportChartPath)
		}
	}

	t.logger.Info("model training is completed",
		log.SamplesKey, rTest,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}

// evaluate fits and scores one candidate, recording the outcome in rep. It
// returns the fitted model, or nil when the candidate failed.
func (t *Trainer) evaluate(k Kind, rep *report.Report, XTrain mat.Matrix, yTrain *mat.VecDense, XTest mat.Matrix, yTest *mat.VecDense) model.Regressor {
	start := time.Now()
	logger := t.logger.With(log.ModelNameKey, k.String())

	score := math.NaN()
	var fitted model.Regressor
	err := errors.SafeExecute(k.String(), func() error {
		m := k.New()
		if err := m.Fit(XTrain, yTrain); err != nil {
			return err
		}
		pred, err := m.Predict(XTest)
		if err != nil {
			return err
		}
		yHat, err := metrics.VecFromColumn(pred)
		if err != nil {
			return err
		}
		s, err := metrics.R2Score(yTest, yHat)
		if err != nil {
			return err
		}
		score, fitted = s, m
		return nil
	})
	if err != nil {
		logger.Warn("candidate failed", err, log.ErrorCodeKey, log.ErrorCandidateFailed)
		score, fitted = math.NaN(), nil
	} else {
		logger.Info("candidate evaluated",
			log.R2ScoreKey, score,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}

	rep.Add(k.String(), score)
	return fitted
}

func (t *Trainer) logSecondaryMetrics(name string, m model.Regressor, XTest mat.Matrix, yTest *mat.VecDense) {
	pred, err := m.Predict(XTest)
	if err != nil {
		return
	}
	yHat, err := metrics.VecFromColumn(pred)
	if err != nil {
		return
	}
	mae, errMAE := metrics.MAE(yTest, yHat)
	rmse, errRMSE := metrics.RMSE(yTest, yHat)
	if errMAE != nil || errRMSE != nil {
		return
	}
	t.logger.Info("best model error metrics",
		log.ModelNameKey, name,
		log.MAEKey, mae,
		log.RMSEKey, rmse,
	)
}

func (t *Trainer) fail(err error) error {
	t.logger.Error(errors.Detail(err), err)
	return err
}

// LoadModel reads a persisted winner.
func LoadModel(path string) (*Envelope, error) {
	var env Envelope
	if err := artifact.Load(path, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
