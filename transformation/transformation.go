// Package transformation fits the feature preprocessor on the train
// partition, applies it to both partitions and persists it.
package transformation

import (
	"time"

	"github.com/YuminosukeSato/mlpipe/artifact"
	"github.com/YuminosukeSato/mlpipe/dataset"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/pkg/log"
	"github.com/YuminosukeSato/mlpipe/preprocessing"
	"gonum.org/v1/gonum/mat"
)

// Config holds the preprocessor destination and the feature schema.
type Config struct {
	PreprocessorPath string         `yaml:"preprocessor_path"`
	Schema           dataset.Schema `yaml:"schema"`
	// WithMean centres numeric columns before scaling.
	WithMean bool `yaml:"with_mean"`
	Comma    rune `yaml:"-"`
}

// DefaultSchema is the student performance layout.
func DefaultSchema() dataset.Schema {
	return dataset.Schema{
		Numeric: []string{"reading_score", "writing_score"},
		Categorical: []string{
			"gender",
			"race_ethnicity",
			"parental_level_of_education",
			"lunch",
			"test_preparation_course",
		},
		Target: "math_score",
	}
}

// DefaultConfig returns the default preprocessor location and schema.
func DefaultConfig() Config {
	return Config{
		PreprocessorPath: "artifacts/preprocessor.gob",
		Schema:           DefaultSchema(),
		Comma:            dataset.DefaultComma,
	}
}

// Transformer runs the transformation stage.
type Transformer struct {
	cfg    Config
	logger log.Logger
}

// New creates a Transformer. A nil logger discards output.
func New(cfg Config, logger log.Logger) *Transformer {
	if logger == nil {
		logger = log.Nop()
	}
	return &Transformer{
		cfg:    cfg,
		logger: logger.With(log.StageKey, log.StageTransformation),
	}
}

// Preprocessor builds the unfitted column pipeline for the configured schema.
func (t *Transformer) Preprocessor() *preprocessing.ColumnTransformer {
	return preprocessing.NewColumnTransformer(t.cfg.Schema.Numeric, t.cfg.Schema.Categorical, t.cfg.WithMean)
}

// FitTransform loads both partitions, fits the preprocessor on the train
// feature columns and transforms both partitions. Each returned matrix has
// the target appended as its last column. The fitted preprocessor is
// persisted last, so nothing is written when an earlier step fails.
func (t *Transformer) FitTransform(trainPath, testPath string) (train, test *mat.Dense, preprocessorPath string, err error) {
	start := time.Now()

	trainDS, err := dataset.ReadFile(trainPath, t.cfg.Comma)
	if err != nil {
		return nil, nil, "", t.fail(errors.NewDataLoadError(trainPath, err))
	}
	testDS, err := dataset.ReadFile(testPath, t.cfg.Comma)
	if err != nil {
		return nil, nil, "", t.fail(errors.NewDataLoadError(testPath, err))
	}
	t.logger.Info("read train and test data completed",
		"train_rows", trainDS.Len(),
		"test_rows", testDS.Len(),
	)

	schema := t.cfg.Schema
	if err := schema.Check(trainDS, "train"); err != nil {
		return nil, nil, "", t.fail(err)
	}
	if err := schema.Check(testDS, "test"); err != nil {
		return nil, nil, "", t.fail(err)
	}
	t.logger.Info("feature schema",
		"numerical_columns", schema.Numeric,
		"categorical_columns", schema.Categorical,
		"target_column", schema.Target,
	)

	pre := t.Preprocessor()
	trainX, err := pre.FitTransform(trainDS)
	if err != nil {
		return nil, nil, "", t.fail(errors.Wrap(err, "train dataset"))
	}
	testX, err := pre.Transform(testDS)
	if err != nil {
		return nil, nil, "", t.fail(errors.Wrap(err, "test dataset"))
	}

	if train, err = appendTarget(trainX, trainDS, schema.Target, "train"); err != nil {
		return nil, nil, "", t.fail(err)
	}
	if test, err = appendTarget(testX, testDS, schema.Target, "test"); err != nil {
		return nil, nil, "", t.fail(err)
	}

	if err := artifact.Save(t.cfg.PreprocessorPath, pre); err != nil {
		return nil, nil, "", t.fail(err)
	}

	_, cols := train.Dims()
	t.logger.Info("saved preprocessing object",
		log.PathKey, t.cfg.PreprocessorPath,
		log.FeaturesKey, cols-1,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return train, test, t.cfg.PreprocessorPath, nil
}

// LoadPreprocessor reads a persisted preprocessor for inference.
func LoadPreprocessor(path string) (*preprocessing.ColumnTransformer, error) {
	var pre preprocessing.ColumnTransformer
	if err := artifact.Load(path, &pre); err != nil {
		return nil, err
	}
	return &pre, nil
}

// appendTarget returns [X | target] for ds.
func appendTarget(X *mat.Dense, ds *dataset.Dataset, target, name string) (*mat.Dense, error) {
	y, err := ds.Float64Column(target)
	if err != nil {
		return nil, errors.NewSchemaMismatchError(target, name, err.Error())
	}
	r, c := X.Dims()
	out := mat.NewDense(r, c+1, nil)
	out.Slice(0, r, 0, c).(*mat.Dense).Copy(X)
	out.SetCol(c, y)
	return out, nil
}

func (t *Transformer) fail(err error) error {
	t.logger.Error(errors.Detail(err), err)
	return err
}
