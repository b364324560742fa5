// Package ingestion reads the source dataset, splits it into train and test
// partitions and writes them as artifacts.
package ingestion

import (
	"io"
	"time"

	"github.com/YuminosukeSato/mlpipe/artifact"
	"github.com/YuminosukeSato/mlpipe/dataset"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/pkg/log"
)

// Config holds the destinations and split parameters.
type Config struct {
	TrainDataPath string  `yaml:"train_data_path"`
	TestDataPath  string  `yaml:"test_data_path"`
	RawDataPath   string  `yaml:"raw_data_path"`
	TestSize      float64 `yaml:"test_size"`
	RandomState   int64   `yaml:"random_state"`
	Comma         rune    `yaml:"-"`
}

// DefaultConfig returns the artifact layout used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		TrainDataPath: "artifacts/train.csv",
		TestDataPath:  "artifacts/test.csv",
		TestSize:      0.33,
		RandomState:   42,
		Comma:         dataset.DefaultComma,
	}
}

// Ingestor runs the ingestion stage.
type Ingestor struct {
	cfg    Config
	logger log.Logger
}

// New creates an Ingestor. A nil logger discards output.
func New(cfg Config, logger log.Logger) *Ingestor {
	if logger == nil {
		logger = log.Nop()
	}
	return &Ingestor{
		cfg:    cfg,
		logger: logger.With(log.StageKey, log.StageIngestion),
	}
}

// Ingest reads source, splits it and writes both partitions with a leading
// row-index column. It returns the train and test paths.
func (in *Ingestor) Ingest(source string) (trainPath, testPath string, err error) {
	start := time.Now()
	in.logger.Info("entered the data ingestion stage", log.SourceKey, source)

	ds, err := dataset.ReadFile(source, in.cfg.Comma)
	if err != nil {
		return "", "", in.fail(errors.NewDataLoadError(source, err))
	}
	in.logger.Info("read the dataset",
		log.SamplesKey, ds.Len(),
		log.ColumnsKey, len(ds.Columns()),
	)

	if in.cfg.RawDataPath != "" {
		if err := in.write(in.cfg.RawDataPath, ds, false); err != nil {
			return "", "", in.fail(err)
		}
	}

	train, test, err := dataset.TrainTestSplit(ds, in.cfg.TestSize, in.cfg.RandomState)
	if err != nil {
		return "", "", in.fail(errors.NewDataLoadError(source, err))
	}
	in.logger.Info("train test split initiated",
		log.TestSizeKey, in.cfg.TestSize,
		log.RandomSeedKey, in.cfg.RandomState,
	)

	if err := in.write(in.cfg.TrainDataPath, train, true); err != nil {
		return "", "", in.fail(err)
	}
	if err := in.write(in.cfg.TestDataPath, test, true); err != nil {
		return "", "", in.fail(err)
	}

	in.logger.Info("ingestion of the data is completed",
		"train_rows", train.Len(),
		"test_rows", test.Len(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return in.cfg.TrainDataPath, in.cfg.TestDataPath, nil
}

func (in *Ingestor) write(path string, ds *dataset.Dataset, index bool) error {
	return artifact.WriteFile(path, func(w io.Writer) error {
		return ds.WriteTo(w, dataset.WriteOptions{Comma: in.cfg.Comma, Index: index})
	})
}

func (in *Ingestor) fail(err error) error {
	in.logger.Error(errors.Detail(err), err)
	return err
}
