package log

// Model and operation context.
const (
	// ModelNameKey identifies a candidate model by display name,
	// e.g. "Random Forest" or "CatBoosting Regressor".
	ModelNameKey = "model.name"

	// RunIDKey identifies one pipeline run.
	RunIDKey = "run.id"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies the component emitting the record.
	ComponentKey = "ml.component"

	// StageKey identifies the pipeline stage.
	StageKey = "pipeline.stage"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ColumnsKey  = "data.columns"
	ColumnKey   = "data.column"
	PathKey     = "data.path"
	SourceKey   = "data.source"
)

// Metrics and timing.
const (
	DurationMsKey = "perf.duration_ms"
	R2ScoreKey    = "metrics.r2_score"
	RankKey       = "metrics.rank"
	MAEKey        = "metrics.mae"
	RMSEKey       = "metrics.rmse"
	SentinelKey   = "metrics.sentinel"
	RandomSeedKey = "config.random_seed"
	TestSizeKey   = "config.test_size"
)

// Error context.
const (
	ErrorCodeKey = "error.code"
	ErrorTypeKey = "error.type"
)

const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	StageIngestion      = "ingestion"
	StageTransformation = "transformation"
	StageTraining       = "training"
	StageRegistry       = "registry"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorCandidateFailed   = "CANDIDATE_FAILED"
	ErrorPersistence       = "PERSISTENCE_FAILED"
)
