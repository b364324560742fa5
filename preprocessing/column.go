package preprocessing

import (
	"github.com/YuminosukeSato/mlpipe/core/model"
	"github.com/YuminosukeSato/mlpipe/dataset"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ColumnTransformer は数値列とカテゴリ列に別々の前処理を適用し、
// [数値（補完・標準化） | カテゴリ（補完・one-hot）] の順に連結した行列を返す。
//
//   - 数値: SimpleImputer(median) → StandardScaler(with_mean=WithMean, with_std=true)
//   - カテゴリ: MostFrequentImputer → OneHotEncoder
//
// 学習後は同じスキーマを持つ任意のDatasetを決定的に変換でき、gobで永続化できる。
type ColumnTransformer struct {
	model.BaseEstimator

	Numeric     []string
	Categorical []string
	WithMean    bool

	NumImputer *SimpleImputer
	Scaler     *StandardScaler
	CatImputer *MostFrequentImputer
	Encoder    *OneHotEncoder
}

// NewColumnTransformer は未学習のColumnTransformerを作成する
//
// 使用例:
//
//	ct := preprocessing.NewColumnTransformer(schema.Numeric, schema.Categorical, false)
//	Xtrain, err := ct.FitTransform(train)
//	Xtest, err := ct.Transform(test)
func NewColumnTransformer(numeric, categorical []string, withMean bool) *ColumnTransformer {
	return &ColumnTransformer{
		Numeric:     append([]string(nil), numeric...),
		Categorical: append([]string(nil), categorical...),
		WithMean:    withMean,
		NumImputer:  NewSimpleImputer(StrategyMedian),
		Scaler:      NewStandardScaler(withMean, true),
		CatImputer:  NewMostFrequentImputer(),
		Encoder:     NewOneHotEncoder(),
	}
}

// Fit は訓練データの特徴量列だけで各段を学習する
func (ct *ColumnTransformer) Fit(ds *dataset.Dataset) error {
	if ds.Len() == 0 {
		return errors.NewModelError("ColumnTransformer.Fit", "empty data", errors.ErrEmptyData)
	}
	if len(ct.Numeric) > 0 {
		X, err := numericBlock(ds, ct.Numeric)
		if err != nil {
			return err
		}
		imputed, err := ct.NumImputer.FitTransform(X)
		if err != nil {
			return err
		}
		if err := ct.Scaler.Fit(imputed); err != nil {
			return err
		}
	}
	if len(ct.Categorical) > 0 {
		cols, err := categoricalBlock(ds, ct.Categorical)
		if err != nil {
			return err
		}
		if err := ct.CatImputer.Fit(cols); err != nil {
			return err
		}
		imputed, err := ct.CatImputer.Transform(cols)
		if err != nil {
			return err
		}
		if err := ct.Encoder.Fit(imputed); err != nil {
			return err
		}
	}
	ct.SetFitted()
	return nil
}

// Transform は学習済みの前処理を適用する。再学習は行わない。
func (ct *ColumnTransformer) Transform(ds *dataset.Dataset) (*mat.Dense, error) {
	if !ct.IsFitted() {
		return nil, errors.NewNotFittedError("ColumnTransformer", "Transform")
	}
	if ds.Len() == 0 {
		return nil, errors.NewModelError("ColumnTransformer.Transform", "empty data", errors.ErrEmptyData)
	}
	width := ct.NOutputFeatures()
	if width == 0 {
		return nil, errors.NewValueError("ColumnTransformer.Transform", "no output features")
	}
	out := mat.NewDense(ds.Len(), width, nil)
	offset := 0

	if len(ct.Numeric) > 0 {
		X, err := numericBlock(ds, ct.Numeric)
		if err != nil {
			return nil, err
		}
		imputed, err := ct.NumImputer.Transform(X)
		if err != nil {
			return nil, err
		}
		scaled, err := ct.Scaler.Transform(imputed)
		if err != nil {
			return nil, err
		}
		out.Slice(0, ds.Len(), 0, len(ct.Numeric)).(*mat.Dense).Copy(scaled)
		offset = len(ct.Numeric)
	}
	if len(ct.Categorical) > 0 {
		cols, err := categoricalBlock(ds, ct.Categorical)
		if err != nil {
			return nil, err
		}
		imputed, err := ct.CatImputer.Transform(cols)
		if err != nil {
			return nil, err
		}
		if err := ct.Encoder.encodeInto(out, offset, imputed); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FitTransform は学習と変換を同時に行う
func (ct *ColumnTransformer) FitTransform(ds *dataset.Dataset) (*mat.Dense, error) {
	if err := ct.Fit(ds); err != nil {
		return nil, err
	}
	return ct.Transform(ds)
}

// NOutputFeatures は出力列数（数値列数 + 全カテゴリ数）を返す
func (ct *ColumnTransformer) NOutputFeatures() int {
	n := len(ct.Numeric)
	if len(ct.Categorical) > 0 {
		n += ct.Encoder.NOutputs()
	}
	return n
}

// FeatureNames は出力列名を返す（num__<列名>, cat__<列名>_<カテゴリ>）
func (ct *ColumnTransformer) FeatureNames() []string {
	names := make([]string, 0, ct.NOutputFeatures())
	for _, c := range ct.Numeric {
		names = append(names, "num__"+c)
	}
	if len(ct.Categorical) > 0 {
		for j, c := range ct.Categorical {
			for _, cat := range ct.Encoder.Categories[j] {
				names = append(names, "cat__"+c+"_"+cat)
			}
		}
	}
	return names
}

func numericBlock(ds *dataset.Dataset, columns []string) (*mat.Dense, error) {
	X := mat.NewDense(ds.Len(), len(columns), nil)
	for j, c := range columns {
		if !ds.HasColumn(c) {
			return nil, errors.NewSchemaMismatchError(c, "", "column not found")
		}
		values, err := ds.Float64Column(c)
		if err != nil {
			return nil, errors.NewSchemaMismatchError(c, "", err.Error())
		}
		X.SetCol(j, values)
	}
	return X, nil
}

func categoricalBlock(ds *dataset.Dataset, columns []string) ([][]string, error) {
	cols := make([][]string, len(columns))
	for j, c := range columns {
		col, ok := ds.Column(c)
		if !ok {
			return nil, errors.NewSchemaMismatchError(c, "", "column not found")
		}
		cols[j] = col
	}
	return cols, nil
}
