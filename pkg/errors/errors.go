// Package errors はパイプライン全体のエラーハンドリングを提供します。
// ステージ境界で使われるエラー種別（DataLoadError, SchemaMismatchError, PersistenceError,
// NoViableModelError）と、推定器レベルの構造化エラーを定義します。
package errors

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	発生位置
//
// ===========================================================================

// Location はエラーが生成されたソース上の位置です。
type Location struct {
	File string
	Line int
}

func (l Location) where() Location { return l }

// locate はコンストラクタの呼び出し元の位置を返します。
func locate() Location {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return Location{File: "unknown"}
	}
	return Location{File: filepath.Base(file), Line: line}
}

// kinded はDetailで整形可能なステージエラーが満たすインターフェースです。
type kinded interface {
	error
	Kind() string
	where() Location
}

// ===========================================================================
//
//	ステージ境界のエラー種別
//
// ===========================================================================

// DataLoadError はデータソースが読めない、またはパースできない場合のエラーです。
type DataLoadError struct {
	Location
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("mlpipe: cannot load data from '%s': %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// Kind returns the error kind name.
func (e *DataLoadError) Kind() string { return "DataLoadError" }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DataLoadError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("source", e.Source).
		Str("file", e.File).
		Int("line", e.Line).
		Str("type", e.Kind())
}

// NewDataLoadError は新しいDataLoadErrorを作成し、スタックトレースを付与します。
func NewDataLoadError(source string, err error) error {
	return errors.WithStack(&DataLoadError{Location: locate(), Source: source, Err: err})
}

// SchemaMismatchError は宣言された列が存在しない、または型が一致しない場合のエラーです。
type SchemaMismatchError struct {
	Location
	Column  string
	Dataset string
	Reason  string
}

func (e *SchemaMismatchError) Error() string {
	if e.Dataset != "" {
		return fmt.Sprintf("mlpipe: schema mismatch for column '%s' in %s dataset: %s", e.Column, e.Dataset, e.Reason)
	}
	return fmt.Sprintf("mlpipe: schema mismatch for column '%s': %s", e.Column, e.Reason)
}

// Kind returns the error kind name.
func (e *SchemaMismatchError) Kind() string { return "SchemaMismatchError" }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SchemaMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Str("dataset", e.Dataset).
		Str("reason", e.Reason).
		Str("type", e.Kind())
}

// NewSchemaMismatchError は新しいSchemaMismatchErrorを作成し、スタックトレースを付与します。
func NewSchemaMismatchError(column, dataset, reason string) error {
	return errors.WithStack(&SchemaMismatchError{Location: locate(), Column: column, Dataset: dataset, Reason: reason})
}

// PersistenceError は成果物を書き込めない（または読み戻せない）場合のエラーです。
type PersistenceError struct {
	Location
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("mlpipe: cannot persist artifact '%s': %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Kind returns the error kind name.
func (e *PersistenceError) Kind() string { return "PersistenceError" }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PersistenceError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("path", e.Path).
		Str("file", e.File).
		Int("line", e.Line).
		Str("type", e.Kind())
}

// NewPersistenceError は新しいPersistenceErrorを作成し、スタックトレースを付与します。
func NewPersistenceError(path string, err error) error {
	return errors.WithStack(&PersistenceError{Location: locate(), Path: path, Err: err})
}

// NoViableModelError はどの候補モデルも閾値を超えるスコアを出せなかった場合のエラーです。
type NoViableModelError struct {
	Location
	Candidates int
	Sentinel   float64
}

func (e *NoViableModelError) Error() string {
	return fmt.Sprintf("mlpipe: no best model found: none of %d candidates scored above %g", e.Candidates, e.Sentinel)
}

// Kind returns the error kind name.
func (e *NoViableModelError) Kind() string { return "NoViableModelError" }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NoViableModelError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("candidates", e.Candidates).
		Float64("sentinel", e.Sentinel).
		Str("type", e.Kind())
}

// NewNoViableModelError は新しいNoViableModelErrorを作成し、スタックトレースを付与します。
func NewNoViableModelError(candidates int, sentinel float64) error {
	return errors.WithStack(&NoViableModelError{Location: locate(), Candidates: candidates, Sentinel: sentinel})
}

// Detail はエラーを「種別・発生ファイル・行・メッセージ」の形式に整形します。
// ステージエラーを含まないエラーの場合、位置は unknown になります。
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var k kinded
	if errors.As(err, &k) {
		loc := k.where()
		return fmt.Sprintf("Error: %s occurred in '%s' on line %d.\nError message: %s", k.Kind(), loc.File, loc.Line, err.Error())
	}
	return fmt.Sprintf("Error: %T occurred in 'unknown' on line 0.\nError message: %s", errors.UnwrapAll(err), err.Error())
}

// ===========================================================================
//
//	推定器レベルの構造化エラー
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` や `Transform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("mlpipe: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("mlpipe: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError は設定値やパラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("mlpipe: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("mlpipe: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mlpipe: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("mlpipe: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は行列分解に失敗した場合のエラーです。
	ErrSingularMatrix = New("singular matrix")
)
