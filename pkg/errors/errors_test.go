package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestStageErrors_Detail(t *testing.T) {
	cause := fmt.Errorf("open data/stud.csv: no such file or directory")

	tests := []struct {
		name     string
		err      error
		wantKind string
		wantMsg  string
	}{
		{
			name:     "data load",
			err:      NewDataLoadError("data/stud.csv", cause),
			wantKind: "DataLoadError",
			wantMsg:  "cannot load data from 'data/stud.csv'",
		},
		{
			name:     "schema mismatch",
			err:      NewSchemaMismatchError("math_score", "train", "column not found"),
			wantKind: "SchemaMismatchError",
			wantMsg:  "schema mismatch for column 'math_score' in train dataset: column not found",
		},
		{
			name:     "persistence",
			err:      NewPersistenceError("artifacts/model.gob", cause),
			wantKind: "PersistenceError",
			wantMsg:  "cannot persist artifact 'artifacts/model.gob'",
		},
		{
			name:     "no viable model",
			err:      NewNoViableModelError(8, -1),
			wantKind: "NoViableModelError",
			wantMsg:  "none of 8 candidates scored above -1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail := Detail(tt.err)
			wantPrefix := fmt.Sprintf("Error: %s occurred in 'errors_test.go' on line ", tt.wantKind)
			if !strings.HasPrefix(detail, wantPrefix) {
				t.Errorf("Detail() = %q, want prefix %q", detail, wantPrefix)
			}
			if !strings.Contains(detail, "\nError message: ") {
				t.Errorf("Detail() missing message line: %q", detail)
			}
			if !strings.Contains(detail, tt.wantMsg) {
				t.Errorf("Detail() = %q, want it to contain %q", detail, tt.wantMsg)
			}
		})
	}
}

func TestStageErrors_LocationSurvivesWrapping(t *testing.T) {
	err := Wrap(NewSchemaMismatchError("gender", "test", "column not found"), "transform")

	var schemaErr *SchemaMismatchError
	if !As(err, &schemaErr) {
		t.Fatal("wrapped error should still be a *SchemaMismatchError")
	}
	if schemaErr.File != "errors_test.go" || schemaErr.Line == 0 {
		t.Errorf("location = %s:%d", schemaErr.File, schemaErr.Line)
	}
	if !strings.HasPrefix(Detail(err), "Error: SchemaMismatchError") {
		t.Errorf("Detail() = %q", Detail(err))
	}
}

func TestStageErrors_Unwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")

	if !Is(NewPersistenceError("a.gob", cause), cause) {
		t.Error("PersistenceError should unwrap to its cause")
	}
	if !Is(NewDataLoadError("a.csv", cause), cause) {
		t.Error("DataLoadError should unwrap to its cause")
	}
}

func TestDetail_PlainError(t *testing.T) {
	if Detail(nil) != "" {
		t.Error("Detail(nil) should be empty")
	}
	detail := Detail(New("boom"))
	if !strings.Contains(detail, "occurred in 'unknown' on line 0") {
		t.Errorf("Detail() = %q", detail)
	}
	if !strings.HasSuffix(detail, "Error message: boom") {
		t.Errorf("Detail() = %q", detail)
	}
}

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "mlpipe: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "mlpipe: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if formatted := fmt.Sprintf("%+v", err); !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestEstimatorErrors_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not fitted", NewNotFittedError("StandardScaler", "Transform"), "mlpipe: StandardScaler: this model is not fitted yet. Call Fit() before using Transform()"},
		{"dimension", NewDimensionError("Predict", 3, 2, 1), "mlpipe: Predict: dimension mismatch on axis 1 (features). Expected 3, got 2"},
		{"validation", NewValidationError("test_size", "must be in (0, 1)", 1.5), "mlpipe: validation failed for parameter 'test_size': must be in (0, 1) (got: 1.5)"},
		{"value", NewValueError("TrainTestSplit", "too few rows"), "mlpipe: TrainTestSplit: too few rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	err := &NoViableModelError{Candidates: 8, Sentinel: -1}
	logger.Error().Object("detail", err).Msg("selection failed")

	var entry map[string]interface{}
	if jerr := json.Unmarshal(buf.Bytes(), &entry); jerr != nil {
		t.Fatalf("invalid JSON: %v", jerr)
	}
	detail, ok := entry["detail"].(map[string]interface{})
	if !ok {
		t.Fatalf("detail missing: %v", entry)
	}
	if detail["type"] != "NoViableModelError" {
		t.Errorf("type = %v", detail["type"])
	}
	if detail["candidates"] != float64(8) {
		t.Errorf("candidates = %v", detail["candidates"])
	}
}
