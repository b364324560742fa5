package dataset

import (
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
)

// Schema declares which columns are numeric features, which are categorical
// features and which one is the target.
type Schema struct {
	Numeric     []string `yaml:"numeric"`
	Categorical []string `yaml:"categorical"`
	Target      string   `yaml:"target"`
}

// Validate checks that every column belongs to exactly one role.
func (s Schema) Validate() error {
	if s.Target == "" {
		return errors.NewValidationError("schema.target", "must not be empty", s.Target)
	}
	if len(s.Numeric)+len(s.Categorical) == 0 {
		return errors.NewValidationError("schema", "at least one feature column is required", nil)
	}
	seen := map[string]string{s.Target: "target"}
	check := func(role string, cols []string) error {
		for _, c := range cols {
			if c == "" {
				return errors.NewValidationError("schema."+role, "column name must not be empty", c)
			}
			if prev, dup := seen[c]; dup {
				return errors.NewValidationError("schema."+role, "column already declared as "+prev, c)
			}
			seen[c] = role
		}
		return nil
	}
	if err := check("numeric", s.Numeric); err != nil {
		return err
	}
	return check("categorical", s.Categorical)
}

// Features returns numeric then categorical column names.
func (s Schema) Features() []string {
	out := make([]string, 0, len(s.Numeric)+len(s.Categorical))
	out = append(out, s.Numeric...)
	return append(out, s.Categorical...)
}

// Check verifies that every declared column exists in ds. name labels the
// dataset in the returned SchemaMismatchError.
func (s Schema) Check(ds *Dataset, name string) error {
	for _, c := range append(s.Features(), s.Target) {
		if !ds.HasColumn(c) {
			return errors.NewSchemaMismatchError(c, name, "column not found")
		}
	}
	return nil
}
