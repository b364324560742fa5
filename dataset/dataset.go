// Package dataset holds tabular data as named string columns and provides
// delimited-file I/O and the seeded train/test split.
package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/mlpipe/pkg/errors"
)

// missingMarkers are the cell values treated as missing.
var missingMarkers = map[string]struct{}{
	"":     {},
	"NA":   {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"N/A":  {},
	"None": {},
}

// IsMissing reports whether a cell holds a missing marker.
func IsMissing(cell string) bool {
	_, ok := missingMarkers[strings.TrimSpace(cell)]
	return ok
}

// Dataset is an ordered collection of equally long named columns. Cells are
// kept as strings and parsed on demand. Each row carries its original row
// index, which survives splitting.
type Dataset struct {
	columns []string
	lookup  map[string]int
	rows    [][]string
	index   []int
}

// New builds a Dataset from a header and row-major cells. Row indexes are
// assigned 0..n-1.
func New(columns []string, rows [][]string) (*Dataset, error) {
	index := make([]int, len(rows))
	for i := range index {
		index[i] = i
	}
	return newWithIndex(columns, rows, index)
}

func newWithIndex(columns []string, rows [][]string, index []int) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, errors.NewValueError("dataset.New", "header has no columns")
	}
	lookup := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := lookup[c]; dup {
			return nil, errors.NewValueError("dataset.New", "duplicate column "+strconv.Quote(c))
		}
		lookup[c] = i
	}
	for _, r := range rows {
		if len(r) != len(columns) {
			return nil, errors.NewDimensionError("dataset.New", len(columns), len(r), 1)
		}
	}
	return &Dataset{
		columns: append([]string(nil), columns...),
		lookup:  lookup,
		rows:    rows,
		index:   index,
	}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Columns returns the column names in order.
func (d *Dataset) Columns() []string { return append([]string(nil), d.columns...) }

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.lookup[name]
	return ok
}

// Index returns the original row index of every row.
func (d *Dataset) Index() []int { return append([]int(nil), d.index...) }

// Row returns the cells of row i.
func (d *Dataset) Row(i int) []string { return d.rows[i] }

// Column returns a copy of the named column.
func (d *Dataset) Column(name string) ([]string, bool) {
	j, ok := d.lookup[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[j]
	}
	return out, true
}

// Float64Column parses the named column as numbers. Missing markers become
// NaN. A cell that is neither missing nor numeric is reported through
// *ParseError.
func (d *Dataset) Float64Column(name string) ([]float64, error) {
	cells, ok := d.Column(name)
	if !ok {
		return nil, errors.Newf("column %q not found", name)
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		if IsMissing(c) {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return nil, errors.WithStack(&ParseError{Column: name, Row: d.index[i], Value: c})
		}
		out[i] = v
	}
	return out, nil
}

// Subset returns the rows at the given positions, in that order, keeping
// their original row indexes.
func (d *Dataset) Subset(positions []int) *Dataset {
	rows := make([][]string, len(positions))
	index := make([]int, len(positions))
	for k, p := range positions {
		rows[k] = d.rows[p]
		index[k] = d.index[p]
	}
	return &Dataset{columns: d.columns, lookup: d.lookup, rows: rows, index: index}
}

// ParseError reports a cell that cannot be read as a number.
type ParseError struct {
	Column string
	Row    int
	Value  string
}

func (e *ParseError) Error() string {
	return "non-numeric value " + strconv.Quote(e.Value) + " in column " + strconv.Quote(e.Column) + " at row " + strconv.Itoa(e.Row)
}
