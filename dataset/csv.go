package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/mlpipe/pkg/errors"
)

// DefaultComma is the field delimiter used when none is configured.
const DefaultComma = ','

// ReadFile reads a delimited file with a header row. When the first header
// cell is empty the column is taken as the row index written by WriteTo.
func ReadFile(path string, comma rune) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	ds, err := Read(f, comma)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return ds, nil
}

// Read parses delimited data with a header row from r.
func Read(r io.Reader, comma rune) (*Dataset, error) {
	if comma == 0 {
		comma = DefaultComma
	}
	cr := csv.NewReader(r)
	cr.Comma = comma

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "parse header")
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse records")
	}

	if len(header) > 1 && header[0] == "" {
		index := make([]int, len(records))
		rows := make([][]string, len(records))
		for i, rec := range records {
			idx, err := strconv.Atoi(strings.TrimSpace(rec[0]))
			if err != nil {
				return nil, errors.Wrapf(err, "row %d: invalid row index %q", i+1, rec[0])
			}
			index[i] = idx
			rows[i] = rec[1:]
		}
		return newWithIndex(header[1:], rows, index)
	}
	return New(header, records)
}

// WriteOptions controls WriteTo.
type WriteOptions struct {
	Comma rune
	// Index prepends the original row index under an empty header.
	Index bool
}

// WriteTo writes the Dataset as delimited text. Cells are written exactly as
// held, so reading and writing a file is lossless.
func (d *Dataset) WriteTo(w io.Writer, opts WriteOptions) error {
	cw := csv.NewWriter(w)
	if opts.Comma != 0 {
		cw.Comma = opts.Comma
	}

	header := d.columns
	if opts.Index {
		header = append([]string{""}, d.columns...)
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}

	record := make([]string, len(header))
	for i, r := range d.rows {
		if opts.Index {
			record[0] = strconv.Itoa(d.index[i])
			copy(record[1:], r)
		} else {
			copy(record, r)
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}
