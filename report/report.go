// Package report keeps the per-candidate scores of a training run and renders
// them as a chart.
package report

import (
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/mlpipe/artifact"
	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/google/btree"
	"github.com/rs/zerolog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Entry is one candidate's score. Order is the position in which the
// candidate was added.
type Entry struct {
	Name  string
	Score float64
	Order int
}

// Less orders entries by descending score, then by insertion order. NaN
// scores sort last.
func (e Entry) Less(than btree.Item) bool {
	o := than.(Entry)
	switch an, bn := math.IsNaN(e.Score), math.IsNaN(o.Score); {
	case an && bn:
		return e.Order < o.Order
	case an:
		return false
	case bn:
		return true
	}
	if e.Score != o.Score {
		return e.Score > o.Score
	}
	return e.Order < o.Order
}

// Report maps candidate names to R² scores. Each name appears once.
type Report struct {
	entries map[string]Entry
	names   []string
	ranking *btree.BTree
}

// New returns an empty report.
func New() *Report {
	return &Report{
		entries: make(map[string]Entry),
		ranking: btree.New(4),
	}
}

// Add records score for name. Adding an existing name replaces its score but
// keeps its original position.
func (r *Report) Add(name string, score float64) {
	e, ok := r.entries[name]
	if ok {
		r.ranking.Delete(e)
	} else {
		e = Entry{Name: name, Order: len(r.names)}
		r.names = append(r.names, name)
	}
	e.Score = score
	r.entries[name] = e
	r.ranking.ReplaceOrInsert(e)
}

// Score returns the score recorded for name.
func (r *Report) Score(name string) (float64, bool) {
	e, ok := r.entries[name]
	return e.Score, ok
}

// Len returns the number of entries.
func (r *Report) Len() int { return len(r.names) }

// Names returns the candidate names in insertion order.
func (r *Report) Names() []string { return append([]string(nil), r.names...) }

// Entries returns the entries in insertion order.
func (r *Report) Entries() []Entry {
	out := make([]Entry, len(r.names))
	for i, name := range r.names {
		out[i] = r.entries[name]
	}
	return out
}

// Ranking returns the entries from best to worst.
func (r *Report) Ranking() []Entry {
	out := make([]Entry, 0, r.ranking.Len())
	r.ranking.Ascend(func(i btree.Item) bool {
		out = append(out, i.(Entry))
		return true
	})
	return out
}

// Best returns the top-ranked entry when its score is strictly greater than
// sentinel. Equal scores rank by insertion order, so the earliest candidate
// wins a tie.
func (r *Report) Best(sentinel float64) (Entry, bool) {
	top := r.ranking.Min()
	if top == nil {
		return Entry{}, false
	}
	e := top.(Entry)
	if !(e.Score > sentinel) {
		return Entry{}, false
	}
	return e, true
}

// MarshalZerologObject logs the scores keyed by candidate name.
func (r *Report) MarshalZerologObject(event *zerolog.Event) {
	for _, name := range r.names {
		event.Float64(name, r.entries[name].Score)
	}
}

// SaveChart renders the scores as a bar chart in insertion order. The image
// format follows the file extension (png when absent). NaN scores are drawn
// as zero.
func (r *Report) SaveChart(path string) error {
	p := plot.New()
	p.Title.Text = "Model comparison"
	p.Y.Label.Text = "R² score"

	values := make(plotter.Values, len(r.names))
	for i, name := range r.names {
		if s := r.entries[name].Score; !math.IsNaN(s) && !math.IsInf(s, 0) {
			values[i] = s
		}
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "failed to build bar chart")
	}
	p.Add(bars)
	p.NominalX(r.names...)

	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		format = "png"
	}
	wt, err := p.WriterTo(vg.Length(60*len(r.names)+120), 4*vg.Inch, format)
	if err != nil {
		return errors.NewPersistenceError(path, err)
	}
	return artifact.WriteFile(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}
