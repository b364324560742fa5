// Package registry records pipeline runs and their candidate scores in SQLite.
package registry

import (
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/mlpipe/pkg/errors"
	"github.com/YuminosukeSato/mlpipe/report"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	source     TEXT NOT NULL,
	best_model TEXT NOT NULL,
	best_score REAL,
	model_path TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS scores (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	position INTEGER NOT NULL,
	rank     INTEGER NOT NULL,
	model    TEXT NOT NULL,
	score    REAL,
	PRIMARY KEY (run_id, position)
);`

// Run is one recorded pipeline execution.
type Run struct {
	ID        string
	StartedAt time.Time
	Source    string
	BestModel string
	BestScore float64
	ModelPath string
}

// Registry is a SQLite-backed run history.
type Registry struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.NewPersistenceError(path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewPersistenceError(path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.NewPersistenceError(path, err)
	}
	return &Registry{db: db, path: path}, nil
}

// Record stores run and its per-candidate scores in one transaction and
// returns the run id. ranking lists the entries best first, as returned by
// report.Report.Ranking. An id is generated when run.ID is empty.
func (r *Registry) Record(run Run, ranking []report.Entry) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return "", errors.NewPersistenceError(r.path, err)
	}

	_, err = tx.Exec(
		"INSERT INTO runs (id, started_at, source, best_model, best_score, model_path) VALUES (?, ?, ?, ?, ?, ?)",
		run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Source, run.BestModel, nullable(run.BestScore), run.ModelPath,
	)
	if err != nil {
		_ = tx.Rollback()
		return "", errors.NewPersistenceError(r.path, err)
	}

	stmt, err := tx.Prepare("INSERT INTO scores (run_id, position, rank, model, score) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return "", errors.NewPersistenceError(r.path, err)
	}
	defer stmt.Close()

	for i, e := range ranking {
		if _, err := stmt.Exec(run.ID, e.Order, i+1, e.Name, nullable(e.Score)); err != nil {
			_ = tx.Rollback()
			return "", errors.NewPersistenceError(r.path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errors.NewPersistenceError(r.path, err)
	}
	return run.ID, nil
}

// Runs returns every recorded run, oldest first.
func (r *Registry) Runs() ([]Run, error) {
	rows, err := r.db.Query("SELECT id, started_at, source, best_model, best_score, model_path FROM runs ORDER BY started_at ASC, rowid ASC")
	if err != nil {
		return nil, errors.NewPersistenceError(r.path, err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			started string
			score   sql.NullFloat64
		)
		if err := rows.Scan(&run.ID, &started, &run.Source, &run.BestModel, &score, &run.ModelPath); err != nil {
			return nil, errors.NewPersistenceError(r.path, err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, errors.NewPersistenceError(r.path, err)
		}
		run.BestScore = fromNullable(score)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceError(r.path, err)
	}
	return runs, nil
}

// Scores returns the candidate scores of a run in candidate order.
func (r *Registry) Scores(runID string) ([]report.Entry, error) {
	return r.scores("SELECT position, model, score FROM scores WHERE run_id = ? ORDER BY position ASC", runID)
}

// Leaderboard returns the candidate scores of a run best first.
func (r *Registry) Leaderboard(runID string) ([]report.Entry, error) {
	return r.scores("SELECT position, model, score FROM scores WHERE run_id = ? ORDER BY rank ASC", runID)
}

func (r *Registry) scores(query, runID string) ([]report.Entry, error) {
	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, errors.NewPersistenceError(r.path, err)
	}
	defer rows.Close()

	var entries []report.Entry
	for rows.Next() {
		var (
			e     report.Entry
			score sql.NullFloat64
		)
		if err := rows.Scan(&e.Order, &e.Name, &score); err != nil {
			return nil, errors.NewPersistenceError(r.path, err)
		}
		e.Score = fromNullable(score)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceError(r.path, err)
	}
	return entries, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// NaN is stored as NULL.
func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
