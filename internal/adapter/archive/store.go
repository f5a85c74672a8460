// Package archive keeps cleaned observations in a local SQLite database so
// repeat analyses do not re-download or re-clean the same ranges.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/okmeso/okmeso/internal/domain"
	"github.com/okmeso/okmeso/internal/observability"
)

const schema = `
CREATE TABLE IF NOT EXISTS observations (
	stid        TEXT NOT NULL,
	observed_at TEXT NOT NULL,
	variable    TEXT NOT NULL,
	value       REAL NOT NULL,
	PRIMARY KEY (stid, observed_at, variable)
);
CREATE INDEX IF NOT EXISTS observations_time ON observations (observed_at);
`

const upsertSQL = `
INSERT INTO observations (stid, observed_at, variable, value)
VALUES (?, ?, ?, ?)
ON CONFLICT (stid, observed_at, variable) DO UPDATE SET value = excluded.value;
`

const rangeSQL = `
SELECT observed_at, variable, value FROM observations
WHERE stid = ? AND observed_at >= ? AND observed_at < ?
ORDER BY observed_at, variable;
`

// Store is a SQLite-backed archive of cleaned observations in long form:
// one row per station, timestamp, and variable.
type Store struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// Open creates or opens the archive at path and ensures the schema exists.
func Open(path string, metrics *observability.Metrics) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}
	// busy_timeout and WAL keep concurrent exports from tripping over
	// "database is locked".
	dsn := fmt.Sprintf("file:%s?%s", path, strings.Join([]string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}, "&"))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}
	return &Store{db: db, metrics: metrics}, nil
}

// SaveTable upserts every non-missing cell of the table in one transaction.
func (s *Store) SaveTable(ctx context.Context, t *domain.Table) error {
	observations := t.Observations()
	if len(observations) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare archive upsert: %w", err)
	}
	defer stmt.Close()

	cells := 0
	for _, obs := range observations {
		ts := obs.Time.UTC().Format(time.RFC3339)
		for name, v := range obs.Values {
			if _, err := stmt.ExecContext(ctx, obs.STID, ts, name, v); err != nil {
				return fmt.Errorf("archive %s %s %s: %w", obs.STID, ts, name, err)
			}
			cells++
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive transaction: %w", err)
	}
	s.metrics.ExportedRows.WithLabelValues("sqlite").Add(float64(len(observations)))
	return nil
}

// SaveSet archives every table in the set.
func (s *Store) SaveSet(ctx context.Context, set domain.TableSet) error {
	for stid, t := range set {
		if err := s.SaveTable(ctx, t); err != nil {
			return fmt.Errorf("station %s: %w", stid, err)
		}
	}
	return nil
}

// Range reads the archived observations for one station over [start, end)
// back into a table. Variables become columns in first-seen order.
func (s *Store) Range(ctx context.Context, stid string, start, end time.Time) (*domain.Table, error) {
	rows, err := s.db.QueryContext(ctx, rangeSQL,
		strings.ToUpper(stid),
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	type cell struct {
		variable string
		value    float64
	}
	var times []time.Time
	byTime := make(map[time.Time][]cell)
	var variables []string
	seenVar := make(map[string]bool)

	for rows.Next() {
		var tsStr, variable string
		var value float64
		if err := rows.Scan(&tsStr, &variable, &value); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, tsStr)
		if err != nil {
			return nil, fmt.Errorf("parse archived timestamp %q: %w", tsStr, err)
		}
		ts = ts.UTC()
		if _, ok := byTime[ts]; !ok {
			times = append(times, ts)
		}
		byTime[ts] = append(byTime[ts], cell{variable, value})
		if !seenVar[variable] {
			seenVar[variable] = true
			variables = append(variables, variable)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read archive rows: %w", err)
	}

	t := domain.NewTable(strings.ToUpper(stid))
	t.Times = times
	for _, variable := range variables {
		vals := nanValues(len(times))
		for i, ts := range times {
			for _, c := range byTime[ts] {
				if c.variable == variable {
					vals[i] = c.value
				}
			}
		}
		if err := t.SetColumn(variable, vals); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func nanValues(n int) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = math.NaN()
	}
	return vals
}

func (s *Store) Close() error {
	return s.db.Close()
}
