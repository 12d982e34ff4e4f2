// Package sqlstore implements storage.Driver over database/sql. Queries are
// built with ent's dialect-aware SQL builder so the same store serves SQLite
// and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/judgebench/pkg/aggregator"
	"github.com/papercomputeco/judgebench/pkg/storage"
)

const runsTable = "runs"

// schema is valid for both SQLite and PostgreSQL. Timestamps are Unix
// nanoseconds; summary and results are JSON documents.
const schema = `CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	created_at BIGINT NOT NULL,
	started_at BIGINT,
	completed_at BIGINT,
	target_model TEXT NOT NULL DEFAULT '',
	judge_model TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	summary TEXT,
	results TEXT
)`

const createdAtIndex = `CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at)`

var listColumns = []string{
	"id", "status", "created_at", "started_at", "completed_at",
	"target_model", "judge_model", "error", "summary",
}

var allColumns = append(append([]string{}, listColumns...), "results")

// Store is a storage.Driver backed by a *sql.DB.
type Store struct {
	DB      *sql.DB
	dialect string
}

// New wraps db and creates the schema. dialectName is one of ent's
// dialect.SQLite or dialect.Postgres.
func New(ctx context.Context, db *sql.DB, dialectName string) (*Store, error) {
	switch dialectName {
	case dialect.SQLite, dialect.Postgres:
	default:
		return nil, fmt.Errorf("unsupported dialect: %q", dialectName)
	}

	for _, stmt := range []string{schema, createdAtIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Store{DB: db, dialect: dialectName}, nil
}

func (s *Store) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

// Put inserts the run or replaces the stored one.
func (s *Store) Put(ctx context.Context, run *storage.Run) error {
	if err := run.Validate(); err != nil {
		return err
	}

	summary, err := encodeJSON(run.Summary, run.Summary == nil)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	results, err := encodeJSON(run.Results, run.Results == nil)
	if err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}

	query, args := s.builder().
		Insert(runsTable).
		Columns(allColumns...).
		Values(
			run.ID,
			string(run.Status),
			run.CreatedAt.UnixNano(),
			unixNano(run.StartedAt),
			unixNano(run.CompletedAt),
			run.TargetModel,
			run.JudgeModel,
			run.Error,
			summary,
			results,
		).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("storing run %s: %w", run.ID, err)
	}
	return nil
}

// Get retrieves a run by its ID.
func (s *Store) Get(ctx context.Context, id string) (*storage.Run, error) {
	query, args := s.builder().
		Select(allColumns...).
		From(entsql.Table(runsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	row := s.DB.QueryRowContext(ctx, query, args...)

	var results sql.NullString
	run, err := scanRun(row, &results)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}

	if results.Valid {
		var entries []aggregator.Entry
		if err := json.Unmarshal([]byte(results.String), &entries); err != nil {
			return nil, fmt.Errorf("decoding results of run %s: %w", id, err)
		}
		run.Results = entries
	}

	return run, nil
}

// List returns runs newest first, without results.
func (s *Store) List(ctx context.Context, limit int) ([]*storage.Run, error) {
	selector := s.builder().
		Select(listColumns...).
		From(entsql.Table(runsTable)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if limit > 0 {
		selector.Limit(limit)
	}
	query, args := selector.Query()

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*storage.Run
	for rows.Next() {
		run, err := scanRun(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

// Delete removes a run.
func (s *Store) Delete(ctx context.Context, id string) error {
	query, args := s.builder().
		Delete(runsTable).
		Where(entsql.EQ("id", id)).
		Query()

	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	if n == 0 {
		return storage.NotFoundError{ID: id}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRun reads the list columns and, when results is non-nil, the results
// column after them.
func scanRun(sc scanner, results *sql.NullString) (*storage.Run, error) {
	var (
		run         storage.Run
		status      string
		createdAt   int64
		startedAt   sql.NullInt64
		completedAt sql.NullInt64
		summary     sql.NullString
	)

	dest := []any{
		&run.ID, &status, &createdAt, &startedAt, &completedAt,
		&run.TargetModel, &run.JudgeModel, &run.Error, &summary,
	}
	if results != nil {
		dest = append(dest, results)
	}

	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}

	run.Status = storage.Status(status)
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	run.StartedAt = fromUnixNano(startedAt)
	run.CompletedAt = fromUnixNano(completedAt)

	if summary.Valid {
		run.Summary = &aggregator.Summary{}
		if err := json.Unmarshal([]byte(summary.String), run.Summary); err != nil {
			return nil, fmt.Errorf("decoding summary of run %s: %w", run.ID, err)
		}
	}

	return &run, nil
}

func encodeJSON(v any, isNil bool) (sql.NullString, error) {
	if isNil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func unixNano(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromUnixNano(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}
