// Package sql provides database-backed jobs using database/sql. Each query
// runs on its own goroutine and completes a job.Future, so a batch of
// queries can be fanned in and consumed in completion order:
//
//	futures := sql.QueryEach(ctx, db, "SELECT count(*) FROM events WHERE shard = ?", scanCount, shards, sql.Args[int])
//	for n, err := range core.All(ctx, core.FromJobs(job.Jobs(futures...))) { ... }
package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lguimbarda/min-fanin/flow/core"
	"github.com/lguimbarda/min-fanin/flow/job"
)

// Scanner is a function that scans the current row into a value.
type Scanner[T any] func(*sql.Rows) (T, error)

// RowScanner is a function that scans a single-row result into a value.
type RowScanner[T any] func(*sql.Row) (T, error)

// QueryRow starts a job that executes a single-row query and scans it.
// sql.ErrNoRows is reported as the job's failure.
func QueryRow[T any](ctx context.Context, db *sql.DB, query string, scan RowScanner[T], args ...any) *job.Future[T] {
	return job.Go(ctx, func(ctx context.Context) (T, error) {
		return scan(db.QueryRowContext(ctx, query, args...))
	})
}

// Query starts a job that executes a query and collects every scanned row.
func Query[T any](ctx context.Context, db *sql.DB, query string, scan Scanner[T], args ...any) *job.Future[[]T] {
	return job.Go(ctx, func(ctx context.Context) ([]T, error) {
		return queryAll(ctx, db, query, scan, args...)
	})
}

func queryAll[T any](ctx context.Context, db *sql.DB, query string, scan Scanner[T], args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(out), err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ExecResult contains the result of an Exec job.
type ExecResult struct {
	LastInsertID int64
	RowsAffected int64
}

// Exec starts a job that executes a statement that returns no rows.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) *job.Future[ExecResult] {
	return job.Go(ctx, func(ctx context.Context) (ExecResult, error) {
		result, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return ExecResult{}, err
		}
		lastID, _ := result.LastInsertId()
		affected, _ := result.RowsAffected()
		return ExecResult{LastInsertID: lastID, RowsAffected: affected}, nil
	})
}

// Transaction starts a job that runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
// Otherwise, it is committed.
func Transaction[T any](ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx *sql.Tx) (T, error)) *job.Future[T] {
	return job.Go(ctx, func(ctx context.Context) (v T, err error) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return v, err
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()

		if v, err = fn(ctx, tx); err != nil {
			return v, err
		}
		return v, tx.Commit()
	})
}

// Args adapts a single value into a query argument list.
func Args[A any](a A) []any { return []any{a} }

// QueryEach runs the same single-row query once per parameter, one job each.
// bind turns a parameter into the query's arguments. The returned futures
// are in parameter order; fan them in to consume them as they complete.
func QueryEach[A, T any](ctx context.Context, db *sql.DB, query string, scan RowScanner[T], params []A, bind func(A) []any) []*job.Future[T] {
	futures := make([]*job.Future[T], len(params))
	for i, p := range params {
		futures[i] = QueryRow(ctx, db, query, scan, bind(p)...)
	}
	return futures
}

// Fan runs the same single-row query once per parameter on a job.Group and
// returns a fan-in stream over the results. Group options bound concurrency
// or cancel the remaining queries after the first failure.
func Fan[A, T any](ctx context.Context, db *sql.DB, query string, scan RowScanner[T], params []A, bind func(A) []any, opts ...job.GroupOption) *core.FanIn[T] {
	g := job.NewGroup[T](ctx, opts...)
	for _, p := range params {
		args := bind(p)
		g.Go(func(ctx context.Context) (T, error) {
			return scan(db.QueryRowContext(ctx, query, args...))
		})
	}
	return g.Stream()
}

// QueryStrings starts a job that scans every row into a slice of strings.
func QueryStrings(ctx context.Context, db *sql.DB, query string, args ...any) *job.Future[[][]string] {
	return Query(ctx, db, query, func(rows *sql.Rows) ([]string, error) {
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		values := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		result := make([]string, len(cols))
		for i, v := range values {
			result[i] = v.String
		}
		return result, nil
	}, args...)
}

// QueryMaps starts a job that scans every row into a map keyed by column name.
func QueryMaps(ctx context.Context, db *sql.DB, query string, args ...any) *job.Future[[]map[string]any] {
	return Query(ctx, db, query, func(rows *sql.Rows) (map[string]any, error) {
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		result := make(map[string]any, len(cols))
		for i, col := range cols {
			result[col] = values[i]
		}
		return result, nil
	}, args...)
}
