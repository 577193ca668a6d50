package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hejijunhao/authbayes/internal/model"
	"github.com/hejijunhao/authbayes/internal/snapshot"
)

// Schema for the snapshot store.
const schema = `
CREATE TABLE IF NOT EXISTS windows (
    chunk       INTEGER PRIMARY KEY,
    ns          INTEGER NOT NULL,
    nf          INTEGER NOT NULL,
    saved_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS key_counts (
    chunk       INTEGER NOT NULL REFERENCES windows(chunk) ON DELETE CASCADE,
    result      TEXT NOT NULL,
    key         TEXT NOT NULL,
    count       INTEGER NOT NULL,
    PRIMARY KEY (chunk, result, key)
);

CREATE TABLE IF NOT EXISTS raw_logs (
    chunk       INTEGER PRIMARY KEY,
    saved_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS raw_events (
    chunk       INTEGER NOT NULL REFERENCES raw_logs(chunk) ON DELETE CASCADE,
    result      TEXT NOT NULL,
    seq         INTEGER NOT NULL,
    time        TEXT NOT NULL,
    key         TEXT NOT NULL,
    PRIMARY KEY (chunk, result, seq)
);
`

// Store keeps snapshots in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("snapshot sqlite: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("snapshot sqlite: open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) SaveCounts(ctx context.Context, chunk int, c model.Counts) error {
	const op = "save counts"
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM windows WHERE chunk = ?`, chunk); err != nil {
			return fmt.Errorf("delete window: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO windows (chunk, ns, nf, saved_at) VALUES (?, ?, ?, ?)`,
			chunk, c.Success, c.Fail, time.Now().UnixNano(),
		); err != nil {
			return fmt.Errorf("insert window: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO key_counts (chunk, result, key, count) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, r := range []model.Result{model.Success, model.Fail} {
			_, byKey := c.Of(r)
			for k, n := range byKey {
				if _, err := stmt.ExecContext(ctx, chunk, r.String(), string(k), n); err != nil {
					return fmt.Errorf("insert key count: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}
	return nil
}

func (s *Store) LoadCounts(ctx context.Context, chunk int) (model.Counts, error) {
	const op = "load counts"
	c := model.NewCounts()

	err := s.db.QueryRowContext(ctx,
		`SELECT ns, nf FROM windows WHERE chunk = ?`, chunk,
	).Scan(&c.Success, &c.Fail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Counts{}, &snapshot.Error{Op: op, Chunk: chunk, Err: snapshot.ErrNotFound}
		}
		return model.Counts{}, &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT result, key, count FROM key_counts WHERE chunk = ?`, chunk)
	if err != nil {
		return model.Counts{}, &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var result, key string
		var n int64
		if err := rows.Scan(&result, &key, &n); err != nil {
			return model.Counts{}, &snapshot.Error{Op: op, Chunk: chunk, Err: err}
		}
		var r model.Result
		if err := r.UnmarshalText([]byte(result)); err != nil {
			return model.Counts{}, &snapshot.Error{Op: op, Chunk: chunk, Err: fmt.Errorf("%w: %v", snapshot.ErrCorrupt, err)}
		}
		_, byKey := c.Of(r)
		byKey[model.Key(key)] = n
	}
	if err := rows.Err(); err != nil {
		return model.Counts{}, &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}

	if err := snapshot.CheckCounts(op, chunk, c); err != nil {
		return model.Counts{}, err
	}
	return c, nil
}

func (s *Store) SaveRawLog(ctx context.Context, chunk int, l model.RawLog) error {
	const op = "save rawlog"
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM raw_logs WHERE chunk = ?`, chunk); err != nil {
			return fmt.Errorf("delete raw log: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO raw_logs (chunk, saved_at) VALUES (?, ?)`, chunk, time.Now().UnixNano(),
		); err != nil {
			return fmt.Errorf("insert raw log: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO raw_events (chunk, result, seq, time, key) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, part := range []struct {
			r      model.Result
			events []model.Event
		}{{model.Success, l.Success}, {model.Fail, l.Fail}} {
			for i, e := range part.events {
				if _, err := stmt.ExecContext(ctx, chunk, part.r.String(), i, e.Time, string(e.Key)); err != nil {
					return fmt.Errorf("insert raw event: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}
	return nil
}

func (s *Store) LoadRawLog(ctx context.Context, chunk int) (model.RawLog, error) {
	const op = "load rawlog"

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM raw_logs WHERE chunk = ?`, chunk).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RawLog{}, &snapshot.Error{Op: op, Chunk: chunk, Err: snapshot.ErrNotFound}
		}
		return model.RawLog{}, &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT result, time, key FROM raw_events WHERE chunk = ? ORDER BY result, seq`, chunk)
	if err != nil {
		return model.RawLog{}, &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}
	defer rows.Close()

	var l model.RawLog
	for rows.Next() {
		var result, t, key string
		if err := rows.Scan(&result, &t, &key); err != nil {
			return model.RawLog{}, &snapshot.Error{Op: op, Chunk: chunk, Err: err}
		}
		var r model.Result
		if err := r.UnmarshalText([]byte(result)); err != nil {
			return model.RawLog{}, &snapshot.Error{Op: op, Chunk: chunk, Err: fmt.Errorf("%w: %v", snapshot.ErrCorrupt, err)}
		}
		e := model.Event{Time: t, Key: model.Key(key), Result: r}
		if r == model.Success {
			l.Success = append(l.Success, e)
		} else {
			l.Fail = append(l.Fail, e)
		}
	}
	if err := rows.Err(); err != nil {
		return model.RawLog{}, &snapshot.Error{Op: op, Chunk: chunk, Err: err}
	}
	return l, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
