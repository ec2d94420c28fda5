package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/kinshuk1456/summit-checkin-app/internal/domain"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS checkins (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ts_utc    TEXT NOT NULL,
	name      TEXT NOT NULL,
	email     TEXT NOT NULL,
	attending TEXT NOT NULL CHECK (attending IN ('Yes', 'No')),
	room      TEXT NOT NULL,
	session   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkins_email ON checkins (email);
CREATE INDEX IF NOT EXISTS idx_checkins_room_session ON checkins (room, session);
`

// SQLiteCheckins stores the ledger in a single SQLite file. Reset
// removes the file itself, so the handle is guarded: readers share it,
// Reset swaps it.
type SQLiteCheckins struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

var _ CheckinsRepo = (*SQLiteCheckins)(nil)

// NewSQLiteCheckins opens (or creates) the ledger file at path and
// ensures the schema.
func NewSQLiteCheckins(path string) (*SQLiteCheckins, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteCheckins{db: db, path: path}, nil
}

func openSQLite(path string) (*sql.DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection sidesteps SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return db, nil
}

func (r *SQLiteCheckins) Record(ctx context.Context, ev domain.CheckinEvent) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ev.Email = domain.NormalizeEmail(ev.Email)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin checkin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM checkins WHERE email = ?`,
		ev.Email,
	)
	if err != nil {
		return false, fmt.Errorf("delete previous checkin: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("count removed checkins: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkins (ts_utc, name, email, attending, room, session)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.TsUTC, ev.Name, ev.Email, ev.Attending, ev.Room, ev.Session,
	)
	if err != nil {
		return false, fmt.Errorf("insert checkin: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit checkin: %w", err)
	}
	return removed > 0, nil
}

func (r *SQLiteCheckins) ReadAll(ctx context.Context) ([]domain.CheckinEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ts_utc, name, email, attending, room, session
		 FROM checkins ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("read checkins: %w", err)
	}
	defer rows.Close()

	return scanCheckins(rows)
}

// Reset deletes the ledger file and starts over with an empty schema.
// Resetting an already-absent file is not an error.
func (r *SQLiteCheckins) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close ledger before reset: %w", err)
	}
	for _, p := range []string{r.path, r.path + "-wal", r.path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove ledger file %s: %w", p, err)
		}
	}

	db, err := openSQLite(r.path)
	if err != nil {
		return fmt.Errorf("recreate ledger: %w", err)
	}
	r.db = db
	return nil
}

func (r *SQLiteCheckins) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Close()
}

func scanCheckins(rows *sql.Rows) ([]domain.CheckinEvent, error) {
	var events []domain.CheckinEvent
	for rows.Next() {
		var ev domain.CheckinEvent
		if err := rows.Scan(&ev.ID, &ev.TsUTC, &ev.Name, &ev.Email, &ev.Attending, &ev.Room, &ev.Session); err != nil {
			return nil, fmt.Errorf("scan checkin: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkins: %w", err)
	}
	return events, nil
}
