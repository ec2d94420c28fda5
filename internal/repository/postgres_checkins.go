package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kinshuk1456/summit-checkin-app/internal/config"
	"github.com/kinshuk1456/summit-checkin-app/internal/domain"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS checkins (
	id        BIGSERIAL PRIMARY KEY,
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

// OpenPostgres connects to the shared event database.
func OpenPostgres(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 25
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 5
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresCheckins stores the ledger in a shared PostgreSQL database,
// for events where several kiosks write to one ledger.
type PostgresCheckins struct {
	db *sql.DB
}

var _ CheckinsRepo = (*PostgresCheckins)(nil)

func NewPostgresCheckins(db *sql.DB) *PostgresCheckins {
	return &PostgresCheckins{db: db}
}

// EnsureSchema creates the checkins table if it does not exist yet.
func (r *PostgresCheckins) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

func (r *PostgresCheckins) Record(ctx context.Context, ev domain.CheckinEvent) (bool, error) {
	ev.Email = domain.NormalizeEmail(ev.Email)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin checkin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM checkins WHERE email = $1`,
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
		 VALUES ($1, $2, $3, $4, $5, $6)`,
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

func (r *PostgresCheckins) ReadAll(ctx context.Context) ([]domain.CheckinEvent, error) {
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

// Reset empties the shared table. Unlike the SQLite backend there is no
// file to delete; truncating and restarting the id sequence gives the
// same fresh-ledger outcome.
func (r *PostgresCheckins) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `TRUNCATE checkins RESTART IDENTITY`); err != nil {
		return fmt.Errorf("truncate checkins: %w", err)
	}
	return nil
}

func (r *PostgresCheckins) Close() error {
	return r.db.Close()
}
