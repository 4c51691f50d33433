package pg

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"stordesk.org/internal/journal"
)

// Store writes journal entries to Postgres.
type Store struct {
	db *sql.DB
}

var _ journal.Recorder = (*Store)(nil)

// Open connects using the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection pool.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Record inserts one entry. Inserts only; nothing here updates or deletes.
func (s *Store) Record(ctx context.Context, e journal.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		insert into provision_requests(id, user_name, requested_quota_gb, created_at)
		values ($1, $2, $3, $4)
	`, e.ID, e.UserName, quotaArg(e.RequestedQuotaGB), e.CreatedAt.UTC())
	return err
}

func quotaArg(gb *float64) any {
	if gb == nil {
		return nil
	}
	return *gb
}
