package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/dealmungchi/dealhound/internal/deal"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultPingTimeout     = 5 * time.Second
)

// Postgres implements ScanStore and DealStore on PostgreSQL.
type Postgres struct {
	db *sqlx.DB
}

var (
	_ ScanStore = (*Postgres)(nil)
	_ DealStore = (*Postgres)(nil)
)

// NewPostgres connects to PostgreSQL with connection pooling and
// verifies the connection.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{db: db}, nil
}

// NewPostgresFromDB wraps an existing connection (used by tests).
func NewPostgresFromDB(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the scans and deals tables if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS scans (
			id          UUID PRIMARY KEY,
			target_name TEXT NOT NULL,
			url         TEXT NOT NULL,
			raw_text    TEXT,
			captured_at TIMESTAMPTZ NOT NULL,
			status      TEXT NOT NULL DEFAULT 'pending'
		);
		CREATE INDEX IF NOT EXISTS idx_scans_status ON scans (status);
		CREATE TABLE IF NOT EXISTS deals (
			id              UUID PRIMARY KEY,
			scan_id         UUID NOT NULL REFERENCES scans (id),
			brand           TEXT NOT NULL,
			value_score     DOUBLE PRECISION NOT NULL,
			discount_amount DOUBLE PRECISION NOT NULL,
			duration_months DOUBLE PRECISION NOT NULL,
			monetized_url   TEXT NOT NULL,
			summary         TEXT NOT NULL,
			raw_excerpt     TEXT,
			created_at      TIMESTAMPTZ NOT NULL
		);
	`
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migration: %w", err)
	}
	return nil
}

// InsertScan inserts a new scan record.
func (p *Postgres) InsertScan(ctx context.Context, rec *deal.ScanRecord) error {
	query := `
		INSERT INTO scans (id, target_name, url, raw_text, captured_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := p.db.ExecContext(ctx, query,
		rec.ID, rec.TargetName, rec.URL, rec.RawText, rec.CapturedAt, rec.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}
	return nil
}

// PendingScans returns all records with status pending.
func (p *Postgres) PendingScans(ctx context.Context) ([]deal.ScanRecord, error) {
	query := `
		SELECT id, target_name, url, raw_text, captured_at, status
		FROM scans
		WHERE status = $1
	`
	var records []deal.ScanRecord
	if err := p.db.SelectContext(ctx, &records, query, deal.StatusPending); err != nil {
		return nil, fmt.Errorf("failed to select pending scans: %w", err)
	}
	return records, nil
}

// MarkScan transitions a pending record to a terminal status. The
// pending guard in the WHERE clause is the atomicity boundary: a record
// already marked by another sweep is left untouched.
func (p *Postgres) MarkScan(ctx context.Context, id string, status deal.ScanStatus) error {
	query := `UPDATE scans SET status = $1 WHERE id = $2 AND status = $3`
	res, err := p.db.ExecContext(ctx, query, status, id, deal.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to update scan status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

// InsertDeal appends a deal record. Deals are never updated.
func (p *Postgres) InsertDeal(ctx context.Context, d *deal.Deal) error {
	query := `
		INSERT INTO deals (id, scan_id, brand, value_score, discount_amount,
			duration_months, monetized_url, summary, raw_excerpt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := p.db.ExecContext(ctx, query,
		d.ID, d.ScanID, d.Brand, d.ValueScore, d.DiscountAmount,
		d.DurationMonths, d.MonetizedURL, d.Summary, d.RawExcerpt, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deal: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
