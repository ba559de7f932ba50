package store

import (
	"context"
	"errors"

	"github.com/dealmungchi/dealhound/internal/deal"
)

// ErrNotPending is returned when a status update targets a record that
// is missing or already terminal. Status never regresses.
var ErrNotPending = errors.New("scan record is not pending")

// ScanStore persists collection attempts and their processing status.
type ScanStore interface {
	// InsertScan inserts a new scan record.
	InsertScan(ctx context.Context, rec *deal.ScanRecord) error

	// PendingScans returns all records still waiting for the bridge.
	PendingScans(ctx context.Context) ([]deal.ScanRecord, error)

	// MarkScan transitions a pending record to a terminal status.
	// Returns ErrNotPending if the record was already terminal.
	MarkScan(ctx context.Context, id string, status deal.ScanStatus) error
}

// DealStore is the append-only store for scored deals.
type DealStore interface {
	InsertDeal(ctx context.Context, d *deal.Deal) error
}
