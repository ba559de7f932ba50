package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/dealhound/internal/deal"
	"github.com/dealmungchi/dealhound/services/store"
)

func newMockStore(t *testing.T) (*store.Postgres, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store.NewPostgresFromDB(sqlx.NewDb(db, "postgres")), mock
}

func TestInsertScan(t *testing.T) {
	st, mock := newMockStore(t)

	text := "20% off for 14 days"
	rec := &deal.ScanRecord{
		ID:         uuid.New().String(),
		TargetName: "Shopify",
		URL:        "https://www.shopify.com/pricing",
		RawText:    &text,
		CapturedAt: time.Now(),
		Status:     deal.StatusPending,
	}

	mock.ExpectExec("INSERT INTO scans").
		WithArgs(rec.ID, rec.TargetName, rec.URL, rec.RawText, rec.CapturedAt, rec.Status).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := st.InsertScan(context.Background(), rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingScans(t *testing.T) {
	st, mock := newMockStore(t)

	captured := time.Now()
	rows := sqlmock.NewRows([]string{"id", "target_name", "url", "raw_text", "captured_at", "status"}).
		AddRow("a1", "Shopify", "https://www.shopify.com/pricing", "some text", captured, "pending").
		AddRow("a2", "Adobe", "https://www.adobe.com", nil, captured, "pending")

	mock.ExpectQuery("SELECT id, target_name, url, raw_text, captured_at, status").
		WithArgs(deal.StatusPending).
		WillReturnRows(rows)

	records, err := st.PendingScans(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Shopify", records[0].TargetName)
	require.NotNil(t, records[0].RawText)
	assert.Equal(t, "some text", *records[0].RawText)
	assert.Nil(t, records[1].RawText)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkScan(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("UPDATE scans SET status").
		WithArgs(deal.StatusProcessed, "a1", deal.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := st.MarkScan(context.Background(), "a1", deal.StatusProcessed)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkScanAlreadyTerminal(t *testing.T) {
	st, mock := newMockStore(t)

	// The pending guard matches no row once the record is terminal.
	mock.ExpectExec("UPDATE scans SET status").
		WithArgs(deal.StatusFailed, "a1", deal.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.MarkScan(context.Background(), "a1", deal.StatusFailed)
	assert.ErrorIs(t, err, store.ErrNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDeal(t *testing.T) {
	st, mock := newMockStore(t)

	d := &deal.Deal{
		ID:             uuid.New().String(),
		ScanID:         uuid.New().String(),
		Brand:          "Shopify",
		ValueScore:     280.0,
		DiscountAmount: 20.0,
		DurationMonths: 0.5,
		MonetizedURL:   "https://www.shopify.com/pricing?ref=dealhound_hq",
		Summary:        "20% off for the first 14 days.",
		RawExcerpt:     "20% off",
		CreatedAt:      time.Now(),
	}

	mock.ExpectExec("INSERT INTO deals").
		WithArgs(d.ID, d.ScanID, d.Brand, d.ValueScore, d.DiscountAmount,
			d.DurationMonths, d.MonetizedURL, d.Summary, d.RawExcerpt, d.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := st.InsertDeal(context.Background(), d)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
