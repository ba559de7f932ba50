package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/dealhound/internal/deal"
)

// memScanStore is an in-memory ScanStore for collector tests.
type memScanStore struct {
	mu      sync.Mutex
	records []deal.ScanRecord
	failAll bool
}

func (m *memScanStore) InsertScan(_ context.Context, rec *deal.ScanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errors.New("insert failed")
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *memScanStore) PendingScans(context.Context) ([]deal.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]deal.ScanRecord(nil), m.records...), nil
}

func (m *memScanStore) MarkScan(context.Context, string, deal.ScanStatus) error {
	return nil
}

// fakeCache is a map-backed CacheService.
type fakeCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string][]byte)}
}

func (f *fakeCache) Get(key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (f *fakeCache) Set(key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[key] = value
	return nil
}

func (f *fakeCache) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, key)
	return nil
}

const dealPage = `<html><head><style>.x{}</style></head>
<body><h1>Shopify</h1><p>Get 20% off your first 14 days!</p>
<script>track();</script></body></html>`

func TestRunCollectsPendingRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(dealPage))
	}))
	defer server.Close()

	st := &memScanStore{}
	c := New([]deal.Target{{Name: "Shopify", URL: server.URL}}, st, nil, 5*time.Second, 0)

	records := c.Run(context.Background())
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Shopify", rec.TargetName)
	assert.Equal(t, deal.StatusPending, rec.Status)
	require.NotNil(t, rec.RawText)
	assert.Contains(t, *rec.RawText, "20% off")
	// Script and style content never reaches the raw text.
	assert.NotContains(t, *rec.RawText, "track()")

	require.Len(t, st.records, 1)
	assert.Equal(t, rec.ID, st.records[0].ID)
}

func TestRunFetchFailureRecordsNullText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	st := &memScanStore{}
	c := New([]deal.Target{{Name: "Broken", URL: server.URL}}, st, nil, 5*time.Second, 0)

	records := c.Run(context.Background())
	require.Len(t, records, 1)
	assert.Nil(t, records[0].RawText)
	assert.Equal(t, deal.StatusPending, records[0].Status)
}

func TestRunFansOutAllTargets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dealPage))
	}))
	defer server.Close()

	targets := []deal.Target{
		{Name: "A", URL: server.URL},
		{Name: "B", URL: server.URL},
		{Name: "C", URL: server.URL},
	}
	st := &memScanStore{}
	c := New(targets, st, nil, 5*time.Second, 0)

	records := c.Run(context.Background())
	assert.Len(t, records, 3)
}

func TestRunCooldownSkipsSecondPass(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dealPage))
	}))
	defer server.Close()

	st := &memScanStore{}
	c := New([]deal.Target{{Name: "Shopify", URL: server.URL}}, st, newFakeCache(), 5*time.Second, time.Minute)

	first := c.Run(context.Background())
	require.Len(t, first, 1)

	second := c.Run(context.Background())
	assert.Empty(t, second)
	assert.Len(t, st.records, 1)
}

func TestRunInvokesScanHandler(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dealPage))
	}))
	defer server.Close()

	st := &memScanStore{}
	c := New([]deal.Target{{Name: "Shopify", URL: server.URL}}, st, nil, 5*time.Second, 0)

	var (
		mu      sync.Mutex
		handled []deal.ScanRecord
	)
	c.SetScanHandler(func(_ context.Context, rec deal.ScanRecord) {
		mu.Lock()
		handled = append(handled, rec)
		mu.Unlock()
	})

	c.Run(context.Background())
	require.Len(t, handled, 1)
	assert.Equal(t, "Shopify", handled[0].TargetName)
}

func TestRunInsertFailureDropsRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(dealPage))
	}))
	defer server.Close()

	st := &memScanStore{failAll: true}
	c := New([]deal.Target{{Name: "Shopify", URL: server.URL}}, st, nil, 5*time.Second, 0)

	records := c.Run(context.Background())
	assert.Empty(t, records)
}
