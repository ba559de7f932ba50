// Package collector fetches raw page content for configured targets and
// persists one scan record per attempt.
package collector

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/dealmungchi/dealhound/helpers"
	"github.com/dealmungchi/dealhound/internal/deal"
	"github.com/dealmungchi/dealhound/logger"
	"github.com/dealmungchi/dealhound/services/cache"
	"github.com/dealmungchi/dealhound/services/store"
)

// FetchFunc fetches a page within a bounded timeout.
type FetchFunc func(ctx context.Context, url string, timeout time.Duration) (io.Reader, error)

// ScanHandler reacts to the arrival of one new scan record (event mode).
type ScanHandler func(ctx context.Context, rec deal.ScanRecord)

// Collector fans out one fetch per target and writes the resulting scan
// records. It never mutates record status; a failed fetch is persisted
// as a pending record with null text for the bridge to mark failed.
type Collector struct {
	targets  []deal.Target
	scans    store.ScanStore
	cache    cache.CacheService
	timeout  time.Duration
	cooldown time.Duration
	fetch    FetchFunc
	onScan   ScanHandler
	log      *logger.Logger
}

// New creates a collector for the given targets. cacheSvc may be nil to
// disable the cooldown guard.
func New(targets []deal.Target, scans store.ScanStore, cacheSvc cache.CacheService, timeout, cooldown time.Duration) *Collector {
	return &Collector{
		targets:  targets,
		scans:    scans,
		cache:    cacheSvc,
		timeout:  timeout,
		cooldown: cooldown,
		fetch:    helpers.FetchPage,
		log:      logger.ForCollector(),
	}
}

// SetFetchFunc overrides the page fetcher (used by tests).
func (c *Collector) SetFetchFunc(fetch FetchFunc) {
	c.fetch = fetch
}

// SetScanHandler registers the event-mode hook invoked once per
// persisted scan record.
func (c *Collector) SetScanHandler(handler ScanHandler) {
	c.onScan = handler
}

// Run collects all targets in parallel. Fetches have no ordering
// dependency between targets; completion order is not assumed anywhere
// downstream. Returns the persisted records.
func (c *Collector) Run(ctx context.Context) []deal.ScanRecord {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		records []deal.ScanRecord
	)

	for _, target := range c.targets {
		wg.Add(1)
		go func(target deal.Target) {
			defer wg.Done()

			rec := c.collectTarget(ctx, target)
			if rec == nil {
				return
			}

			mu.Lock()
			records = append(records, *rec)
			mu.Unlock()

			if c.onScan != nil {
				c.onScan(ctx, *rec)
			}
		}(target)
	}
	wg.Wait()

	return records
}

// collectTarget performs one fetch attempt and persists the record.
// Returns nil when the target is in cooldown or the insert failed.
func (c *Collector) collectTarget(ctx context.Context, target deal.Target) *deal.ScanRecord {
	log := c.log.WithField("target", target.Name)

	cooldownKey := "scan_cooldown:" + target.Name
	if c.cache != nil && c.cooldown > 0 {
		if _, err := c.cache.Get(cooldownKey); err == nil {
			log.Debug().Msg("Target in cooldown, skipping fetch")
			return nil
		}
	}

	rec := deal.ScanRecord{
		ID:         uuid.New().String(),
		TargetName: target.Name,
		URL:        target.URL,
		CapturedAt: time.Now().UTC(),
		Status:     deal.StatusPending,
	}

	body, err := c.fetch(ctx, target.URL, c.timeout)
	if err != nil {
		// Recorded with null text; the bridge marks it failed. No
		// retry here, retry policy belongs to the caller's schedule.
		log.Warn().Err(err).Msg("Fetch failed")
	} else {
		text, err := extractText(body)
		if err != nil {
			log.Warn().Err(err).Msg("Text extraction failed")
		} else {
			rec.RawText = &text
		}
	}

	if err := c.scans.InsertScan(ctx, &rec); err != nil {
		log.Error().Err(err).Msg("Failed to persist scan record")
		return nil
	}

	if c.cache != nil && c.cooldown > 0 {
		if err := c.cache.Set(cooldownKey, []byte("1"), c.cooldown); err != nil {
			log.Debug().Err(err).Msg("Failed to set cooldown")
		}
	}

	log.Info().
		Bool("has_content", rec.RawText != nil).
		Msg("Scan recorded")

	return &rec
}

// extractText pulls the visible text out of an HTML page, whitespace
// collapsed.
func extractText(body io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if text == "" {
		return "", fmt.Errorf("page has no text content")
	}
	return text, nil
}
