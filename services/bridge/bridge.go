// Package bridge drives pending scan records through extraction,
// monetization and scoring, and publishes the resulting deals.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dealmungchi/dealhound/helpers"
	"github.com/dealmungchi/dealhound/internal/deal"
	"github.com/dealmungchi/dealhound/logger"
	"github.com/dealmungchi/dealhound/services/affiliate"
	"github.com/dealmungchi/dealhound/services/hotlist"
	"github.com/dealmungchi/dealhound/services/scoring"
	"github.com/dealmungchi/dealhound/services/store"
)

// rawExcerptLen bounds the raw-text excerpt stored with each deal.
const rawExcerptLen = 200

// Extractor turns raw page text into a structured candidate.
type Extractor interface {
	Extract(ctx context.Context, rawText string) deal.DealCandidate
}

// Bridge implements the scan state machine: pending → processed when a
// deal is found or cleanly absent, pending → failed when there is no
// content to analyze. Both the polling sweep and the event-triggered
// handler run the same ProcessRecord, so the two entry points cannot
// drift apart.
type Bridge struct {
	scans     store.ScanStore
	deals     store.DealStore
	extractor Extractor
	resolver  *affiliate.Resolver
	hotlist   hotlist.Publisher
	targets   map[string]deal.Target
	log       *logger.Logger
}

// New creates a bridge over the given collaborators.
func New(
	scans store.ScanStore,
	deals store.DealStore,
	extractor Extractor,
	resolver *affiliate.Resolver,
	publisher hotlist.Publisher,
	targets []deal.Target,
) *Bridge {
	byName := make(map[string]deal.Target, len(targets))
	for _, t := range targets {
		byName[t.Name] = t
	}
	return &Bridge{
		scans:     scans,
		deals:     deals,
		extractor: extractor,
		resolver:  resolver,
		hotlist:   publisher,
		targets:   byName,
		log:       logger.ForBridge(),
	}
}

// ProcessRecord computes the terminal status for one scan record and,
// when a deal is found, the fully constructed Deal. It performs no
// persistence; commit handles that, so an interrupted record simply
// stays pending for the next sweep.
func (b *Bridge) ProcessRecord(ctx context.Context, rec deal.ScanRecord) (deal.ScanStatus, *deal.Deal) {
	log := b.log.WithField("target", rec.TargetName)

	// No content to analyze: straight to failed, no extraction attempt.
	if rec.RawText == nil || *rec.RawText == "" {
		return deal.StatusFailed, nil
	}

	candidate := b.extractor.Extract(ctx, *rec.RawText)
	if candidate.ParseErr != nil {
		// Unparsable output is indistinguishable from "no deal" in
		// persisted state; the marker surfaces only here.
		log.Warn().Err(candidate.ParseErr).Msg("Extraction did not parse")
	}
	if !candidate.Found {
		log.Debug().Msg("No deal found")
		return deal.StatusProcessed, nil
	}

	brand := candidate.Brand
	if brand == "" {
		brand = rec.TargetName
	}

	reputation := 1.0
	if target, ok := b.targets[rec.TargetName]; ok {
		reputation = target.Reputation()
	}

	monetizedURL := b.resolver.Resolve(brand, rec.URL)
	score := scoring.Value(candidate.DiscountValue, candidate.DurationDays, reputation)

	d := &deal.Deal{
		ID:             uuid.New().String(),
		ScanID:         rec.ID,
		Brand:          brand,
		ValueScore:     score,
		DiscountAmount: candidate.DiscountValue,
		DurationMonths: deal.DurationMonths(candidate.DurationDays),
		MonetizedURL:   monetizedURL,
		Summary:        candidate.Summary,
		RawExcerpt:     helpers.Truncate(*rec.RawText, rawExcerptLen),
		CreatedAt:      time.Now().UTC(),
	}

	log.Info().
		Str("brand", brand).
		Float64("value_score", score).
		Msg("Deal found")

	return deal.StatusProcessed, d
}

// Sweep processes all pending records from the store in parallel. A
// single record's failure never aborts the rest of the sweep.
func (b *Bridge) Sweep(ctx context.Context) error {
	pending, err := b.scans.PendingScans(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		b.log.Debug().Msg("No pending scans")
		return nil
	}

	b.log.Info().Int("pending", len(pending)).Msg("Sweep started")

	var wg sync.WaitGroup
	for _, rec := range pending {
		wg.Add(1)
		go func(rec deal.ScanRecord) {
			defer wg.Done()
			if err := b.process(ctx, rec); err != nil {
				b.log.Error().
					Err(err).
					Str("scan_id", rec.ID).
					Str("target", rec.TargetName).
					Msg("Record left pending for next sweep")
			}
		}(rec)
	}
	wg.Wait()

	return nil
}

// HandleScan is the event-triggered entry point, invoked on arrival of
// a single new scan record.
func (b *Bridge) HandleScan(ctx context.Context, rec deal.ScanRecord) error {
	return b.process(ctx, rec)
}

// process runs the transition and commits it: persist the deal, publish
// its hot-list entry, then mark the record terminal. Any error before
// the mark leaves the record pending for retry.
func (b *Bridge) process(ctx context.Context, rec deal.ScanRecord) error {
	status, d := b.ProcessRecord(ctx, rec)

	if d != nil {
		if err := b.deals.InsertDeal(ctx, d); err != nil {
			return err
		}
		if _, err := b.hotlist.PublishDeal(ctx, d); err != nil {
			return err
		}
	}

	if err := b.scans.MarkScan(ctx, rec.ID, status); err != nil {
		if errors.Is(err, store.ErrNotPending) {
			// Another sweep got here first; terminal status never
			// regresses.
			b.log.Warn().Str("scan_id", rec.ID).Msg("Record already terminal")
			return nil
		}
		return err
	}

	return nil
}
