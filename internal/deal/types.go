package deal

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"
)

// ScanStatus is the processing state of a ScanRecord.
// A record starts pending and moves to exactly one terminal state.
type ScanStatus string

const (
	StatusPending   ScanStatus = "pending"
	StatusProcessed ScanStatus = "processed"
	StatusFailed    ScanStatus = "failed"
)

// Target is a configured source to scan for deals.
type Target struct {
	Name            string  `json:"name"`
	URL             string  `json:"url"`
	ReputationScore float64 `json:"reputation_score,omitempty"`
}

// Reputation returns the target's reputation score, defaulting to 1.0
// when unset or non-positive.
func (t Target) Reputation() float64 {
	if t.ReputationScore <= 0 {
		return 1.0
	}
	return t.ReputationScore
}

// ScanRecord is one collection attempt: the raw page text for a target
// plus its processing status. RawText is nil when the fetch failed.
type ScanRecord struct {
	ID         string     `db:"id" json:"id"`
	TargetName string     `db:"target_name" json:"target_name"`
	URL        string     `db:"url" json:"url"`
	RawText    *string    `db:"raw_text" json:"raw_text,omitempty"`
	CapturedAt time.Time  `db:"captured_at" json:"captured_at"`
	Status     ScanStatus `db:"status" json:"status"`
}

// DealCandidate is the extractor's structured output. It is transient;
// only a found candidate turns into a persisted Deal.
type DealCandidate struct {
	Found         bool    `json:"deal_found"`
	Brand         string  `json:"brand"`
	DiscountValue float64 `json:"discount_value"`
	DurationDays  int     `json:"duration_days"`
	Summary       string  `json:"summary"`

	// ParseErr marks a completion response that did not parse as the
	// expected shape. The candidate is still treated as "no deal";
	// the marker exists only for logging.
	ParseErr error `json:"-"`
}

// Deal is the persisted, scored, monetized record built from a found
// candidate. Immutable once written.
type Deal struct {
	ID             string    `db:"id" json:"id"`
	ScanID         string    `db:"scan_id" json:"scan_id"`
	Brand          string    `db:"brand" json:"brand"`
	ValueScore     float64   `db:"value_score" json:"value_score"`
	DiscountAmount float64   `db:"discount_amount" json:"discount_amount"`
	DurationMonths float64   `db:"duration_months" json:"duration_months"`
	MonetizedURL   string    `db:"monetized_url" json:"monetized_url"`
	Summary        string    `db:"summary" json:"summary"`
	RawExcerpt     string    `db:"raw_excerpt" json:"raw_excerpt,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// HotListEntry is the lightweight projection of a Deal that the
// dashboard reads. Field names are the dashboard contract.
type HotListEntry struct {
	ID             int64   `json:"id"`
	Brand          string  `json:"brand"`
	Summary        string  `json:"summary"`
	ValueScore     float64 `json:"value_score"`
	DiscountAmount float64 `json:"discount_amount"`
	DurationMonths float64 `json:"duration_months"`
	URL            string  `json:"url,omitempty"`
}

// Entry projects the deal into a hot-list entry under the given id.
func (d *Deal) Entry(id int64) HotListEntry {
	return HotListEntry{
		ID:             id,
		Brand:          d.Brand,
		Summary:        d.Summary,
		ValueScore:     d.ValueScore,
		DiscountAmount: d.DiscountAmount,
		DurationMonths: d.DurationMonths,
		URL:            d.MonetizedURL,
	}
}

// DurationMonths converts a duration in days to months, rounded to one
// decimal place (30-day months).
func DurationMonths(days int) float64 {
	return math.Round(float64(days)/30.0*10) / 10
}

// DefaultTargets is used when no targets file is configured.
var DefaultTargets = []Target{
	{Name: "Adobe", URL: "https://www.adobe.com/creativecloud/plans.html", ReputationScore: 1.0},
	{Name: "Shopify", URL: "https://www.shopify.com/pricing", ReputationScore: 1.0},
	{Name: "OpenAI", URL: "https://openai.com/api/pricing/", ReputationScore: 1.0},
}

// LoadTargets reads a JSON array of targets from path. An empty path
// returns the default target set.
func LoadTargets(path string) ([]Target, error) {
	if path == "" {
		return DefaultTargets, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}
	var targets []Target
	if err := json.Unmarshal(data, &targets); err != nil {
		return nil, fmt.Errorf("failed to parse targets file: %w", err)
	}
	return targets, nil
}
