// Package hotlist maintains the bounded, most-recent-first published
// list of scored deals that the dashboard polls.
package hotlist

import (
	"context"

	"github.com/dealmungchi/dealhound/internal/deal"
)

// DefaultCapacity is the published list bound. Entries age out purely
// by insertion-order displacement, never by elapsed time.
const DefaultCapacity = 20

// Publisher maintains the externally visible hot list.
type Publisher interface {
	// PublishDeal projects the deal into a hot-list entry, prepends it
	// and truncates the list to capacity, then atomically replaces the
	// published object. Entry IDs are unique and strictly increasing
	// within the process lifetime.
	PublishDeal(ctx context.Context, d *deal.Deal) (deal.HotListEntry, error)

	// Read returns the current list unmodified, newest first.
	Read(ctx context.Context) ([]deal.HotListEntry, error)

	// Close closes the publisher connection
	Close() error
}
