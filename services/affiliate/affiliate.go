// Package affiliate rewrites outbound deal links with monetization
// parameters from a static, ordered mapping table.
package affiliate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Mapping associates a brand key with its monetization parameter. The
// table is an ordered slice, not a map: matching is first-match-wins in
// table order, a deliberate tie-break rather than a best-match search.
type Mapping struct {
	Key     string `json:"key"`
	BaseURL string `json:"base_url"`
	Param   string `json:"affiliate_param"`
}

// DefaultTable is used when no mapping file is configured.
var DefaultTable = []Mapping{
	{Key: "Shopify", BaseURL: "shopify.com", Param: "ref=dealhound_hq"},
	{Key: "Adobe", BaseURL: "adobe.com", Param: "mv=affiliate&mv2=dealhound_hq"},
	{Key: "DigitalOcean", BaseURL: "digitalocean.com", Param: "refid=dealhound_node"},
	{Key: "NordVPN", BaseURL: "nordvpn.com", Param: "coupon=dealhound"},
}

// Resolver matches free-text brand names against the mapping table.
// Read-only after construction, safe for concurrent use.
type Resolver struct {
	table []Mapping
}

// NewResolver creates a resolver over the given table.
func NewResolver(table []Mapping) *Resolver {
	return &Resolver{table: table}
}

// LoadTable reads a JSON array of mappings from path. An empty path
// returns the default table. Loaded once per process; reload means
// restart.
func LoadTable(path string) ([]Mapping, error) {
	if path == "" {
		return DefaultTable, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read affiliate map: %w", err)
	}
	var table []Mapping
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse affiliate map: %w", err)
	}
	return table, nil
}

// Resolve appends the monetization parameter of the first table key
// that appears as a case-insensitive substring of brandName (so "Adobe
// Creative Cloud" matches "Adobe"). No match returns the URL unchanged.
// Pure and deterministic; it does NOT deduplicate: resolving an
// already-wrapped URL appends the parameter again, so callers must
// invoke it at most once per URL.
func (r *Resolver) Resolve(brandName, rawURL string) string {
	lower := strings.ToLower(brandName)
	for _, m := range r.table {
		if strings.Contains(lower, strings.ToLower(m.Key)) {
			separator := "?"
			if strings.Contains(rawURL, "?") {
				separator = "&"
			}
			return rawURL + separator + m.Param
		}
	}
	return rawURL
}
