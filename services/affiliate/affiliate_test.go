package affiliate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNoQueryString(t *testing.T) {
	r := NewResolver(DefaultTable)

	got := r.Resolve("Shopify", "https://www.shopify.com/pricing")
	assert.Equal(t, "https://www.shopify.com/pricing?ref=dealhound_hq", got)
}

func TestResolveExistingQueryString(t *testing.T) {
	r := NewResolver(DefaultTable)

	got := r.Resolve("NordVPN", "https://nordvpn.com/offer?src=landing")
	assert.Equal(t, "https://nordvpn.com/offer?src=landing&coupon=dealhound", got)
}

func TestResolvePartialBrandMatch(t *testing.T) {
	r := NewResolver(DefaultTable)

	// "Adobe Creative Cloud" contains the key "Adobe".
	got := r.Resolve("Adobe Creative Cloud", "https://www.adobe.com/creativecloud.html")
	assert.Equal(t, "https://www.adobe.com/creativecloud.html?mv=affiliate&mv2=dealhound_hq", got)
}

func TestResolveCaseInsensitive(t *testing.T) {
	r := NewResolver(DefaultTable)

	got := r.Resolve("SHOPIFY plus", "https://example.com")
	assert.Equal(t, "https://example.com?ref=dealhound_hq", got)
}

func TestResolveNoMatch(t *testing.T) {
	r := NewResolver(DefaultTable)

	got := r.Resolve("Unknown Brand", "https://example.com/deal")
	assert.Equal(t, "https://example.com/deal", got)
}

func TestResolveFirstMatchWins(t *testing.T) {
	r := NewResolver([]Mapping{
		{Key: "Shop", Param: "a=1"},
		{Key: "Shopify", Param: "b=2"},
	})

	// Table order decides, not the longest key.
	got := r.Resolve("Shopify", "https://example.com")
	assert.Equal(t, "https://example.com?a=1", got)
}

func TestResolveNoDeduplication(t *testing.T) {
	r := NewResolver(DefaultTable)

	once := r.Resolve("Shopify", "https://example.com")
	twice := r.Resolve("Shopify", once)

	// The resolver does not detect an already-wrapped URL.
	assert.Equal(t, "https://example.com?ref=dealhound_hq&ref=dealhound_hq", twice)
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "affiliate_map.json")
	content := `[{"key":"Acme","base_url":"acme.test","affiliate_param":"aff=x"}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "Acme", table[0].Key)

	// Empty path falls back to the default table.
	table, err = LoadTable("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable, table)
}

func TestLoadTableInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadTable(path)
	assert.Error(t, err)
}
