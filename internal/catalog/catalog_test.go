package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/catalog"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestDefault_Loads(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	require.Len(t, c.Regions(), 9)
	require.Equal(t,
		[]domain.RegionCode{"TR", "UA", "SA", "BR", "RU", "IN", "AR", "US", "CN"},
		c.DefaultRegions(),
	)

	code, ok := c.Lookup("saudi arabia")
	require.True(t, ok)
	require.Equal(t, domain.RegionCode("SA"), code)

	code, ok = c.Lookup("تركيا")
	require.True(t, ok)
	require.Equal(t, domain.RegionCode("TR"), code)

	_, ok = c.Lookup("atlantis")
	require.False(t, ok)

	require.True(t, c.IsAllToken("all"))
	require.True(t, c.IsAllToken("الكل"))
	require.False(t, c.IsAllToken("every"))
}

func TestDefault_RatesAreScaled(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	rates := c.USDRates()
	require.Equal(t, int64(catalog.RateScale), rates["USD"])
	require.Equal(t, int64(266_000), rates["SAR"])
	require.Equal(t, int64(1_100), rates["ARS"])
}

func TestDefault_EveryRegionHasARate(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	rates := c.USDRates()
	for _, r := range c.Regions() {
		_, ok := rates[r.Currency]
		require.Truef(t, ok, "no rate for %s (%s)", r.Code, r.Currency)
	}
}

func TestDefaultRegions_ReturnsCopy(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	d := c.DefaultRegions()
	d[0] = "XX"
	require.Equal(t, domain.RegionCode("TR"), c.DefaultRegions()[0])
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"duplicate alias": `
all_tokens: [all]
default_regions: [AA]
regions:
  - {code: AA, aliases: [x]}
  - {code: BB, aliases: [x]}
`,
		"alias too long": `
all_tokens: [all]
default_regions: [AA]
regions:
  - {code: AA, aliases: [one two three four]}
`,
		"unknown default region": `
all_tokens: [all]
default_regions: [ZZ]
regions:
  - {code: AA, aliases: [a]}
`,
		"all token collides with alias": `
all_tokens: [a]
default_regions: [AA]
regions:
  - {code: AA, aliases: [a]}
`,
		"non-positive rate": `
all_tokens: [all]
default_regions: [AA]
regions:
  - {code: AA, aliases: [a]}
usd_rates: {AAA: 0}
`,
		"no regions": `all_tokens: [all]`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Load([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoad_NormalizesAliases(t *testing.T) {
	c, err := catalog.Load([]byte(`
all_tokens: [ALL]
default_regions: [aa]
regions:
  - {code: aa, aliases: ["  Big   Land "]}
`))
	require.NoError(t, err)

	code, ok := c.Lookup("big land")
	require.True(t, ok)
	require.Equal(t, domain.RegionCode("AA"), code)
	require.True(t, c.IsAllToken("all"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
all_tokens: [all]
default_regions: [AA]
regions:
  - {code: AA, aliases: [a]}
`), 0o600))

	c, err := catalog.LoadFile(path)
	require.NoError(t, err)
	require.True(t, c.Supports("AA"))

	_, err = catalog.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
