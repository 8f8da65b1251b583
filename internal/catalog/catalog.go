// Package catalog loads the static region data: supported regions, the
// bilingual alias table that maps free text to region codes, the default
// region set and the approximate USD rate table.
//
// A Catalog is immutable after Load and safe for concurrent use.
package catalog

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/textnorm"

	"gopkg.in/yaml.v3"
)

// MaxAliasWords is the longest alias, in words, the parser will try.
const MaxAliasWords = 3

// RateScale is the fixed-point scale of USD rates: a rate of 0.266 USD
// is stored as 266000.
const RateScale = 1_000_000

//go:embed catalog.yaml
var defaultData []byte

type regionSpec struct {
	Code     domain.RegionCode `yaml:"code"`
	NameEN   string            `yaml:"name_en"`
	NameAR   string            `yaml:"name_ar"`
	Flag     string            `yaml:"flag"`
	Currency string            `yaml:"currency"`
	Aliases  []string          `yaml:"aliases"`
	Examples []string          `yaml:"examples"`
}

type catalogFile struct {
	AllTokens      []string            `yaml:"all_tokens"`
	DefaultRegions []domain.RegionCode `yaml:"default_regions"`
	Regions        []regionSpec        `yaml:"regions"`
	USDRates       map[string]float64  `yaml:"usd_rates"`
}

// Catalog is the loaded, validated region data.
type Catalog struct {
	aliases   map[string]domain.RegionCode
	allTokens map[string]struct{}
	regions   []domain.Region
	byCode    map[domain.RegionCode]domain.Region
	defaults  []domain.RegionCode
	rates     map[string]int64
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(defaultData)
}

// LoadFile reads and validates a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Load(data)
}

// Load parses and validates catalog YAML.
func Load(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		aliases:   make(map[string]domain.RegionCode),
		allTokens: make(map[string]struct{}),
		byCode:    make(map[domain.RegionCode]domain.Region),
		rates:     make(map[string]int64),
	}

	if len(f.Regions) == 0 {
		return nil, fmt.Errorf("catalog has no regions")
	}

	for _, r := range f.Regions {
		code := domain.RegionCode(strings.ToUpper(strings.TrimSpace(string(r.Code))))
		if code == "" {
			return nil, fmt.Errorf("region with empty code")
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("duplicate region %s", code)
		}
		for _, raw := range r.Aliases {
			alias := textnorm.Normalize(raw)
			if alias == "" {
				return nil, fmt.Errorf("region %s: empty alias", code)
			}
			if n := len(textnorm.Words(alias)); n > MaxAliasWords {
				return nil, fmt.Errorf("region %s: alias %q has %d words (max %d)", code, alias, n, MaxAliasWords)
			}
			if prev, dup := c.aliases[alias]; dup && prev != code {
				return nil, fmt.Errorf("alias %q maps to both %s and %s", alias, prev, code)
			}
			c.aliases[alias] = code
		}
		region := domain.Region{
			Code:     code,
			NameEN:   r.NameEN,
			NameAR:   r.NameAR,
			Flag:     r.Flag,
			Currency: strings.ToUpper(r.Currency),
			Examples: append([]string(nil), r.Examples...),
		}
		c.byCode[code] = region
		c.regions = append(c.regions, region)
	}

	for _, raw := range f.AllTokens {
		tok := textnorm.Normalize(raw)
		if tok == "" || strings.Contains(tok, " ") {
			return nil, fmt.Errorf("all-token %q must be a single word", raw)
		}
		if _, clash := c.aliases[tok]; clash {
			return nil, fmt.Errorf("all-token %q is also a region alias", tok)
		}
		c.allTokens[tok] = struct{}{}
	}

	seen := make(map[domain.RegionCode]bool)
	for _, code := range f.DefaultRegions {
		code = domain.RegionCode(strings.ToUpper(string(code)))
		if _, ok := c.byCode[code]; !ok {
			return nil, fmt.Errorf("default region %s is not supported", code)
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		c.defaults = append(c.defaults, code)
	}
	if len(c.defaults) == 0 {
		return nil, fmt.Errorf("catalog has no default regions")
	}

	for cur, rate := range f.USDRates {
		if rate <= 0 {
			return nil, fmt.Errorf("rate for %s must be positive", cur)
		}
		c.rates[strings.ToUpper(cur)] = int64(math.Round(rate * RateScale))
	}

	return c, nil
}

// Lookup resolves a normalized token (one to MaxAliasWords words) to a region.
func (c *Catalog) Lookup(token string) (domain.RegionCode, bool) {
	code, ok := c.aliases[token]
	return code, ok
}

// IsAllToken reports whether a normalized word means "every default region".
func (c *Catalog) IsAllToken(token string) bool {
	_, ok := c.allTokens[token]
	return ok
}

// DefaultRegions returns the region set used for "all" queries.
func (c *Catalog) DefaultRegions() []domain.RegionCode {
	return append([]domain.RegionCode(nil), c.defaults...)
}

// Regions returns every supported region in catalog order.
func (c *Catalog) Regions() []domain.Region {
	return append([]domain.Region(nil), c.regions...)
}

// Region returns metadata for one region.
func (c *Catalog) Region(code domain.RegionCode) (domain.Region, bool) {
	r, ok := c.byCode[code]
	return r, ok
}

// Supports reports whether code is a supported region.
func (c *Catalog) Supports(code domain.RegionCode) bool {
	_, ok := c.byCode[code]
	return ok
}

// Aliases returns a copy of the alias table.
func (c *Catalog) Aliases() map[string]domain.RegionCode {
	out := make(map[string]domain.RegionCode, len(c.aliases))
	for k, v := range c.aliases {
		out[k] = v
	}
	return out
}

// USDRates returns a copy of the rate table, scaled by RateScale.
func (c *Catalog) USDRates() map[string]int64 {
	out := make(map[string]int64, len(c.rates))
	for k, v := range c.rates {
		out[k] = v
	}
	return out
}
