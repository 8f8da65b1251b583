package domain

// RegionCode is the canonical short identifier of a supported price region.
type RegionCode string

// Region describes one supported price region as listed to users.
type Region struct {
	Code     RegionCode `json:"code"`
	NameEN   string     `json:"nameEn"`
	NameAR   string     `json:"nameAr"`
	Flag     string     `json:"flag"`
	Currency string     `json:"currency"`
	Examples []string   `json:"examples"`
}

// ParsedQuery is the result of splitting a chat message into a product
// portion and a trailing run of region tokens.
//
// When AllRegions is set, Regions is ignored and callers use the default
// region set instead.
type ParsedQuery struct {
	ProductText string       `json:"productText"`
	Regions     []RegionCode `json:"regions,omitempty"`
	AllRegions  bool         `json:"allRegions"`
}

// HasProduct reports whether any product text survived region consumption.
func (q ParsedQuery) HasProduct() bool {
	return q.ProductText != ""
}

// RegionsOnly reports whether the query named regions but no product.
func (q ParsedQuery) RegionsOnly() bool {
	return q.ProductText == "" && (len(q.Regions) > 0 || q.AllRegions)
}
