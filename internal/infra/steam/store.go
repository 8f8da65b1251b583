package steam

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
)

type priceOverview struct {
	Currency        string `json:"currency"`
	Initial         int64  `json:"initial"`
	Final           int64  `json:"final"`
	DiscountPercent int    `json:"discount_percent"`
}

// details is one entry of an appdetails or packagedetails response, keyed
// by id. Steam sends "data": [] instead of an object when every requested
// filter is empty, so Data stays raw until success is checked.
type details struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type appData struct {
	Name          string         `json:"name"`
	PriceOverview *priceOverview `json:"price_overview"`
	PackageGroups []struct {
		Subs []struct {
			PackageID  json.Number `json:"packageid"`
			OptionText string      `json:"option_text"`
		} `json:"subs"`
	} `json:"package_groups"`
}

type packageData struct {
	Name  string         `json:"name"`
	Price *priceOverview `json:"price"`
}

// decodeData reports false when the entry failed or carries no object.
func (d details) decodeData(out any) (bool, error) {
	raw := bytes.TrimSpace(d.Data)
	if !d.Success || len(raw) == 0 || raw[0] != '{' {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// ListEditions returns the base app followed by every distinct package
// Steam sells it in.
func (c *Client) ListEditions(ctx context.Context, productID domain.ProductID) ([]domain.Edition, error) {
	params := url.Values{"appids": {string(productID)}}

	var resp map[string]details
	if err := c.getJSON(ctx, "appdetails", "/api/appdetails", params, &resp); err != nil {
		return nil, err
	}

	var app appData
	ok, err := resp[string(productID)].decodeData(&app)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: serviceName, Err: err}
	}
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "product", ID: string(productID)}
	}

	name := app.Name
	if name == "" {
		name = "App " + string(productID)
	}
	editions := []domain.Edition{{ID: productID, Name: name, Kind: domain.VariantBase}}

	seen := map[string]bool{}
	for _, group := range app.PackageGroups {
		for _, sub := range group.Subs {
			id := sub.PackageID.String()
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			editions = append(editions, domain.Edition{
				ID:   domain.ProductID(id),
				Name: optionName(sub.OptionText, id),
				Kind: domain.VariantPackage,
			})
		}
	}
	return editions, nil
}

// optionName strips markup and the trailing " - <price>" from a package
// option label.
func optionName(text, id string) string {
	name := cleanTitle(text)
	if i := strings.LastIndex(name, " - "); i > 0 {
		name = strings.TrimSpace(name[:i])
	}
	if name == "" {
		return "Package " + id
	}
	return name
}

// FetchPrice returns the regional price of an app or package. A nil result
// with a nil error means Steam has no purchasable price for it there.
func (c *Client) FetchPrice(ctx context.Context, variantID domain.ProductID, kind domain.VariantKind, region domain.RegionCode) (*domain.PriceInfo, error) {
	if kind == domain.VariantPackage {
		return c.fetchPackagePrice(ctx, variantID, region)
	}
	return c.fetchAppPrice(ctx, variantID, region)
}

func (c *Client) fetchAppPrice(ctx context.Context, appID domain.ProductID, region domain.RegionCode) (*domain.PriceInfo, error) {
	params := url.Values{
		"appids":  {string(appID)},
		"cc":      {countryCode(region)},
		"filters": {"basic,price_overview"},
	}

	var resp map[string]details
	if err := c.getJSON(ctx, "appdetails", "/api/appdetails", params, &resp); err != nil {
		return nil, err
	}

	var app appData
	ok, err := resp[string(appID)].decodeData(&app)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: serviceName, Err: err}
	}
	if !ok {
		return nil, nil
	}
	return toPriceInfo(app.PriceOverview), nil
}

func (c *Client) fetchPackagePrice(ctx context.Context, packageID domain.ProductID, region domain.RegionCode) (*domain.PriceInfo, error) {
	params := url.Values{
		"packageids": {string(packageID)},
		"cc":         {countryCode(region)},
	}

	var resp map[string]details
	if err := c.getJSON(ctx, "packagedetails", "/api/packagedetails", params, &resp); err != nil {
		return nil, err
	}

	var pkg packageData
	ok, err := resp[string(packageID)].decodeData(&pkg)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: serviceName, Err: err}
	}
	if !ok {
		return nil, nil
	}
	return toPriceInfo(pkg.Price), nil
}

func toPriceInfo(po *priceOverview) *domain.PriceInfo {
	if po == nil || po.Currency == "" {
		return nil
	}
	return &domain.PriceInfo{
		Amount:          domain.Cents(po.Final),
		Currency:        strings.ToUpper(po.Currency),
		DiscountPercent: po.DiscountPercent,
	}
}
