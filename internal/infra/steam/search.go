package steam

import (
	"context"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
)

type storeSearchResponse struct {
	Total int `json:"total"`
	Items []struct {
		Type string `json:"type"`
		Name string `json:"name"`
		ID   int64  `json:"id"`
	} `json:"items"`
}

var (
	reAppID    = regexp.MustCompile(`data-ds-appid="(\d+)"`)
	reTitle    = regexp.MustCompile(`<span class="title">(.*?)</span>`)
	reAppLink  = regexp.MustCompile(`/app/(\d+)/`)
	reHTMLTags = regexp.MustCompile(`<.*?>`)
)

// SearchProducts returns up to limit products matching query in region's
// storefront, most relevant first. The JSON search is tried first; when it
// fails or finds nothing the HTML search page is scraped.
func (c *Client) SearchProducts(ctx context.Context, query string, region domain.RegionCode, limit int) ([]domain.ProductCandidate, error) {
	if limit <= 0 {
		limit = 5
	}

	items, jsonErr := c.searchJSON(ctx, query, region, limit)
	if jsonErr == nil && len(items) > 0 {
		return items, nil
	}
	if jsonErr != nil {
		c.logger.Debug("storesearch failed, trying html search",
			zap.String("region", string(region)),
			zap.Error(jsonErr),
		)
	}

	items, err := c.searchHTML(ctx, query, region, limit)
	if err != nil {
		if jsonErr != nil {
			return nil, jsonErr
		}
		return nil, err
	}
	return items, nil
}

func (c *Client) searchJSON(ctx context.Context, query string, region domain.RegionCode, limit int) ([]domain.ProductCandidate, error) {
	params := url.Values{
		"term": {query},
		"cc":   {countryCode(region)},
		"l":    {"english"},
	}

	var resp storeSearchResponse
	if err := c.getJSON(ctx, "storesearch", "/api/storesearch/", params, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.ProductCandidate, 0, limit)
	for _, it := range resp.Items {
		if it.ID == 0 || (it.Type != "" && it.Type != "app") {
			continue
		}
		out = append(out, domain.ProductCandidate{
			ID:   domain.ProductID(strconv.FormatInt(it.ID, 10)),
			Name: strings.TrimSpace(it.Name),
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (c *Client) searchHTML(ctx context.Context, query string, region domain.RegionCode, limit int) ([]domain.ProductCandidate, error) {
	params := url.Values{
		"term": {query},
		"cc":   {countryCode(region)},
		"l":    {"english"},
	}

	body, err := c.get(ctx, "search", "/search/", params)
	if err != nil {
		return nil, err
	}
	return parseSearchPage(string(body), query, limit), nil
}

// parseSearchPage pairs the n-th data-ds-appid with the n-th title span.
// Pages without result rows fall back to the first /app/<id>/ link, named
// after the query itself.
func parseSearchPage(page, query string, limit int) []domain.ProductCandidate {
	ids := reAppID.FindAllStringSubmatch(page, -1)
	titles := reTitle.FindAllStringSubmatch(page, -1)

	out := make([]domain.ProductCandidate, 0, limit)
	for i, m := range ids {
		if len(out) == limit {
			break
		}
		name := "App " + m[1]
		if i < len(titles) {
			if t := cleanTitle(titles[i][1]); t != "" {
				name = t
			}
		}
		out = append(out, domain.ProductCandidate{ID: domain.ProductID(m[1]), Name: name})
	}

	if len(out) == 0 {
		if m := reAppLink.FindStringSubmatch(page); m != nil {
			out = append(out, domain.ProductCandidate{ID: domain.ProductID(m[1]), Name: query})
		}
	}
	return out
}

func cleanTitle(s string) string {
	return strings.TrimSpace(html.UnescapeString(reHTMLTags.ReplaceAllString(s, "")))
}
