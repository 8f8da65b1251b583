// Package steam is the price source adapter for the Steam storefront.
//
// It speaks the store's public JSON endpoints (storesearch, appdetails,
// packagedetails) and falls back to scraping the HTML search page when the
// JSON search comes back empty.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/resilience"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/port"
)

const serviceName = "steam"

// DefaultBaseURL is the public storefront.
const DefaultBaseURL = "https://store.steampowered.com"

// maxBodyBytes caps how much of a response is read. Search pages are the
// largest payloads and stay well below this.
const maxBodyBytes = 4 << 20

var tracer = otel.Tracer("infra/steam")

var (
	_ port.PriceSource   = (*Client)(nil)
	_ port.ProductLinker = (*Client)(nil)
)

// Client fetches product and price data from the Steam store.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewClient creates a new Client. A nil limiter disables throttling.
func NewClient(
	httpClient *http.Client,
	baseURL string,
	cb *gobreaker.CircuitBreaker,
	limiter *rate.Limiter,
	cfg resilience.Config,
	logger *zap.Logger,
) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		limiter:    limiter,
		cfg:        cfg,
		logger:     logger,
	}
}

// ProductURL returns the public store page of an app.
func (c *Client) ProductURL(id domain.ProductID) string {
	return fmt.Sprintf("%s/app/%s/", c.baseURL, url.PathEscape(string(id)))
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("steam returned status %d", e.code)
}

// get performs one GET under the limiter, breaker and retry policy and
// returns the body. 4xx other than 429 are not retried.
func (c *Client) get(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "SteamClient."+op)
	defer span.End()
	span.SetAttributes(attribute.String("steam.path", path))

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	result, err := c.cb.Execute(func() (any, error) {
		var body []byte
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					return resilience.Permanent(err)
				}
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return resilience.Permanent(err)
			}
			req.Header.Set("Accept-Language", "en")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
				serr := &statusError{code: resp.StatusCode}
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return resilience.Permanent(serr)
				}
				return serr
			}

			body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			return err
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return body, nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "steam request failed")
		return nil, c.wrapErr(ctx, op, err)
	}
	return result.([]byte), nil
}

// getJSON is get followed by a JSON decode into out.
func (c *Client) getJSON(ctx context.Context, op, path string, params url.Values, out any) error {
	body, err := c.get(ctx, op, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ErrExternalService{Service: serviceName, Err: fmt.Errorf("decoding %s: %w", op, err)}
	}
	return nil
}

func (c *Client) wrapErr(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: serviceName}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: serviceName + "." + op}
	}
	return &domain.ErrExternalService{Service: serviceName, Err: err}
}

func countryCode(region domain.RegionCode) string {
	return strings.ToLower(string(region))
}
