package steam_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/resilience"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/steam"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*steam.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond}
	c := steam.NewClient(srv.Client(), srv.URL, resilience.NewCircuitBreaker("steam-test", nil),
		rate.NewLimiter(rate.Inf, 1), cfg, zap.NewNop())
	return c, srv
}

func TestSearchProducts_JSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/storesearch/", r.URL.Path)
		require.Equal(t, "elden ring", r.URL.Query().Get("term"))
		require.Equal(t, "tr", r.URL.Query().Get("cc"))
		_, _ = w.Write([]byte(`{"total":3,"items":[
			{"type":"app","name":"ELDEN RING","id":1245620},
			{"type":"sub","name":"ELDEN RING Deluxe","id":999},
			{"type":"app","name":"ELDEN RING NIGHTREIGN","id":2622380},
			{"type":"app","name":"Third","id":3}
		]}`))
	})

	got, err := c.SearchProducts(context.Background(), "elden ring", "TR", 2)
	require.NoError(t, err)
	require.Equal(t, []domain.ProductCandidate{
		{ID: "1245620", Name: "ELDEN RING"},
		{ID: "2622380", Name: "ELDEN RING NIGHTREIGN"},
	}, got)
}

func TestSearchProducts_HTMLFallback(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/storesearch/":
			_, _ = w.Write([]byte(`{"total":0,"items":[]}`))
		case "/search/":
			_, _ = w.Write([]byte(`
				<a data-ds-appid="1145360" href="x"><span class="title">Hades</span></a>
				<a data-ds-appid="1145350" href="y"><span class="title">Hades II &amp; <b>Friends</b></span></a>`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	got, err := c.SearchProducts(context.Background(), "hades", "SA", 5)
	require.NoError(t, err)
	require.Equal(t, []domain.ProductCandidate{
		{ID: "1145360", Name: "Hades"},
		{ID: "1145350", Name: "Hades II & Friends"},
	}, got)
}

func TestSearchProducts_AppLinkLastResort(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/storesearch/" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`<a href="https://store.steampowered.com/app/620/Portal_2/">Portal 2</a>`))
	})

	got, err := c.SearchProducts(context.Background(), "portal 2", "US", 5)
	require.NoError(t, err)
	require.Equal(t, []domain.ProductCandidate{{ID: "620", Name: "portal 2"}}, got)
}

func TestSearchProducts_NothingFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/storesearch/" {
			_, _ = w.Write([]byte(`{"total":0,"items":[]}`))
			return
		}
		_, _ = w.Write([]byte(`<html>no results</html>`))
	})

	got, err := c.SearchProducts(context.Background(), "zzzz", "US", 5)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFetchPrice_App(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/appdetails", r.URL.Path)
		require.Equal(t, "1145360", r.URL.Query().Get("appids"))
		require.Equal(t, "tr", r.URL.Query().Get("cc"))
		_, _ = w.Write([]byte(`{"1145360":{"success":true,"data":{"name":"Hades",
			"price_overview":{"currency":"TRY","initial":29999,"final":14999,"discount_percent":50}}}}`))
	})

	got, err := c.FetchPrice(context.Background(), "1145360", domain.VariantBase, "TR")
	require.NoError(t, err)
	require.Equal(t, &domain.PriceInfo{Amount: 14999, Currency: "TRY", DiscountPercent: 50}, got)
}

func TestFetchPrice_NoPurchasablePrice(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"success false", `{"570":{"success":false}}`},
		{"free game without price_overview", `{"570":{"success":true,"data":{"name":"Dota 2"}}}`},
		{"empty data array", `{"570":{"success":true,"data":[]}}`},
		{"missing entry", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			got, err := c.FetchPrice(context.Background(), "570", domain.VariantBase, "US")
			require.NoError(t, err)
			require.Nil(t, got)
		})
	}
}

func TestFetchPrice_Package(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/packagedetails", r.URL.Path)
		require.Equal(t, "12345", r.URL.Query().Get("packageids"))
		_, _ = w.Write([]byte(`{"12345":{"success":true,"data":{"name":"Deluxe",
			"price":{"currency":"uah","initial":100000,"final":80000,"discount_percent":20}}}}`))
	})

	got, err := c.FetchPrice(context.Background(), "12345", domain.VariantPackage, "UA")
	require.NoError(t, err)
	require.Equal(t, &domain.PriceInfo{Amount: 80000, Currency: "UAH", DiscountPercent: 20}, got)
}

func TestFetchPrice_MalformedPayload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.FetchPrice(context.Background(), "1", domain.VariantBase, "US")
	var ext *domain.ErrExternalService
	require.True(t, errors.As(err, &ext))
}

func TestFetchPrice_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"1":{"success":true,"data":{"price_overview":{"currency":"USD","final":999}}}}`))
	})

	got, err := c.FetchPrice(context.Background(), "1", domain.VariantBase, "US")
	require.NoError(t, err)
	require.Equal(t, domain.Cents(999), got.Amount)
	require.Equal(t, int32(2), calls.Load())
}

func TestFetchPrice_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.FetchPrice(context.Background(), "1", domain.VariantBase, "US")
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestFetchPrice_Timeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.FetchPrice(ctx, "1", domain.VariantBase, "US")
	var timeout *domain.ErrTimeout
	require.True(t, errors.As(err, &timeout), "got %v", err)
}

func TestListEditions(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1245620", r.URL.Query().Get("appids"))
		_, _ = w.Write([]byte(`{"1245620":{"success":true,"data":{"name":"ELDEN RING","package_groups":[
			{"subs":[
				{"packageid":512,"option_text":"ELDEN RING - $59.99"},
				{"packageid":"777","option_text":"ELDEN RING Deluxe Edition - <span class=\"discount_original_price\">$79.99</span> $39.99"}
			]},
			{"subs":[{"packageid":512,"option_text":"dup"}]}
		]}}}`))
	})

	got, err := c.ListEditions(context.Background(), "1245620")
	require.NoError(t, err)
	require.Equal(t, []domain.Edition{
		{ID: "1245620", Name: "ELDEN RING", Kind: domain.VariantBase},
		{ID: "512", Name: "ELDEN RING", Kind: domain.VariantPackage},
		{ID: "777", Name: "ELDEN RING Deluxe Edition", Kind: domain.VariantPackage},
	}, got)
}

func TestListEditions_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"42":{"success":false}}`))
	})

	_, err := c.ListEditions(context.Background(), "42")
	var nf *domain.ErrNotFound
	require.True(t, errors.As(err, &nf))
}

func TestProductURL(t *testing.T) {
	c := steam.NewClient(http.DefaultClient, "", resilience.NewCircuitBreaker("x", nil), nil, resilience.Config{}, zap.NewNop())
	require.Equal(t, "https://store.steampowered.com/app/1145360/", c.ProductURL("1145360"))
}
