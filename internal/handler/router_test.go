package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/catalog"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/handler"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/infra/observability"
	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/service"
)

// --- Mocks ---

type mockChat struct {
	mu    sync.Mutex
	calls []string
	reply func(text string) domain.Reply
}

func (m *mockChat) HandleIncomingText(_ context.Context, userID string, ch domain.Channel, text string) domain.Reply {
	m.mu.Lock()
	m.calls = append(m.calls, userID+"|"+ch.Transport+"|"+text)
	m.mu.Unlock()
	if m.reply != nil {
		return m.reply(text)
	}
	return domain.Reply{Kind: domain.ReplyNoResults, MessageID: "m-1"}
}

type mockProducts struct {
	editions   map[domain.ProductID][]domain.Edition
	lastRef    domain.ProductRef
	lastRegion []domain.RegionCode
}

func (m *mockProducts) Editions(_ context.Context, id domain.ProductID) ([]domain.Edition, error) {
	eds, ok := m.editions[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "product", ID: string(id)}
	}
	return eds, nil
}

func (m *mockProducts) Prices(_ context.Context, ref domain.ProductRef, regions []domain.RegionCode) *domain.PriceTable {
	m.lastRef = ref
	m.lastRegion = regions
	quotes := make([]domain.PriceQuote, 0, len(regions))
	for _, r := range regions {
		quotes = append(quotes, domain.PriceQuote{Region: r})
	}
	return &domain.PriceTable{Product: ref, Quotes: quotes}
}

// --- Helpers ---

type deps struct {
	chat     *mockChat
	products *mockProducts
	tokens   *service.TokenVerifier
}

func newRouter(t *testing.T, withAuth bool) (http.Handler, *deps) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	d := &deps{
		chat: &mockChat{},
		products: &mockProducts{editions: map[domain.ProductID][]domain.Edition{
			"1245620": {{ID: "1245620", Name: "ELDEN RING", Kind: domain.VariantBase}},
		}},
	}
	hd := handler.Deps{
		Chat:     d.chat,
		Products: d.products,
		Regions:  cat,
		Metrics:  observability.NewMetrics(),
		Logger:   zap.NewNop(),
	}
	if withAuth {
		d.tokens = service.NewTokenVerifier("test-secret")
		hd.Tokens = d.tokens
	}
	return handler.NewRouter(hd), d
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Operational ---

func TestHealthz(t *testing.T) {
	router, _ := newRouter(t, false)

	rec := do(t, router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var h domain.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	require.Equal(t, domain.HealthHealthy, h.Status)
}

func TestHealthz_DegradedWithoutChat(t *testing.T) {
	router := handler.NewRouter(handler.Deps{Metrics: observability.NewMetrics()})

	rec := do(t, router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestReadyz(t *testing.T) {
	router, _ := newRouter(t, false)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/readyz", "").Code)
}

func TestMetrics(t *testing.T) {
	router, _ := newRouter(t, false)

	rec := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBotMetrics(t *testing.T) {
	router, _ := newRouter(t, false)

	rec := do(t, router, http.MethodGet, "/v1/metrics/bot", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var m domain.BotMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	require.Equal(t, "all_time", m.Period)
}

// --- Chat ---

func TestChat_OK(t *testing.T) {
	router, d := newRouter(t, false)

	rec := do(t, router, http.MethodPost, "/v1/chat/u1", `{"text":"elden ring turkey"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"u1|http|elden ring turkey"}, d.chat.calls)

	var reply domain.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	require.Equal(t, domain.ReplyNoResults, reply.Kind)
}

func TestChat_RateLimited(t *testing.T) {
	router, d := newRouter(t, false)
	d.chat.reply = func(string) domain.Reply {
		return domain.Reply{Kind: domain.ReplyRateLimited, RetryAfterSeconds: 3}
	}

	rec := do(t, router, http.MethodPost, "/v1/chat/u1", `{"text":"hades"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "3", rec.Header().Get("Retry-After"))
}

func TestChat_BadBody(t *testing.T) {
	router, d := newRouter(t, false)

	require.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/v1/chat/u1", `{not json`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/v1/chat/u1", `{"text":"  "}`).Code)
	require.Empty(t, d.chat.calls)
}

// --- Auth ---

func TestChat_Auth(t *testing.T) {
	router, d := newRouter(t, true)

	rec := do(t, router, http.MethodPost, "/v1/chat/u1", `{"text":"hades"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "missing token")

	rec = do(t, router, http.MethodPost, "/v1/chat/u1", `{"text":"hades"}`, "Authorization", "Bearer nope")
	require.Equal(t, http.StatusUnauthorized, rec.Code, "invalid token")

	rec = do(t, router, http.MethodPost, "/v1/chat/u1", `{"text":"hades"}`, "Authorization", "Token abc")
	require.Equal(t, http.StatusUnauthorized, rec.Code, "wrong scheme")

	token, err := d.tokens.Sign("u2", time.Hour)
	require.NoError(t, err)
	rec = do(t, router, http.MethodPost, "/v1/chat/u1", `{"text":"hades"}`, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusForbidden, rec.Code, "other user's token")

	token, err = d.tokens.Sign("u1", time.Hour)
	require.NoError(t, err)
	rec = do(t, router, http.MethodPost, "/v1/chat/u1", `{"text":"hades"}`, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, d.chat.calls, 1)
}

func TestOperationalRoutesSkipAuth(t *testing.T) {
	router, _ := newRouter(t, true)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/healthz", "").Code)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/v1/regions", "").Code)
}

// --- Regions & products ---

func TestRegions(t *testing.T) {
	router, _ := newRouter(t, false)

	rec := do(t, router, http.MethodGet, "/v1/regions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Regions  []domain.Region     `json:"regions"`
		Defaults []domain.RegionCode `json:"defaults"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Regions)
	require.NotEmpty(t, body.Defaults)
}

func TestEditions(t *testing.T) {
	router, _ := newRouter(t, false)

	rec := do(t, router, http.MethodGet, "/v1/products/1245620/editions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ELDEN RING")

	require.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/v1/products/42/editions", "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/v1/products/abc/editions", "").Code)
}

func TestPrices(t *testing.T) {
	router, d := newRouter(t, false)

	rec := do(t, router, http.MethodGet, "/v1/products/1245620/prices?regions=tr,sa,TR", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []domain.RegionCode{"TR", "SA"}, d.products.lastRegion)
	require.Equal(t, domain.VariantBase, d.products.lastRef.Kind)

	rec = do(t, router, http.MethodGet, "/v1/products/1245620/prices?kind=package", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, domain.VariantPackage, d.products.lastRef.Kind)
	require.NotEmpty(t, d.products.lastRegion, "defaults apply without regions")
}

func TestPrices_Validation(t *testing.T) {
	router, _ := newRouter(t, false)

	for _, path := range []string{
		"/v1/products/abc/prices",
		"/v1/products/1/prices?regions=TR,XX",
		"/v1/products/1/prices?kind=dlc",
	} {
		rec := do(t, router, http.MethodGet, path, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

// --- WebSocket ---

func TestWebSocket_Roundtrip(t *testing.T) {
	router, d := newRouter(t, false)
	d.chat.reply = func(text string) domain.Reply {
		return domain.Reply{Kind: domain.ReplyChoicePrompt, MessageID: text}
	}

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/u7"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for _, text := range []string{"hades", "2"} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(text)))

		var reply domain.Reply
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		require.NoError(t, conn.ReadJSON(&reply))
		require.Equal(t, domain.ReplyChoicePrompt, reply.Kind)
		require.Equal(t, text, reply.MessageID)
	}

	d.chat.mu.Lock()
	defer d.chat.mu.Unlock()
	require.Equal(t, []string{"u7|ws|hades", "u7|ws|2"}, d.chat.calls)
}

func TestWebSocket_AuthViaQuery(t *testing.T) {
	router, d := newRouter(t, true)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/u7"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := d.tokens.Sign("u7", time.Hour)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(base+"?access_token="+token, nil)
	require.NoError(t, err)
	conn.Close()
}
