package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
)

func regionsHandler(regions RegionCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"regions":  regions.Regions(),
			"defaults": regions.DefaultRegions(),
		})
	}
}

func editionsHandler(products ProductService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /products/{productId}/editions")
		defer span.End()

		id, ok := domain.ParseProductID(chi.URLParam(r, "productId"))
		if !ok {
			handleServiceError(w, &domain.ErrValidation{Field: "productId", Message: "must be numeric"}, logger)
			return
		}

		editions, err := products.Editions(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"productId": id,
			"editions":  editions,
		})
	}
}

func pricesHandler(products ProductService, regions RegionCatalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /products/{productId}/prices")
		defer span.End()

		id, ok := domain.ParseProductID(chi.URLParam(r, "productId"))
		if !ok {
			handleServiceError(w, &domain.ErrValidation{Field: "productId", Message: "must be numeric"}, logger)
			return
		}

		q := r.URL.Query()

		kind := domain.VariantKind(strings.ToLower(q.Get("kind")))
		switch kind {
		case "":
			kind = domain.VariantBase
		case domain.VariantBase, domain.VariantPackage:
		default:
			handleServiceError(w, &domain.ErrValidation{Field: "kind", Message: "must be base or package"}, logger)
			return
		}

		codes := regions.DefaultRegions()
		if raw := splitList(q.Get("regions")); len(raw) > 0 {
			codes = make([]domain.RegionCode, 0, len(raw))
			seen := make(map[domain.RegionCode]bool, len(raw))
			for _, item := range raw {
				code := domain.RegionCode(strings.ToUpper(item))
				if !regions.Supports(code) {
					handleServiceError(w, &domain.ErrValidation{Field: "regions", Message: "unsupported region " + item}, logger)
					return
				}
				if !seen[code] {
					seen[code] = true
					codes = append(codes, code)
				}
			}
		}

		table := products.Prices(ctx, domain.ProductRef{ID: id, Kind: kind}, codes)
		writeJSON(w, http.StatusOK, table)
	}
}
