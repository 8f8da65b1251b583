package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
)

const maxChatBody = 16 << 10

func chatHandler(chat ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /chat/{userId}")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		if !authorizeUser(r, userID) {
			handleServiceError(w, &domain.ErrForbidden{Action: "chat as another user"}, logger)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)
		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			handleServiceError(w, &domain.ErrValidation{Field: "text", Message: "must not be empty"}, logger)
			return
		}

		reply := chat.HandleIncomingText(ctx, userID, domain.Channel{Transport: "http", ID: req.Channel}, req.Text)

		if reply.Kind == domain.ReplyRateLimited {
			w.Header().Set("Retry-After", strconv.Itoa(reply.RetryAfterSeconds))
			writeJSON(w, http.StatusTooManyRequests, reply)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}
