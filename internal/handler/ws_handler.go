package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/elpresidente1404-crypto/steam-prices-bot/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHandler upgrades to a websocket where every text frame is one chat
// message and every reply goes back as a JSON frame.
func wsHandler(chat ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		if !authorizeUser(r, userID) {
			handleServiceError(w, &domain.ErrForbidden{Action: "chat as another user"}, logger)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		log := logger.With(zap.String("user_id", userID))
		log.Debug("websocket connected")

		send := make(chan domain.Reply, sendBuffer)
		done := make(chan struct{})
		go func() {
			defer close(done)
			writePump(ctx, conn, send, log)
		}()

		readPump(ctx, conn, func(text string) {
			reply := chat.HandleIncomingText(ctx, userID, domain.Channel{Transport: "ws"}, text)
			select {
			case send <- reply:
			case <-done:
			}
		}, log)

		close(send)
		<-done
		log.Debug("websocket disconnected")
	}
}

func readPump(ctx context.Context, conn *websocket.Conn, handle func(string), logger *zap.Logger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for ctx.Err() == nil {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if text := strings.TrimSpace(string(message)); text != "" {
			handle(text)
		}
	}
}

// writePump owns all writes on conn. It closes the connection on exit,
// which also unblocks readPump.
func writePump(ctx context.Context, conn *websocket.Conn, send <-chan domain.Reply, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case reply, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(reply); err != nil {
				logger.Warn("websocket write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn("websocket ping error", zap.Error(err))
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
