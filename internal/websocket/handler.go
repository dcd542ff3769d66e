package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rajivgeraev/flippy-trade/internal/notify"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
	"github.com/rajivgeraev/flippy-trade/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mini App открывается с домена Telegram
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler принимает WebSocket соединения. Токен передаётся в ?token=
// или в заголовке Authorization
func Handler(jwtService *utils.JWTService, manager *Manager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		userID, err := jwtService.ExtractUserID(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warnf("Ошибка WebSocket upgrade: %v", err)
			return
		}

		client := NewClient(userID, conn, manager)
		hello, _ := json.Marshal(notify.Event{Type: EventConnected, UserID: userID, Timestamp: time.Now()})
		client.send <- hello
		client.Start()
	})
}
