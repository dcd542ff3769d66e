package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/internal/notify"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
)

func dial(t *testing.T, srv *httptest.Server, token string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *gws.Conn) notify.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event notify.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestHandler_DeliversEventsToRecipient(t *testing.T) {
	jwtService := utils.NewJWTService("test-secret")
	manager := NewManager()
	srv := httptest.NewServer(Handler(jwtService, manager))
	defer srv.Close()
	defer manager.Shutdown()

	alice, bob := uuid.New(), uuid.New()
	aliceToken, err := jwtService.GenerateToken(alice, models.RoleUser)
	require.NoError(t, err)
	bobToken, err := jwtService.GenerateToken(bob, models.RoleUser)
	require.NoError(t, err)

	aliceConn := dial(t, srv, aliceToken)
	bobConn := dial(t, srv, bobToken)
	assert.Equal(t, EventConnected, readEvent(t, aliceConn).Type)
	assert.Equal(t, EventConnected, readEvent(t, bobConn).Type)
	assert.Equal(t, 1, manager.Connections(alice))

	manager.Publish(context.Background(), notify.Event{
		Type:    notify.EventMatchCreated,
		UserID:  alice,
		Payload: map[string]any{"other_user_id": bob.String()},
	})

	got := readEvent(t, aliceConn)
	assert.Equal(t, notify.EventMatchCreated, got.Type)
	assert.Equal(t, alice, got.UserID)
	assert.Equal(t, bob.String(), got.Payload["other_user_id"])
	assert.False(t, got.Timestamp.IsZero())

	// Боб событие не получает
	require.NoError(t, bobConn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = bobConn.ReadMessage()
	assert.Error(t, err)
}

func TestHandler_Ping(t *testing.T) {
	jwtService := utils.NewJWTService("test-secret")
	manager := NewManager()
	srv := httptest.NewServer(Handler(jwtService, manager))
	defer srv.Close()
	defer manager.Shutdown()

	token, err := jwtService.GenerateToken(uuid.New(), models.RoleUser)
	require.NoError(t, err)
	conn := dial(t, srv, token)
	readEvent(t, conn)

	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, notify.EventType("pong"), readEvent(t, conn).Type)
}

func TestHandler_RejectsBadToken(t *testing.T) {
	srv := httptest.NewServer(Handler(utils.NewJWTService("test-secret"), NewManager()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=garbage"
	_, resp, err := gws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestManager_RemoveClientIsIdempotent(t *testing.T) {
	manager := NewManager()
	userID := uuid.New()

	// Без живых соединений публикация ничего не делает
	manager.Publish(context.Background(), notify.Event{Type: notify.EventTradeAccepted, UserID: userID})
	assert.Equal(t, 0, manager.Connections(userID))
	manager.RemoveClient(uuid.New())
}
