// Package websocket доставляет события пользователям, которые сейчас онлайн.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/notify"
	"github.com/rajivgeraev/flippy-trade/pkg/logger"
)

// EventConnected первое событие после подключения
const EventConnected notify.EventType = "connected"

// Manager представляет центральный менеджер для всех WebSocket соединений
type Manager struct {
	mu          sync.RWMutex
	clients     map[uuid.UUID]*Client
	userClients map[uuid.UUID]map[uuid.UUID]struct{} // userID -> clientIDs
}

// NewManager создает новый экземпляр Manager
func NewManager() *Manager {
	return &Manager{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// AddClient регистрирует нового клиента
func (m *Manager) AddClient(client *Client) {
	m.mu.Lock()
	m.clients[client.ID] = client
	if _, exists := m.userClients[client.UserID]; !exists {
		m.userClients[client.UserID] = make(map[uuid.UUID]struct{})
	}
	m.userClients[client.UserID][client.ID] = struct{}{}
	m.mu.Unlock()

	logger.Debugf("WebSocket клиент %s подключен, пользователь %s", client.ID, client.UserID)
}

// RemoveClient удаляет клиента; повторный вызов ничего не делает
func (m *Manager) RemoveClient(clientID uuid.UUID) {
	m.mu.Lock()
	client, exists := m.clients[clientID]
	if !exists {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	if ids, ok := m.userClients[client.UserID]; ok {
		delete(ids, clientID)
		// Последний клиент пользователя
		if len(ids) == 0 {
			delete(m.userClients, client.UserID)
		}
	}
	m.mu.Unlock()

	client.close()
	logger.Debugf("WebSocket клиент %s отключен, пользователь %s", clientID, client.UserID)
}

// Connections возвращает число открытых соединений пользователя
func (m *Manager) Connections(userID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.userClients[userID])
}

// Publish отправляет событие всем соединениям получателя. Если пользователь
// не онлайн, событие теряется
func (m *Manager) Publish(_ context.Context, event notify.Event) {
	if event.UserID == uuid.Nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.mu.RLock()
	targets := make([]*Client, 0, len(m.userClients[event.UserID]))
	for clientID := range m.userClients[event.UserID] {
		if client, ok := m.clients[clientID]; ok {
			targets = append(targets, client)
		}
	}
	m.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("Ошибка сериализации события %s: %v", event.Type, err)
		return
	}

	for _, c := range targets {
		select {
		case c.send <- eventJSON:
		default:
			// Канал заполнен, клиент слишком медленный - закрываем соединение
			logger.Warnf("Очередь клиента %s переполнена, закрываем соединение", c.ID)
			m.RemoveClient(c.ID)
		}
	}
}

// Shutdown закрывает все соединения
func (m *Manager) Shutdown() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[uuid.UUID]*Client)
	m.userClients = make(map[uuid.UUID]map[uuid.UUID]struct{})
	m.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}
