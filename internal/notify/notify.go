// Package notify доставляет доменные события пользователям. Публикация
// не ждёт подтверждения доставки: ошибки синков только логируются.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType тип доменного события
type EventType string

const (
	EventMatchCreated   EventType = "match_created"
	EventTradeAccepted  EventType = "trade_accepted"
	EventTradeCompleted EventType = "trade_completed"
	EventItemRemoved    EventType = "item_removed"
)

// Event событие для одного получателя
type Event struct {
	Type      EventType      `json:"type"`
	UserID    uuid.UUID      `json:"user_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sink получатель событий
type Sink interface {
	Publish(ctx context.Context, event Event)
}

// Multi рассылает событие во все синки
type Multi []Sink

func (m Multi) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, s := range m {
		if s != nil {
			s.Publish(ctx, event)
		}
	}
}

// Nop синк, который ничего не делает
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Recorder запоминает опубликованные события
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events возвращает копию событий
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType возвращает события заданного типа
func (r *Recorder) OfType(t EventType) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
