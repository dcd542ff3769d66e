package notify

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/rajivgeraev/flippy-trade/internal/config"
	"github.com/rajivgeraev/flippy-trade/pkg/logger"
)

// EmailLookup возвращает адрес пользователя; пустая строка означает, что писать некуда
type EmailLookup func(ctx context.Context, userID uuid.UUID) (string, error)

// Sender отправляет готовое письмо
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSink шлёт письма о совпадениях и завершённых обменах
type EmailSink struct {
	from   string
	sender Sender
	lookup EmailLookup
}

// NewEmailSink создает синк поверх SMTP. Возвращает nil, если SMTP не настроен
func NewEmailSink(cfg config.SMTPConfig, lookup EmailLookup) *EmailSink {
	if cfg.Host == "" {
		return nil
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return &EmailSink{from: cfg.From, sender: d, lookup: lookup}
}

func (s *EmailSink) Publish(ctx context.Context, event Event) {
	subject, body, ok := renderEmail(event)
	if !ok {
		return
	}

	// Доставка асинхронная, запрос не должен ждать SMTP
	go func() {
		to, err := s.lookup(context.WithoutCancel(ctx), event.UserID)
		if err != nil || to == "" {
			return
		}

		m := gomail.NewMessage()
		m.SetHeader("From", s.from)
		m.SetHeader("To", to)
		m.SetHeader("Subject", subject)
		m.SetBody("text/html", body)

		if err := s.sender.DialAndSend(m); err != nil {
			logger.Warnf("Не удалось отправить письмо %s пользователю %s: %v", event.Type, event.UserID, err)
		}
	}()
}

func renderEmail(event Event) (subject, body string, ok bool) {
	switch event.Type {
	case EventMatchCreated:
		return "У вас новое совпадение на Flippy",
			fmt.Sprintf(`<h2>Взаимный интерес!</h2>
<p>Владелец вещи %v тоже заинтересовался вашей вещью %v.</p>
<p>Откройте приложение, чтобы предложить обмен.</p>`,
				event.Payload["their_item_id"], event.Payload["my_item_id"]), true
	case EventTradeCompleted:
		return "Обмен завершён",
			fmt.Sprintf(`<h2>Обмен %v завершён</h2>
<p>У вас есть 30 дней, чтобы оставить отзыв о партнёре.</p>`,
				event.Payload["trade_id"]), true
	default:
		return "", "", false
	}
}
