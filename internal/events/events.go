// Package events publishes study activity onto NATS for downstream
// consumers (dashboards, parents' digests). The publisher is optional —
// the assistant runs fine without a broker.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectChatAnswered fires after every answered chat turn.
	SubjectChatAnswered = "yichen.chat.answered"
	// SubjectWrongQuestionRecorded fires when an entry lands in the
	// wrong-question book.
	SubjectWrongQuestionRecorded = "yichen.wrongbook.recorded"
)

// ChatAnswered is the payload for SubjectChatAnswered.
type ChatAnswered struct {
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	PromptLen   int    `json:"prompt_len"`
	ImageCount  int    `json:"image_count"`
	HasMap      bool   `json:"has_map"`
	HasTimeline bool   `json:"has_timeline"`
	Citations   int    `json:"citations"`
}

// WrongQuestionRecorded is the payload for SubjectWrongQuestionRecorded.
type WrongQuestionRecorded struct {
	Subject string `json:"subject"`
	Topic   string `json:"topic"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: nc, logger: logger}, nil
}

func (p *Publisher) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

func (p *Publisher) Close() {
	p.conn.Close()
}
