package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
	"github.com/dmarc0001/busmobile/module/tracker/internal/repository/publisher"
)

var _ publisher.EventPublisher = (*EventPublisher)(nil)

const (
	ExchangeName = "busmobile.events"
	QueueName    = "busmobile_events"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type EventPublisher struct {
	ch publishChannel
}

// NewEventPublisher declares the fanout exchange and a durable queue bound to it.
func NewEventPublisher(conn *amqp.Connection) (*EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &EventPublisher{ch: ch}, nil
}

type eventMessage struct {
	EventID   string                  `json:"event_id"`
	Event     domain.TrackerEventType `json:"event"`
	Fence     *eventFence             `json:"fence,omitempty"`
	Position  *eventPosition          `json:"position,omitempty"`
	Timestamp int64                   `json:"timestamp"`
}

type eventFence struct {
	ID     string           `json:"id,omitempty"`
	Kind   domain.FenceKind `json:"kind"`
	Title  string           `json:"title"`
	Notice string           `json:"notice,omitempty"`
	Media  []string         `json:"media,omitempty"`
}

type eventPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Speed     float64 `json:"speed"`
	Course    float64 `json:"course"`
	Mode      string  `json:"mode"`
}

func newEventMessage(event *domain.TrackerEvent) eventMessage {
	msg := eventMessage{
		EventID:   event.ID,
		Event:     event.Event,
		Timestamp: event.Timestamp,
	}
	if f := event.Fence; f != nil {
		msg.Fence = &eventFence{
			ID:     f.ID,
			Kind:   f.Kind,
			Title:  f.Title,
			Notice: f.Notice,
			Media:  f.Media,
		}
	}
	if p := event.Position; p != nil {
		msg.Position = &eventPosition{
			Latitude:  p.Lat,
			Longitude: p.Lon,
			Speed:     p.Speed,
			Course:    p.Course,
			Mode:      p.Mode.String(),
		}
	}
	return msg
}

func (p *EventPublisher) PublishEvent(ctx context.Context, event *domain.TrackerEvent) error {
	body, err := json.Marshal(newEventMessage(event))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   event.ID,
		Timestamp:   time.Unix(event.Timestamp, 0),
		Type:        string(event.Event),
		Body:        body,
	})
}
