package subscriber

import (
	"context"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
	"github.com/dmarc0001/busmobile/module/tracker/internal/source"
)

const (
	DefaultTopic = "/busmobile/position"

	reportBuffer = 64
)

// PositionSubscriber is a position source fed by TPV reports published on an MQTT topic.
type PositionSubscriber struct {
	client  mqtt.Client
	topic   string
	reports chan domain.Fix
}

func NewPositionSubscriber(client mqtt.Client, topic string) *PositionSubscriber {
	if topic == "" {
		topic = DefaultTopic
	}
	return &PositionSubscriber{
		client:  client,
		topic:   topic,
		reports: make(chan domain.Fix, reportBuffer),
	}
}

func (s *PositionSubscriber) Connect(_ context.Context) error {
	if !s.client.IsConnected() {
		if token := s.client.Connect(); token.Wait() && token.Error() != nil {
			return fmt.Errorf("mqtt connect: %w", token.Error())
		}
	}

	token := s.client.Subscribe(s.topic, 1, s.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", s.topic, err)
	}
	log.Printf("subscribed to %s", s.topic)
	return nil
}

func (s *PositionSubscriber) Read(ctx context.Context, wait time.Duration) (domain.Fix, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case fix := <-s.reports:
		return fix, nil
	case <-ctx.Done():
		return domain.Fix{}, ctx.Err()
	case <-timer.C:
		if s.client != nil && !s.client.IsConnectionOpen() {
			return domain.Fix{}, domain.ErrNotConnected
		}
		return domain.Fix{}, domain.ErrNoReport
	}
}

func (s *PositionSubscriber) Close() error {
	if s.client == nil || !s.client.IsConnectionOpen() {
		return nil
	}
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	return token.Error()
}

func (s *PositionSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()
	if !source.IsPositionReport(payload) {
		return
	}

	fix := source.DecodeReport(payload)
	select {
	case s.reports <- fix:
	default:
		log.Printf("position buffer full, dropping report from %s", msg.Topic())
	}
}
