package publisher

import (
	"context"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, event *domain.TrackerEvent) error
}
