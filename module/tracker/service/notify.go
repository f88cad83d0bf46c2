package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmarc0001/busmobile/module/tracker/domain"
	"github.com/dmarc0001/busmobile/module/tracker/internal/repository/publisher"
)

const defaultPublishTimeout = 2 * time.Second

type displayNotifier interface {
	SetLock(locked bool) error
	ShowFence(title, notice string) error
	Clear() error
}

// NotificationService turns engine callbacks into display messages and
// published tracker events. Either sink may be nil.
type NotificationService struct {
	display   displayNotifier
	publisher publisher.EventPublisher
	position  func() (domain.Fix, bool)
	timeout   time.Duration

	mu      sync.Mutex
	current *domain.Fence
}

func NewNotificationService(display displayNotifier, pub publisher.EventPublisher, position func() (domain.Fix, bool)) *NotificationService {
	return &NotificationService{
		display:   display,
		publisher: pub,
		position:  position,
		timeout:   defaultPublishTimeout,
	}
}

func (n *NotificationService) Handlers() Handlers {
	return Handlers{
		OnLockChanged: n.OnLockChanged,
		OnFenceHit:    n.OnFenceHit,
	}
}

func (n *NotificationService) OnLockChanged(locked bool) {
	log.Printf("position lock is %t", locked)

	if n.display != nil {
		if err := n.display.SetLock(locked); err != nil {
			log.Printf("display lock: %v", err)
		}
	}

	event := domain.EventLockLost
	if locked {
		event = domain.EventLockAcquired
	}
	n.publish(event, nil)
}

func (n *NotificationService) OnFenceHit(fence *domain.Fence) {
	n.mu.Lock()
	previous := n.current
	n.current = fence
	n.mu.Unlock()

	if fence == nil {
		log.Printf("fence hit cleared")
		if n.display != nil {
			if err := n.display.Clear(); err != nil {
				log.Printf("display clear: %v", err)
			}
		}
		n.publish(domain.EventFenceCleared, previous)
		return
	}

	log.Printf("fence hit %q (%s), notice: %q", fence.Title, fence.Kind, fence.Notice)
	if n.display != nil {
		if err := n.display.ShowFence(fence.Title, fence.Notice); err != nil {
			log.Printf("display fence: %v", err)
		}
	}
	n.publish(domain.EventFenceEntered, fence)
}

func (n *NotificationService) publish(event domain.TrackerEventType, fence *domain.Fence) {
	if n.publisher == nil {
		return
	}

	ev := &domain.TrackerEvent{
		ID:        uuid.NewString(),
		Event:     event,
		Timestamp: time.Now().Unix(),
	}
	if fence != nil {
		f := fence.Clone()
		ev.Fence = &f
	}
	if n.position != nil {
		if fix, ok := n.position(); ok {
			ev.Position = &fix
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	if err := n.publisher.PublishEvent(ctx, ev); err != nil {
		log.Printf("publish %s: %v", event, err)
	}
}
