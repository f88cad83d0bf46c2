package domain

type TrackerEventType string

const (
	EventLockAcquired TrackerEventType = "lock_acquired"
	EventLockLost     TrackerEventType = "lock_lost"
	EventFenceEntered TrackerEventType = "fence_entered"
	EventFenceCleared TrackerEventType = "fence_cleared"
)

// TrackerEvent is a lock or fence transition published to downstream consumers.
type TrackerEvent struct {
	ID        string           `json:"event_id"`
	Event     TrackerEventType `json:"event"`
	Fence     *Fence           `json:"fence,omitempty"`
	Position  *Fix             `json:"position,omitempty"`
	Timestamp int64            `json:"timestamp"`
}
