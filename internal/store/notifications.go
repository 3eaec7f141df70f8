package store

import "time"

// NotificationType classifies storage-health notifications raised by
// durable store implementations. These are side-channel signals for the
// presentation layer; they are never surfaced as errors to the service.
type NotificationType string

// Possible notification types
const (
	// NotificationUnavailable fires when the backing storage is unusable
	// at construction time.
	NotificationUnavailable NotificationType = "storage_unavailable"

	// NotificationCorruptedDataCleared fires when a persisted payload
	// failed to parse or validate and was discarded wholesale.
	NotificationCorruptedDataCleared NotificationType = "corrupted_data_cleared"

	// NotificationQuotaExceeded fires when a write failed due to quota
	// exhaustion.
	NotificationQuotaExceeded NotificationType = "quota_exceeded"

	// NotificationTemporaryFailure fires on a transient storage error.
	NotificationTemporaryFailure NotificationType = "temporary_failure"

	// NotificationFallbackActivated fires the first time per session that
	// operations are redirected to the in-memory fallback.
	NotificationFallbackActivated NotificationType = "fallback_activated"

	// NotificationStorageRestored fires once when previously unavailable
	// storage becomes usable again.
	NotificationStorageRestored NotificationType = "storage_restored"
)

// Notification is a typed storage-health message plus optional details.
type Notification struct {
	Type       NotificationType `json:"type"`
	Details    string           `json:"details,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// NotifyFunc receives storage notifications. Implementations must not
// block; the store calls it inline.
type NotifyFunc func(Notification)

// NewNotification builds a Notification stamped with the current time.
func NewNotification(t NotificationType, details string) Notification {
	return Notification{
		Type:       t,
		Details:    details,
		OccurredAt: time.Now().UTC(),
	}
}
