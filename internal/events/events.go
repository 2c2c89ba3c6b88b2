// Package events defines the domain events emitted after successful workflow
// transitions and the publishers that deliver them to the notification layer.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "campusconnect-event-service"
	EventVersion = "1.0"
)

type EventType string

const (
	EventCreated   EventType = "event.created"
	EventUpdated   EventType = "event.updated"
	EventApproved  EventType = "event.approved"
	EventRejected  EventType = "event.rejected"
	EventCancelled EventType = "event.cancelled"
	EventCompleted EventType = "event.completed"
	EventDeleted   EventType = "event.deleted"

	RegistrationCreated       EventType = "registration.created"
	RegistrationStatusChanged EventType = "registration.status_changed"

	MediaUploaded EventType = "media.uploaded"

	AdminAccountCreated EventType = "identity.admin_created"
	UserSignedUp        EventType = "identity.signed_up"
)

// Topic groups event types per aggregate: "event", "registration", "media" or "identity".
func (t EventType) Topic() string {
	for i := 0; i < len(t); i++ {
		if t[i] == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}

type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher delivers domain events. Implementations must be safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// EventLifecycleData is the payload of every event.* message
type EventLifecycleData struct {
	EventID     string  `json:"event_id"`
	Title       string  `json:"title"`
	OrganizerID string  `json:"organizer_id"`
	FromStatus  string  `json:"from_status,omitempty"`
	ToStatus    string  `json:"to_status"`
	ActorID     string  `json:"actor_id"`
	Reason      *string `json:"reason,omitempty"`
}

type RegistrationData struct {
	RegistrationID string `json:"registration_id"`
	EventID        string `json:"event_id"`
	UserID         string `json:"user_id"`
	FromStatus     string `json:"from_status,omitempty"`
	ToStatus       string `json:"to_status"`
	ActorID        string `json:"actor_id"`
}

type MediaData struct {
	MediaID    string `json:"media_id"`
	EventID    string `json:"event_id"`
	FileURL    string `json:"file_url"`
	UploadedBy string `json:"uploaded_by"`
}

type IdentityData struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedBy string `json:"created_by,omitempty"`
	// MustRotatePassword is set for admin accounts provisioned with the shared initial password
	MustRotatePassword bool `json:"must_rotate_password,omitempty"`
}
