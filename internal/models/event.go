package models

import (
	"time"

	"gorm.io/datatypes"
)

type EventStatus string

const (
	EventStatusDraft           EventStatus = "draft"
	EventStatusPendingApproval EventStatus = "pending_approval"
	EventStatusApproved        EventStatus = "approved"
	EventStatusRejected        EventStatus = "rejected"
	EventStatusCancelled       EventStatus = "cancelled"
	EventStatusCompleted       EventStatus = "completed"
)

func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusDraft, EventStatusPendingApproval, EventStatusApproved,
		EventStatusRejected, EventStatusCancelled, EventStatusCompleted:
		return true
	}
	return false
}

// IsPublic reports whether events in this status are visible without any role.
func (s EventStatus) IsPublic() bool {
	return s == EventStatusApproved || s == EventStatusCompleted || s == EventStatusCancelled
}

// EventCategories are the categories offered by the event creation form.
var EventCategories = []string{
	"Technical",
	"Cultural",
	"Sports",
	"Academic",
	"Workshop",
	"Conference",
	"Competition",
	"Other",
}

type Event struct {
	ID                   string                      `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizerID          string                      `json:"organizer_id" gorm:"not null;index;size:255"`
	Title                string                      `json:"title" gorm:"not null;size:200"`
	Description          string                      `json:"description" gorm:"type:text"`
	Category             string                      `json:"category" gorm:"size:50;index"`
	Venue                string                      `json:"venue" gorm:"not null;size:200"`
	Requirements         *string                     `json:"requirements" gorm:"type:text"`
	ImageURL             *string                     `json:"image_url" gorm:"size:500"`
	Tags                 datatypes.JSONSlice[string] `json:"tags" gorm:"type:jsonb"`
	EventDate            time.Time                   `json:"event_date" gorm:"not null;index"`
	RegistrationDeadline time.Time                   `json:"registration_deadline" gorm:"not null"`
	MaxParticipants      *int                        `json:"max_participants"`
	CurrentParticipants  int                         `json:"current_participants" gorm:"not null;default:0"`
	Status               EventStatus                 `json:"status" gorm:"not null;default:pending_approval;size:32;index"`

	// Review
	DeclinedReason *string    `json:"declined_reason" gorm:"type:text"`
	ReviewedBy     *string    `json:"reviewed_by" gorm:"size:255"`
	ReviewedAt     *time.Time `json:"reviewed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Event) TableName() string {
	return "events"
}

// HasCapacityFor reports whether one more approved registration fits.
func (e *Event) HasCapacityFor(approved int64) bool {
	if e.MaxParticipants == nil {
		return true
	}
	return approved < int64(*e.MaxParticipants)
}

// EventStatusChange is one row of an event's status history.
type EventStatusChange struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	EventID    string         `json:"event_id" gorm:"not null;index;type:uuid"`
	FromStatus *EventStatus   `json:"from_status" gorm:"size:32"`
	ToStatus   EventStatus    `json:"to_status" gorm:"not null;size:32"`
	ChangedBy  string         `json:"changed_by" gorm:"not null;size:255"`
	Reason     *string        `json:"reason" gorm:"type:text"`
	Metadata   datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (EventStatusChange) TableName() string {
	return "event_status_history"
}

type EventMedia struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid"`
	EventID    string    `json:"event_id" gorm:"not null;index;type:uuid"`
	FileURL    string    `json:"file_url" gorm:"not null;size:500"`
	FileType   string    `json:"file_type" gorm:"not null;size:50"`
	Caption    *string   `json:"caption" gorm:"type:text"`
	UploadedBy string    `json:"uploaded_by" gorm:"not null;size:255"`
	CreatedAt  time.Time `json:"created_at"`
}

func (EventMedia) TableName() string {
	return "event_media"
}
