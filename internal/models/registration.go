package models

import "time"

type RegistrationStatus string

const (
	RegistrationPending    RegistrationStatus = "pending"
	RegistrationApproved   RegistrationStatus = "approved"
	RegistrationRejected   RegistrationStatus = "rejected"
	RegistrationWaitlisted RegistrationStatus = "waitlisted"
)

func (s RegistrationStatus) IsValid() bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationRejected, RegistrationWaitlisted:
		return true
	}
	return false
}

// IsDecision reports whether s is a status a reviewer may move a pending registration to.
func (s RegistrationStatus) IsDecision() bool {
	return s == RegistrationApproved || s == RegistrationRejected || s == RegistrationWaitlisted
}

type Registration struct {
	ID               string             `json:"id" gorm:"primaryKey;type:uuid"`
	EventID          string             `json:"event_id" gorm:"not null;type:uuid;uniqueIndex:idx_registrations_event_user"`
	UserID           string             `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_registrations_event_user;index"`
	FullName         string             `json:"full_name" gorm:"not null;size:100"`
	Email            string             `json:"email" gorm:"not null;size:255"`
	Phone            string             `json:"phone" gorm:"not null;size:20"`
	RollNumber       string             `json:"roll_number" gorm:"not null;size:50"`
	Status           RegistrationStatus `json:"status" gorm:"not null;default:pending;size:32;index"`
	RegistrationDate time.Time          `json:"registration_date" gorm:"not null"`
	ApprovedBy       *string            `json:"approved_by" gorm:"size:255"`
	ApprovedAt       *time.Time         `json:"approved_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Loaded only by the registrant's own listing
	Event *Event `json:"event,omitempty" gorm:"foreignKey:EventID"`
}

func (Registration) TableName() string {
	return "registrations"
}

// RegistrationStats counts an event's registrations per status.
type RegistrationStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	Approved   int64 `json:"approved"`
	Rejected   int64 `json:"rejected"`
	Waitlisted int64 `json:"waitlisted"`
}

// Add counts n registrations in status s.
func (s *RegistrationStats) Add(status RegistrationStatus, n int64) {
	switch status {
	case RegistrationPending:
		s.Pending += n
	case RegistrationApproved:
		s.Approved += n
	case RegistrationRejected:
		s.Rejected += n
	case RegistrationWaitlisted:
		s.Waitlisted += n
	default:
		return
	}
	s.Total += n
}
