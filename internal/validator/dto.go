package validator

import (
	"strings"
	"time"

	"github.com/campusconnect/event-service/internal/models"
)

// EventCreateRequest represents the request structure for creating events.
// Field order is the order validation failures are reported in.
type EventCreateRequest struct {
	Venue                string    `json:"venue" validate:"notblank,max=200"`
	Title                string    `json:"title" validate:"required,min=5,max=200"`
	Description          string    `json:"description" validate:"required,min=20,max=5000"`
	Category             string    `json:"category" validate:"required,event_category"`
	EventDate            time.Time `json:"event_date" validate:"required"`
	RegistrationDeadline time.Time `json:"registration_deadline" validate:"required,ltfield=EventDate"`
	MaxParticipants      *int      `json:"max_participants" validate:"omitempty,min=1,max=100000"`
	Requirements         *string   `json:"requirements" validate:"omitempty,max=2000"`
	ImageURL             *string   `json:"image_url" validate:"omitempty,url,max=500"`
	Tags                 []string  `json:"tags" validate:"omitempty,max=20,unique,dive,notblank,max=50"`
}

// EventUpdateRequest represents the request structure for editing events
type EventUpdateRequest struct {
	Venue                *string    `json:"venue" validate:"omitempty,notblank,max=200"`
	Title                *string    `json:"title" validate:"omitempty,min=5,max=200"`
	Description          *string    `json:"description" validate:"omitempty,min=20,max=5000"`
	Category             *string    `json:"category" validate:"omitempty,event_category"`
	EventDate            *time.Time `json:"event_date"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxParticipants      *int       `json:"max_participants" validate:"omitempty,min=1,max=100000"`
	Requirements         *string    `json:"requirements" validate:"omitempty,max=2000"`
	ImageURL             *string    `json:"image_url" validate:"omitempty,url,max=500"`
	Tags                 []string   `json:"tags" validate:"omitempty,max=20,unique,dive,notblank,max=50"`
}

// Normalize trims free-text fields so length rules apply to what gets stored
func (r *EventCreateRequest) Normalize() {
	r.Venue = strings.TrimSpace(r.Venue)
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Category = strings.TrimSpace(r.Category)
	r.Requirements = trimPtr(r.Requirements)
	r.ImageURL = trimPtr(r.ImageURL)
	r.Tags = trimAll(r.Tags)
}

// Normalize trims the fields present in the edit
func (r *EventUpdateRequest) Normalize() {
	r.Venue = trimPtr(r.Venue)
	r.Title = trimPtr(r.Title)
	r.Description = trimPtr(r.Description)
	r.Category = trimPtr(r.Category)
	r.Requirements = trimPtr(r.Requirements)
	r.ImageURL = trimPtr(r.ImageURL)
	r.Tags = trimAll(r.Tags)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	return &trimmed
}

func trimAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}
	return values
}

type RejectEventRequest struct {
	Reason string `json:"reason"`
}

type UpdateRegistrationStatusRequest struct {
	Status models.RegistrationStatus `json:"status" validate:"required,registration_decision"`
}

// SignUpRequest is the self-service account creation payload
type SignUpRequest struct {
	Email    string          `json:"email" validate:"required,email,max=255"`
	Password string          `json:"password" validate:"required,min=6,max=128"`
	FullName string          `json:"full_name" validate:"required,notblank,max=100"`
	Role     models.UserRole `json:"role" validate:"omitempty,user_role"`
}

type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	FullName string `json:"full_name" validate:"required,notblank,max=100"`
}

// SignInRequest carries the authorization code returned by the identity provider
type SignInRequest struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state"`
}

type UploadMediaRequest struct {
	FileURL  string  `json:"file_url" validate:"required,url,max=500"`
	FileType string  `json:"file_type" validate:"required,max=50"`
	Caption  *string `json:"caption" validate:"omitempty,max=500"`
}

type UpdateProfileRequest struct {
	FullName    *string `json:"full_name" validate:"omitempty,notblank,max=100"`
	Phone       *string `json:"phone" validate:"omitempty,min=7,max=20"`
	RollNumber  *string `json:"roll_number" validate:"omitempty,notblank,max=50"`
	Department  *string `json:"department" validate:"omitempty,max=100"`
	YearOfStudy *int    `json:"year_of_study" validate:"omitempty,min=1,max=6"`
}
