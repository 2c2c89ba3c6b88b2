package services

import (
	"context"
	"io"
	"time"

	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateEventRequest = validator.EventCreateRequest
type UpdateEventRequest = validator.EventUpdateRequest
type RejectEventRequest = validator.RejectEventRequest
type UpdateRegistrationStatusRequest = validator.UpdateRegistrationStatusRequest
type SignUpRequest = validator.SignUpRequest
type CreateAdminRequest = validator.CreateAdminRequest
type SignInRequest = validator.SignInRequest
type UploadMediaRequest = validator.UploadMediaRequest
type UpdateProfileRequest = validator.UpdateProfileRequest

type EventResponse struct {
	*models.Event
	CanEdit     bool `json:"can_edit"`
	CanDelete   bool `json:"can_delete"`
	CanReview   bool `json:"can_review"`
	CanRegister bool `json:"can_register"`
}

type EventListResponse struct {
	Events []*EventResponse `json:"events"`
	Total  int64            `json:"total"`
	Page   int              `json:"page"`
	Size   int              `json:"size"`
}

// EventListFilters are the caller-controlled filters of the event listings
type EventListFilters struct {
	Category  *string    `form:"category"`
	Search    string     `form:"search"`
	DateFrom  *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo    *time.Time `form:"date_to" time_format:"2006-01-02"`
	Status    *string    `form:"status"`
	Page      int        `form:"page"`
	Size      int        `form:"size"`
	SortBy    string     `form:"sort_by"`
	SortOrder string     `form:"sort_order"`
}

type RegistrationListFilters struct {
	Status    *models.RegistrationStatus `form:"status"`
	Search    string                     `form:"search"`
	Page      int                        `form:"page"`
	Size      int                        `form:"size"`
	SortBy    string                     `form:"sort_by"`
	SortOrder string                     `form:"sort_order"`
}

type RegistrationListResponse struct {
	Registrations []*models.Registration    `json:"registrations"`
	Stats         *models.RegistrationStats `json:"stats"`
	Total         int64                     `json:"total"`
	Page          int                       `json:"page"`
	Size          int                       `json:"size"`
}

type RegistrationCheckResponse struct {
	Registered bool                       `json:"registered"`
	Status     *models.RegistrationStatus `json:"status,omitempty"`
}

type SignUpResponse struct {
	Profile *models.Profile `json:"profile"`
}

type CreateAdminResponse struct {
	Profile            *models.Profile `json:"profile"`
	MustRotatePassword bool            `json:"must_rotate_password"`
}

type SignInResponse struct {
	AccessToken string           `json:"access_token"`
	ExpiresAt   time.Time        `json:"expires_at"`
	User        models.Principal `json:"user"`
	State       SessionState     `json:"state"`
}

// ===== SERVICE INTERFACES =====

type IdentityService interface {
	SignUp(ctx context.Context, req *SignUpRequest) (*SignUpResponse, error)
	CreateAdminAccount(ctx context.Context, caller models.Principal, req *CreateAdminRequest) (*CreateAdminResponse, error)
	SignIn(ctx context.Context, session *Session, req *SignInRequest) (*SignInResponse, error)
	SignOut(ctx context.Context, session *Session, token string) error

	// GetSession resolves a bearer token to a principal with a freshly resolved role
	GetSession(ctx context.Context, token string) (models.Principal, error)
	// ResolveRole never fails; lookups that keep failing resolve to student
	ResolveRole(ctx context.Context, userID string) models.UserRole
	// WatchSessions applies identity-provider session changes until ctx ends or changes closes
	WatchSessions(ctx context.Context, session *Session, changes <-chan SessionChange)

	GetProfile(ctx context.Context, caller models.Principal) (*models.Profile, error)
	UpdateProfile(ctx context.Context, caller models.Principal, req *UpdateProfileRequest) (*models.Profile, error)
}

type EventService interface {
	// Core CRUD
	Create(ctx context.Context, organizer models.Principal, req *CreateEventRequest) (*EventResponse, error)
	GetByID(ctx context.Context, viewer models.Principal, id string) (*EventResponse, error)
	Update(ctx context.Context, caller models.Principal, id string, req *UpdateEventRequest) (*EventResponse, error)
	Delete(ctx context.Context, caller models.Principal, id string) error

	// Listings
	List(ctx context.Context, viewer models.Principal, filters EventListFilters) (*EventListResponse, error)
	ListPending(ctx context.Context, reviewer models.Principal, filters EventListFilters) (*EventListResponse, error)
	ListByOrganizer(ctx context.Context, caller models.Principal, organizerID string, filters EventListFilters) (*EventListResponse, error)

	// Lifecycle
	Approve(ctx context.Context, reviewer models.Principal, id string) (*EventResponse, error)
	Reject(ctx context.Context, reviewer models.Principal, id string, reason string) (*EventResponse, error)
	Cancel(ctx context.Context, caller models.Principal, id string) (*EventResponse, error)
	Complete(ctx context.Context, caller models.Principal, id string) (*EventResponse, error)
	History(ctx context.Context, caller models.Principal, id string) ([]*models.EventStatusChange, error)

	// ReconcileParticipants recomputes current_participants from approved registrations
	ReconcileParticipants(ctx context.Context, caller models.Principal, id string) (*EventResponse, error)
}

type RegistrationService interface {
	Register(ctx context.Context, student models.Principal, eventID string) (*models.Registration, error)
	UpdateStatus(ctx context.Context, reviewer models.Principal, registrationID string, status models.RegistrationStatus) (*models.Registration, error)

	ListByEvent(ctx context.Context, caller models.Principal, eventID string, filters RegistrationListFilters) (*RegistrationListResponse, error)
	ListMine(ctx context.Context, caller models.Principal) ([]*models.Registration, error)
	IsRegistered(ctx context.Context, caller models.Principal, eventID string) (*RegistrationCheckResponse, error)

	// ExportRoster writes the event's registrations as an .xlsx workbook
	ExportRoster(ctx context.Context, caller models.Principal, eventID string, status *models.RegistrationStatus, w io.Writer) error
}

type MediaService interface {
	Upload(ctx context.Context, caller models.Principal, eventID string, req *UploadMediaRequest) (*models.EventMedia, error)
	List(ctx context.Context, viewer models.Principal, eventID string) ([]*models.EventMedia, error)
	Delete(ctx context.Context, caller models.Principal, mediaID string) error
}
