package repositories

import (
	"context"
	"time"

	"github.com/campusconnect/event-service/internal/models"
)

// ===== FILTER STRUCTURES =====

type EventFilters struct {
	Statuses    []models.EventStatus `json:"statuses"`
	OrganizerID *string              `json:"organizer_id"`
	Category    *string              `json:"category"`
	Search      string               `json:"search"` // title, description, venue
	DateFrom    *time.Time           `json:"date_from"`
	DateTo      *time.Time           `json:"date_to"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
	SortBy      string               `json:"sort_by"`    // "event_date", "created_at", "title"
	SortOrder   string               `json:"sort_order"` // "asc", "desc"
}

type RegistrationFilters struct {
	EventID   *string                    `json:"event_id"`
	UserID    *string                    `json:"user_id"`
	Status    *models.RegistrationStatus `json:"status"`
	Search    string                     `json:"search"` // full_name, email, roll_number
	Limit     int                        `json:"limit"`
	Offset    int                        `json:"offset"`
	SortBy    string                     `json:"sort_by"`
	SortOrder string                     `json:"sort_order"`
}

// ===== EVENT DOMAIN =====

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, filters EventFilters) ([]*models.Event, int64, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	// UpdateStatus applies updates only while the row is still in expected; otherwise ErrStaleState
	UpdateStatus(ctx context.Context, id string, expected models.EventStatus, updates map[string]interface{}) error
	SetParticipantCount(ctx context.Context, id string, count int64) error
	Delete(ctx context.Context, id string) error
}

type EventHistoryRepository interface {
	Create(ctx context.Context, change *models.EventStatusChange) error
	ListByEvent(ctx context.Context, eventID string) ([]*models.EventStatusChange, error)
}

type MediaRepository interface {
	Create(ctx context.Context, media *models.EventMedia) error
	GetByID(ctx context.Context, id string) (*models.EventMedia, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.EventMedia, error)
	Delete(ctx context.Context, id string) error
}

// ===== REGISTRATION DOMAIN =====

type RegistrationRepository interface {
	Create(ctx context.Context, registration *models.Registration) error
	GetByID(ctx context.Context, id string) (*models.Registration, error)
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*models.Registration, error)
	List(ctx context.Context, filters RegistrationFilters) ([]*models.Registration, int64, error)
	// ListByUser preloads each registration's event
	ListByUser(ctx context.Context, userID string) ([]*models.Registration, error)
	CountByStatus(ctx context.Context, eventID string, status models.RegistrationStatus) (int64, error)
	GetStats(ctx context.Context, eventID string) (*models.RegistrationStats, error)
	UpdateStatus(ctx context.Context, id string, expected models.RegistrationStatus, updates map[string]interface{}) error
}

// ===== ACCOUNTS =====

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
}

// NewAccount is what the identity provider needs to create a user
type NewAccount struct {
	Email              string
	Password           string
	FullName           string
	Role               models.UserRole
	MustRotatePassword bool
}

type IdentityUser struct {
	ID       string
	Email    string
	FullName string
}

// SessionToken is a verified bearer token
type SessionToken struct {
	AccessToken string
	User        IdentityUser
	ExpiresAt   time.Time
}

// IdentityProvider is the external account store and token issuer
type IdentityProvider interface {
	CreateAccount(ctx context.Context, account NewAccount) (*IdentityUser, error)
	DeleteAccount(ctx context.Context, userID string) error
	// ExchangeCode completes an authorization-code sign-in
	ExchangeCode(ctx context.Context, code, state string) (*SessionToken, error)
	// ParseToken verifies a bearer token; invalid or expired tokens return ErrInvalidToken
	ParseToken(ctx context.Context, token string) (*SessionToken, error)
}
