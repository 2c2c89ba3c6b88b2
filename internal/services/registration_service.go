package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusconnect/event-service/internal/authz"
	"github.com/campusconnect/event-service/internal/events"
	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/repositories"
	"github.com/campusconnect/event-service/internal/validator"
)

type registrationService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewRegistrationService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) RegistrationService {
	return &registrationService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		now:       utcNow,
	}
}

// Register creates a pending registration. The eligibility checks run in a fixed order
// while the event row is locked, so two students cannot both take the last seat.
func (s *registrationService) Register(ctx context.Context, student models.Principal, eventID string) (*models.Registration, error) {
	s.logger.Info("Registering for event", "event_id", eventID, "user_id", student.ID)

	if !authz.Can(student, authz.ActionRegisterForEvent, authz.Resource{OwnerID: student.ID}) {
		return nil, NewAuthorizationError(student.ID, eventID, "event", "register", "student role required")
	}

	var registration *models.Registration
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		event, err := lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}

		if event.Status != models.EventStatusApproved {
			return &NotEligibleError{EventID: eventID, Reason: ReasonEventNotApproved}
		}

		now := s.now()
		if !now.Before(event.RegistrationDeadline) {
			return &DeadlinePassedError{EventID: eventID, Deadline: event.RegistrationDeadline}
		}

		approved, err := tx.Registration().CountByStatus(ctx, eventID, models.RegistrationApproved)
		if err != nil {
			return storeError("count approved registrations", err)
		}
		if !event.HasCapacityFor(approved) {
			return &CapacityExceededError{EventID: eventID, Max: *event.MaxParticipants}
		}

		profile, err := tx.Profile().GetByID(ctx, student.ID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return storeError("get profile", err)
		}
		if profile == nil {
			profile = &models.Profile{ID: student.ID}
		}
		if missing := profile.MissingContactFields(); len(missing) > 0 {
			return &ProfileIncompleteError{UserID: student.ID, Missing: missing}
		}

		_, err = tx.Registration().GetByEventAndUser(ctx, eventID, student.ID)
		switch {
		case err == nil:
			return &NotEligibleError{EventID: eventID, Reason: ReasonAlreadyRegistered}
		case !repositories.IsNotFoundError(err):
			return storeError("check existing registration", err)
		}

		registration = &models.Registration{
			ID:               uuid.NewString(),
			EventID:          eventID,
			UserID:           student.ID,
			FullName:         strings.TrimSpace(profile.FullName),
			Email:            strings.TrimSpace(profile.Email),
			Phone:            strings.TrimSpace(*profile.Phone),
			RollNumber:       strings.TrimSpace(*profile.RollNumber),
			Status:           models.RegistrationPending,
			RegistrationDate: now,
		}
		if err := tx.Registration().Create(ctx, registration); err != nil {
			// lost a race with a concurrent request from the same student
			if repositories.IsDuplicateError(err) {
				return &NotEligibleError{EventID: eventID, Reason: ReasonAlreadyRegistered}
			}
			return storeError("create registration", err)
		}
		return nil
	})
	if err != nil {
		s.logRejection(eventID, student.ID, err)
		return nil, err
	}

	publishEvent(ctx, s.logger, s.publisher, events.RegistrationCreated, events.RegistrationData{
		RegistrationID: registration.ID,
		EventID:        eventID,
		UserID:         student.ID,
		ToStatus:       string(registration.Status),
		ActorID:        student.ID,
	})

	s.logger.Info("Registration created", "registration_id", registration.ID, "event_id", eventID)
	return registration, nil
}

// UpdateStatus decides a pending registration.
func (s *registrationService) UpdateStatus(ctx context.Context, reviewer models.Principal, registrationID string, status models.RegistrationStatus) (*models.Registration, error) {
	s.logger.Info("Updating registration status", "registration_id", registrationID, "status", status, "reviewer_id", reviewer.ID)

	if !reviewer.IsAdmin() && !reviewer.IsExecutive() {
		return nil, NewAuthorizationError(reviewer.ID, registrationID, "registration", "review", "admin or executive role required")
	}

	if err := s.validator.Validate(&UpdateRegistrationStatusRequest{Status: status}); err != nil {
		return nil, err
	}

	var (
		registration *models.Registration
		from         models.RegistrationStatus
	)
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		current, err := tx.Registration().GetByID(ctx, registrationID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrRegistrationNotFound
			}
			return storeError("get registration", err)
		}

		event, err := lockEvent(ctx, tx, current.EventID)
		if err != nil {
			return err
		}

		if !authz.Can(reviewer, authz.ActionReviewRegistration, authz.EventResource(event)) {
			return NewAuthorizationError(reviewer.ID, registrationID, "registration", "review", "not the organizer")
		}

		if current.Status != models.RegistrationPending {
			return &InvalidTransitionError{Entity: "registration", ID: registrationID, From: string(current.Status), To: string(status)}
		}

		updates := map[string]interface{}{
			"status":      status,
			"approved_by": nil,
			"approved_at": nil,
		}

		if status == models.RegistrationApproved {
			approved, err := tx.Registration().CountByStatus(ctx, event.ID, models.RegistrationApproved)
			if err != nil {
				return storeError("count approved registrations", err)
			}
			if !event.HasCapacityFor(approved) {
				return &CapacityExceededError{EventID: event.ID, Max: *event.MaxParticipants}
			}
			updates["approved_by"] = reviewer.ID
			updates["approved_at"] = s.now()
		}

		if err := tx.Registration().UpdateStatus(ctx, registrationID, current.Status, updates); err != nil {
			return staleOr(err, "registration", registrationID, "update registration status")
		}

		if _, err := syncParticipantCount(ctx, tx, event.ID); err != nil {
			return err
		}

		from = current.Status
		registration, err = tx.Registration().GetByID(ctx, registrationID)
		if err != nil {
			return storeError("reload registration", err)
		}
		return nil
	})
	if err != nil {
		s.logRejection(registrationID, reviewer.ID, err)
		return nil, err
	}

	publishEvent(ctx, s.logger, s.publisher, events.RegistrationStatusChanged, events.RegistrationData{
		RegistrationID: registration.ID,
		EventID:        registration.EventID,
		UserID:         registration.UserID,
		FromStatus:     string(from),
		ToStatus:       string(registration.Status),
		ActorID:        reviewer.ID,
	})

	s.logger.Info("Registration status updated", "registration_id", registrationID, "from", from, "to", registration.Status)
	return registration, nil
}

// ===== QUERIES =====

func (s *registrationService) ListByEvent(ctx context.Context, caller models.Principal, eventID string, filters RegistrationListFilters) (*RegistrationListResponse, error) {
	if _, err := s.authorizeEvent(ctx, caller, eventID, authz.ActionViewRegistrations, "list registrations"); err != nil {
		return nil, err
	}

	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, ValidationErrors{{Field: "status", Message: "is not a known registration status", Value: *filters.Status, Rule: "oneof"}}
	}

	page, size, limit, offset := normalizePage(filters.Page, filters.Size)
	if filters.SortBy == "" {
		filters.SortBy, filters.SortOrder = "registration_date", "asc"
	}

	registrations, total, err := s.repo.Registration().List(ctx, repositories.RegistrationFilters{
		EventID:   &eventID,
		Status:    filters.Status,
		Search:    filters.Search,
		Limit:     limit,
		Offset:    offset,
		SortBy:    filters.SortBy,
		SortOrder: filters.SortOrder,
	})
	if err != nil {
		return nil, storeError("list registrations", err)
	}

	stats, err := s.repo.Registration().GetStats(ctx, eventID)
	if err != nil {
		return nil, storeError("get registration stats", err)
	}

	return &RegistrationListResponse{
		Registrations: registrations,
		Stats:         stats,
		Total:         total,
		Page:          page,
		Size:          size,
	}, nil
}

func (s *registrationService) ListMine(ctx context.Context, caller models.Principal) ([]*models.Registration, error) {
	if !authz.Can(caller, authz.ActionViewOwnRegistrations, authz.Resource{OwnerID: caller.ID}) {
		return nil, NewAuthorizationError(caller.ID, caller.ID, "registration", "list own", "sign-in required")
	}

	registrations, err := retryRead(ctx, func(ctx context.Context) ([]*models.Registration, error) {
		return s.repo.Registration().ListByUser(ctx, caller.ID)
	})
	if err != nil {
		return nil, storeError("list own registrations", err)
	}
	return registrations, nil
}

func (s *registrationService) IsRegistered(ctx context.Context, caller models.Principal, eventID string) (*RegistrationCheckResponse, error) {
	if !authz.Can(caller, authz.ActionViewOwnRegistrations, authz.Resource{OwnerID: caller.ID}) {
		return nil, NewAuthorizationError(caller.ID, eventID, "registration", "check", "sign-in required")
	}

	registration, err := s.repo.Registration().GetByEventAndUser(ctx, eventID, caller.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return &RegistrationCheckResponse{Registered: false}, nil
		}
		return nil, storeError("check registration", err)
	}

	status := registration.Status
	return &RegistrationCheckResponse{Registered: true, Status: &status}, nil
}

// authorizeEvent loads the event and checks action against it.
func (s *registrationService) authorizeEvent(ctx context.Context, caller models.Principal, eventID string, action authz.Action, verb string) (*models.Event, error) {
	if !caller.IsAuthenticated() {
		return nil, NewAuthorizationError("", eventID, "event", verb, "sign-in required")
	}

	event, err := s.repo.Event().GetByID(ctx, eventID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEventNotFound
		}
		return nil, storeError("get event", err)
	}

	if !authz.Can(caller, action, authz.EventResource(event)) {
		return nil, NewAuthorizationError(caller.ID, eventID, "event", verb, "not the organizer")
	}
	return event, nil
}

func (s *registrationService) logRejection(id, userID string, err error) {
	var (
		invalid *InvalidTransitionError
		store   *StoreError
	)
	switch {
	case errors.As(err, &invalid):
		s.logger.Warn("Rejected registration transition", "id", id, "user_id", userID, "from", invalid.From, "to", invalid.To)
	case errors.As(err, &store):
		s.logger.Error("Registration store failure", "id", id, "user_id", userID, "op", store.Op, "error", store.Err)
	default:
		s.logger.Info("Registration request rejected", "id", id, "user_id", userID, "reason", err.Error())
	}
}
