package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/campusconnect/event-service/internal/authz"
	"github.com/campusconnect/event-service/internal/events"
	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/repositories"
	"github.com/campusconnect/event-service/internal/validator"
)

type eventService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewEventService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) EventService {
	return &eventService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		now:       utcNow,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *eventService) Create(ctx context.Context, organizer models.Principal, req *CreateEventRequest) (*EventResponse, error) {
	s.logger.Info("Creating event", "organizer_id", organizer.ID, "title", req.Title)

	if !authz.Can(organizer, authz.ActionCreateEvent, authz.Resource{}) {
		return nil, NewAuthorizationError(organizer.ID, "", "event", "create", "admin role required")
	}

	req.Normalize()
	if errs := s.validator.GetBusinessValidator().ValidateEventCreate(req); len(errs) > 0 {
		s.logger.Info("Event validation failed", "field", errs.First().Field, "rule", errs.First().Rule)
		return nil, errs
	}

	event := &models.Event{
		ID:                   uuid.NewString(),
		OrganizerID:          organizer.ID,
		Title:                req.Title,
		Description:          req.Description,
		Category:             req.Category,
		Venue:                req.Venue,
		Requirements:         req.Requirements,
		ImageURL:             req.ImageURL,
		Tags:                 datatypes.JSONSlice[string](req.Tags),
		EventDate:            req.EventDate.UTC(),
		RegistrationDeadline: req.RegistrationDeadline.UTC(),
		MaxParticipants:      req.MaxParticipants,
		CurrentParticipants:  0,
		Status:               models.EventStatusPendingApproval,
	}
	if event.Tags == nil {
		event.Tags = datatypes.JSONSlice[string]{}
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Event().Create(ctx, event); err != nil {
			return storeError("create event", err)
		}
		return recordTransition(ctx, tx, event.ID, nil, event.Status, organizer.ID, nil)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.logger, s.publisher, events.EventCreated, lifecycleData(event, "", organizer.ID, nil))

	s.logger.Info("Event created successfully", "event_id", event.ID)
	return s.toResponse(organizer, event), nil
}

func (s *eventService) GetByID(ctx context.Context, viewer models.Principal, id string) (*EventResponse, error) {
	event, err := retryRead(ctx, func(ctx context.Context) (*models.Event, error) {
		return s.repo.Event().GetByID(ctx, id)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEventNotFound
		}
		return nil, storeError("get event", err)
	}

	if !authz.Can(viewer, authz.ActionViewEvent, authz.EventResource(event)) {
		return nil, NewAuthorizationError(viewer.ID, id, "event", "view", "event is not public")
	}

	return s.toResponse(viewer, event), nil
}

func (s *eventService) Update(ctx context.Context, caller models.Principal, id string, req *UpdateEventRequest) (*EventResponse, error) {
	s.logger.Info("Updating event", "event_id", id, "caller_id", caller.ID)

	req.Normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var event *models.Event
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		current, err := lockEvent(ctx, tx, id)
		if err != nil {
			return err
		}

		if !authz.Can(caller, authz.ActionEditEvent, authz.EventResource(current)) {
			return NewAuthorizationError(caller.ID, id, "event", "edit", "not the organizer")
		}

		if errs := s.validator.GetBusinessValidator().ValidateEventUpdate(req, current); len(errs) > 0 {
			return errs
		}

		updates := buildEventUpdates(req)
		if len(updates) == 0 {
			event = current
			return nil
		}

		if err := tx.Event().Update(ctx, id, updates); err != nil {
			return storeError("update event", err)
		}

		event, err = reloadEvent(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.logger, s.publisher, events.EventUpdated, lifecycleData(event, "", caller.ID, nil))

	s.logger.Info("Event updated successfully", "event_id", id)
	return s.toResponse(caller, event), nil
}

// Delete removes the event together with its registrations, media and history.
func (s *eventService) Delete(ctx context.Context, caller models.Principal, id string) error {
	s.logger.Info("Deleting event", "event_id", id, "caller_id", caller.ID)

	if !authz.Can(caller, authz.ActionDeleteEvent, authz.Resource{}) {
		return NewAuthorizationError(caller.ID, id, "event", "delete", "admin or executive role required")
	}

	var deleted *models.Event
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		current, err := lockEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := tx.Event().Delete(ctx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrEventNotFound
			}
			return storeError("delete event", err)
		}
		deleted = current
		return nil
	})
	if err != nil {
		return err
	}

	publishEvent(ctx, s.logger, s.publisher, events.EventDeleted, lifecycleData(deleted, string(deleted.Status), caller.ID, nil))

	s.logger.Info("Event deleted successfully", "event_id", id)
	return nil
}

// ===== LISTINGS =====

// List is the public listing: approved events ordered by date.
func (s *eventService) List(ctx context.Context, viewer models.Principal, filters EventListFilters) (*EventListResponse, error) {
	statuses := []models.EventStatus{models.EventStatusApproved}
	if filters.Status != nil {
		status := models.EventStatus(*filters.Status)
		if !status.IsPublic() {
			return nil, ValidationErrors{{Field: "status", Message: "must be approved, completed or cancelled", Value: *filters.Status, Rule: "oneof"}}
		}
		statuses = []models.EventStatus{status}
	}

	if filters.SortBy == "" {
		filters.SortBy, filters.SortOrder = "event_date", "asc"
	}
	return s.list(ctx, viewer, filters, statuses, nil)
}

func (s *eventService) ListPending(ctx context.Context, reviewer models.Principal, filters EventListFilters) (*EventListResponse, error) {
	if !authz.Can(reviewer, authz.ActionReviewEvent, authz.Resource{}) {
		return nil, NewAuthorizationError(reviewer.ID, "", "event", "review", "executive role required")
	}

	if filters.SortBy == "" {
		filters.SortBy, filters.SortOrder = "created_at", "desc"
	}
	return s.list(ctx, reviewer, filters, []models.EventStatus{models.EventStatusPendingApproval}, nil)
}

func (s *eventService) ListByOrganizer(ctx context.Context, caller models.Principal, organizerID string, filters EventListFilters) (*EventListResponse, error) {
	if organizerID == "" {
		organizerID = caller.ID
	}

	allowed := caller.IsExecutive() || (caller.IsAdmin() && caller.ID == organizerID)
	if !allowed {
		return nil, NewAuthorizationError(caller.ID, organizerID, "event", "list organizer events", "not the organizer")
	}

	var statuses []models.EventStatus
	if filters.Status != nil {
		status := models.EventStatus(*filters.Status)
		if !status.IsValid() {
			return nil, ValidationErrors{{Field: "status", Message: "is not a known event status", Value: *filters.Status, Rule: "oneof"}}
		}
		statuses = []models.EventStatus{status}
	}

	if filters.SortBy == "" {
		filters.SortBy, filters.SortOrder = "created_at", "desc"
	}
	return s.list(ctx, caller, filters, statuses, &organizerID)
}

func (s *eventService) list(ctx context.Context, viewer models.Principal, filters EventListFilters, statuses []models.EventStatus, organizerID *string) (*EventListResponse, error) {
	page, size, limit, offset := normalizePage(filters.Page, filters.Size)

	repoFilters := repositories.EventFilters{
		Statuses:    statuses,
		OrganizerID: organizerID,
		Category:    filters.Category,
		Search:      filters.Search,
		DateFrom:    filters.DateFrom,
		DateTo:      filters.DateTo,
		Limit:       limit,
		Offset:      offset,
		SortBy:      filters.SortBy,
		SortOrder:   filters.SortOrder,
	}

	type result struct {
		events []*models.Event
		total  int64
	}
	res, err := retryRead(ctx, func(ctx context.Context) (result, error) {
		list, total, err := s.repo.Event().List(ctx, repoFilters)
		return result{list, total}, err
	})
	if err != nil {
		return nil, storeError("list events", err)
	}

	responses := make([]*EventResponse, len(res.events))
	for i, event := range res.events {
		responses[i] = s.toResponse(viewer, event)
	}

	return &EventListResponse{
		Events: responses,
		Total:  res.total,
		Page:   page,
		Size:   size,
	}, nil
}

// ===== LIFECYCLE =====

func (s *eventService) Approve(ctx context.Context, reviewer models.Principal, id string) (*EventResponse, error) {
	s.logger.Info("Approving event", "event_id", id, "reviewer_id", reviewer.ID)

	if !authz.Can(reviewer, authz.ActionReviewEvent, authz.Resource{}) {
		return nil, NewAuthorizationError(reviewer.ID, id, "event", "approve", "executive role required")
	}

	return s.transition(ctx, reviewer, id, eventTransition{
		to:        models.EventStatusApproved,
		eventType: events.EventApproved,
		allowed:   fromPendingOnly,
		updates: func(now time.Time) map[string]interface{} {
			return map[string]interface{}{
				"reviewed_by":     reviewer.ID,
				"reviewed_at":     now,
				"declined_reason": nil,
			}
		},
	})
}

func (s *eventService) Reject(ctx context.Context, reviewer models.Principal, id string, reason string) (*EventResponse, error) {
	s.logger.Info("Rejecting event", "event_id", id, "reviewer_id", reviewer.ID)

	if !authz.Can(reviewer, authz.ActionReviewEvent, authz.Resource{}) {
		return nil, NewAuthorizationError(reviewer.ID, id, "event", "reject", "executive role required")
	}

	if errs := s.validator.GetBusinessValidator().ValidateRejectReason(reason); len(errs) > 0 {
		return nil, errs
	}
	reason = strings.TrimSpace(reason)

	return s.transition(ctx, reviewer, id, eventTransition{
		to:        models.EventStatusRejected,
		eventType: events.EventRejected,
		reason:    &reason,
		allowed:   fromPendingOnly,
		updates: func(now time.Time) map[string]interface{} {
			return map[string]interface{}{
				"reviewed_by":     reviewer.ID,
				"reviewed_at":     now,
				"declined_reason": reason,
			}
		},
	})
}

func (s *eventService) Cancel(ctx context.Context, caller models.Principal, id string) (*EventResponse, error) {
	s.logger.Info("Cancelling event", "event_id", id, "caller_id", caller.ID)

	return s.transition(ctx, caller, id, eventTransition{
		to:        models.EventStatusCancelled,
		eventType: events.EventCancelled,
		authorize: s.requireEditor(caller, "cancel"),
		allowed:   anyOtherStatus(models.EventStatusCancelled),
		updates:   clearDeclinedReason,
	})
}

func (s *eventService) Complete(ctx context.Context, caller models.Principal, id string) (*EventResponse, error) {
	s.logger.Info("Completing event", "event_id", id, "caller_id", caller.ID)

	return s.transition(ctx, caller, id, eventTransition{
		to:        models.EventStatusCompleted,
		eventType: events.EventCompleted,
		authorize: s.requireEditor(caller, "complete"),
		allowed:   anyOtherStatus(models.EventStatusCompleted),
		check: func(event *models.Event, now time.Time) error {
			if now.Before(event.EventDate) {
				return &NotEligibleError{EventID: event.ID, Reason: ReasonEventNotFinished}
			}
			return nil
		},
		updates: clearDeclinedReason,
	})
}

func (s *eventService) History(ctx context.Context, caller models.Principal, id string) ([]*models.EventStatusChange, error) {
	event, err := s.repo.Event().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEventNotFound
		}
		return nil, storeError("get event", err)
	}

	if !authz.Can(caller, authz.ActionEditEvent, authz.EventResource(event)) {
		return nil, NewAuthorizationError(caller.ID, id, "event", "view history", "not the organizer")
	}

	changes, err := s.repo.EventHistory().ListByEvent(ctx, id)
	if err != nil {
		return nil, storeError("list event history", err)
	}
	return changes, nil
}

func (s *eventService) ReconcileParticipants(ctx context.Context, caller models.Principal, id string) (*EventResponse, error) {
	var event *models.Event
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		current, err := lockEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		if !authz.Can(caller, authz.ActionEditEvent, authz.EventResource(current)) {
			return NewAuthorizationError(caller.ID, id, "event", "reconcile", "not the organizer")
		}

		approved, err := syncParticipantCount(ctx, tx, id)
		if err != nil {
			return err
		}
		if int64(current.CurrentParticipants) != approved {
			s.logger.Warn("Participant count drifted", "event_id", id, "stored", current.CurrentParticipants, "approved", approved)
		}

		event, err = reloadEvent(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.toResponse(caller, event), nil
}
