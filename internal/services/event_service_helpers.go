package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"

	"github.com/campusconnect/event-service/internal/authz"
	"github.com/campusconnect/event-service/internal/events"
	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/repositories"
)

// eventTransition describes one guarded status change of an event.
type eventTransition struct {
	to        models.EventStatus
	eventType events.EventType
	reason    *string

	// authorize runs against the locked row; nil means the caller was checked up front
	authorize func(event *models.Event) error
	allowed   func(from models.EventStatus) bool
	check     func(event *models.Event, now time.Time) error
	updates   func(now time.Time) map[string]interface{}
}

func fromPendingOnly(from models.EventStatus) bool {
	return from == models.EventStatusPendingApproval
}

func anyOtherStatus(target models.EventStatus) func(models.EventStatus) bool {
	return func(from models.EventStatus) bool { return from != target }
}

func clearDeclinedReason(time.Time) map[string]interface{} {
	return map[string]interface{}{"declined_reason": nil}
}

func (s *eventService) requireEditor(caller models.Principal, action string) func(*models.Event) error {
	return func(event *models.Event) error {
		if !authz.Can(caller, authz.ActionEditEvent, authz.EventResource(event)) {
			return NewAuthorizationError(caller.ID, event.ID, "event", action, "not the organizer")
		}
		return nil
	}
}

// transition locks the event, validates the move and applies it with a conditional update.
// The history row is written in the same transaction; the domain event goes out after commit.
func (s *eventService) transition(ctx context.Context, caller models.Principal, id string, t eventTransition) (*EventResponse, error) {
	var (
		event *models.Event
		from  models.EventStatus
	)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		current, err := lockEvent(ctx, tx, id)
		if err != nil {
			return err
		}

		if t.authorize != nil {
			if err := t.authorize(current); err != nil {
				return err
			}
		}

		if !t.allowed(current.Status) {
			return &InvalidTransitionError{Entity: "event", ID: id, From: string(current.Status), To: string(t.to)}
		}

		now := s.now()
		if t.check != nil {
			if err := t.check(current, now); err != nil {
				return err
			}
		}

		updates := t.updates(now)
		updates["status"] = t.to
		if err := tx.Event().UpdateStatus(ctx, id, current.Status, updates); err != nil {
			return staleOr(err, "event", id, "update event status")
		}

		from = current.Status
		if err := recordTransition(ctx, tx, id, &from, t.to, caller.ID, t.reason); err != nil {
			return err
		}

		event, err = reloadEvent(ctx, tx, id)
		return err
	})
	if err != nil {
		var invalid *InvalidTransitionError
		if errors.As(err, &invalid) {
			s.logger.Warn("Rejected event transition", "event_id", id, "from", invalid.From, "to", invalid.To, "caller_id", caller.ID)
		}
		return nil, err
	}

	publishEvent(ctx, s.logger, s.publisher, t.eventType, lifecycleData(event, string(from), caller.ID, t.reason))

	s.logger.Info("Event status changed", "event_id", id, "from", from, "to", t.to)
	return s.toResponse(caller, event), nil
}

func (s *eventService) toResponse(viewer models.Principal, event *models.Event) *EventResponse {
	res := authz.EventResource(event)
	now := s.now()

	return &EventResponse{
		Event:     event,
		CanEdit:   authz.Can(viewer, authz.ActionEditEvent, res),
		CanDelete: authz.Can(viewer, authz.ActionDeleteEvent, res),
		CanReview: authz.Can(viewer, authz.ActionReviewEvent, res) && event.Status == models.EventStatusPendingApproval,
		CanRegister: viewer.IsStudent() &&
			event.Status == models.EventStatusApproved &&
			now.Before(event.RegistrationDeadline) &&
			event.HasCapacityFor(int64(event.CurrentParticipants)),
	}
}

func buildEventUpdates(req *UpdateEventRequest) map[string]interface{} {
	updates := make(map[string]interface{})
	if req.Venue != nil {
		updates["venue"] = *req.Venue
	}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.EventDate != nil {
		updates["event_date"] = req.EventDate.UTC()
	}
	if req.RegistrationDeadline != nil {
		updates["registration_deadline"] = req.RegistrationDeadline.UTC()
	}
	if req.MaxParticipants != nil {
		updates["max_participants"] = *req.MaxParticipants
	}
	if req.Requirements != nil {
		updates["requirements"] = *req.Requirements
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.Tags != nil {
		updates["tags"] = datatypes.JSONSlice[string](req.Tags)
	}
	return updates
}

func lifecycleData(event *models.Event, from string, actorID string, reason *string) events.EventLifecycleData {
	return events.EventLifecycleData{
		EventID:     event.ID,
		Title:       event.Title,
		OrganizerID: event.OrganizerID,
		FromStatus:  from,
		ToStatus:    string(event.Status),
		ActorID:     actorID,
		Reason:      reason,
	}
}

// ===== SHARED TRANSACTION STEPS =====

func lockEvent(ctx context.Context, tx repositories.Repository, id string) (*models.Event, error) {
	event, err := tx.Event().GetByIDForUpdate(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEventNotFound
		}
		return nil, storeError("lock event", err)
	}
	return event, nil
}

func reloadEvent(ctx context.Context, tx repositories.Repository, id string) (*models.Event, error) {
	event, err := tx.Event().GetByID(ctx, id)
	if err != nil {
		return nil, storeError("reload event", err)
	}
	return event, nil
}

func recordTransition(ctx context.Context, tx repositories.Repository, eventID string, from *models.EventStatus, to models.EventStatus, actorID string, reason *string) error {
	change := &models.EventStatusChange{
		EventID:    eventID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  actorID,
		Reason:     reason,
	}
	if from != nil {
		meta, err := json.Marshal(map[string]string{"transition": string(*from) + "->" + string(to)})
		if err == nil {
			change.Metadata = datatypes.JSON(meta)
		}
	}
	if err := tx.EventHistory().Create(ctx, change); err != nil {
		return storeError("record event history", err)
	}
	return nil
}

// syncParticipantCount recomputes current_participants from the approved registrations.
func syncParticipantCount(ctx context.Context, tx repositories.Repository, eventID string) (int64, error) {
	approved, err := tx.Registration().CountByStatus(ctx, eventID, models.RegistrationApproved)
	if err != nil {
		return 0, storeError("count approved registrations", err)
	}
	if err := tx.Event().SetParticipantCount(ctx, eventID, approved); err != nil {
		return 0, storeError("set participant count", err)
	}
	return approved, nil
}
