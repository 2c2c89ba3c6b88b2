package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/campusconnect/event-service/internal/authz"
	"github.com/campusconnect/event-service/internal/events"
	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/repositories"
	"github.com/campusconnect/event-service/internal/validator"
)

// mediaService records metadata of files stored elsewhere
type mediaService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewMediaService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) MediaService {
	return &mediaService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

func (s *mediaService) Upload(ctx context.Context, caller models.Principal, eventID string, req *UploadMediaRequest) (*models.EventMedia, error) {
	s.logger.Info("Uploading event media", "event_id", eventID, "caller_id", caller.ID)

	if !caller.IsAdmin() && !caller.IsExecutive() {
		return nil, NewAuthorizationError(caller.ID, eventID, "media", "upload", "admin or executive role required")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if !authz.Can(caller, authz.ActionUploadMedia, authz.EventResource(event)) {
		return nil, &NotEligibleError{EventID: eventID, Reason: ReasonEventNotCompleted}
	}

	media := &models.EventMedia{
		ID:         uuid.NewString(),
		EventID:    eventID,
		FileURL:    strings.TrimSpace(req.FileURL),
		FileType:   strings.TrimSpace(req.FileType),
		Caption:    req.Caption,
		UploadedBy: caller.ID,
	}
	if err := s.repo.Media().Create(ctx, media); err != nil {
		return nil, storeError("create media", err)
	}

	publishEvent(ctx, s.logger, s.publisher, events.MediaUploaded, events.MediaData{
		MediaID:    media.ID,
		EventID:    eventID,
		FileURL:    media.FileURL,
		UploadedBy: caller.ID,
	})

	s.logger.Info("Event media uploaded", "media_id", media.ID, "event_id", eventID)
	return media, nil
}

func (s *mediaService) List(ctx context.Context, viewer models.Principal, eventID string) ([]*models.EventMedia, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(viewer, authz.ActionViewEvent, authz.EventResource(event)) {
		return nil, NewAuthorizationError(viewer.ID, eventID, "event", "view", "event is not public")
	}

	media, err := s.repo.Media().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, storeError("list media", err)
	}
	return media, nil
}

func (s *mediaService) Delete(ctx context.Context, caller models.Principal, mediaID string) error {
	if !authz.Can(caller, authz.ActionDeleteMedia, authz.Resource{}) {
		return NewAuthorizationError(caller.ID, mediaID, "media", "delete", "admin or executive role required")
	}

	if err := s.repo.Media().Delete(ctx, mediaID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrMediaNotFound
		}
		return storeError("delete media", err)
	}

	s.logger.Info("Event media deleted", "media_id", mediaID, "caller_id", caller.ID)
	return nil
}

func (s *mediaService) getEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := s.repo.Event().GetByID(ctx, eventID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEventNotFound
		}
		return nil, storeError("get event", err)
	}
	return event, nil
}
