package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/campusconnect/event-service/internal/events"
	"github.com/campusconnect/event-service/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// publishEvent delivers a domain event after commit. Delivery failures are logged and
// never reach the caller: the state change has already happened.
func publishEvent(ctx context.Context, logger *slog.Logger, publisher events.EventPublisher, eventType events.EventType, data interface{}) {
	if publisher == nil {
		return
	}
	event := events.NewEvent(eventType, data)
	if err := publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.Error("Failed to publish domain event", "type", eventType, "event_id", event.ID, "error", err)
	}
}

// normalizePage turns a 1-based page and size into limit/offset.
func normalizePage(page, size int) (int, int, int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size, size, (page - 1) * size
}

// retryRead runs a read once more if the first attempt fails for a reason other than not-found.
func retryRead[T any](ctx context.Context, read func(context.Context) (T, error)) (T, error) {
	v, err := read(ctx)
	if err == nil || repositories.IsNotFoundError(err) || ctx.Err() != nil {
		return v, err
	}
	return read(ctx)
}

// staleOr maps a conditional-update miss to StaleStateError.
func staleOr(err error, entity, id, op string) error {
	if errors.Is(err, repositories.ErrStaleState) {
		return &StaleStateError{Entity: entity, ID: id}
	}
	return storeError(op, err)
}

func stringPtr(s string) *string {
	return &s
}

func utcNow() time.Time {
	return time.Now().UTC()
}
