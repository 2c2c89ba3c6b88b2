package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/repositories"
)

type EventHistoryPostgreSQL struct {
	db *gorm.DB
}

func NewEventHistoryPostgreSQL(db *gorm.DB) repositories.EventHistoryRepository {
	return &EventHistoryPostgreSQL{db: db}
}

func (r *EventHistoryPostgreSQL) Create(ctx context.Context, change *models.EventStatusChange) error {
	if err := r.db.WithContext(ctx).Create(change).Error; err != nil {
		return fmt.Errorf("failed to record event status change: %w", err)
	}
	return nil
}

func (r *EventHistoryPostgreSQL) ListByEvent(ctx context.Context, eventID string) ([]*models.EventStatusChange, error) {
	var changes []*models.EventStatusChange
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC, id ASC").
		Find(&changes).Error; err != nil {
		return nil, fmt.Errorf("failed to list event history: %w", err)
	}
	return changes, nil
}
