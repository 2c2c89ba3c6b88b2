package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/repositories"
)

type MediaPostgreSQL struct {
	db *gorm.DB
}

func NewMediaPostgreSQL(db *gorm.DB) repositories.MediaRepository {
	return &MediaPostgreSQL{db: db}
}

func (r *MediaPostgreSQL) Create(ctx context.Context, media *models.EventMedia) error {
	if err := r.db.WithContext(ctx).Create(media).Error; err != nil {
		return fmt.Errorf("failed to create event media: %w", err)
	}
	return nil
}

func (r *MediaPostgreSQL) GetByID(ctx context.Context, id string) (*models.EventMedia, error) {
	if err := checkID("event media", id); err != nil {
		return nil, err
	}
	var media models.EventMedia
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&media).Error; err != nil {
		return nil, fmt.Errorf("failed to get event media: %w", err)
	}
	return &media, nil
}

func (r *MediaPostgreSQL) ListByEvent(ctx context.Context, eventID string) ([]*models.EventMedia, error) {
	var media []*models.EventMedia
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&media).Error; err != nil {
		return nil, fmt.Errorf("failed to list event media: %w", err)
	}
	return media, nil
}

func (r *MediaPostgreSQL) Delete(ctx context.Context, id string) error {
	if err := checkID("event media", id); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.EventMedia{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete event media: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete event media: %w", gorm.ErrRecordNotFound)
	}
	return nil
}
