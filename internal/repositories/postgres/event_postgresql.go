package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusconnect/event-service/internal/cache"
	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/repositories"
)

type EventPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager

	// inside a transaction reads bypass the cache and written ids are
	// invalidated again after commit
	inTx    bool
	mu      sync.Mutex
	touched map[string]struct{}
}

func NewEventPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) *EventPostgreSQL {
	return &EventPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func newTxEventPostgreSQL(tx *gorm.DB, cacheManager *cache.CacheManager) *EventPostgreSQL {
	repo := NewEventPostgreSQL(tx, cacheManager)
	repo.inTx = true
	repo.touched = make(map[string]struct{})
	return repo
}

func (r *EventPostgreSQL) Create(ctx context.Context, event *models.Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by ID with caching outside transactions
func (r *EventPostgreSQL) GetByID(ctx context.Context, id string) (*models.Event, error) {
	if err := checkID("event", id); err != nil {
		return nil, err
	}
	if r.inTx {
		return r.get(ctx, r.db.WithContext(ctx), id)
	}

	return cache.ReadThrough(ctx, r.cacheManager.Event, fmt.Sprintf("id:%s", id), cache.EventKeyspace.TTL, func() (*models.Event, error) {
		return r.get(ctx, r.db.WithContext(ctx), id)
	})
}

func (r *EventPostgreSQL) GetByIDForUpdate(ctx context.Context, id string) (*models.Event, error) {
	if err := checkID("event", id); err != nil {
		return nil, err
	}
	return r.get(ctx, r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *EventPostgreSQL) get(ctx context.Context, query *gorm.DB, id string) (*models.Event, error) {
	var event models.Event
	if err := query.Where("id = ?", id).First(&event).Error; err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (r *EventPostgreSQL) List(ctx context.Context, filters repositories.EventFilters) ([]*models.Event, int64, error) {
	query := r.applyFilters(r.db.WithContext(ctx).Model(&models.Event{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	var events []*models.Event
	query = r.helpers.ApplyPaginationAndSort(query, eventSortColumns, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}

	return events, total, nil
}

func (r *EventPostgreSQL) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update event: %w", gorm.ErrRecordNotFound)
	}

	r.invalidate(ctx, id)
	return nil
}

// UpdateStatus is a compare-and-set on the status column
func (r *EventPostgreSQL) UpdateStatus(ctx context.Context, id string, expected models.EventStatus, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update event status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("event %s is no longer %s: %w", id, expected, repositories.ErrStaleState)
	}

	r.invalidate(ctx, id)
	return nil
}

func (r *EventPostgreSQL) SetParticipantCount(ctx context.Context, id string, count int64) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		Update("current_participants", count).Error; err != nil {
		return fmt.Errorf("failed to set participant count: %w", err)
	}

	r.invalidate(ctx, id)
	return nil
}

// Delete removes the event; registrations, media and history cascade in the schema
func (r *EventPostgreSQL) Delete(ctx context.Context, id string) error {
	if err := checkID("event", id); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Event{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete event: %w", gorm.ErrRecordNotFound)
	}

	r.invalidate(ctx, id)
	return nil
}

var eventSortColumns = map[string]bool{
	"event_date":            true,
	"registration_deadline": true,
	"created_at":            true,
	"updated_at":            true,
	"title":                 true,
	"status":                true,
}

func (r *EventPostgreSQL) applyFilters(query *gorm.DB, filters repositories.EventFilters) *gorm.DB {
	if len(filters.Statuses) > 0 {
		query = query.Where("status IN ?", filters.Statuses)
	}
	if filters.OrganizerID != nil {
		query = query.Where("organizer_id = ?", *filters.OrganizerID)
	}
	if filters.Category != nil {
		query = query.Where("category = ?", *filters.Category)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ? OR venue ILIKE ?", pattern, pattern, pattern)
	}
	if filters.DateFrom != nil {
		query = query.Where("event_date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("event_date <= ?", *filters.DateTo)
	}
	return query
}

func (r *EventPostgreSQL) invalidate(ctx context.Context, id string) {
	cache.InvalidateEventCache(ctx, r.cacheManager, id)
	if r.inTx {
		r.mu.Lock()
		r.touched[id] = struct{}{}
		r.mu.Unlock()
	}
}

// afterCommit drops cache entries a concurrent reader may have refilled before commit
func (r *EventPostgreSQL) afterCommit(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.touched {
		cache.InvalidateEventCache(ctx, r.cacheManager, id)
	}
}
