package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/campusconnect/event-service/internal/cache"
	"github.com/campusconnect/event-service/internal/models"
	"github.com/campusconnect/event-service/internal/repositories"
)

type RegistrationPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager

	// inside a transaction the stats of written events are dropped after commit
	inTx    bool
	mu      sync.Mutex
	touched map[string]struct{}
}

func NewRegistrationPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.RegistrationRepository {
	return newRegistrationPostgreSQL(db, cacheManager)
}

func newRegistrationPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) *RegistrationPostgreSQL {
	return &RegistrationPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cacheManager,
	}
}

func newTxRegistrationPostgreSQL(tx *gorm.DB, cacheManager *cache.CacheManager) *RegistrationPostgreSQL {
	repo := newRegistrationPostgreSQL(tx, cacheManager)
	repo.inTx = true
	repo.touched = make(map[string]struct{})
	return repo
}

// Create inserts a registration; a second row for the same (event, user) fails with gorm.ErrDuplicatedKey
func (r *RegistrationPostgreSQL) Create(ctx context.Context, registration *models.Registration) error {
	if err := r.db.WithContext(ctx).Omit("Event").Create(registration).Error; err != nil {
		return fmt.Errorf("failed to create registration: %w", err)
	}
	r.invalidateStats(ctx, registration.EventID)
	return nil
}

func (r *RegistrationPostgreSQL) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	if err := checkID("registration", id); err != nil {
		return nil, err
	}
	var registration models.Registration
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&registration).Error; err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return &registration, nil
}

func (r *RegistrationPostgreSQL) GetByEventAndUser(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	if err := checkID("event", eventID); err != nil {
		return nil, err
	}
	var registration models.Registration
	if err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&registration).Error; err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return &registration, nil
}

func (r *RegistrationPostgreSQL) List(ctx context.Context, filters repositories.RegistrationFilters) ([]*models.Registration, int64, error) {
	query := r.applyFilters(r.db.WithContext(ctx).Model(&models.Registration{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count registrations: %w", err)
	}

	var registrations []*models.Registration
	query = r.helpers.ApplyPaginationAndSort(query, registrationSortColumns, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&registrations).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list registrations: %w", err)
	}

	return registrations, total, nil
}

func (r *RegistrationPostgreSQL) ListByUser(ctx context.Context, userID string) ([]*models.Registration, error) {
	var registrations []*models.Registration
	if err := r.db.WithContext(ctx).
		Preload("Event").
		Where("user_id = ?", userID).
		Order("registration_date DESC").
		Find(&registrations).Error; err != nil {
		return nil, fmt.Errorf("failed to list user registrations: %w", err)
	}
	return registrations, nil
}

// CountByStatus always reads the table; capacity checks must not use a cached count
func (r *RegistrationPostgreSQL) CountByStatus(ctx context.Context, eventID string, status models.RegistrationStatus) (int64, error) {
	count, err := r.helpers.CountRegistrationsByStatus(ctx, eventID, status)
	if err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

// GetStats returns per-status counts for an event's registrations, cached briefly
func (r *RegistrationPostgreSQL) GetStats(ctx context.Context, eventID string) (*models.RegistrationStats, error) {
	return cache.ReadThrough(ctx, r.cacheManager.Stats, fmt.Sprintf("event:%s:counts", eventID), cache.StatsKeyspace.TTL, func() (*models.RegistrationStats, error) {
		var rows []struct {
			Status models.RegistrationStatus
			Count  int64
		}
		if err := r.db.WithContext(ctx).
			Model(&models.Registration{}).
			Select("status, COUNT(*) AS count").
			Where("event_id = ?", eventID).
			Group("status").
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to count registrations by status: %w", err)
		}

		result := &models.RegistrationStats{}
		for _, row := range rows {
			result.Add(row.Status, row.Count)
		}
		return result, nil
	})
}

func (r *RegistrationPostgreSQL) UpdateStatus(ctx context.Context, id string, expected models.RegistrationStatus, updates map[string]interface{}) error {
	var registration models.Registration
	if err := r.db.WithContext(ctx).Select("id, event_id").Where("id = ?", id).First(&registration).Error; err != nil {
		return fmt.Errorf("failed to get registration: %w", err)
	}

	result := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update registration status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("registration %s is no longer %s: %w", id, expected, repositories.ErrStaleState)
	}

	r.invalidateStats(ctx, registration.EventID)
	return nil
}

var registrationSortColumns = map[string]bool{
	"registration_date": true,
	"created_at":        true,
	"full_name":         true,
	"roll_number":       true,
	"status":            true,
}

func (r *RegistrationPostgreSQL) applyFilters(query *gorm.DB, filters repositories.RegistrationFilters) *gorm.DB {
	if filters.EventID != nil {
		query = query.Where("event_id = ?", *filters.EventID)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		query = query.Where("full_name ILIKE ? OR email ILIKE ? OR roll_number ILIKE ?", pattern, pattern, pattern)
	}
	return query
}

// invalidateStats drops an event's cached counts, deferred to afterCommit
// inside a transaction so a concurrent reader cannot re-cache uncommitted counts.
func (r *RegistrationPostgreSQL) invalidateStats(ctx context.Context, eventID string) {
	if r.inTx {
		r.mu.Lock()
		r.touched[eventID] = struct{}{}
		r.mu.Unlock()
		return
	}
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Stats, fmt.Sprintf("event:%s:*", eventID))
}

func (r *RegistrationPostgreSQL) afterCommit(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for eventID := range r.touched {
		cache.SafeInvalidatePattern(ctx, r.cacheManager.Stats, fmt.Sprintf("event:%s:*", eventID))
	}
}
