package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusconnect/event-service/internal/models"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// CountRegistrationsByStatus counts an event's registrations in one status
func (h *SharedHelpers) CountRegistrationsByStatus(ctx context.Context, eventID string, status models.RegistrationStatus) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("event_id = ? AND status = ?", eventID, status).
		Count(&count).Error
	return count, err
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection.
// allowedSortColumns whitelists sortable columns; unknown columns sort by created_at.
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, allowedSortColumns map[string]bool, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if strings.EqualFold(sortOrder, "asc") {
		sortOrder = "ASC"
	} else {
		sortOrder = "DESC"
	}

	// id breaks ties so offset pages neither repeat nor skip rows
	query = query.Order(sortBy + " " + sortOrder).Order("id ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

// escapeLike escapes ILIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// checkID turns an id that cannot exist in a uuid column into a not-found
// error instead of letting Postgres reject it as invalid input.
func checkID(entity, id string) error {
	if err := uuid.Validate(id); err != nil {
		return fmt.Errorf("%s id %q is not a uuid: %w", entity, id, gorm.ErrRecordNotFound)
	}
	return nil
}
