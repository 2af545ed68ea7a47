package repository

import (
	"time"

	"github.com/ledropshop/wa-drops-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DropHistoryRepository struct {
	db *gorm.DB
}

func NewDropHistoryRepository(db *gorm.DB) *DropHistoryRepository {
	return &DropHistoryRepository{db: db}
}

// Create appends a history row. Rows are never updated or deleted.
func (r *DropHistoryRepository) Create(history *models.DropHistory) error {
	if history.ID == "" {
		history.ID = uuid.NewString()
	}
	return r.db.Create(history).Error
}

// GetByGroupSince retrieves history rows for a group sent at or after the
// given lower bound. This is the same-day duplication query.
func (r *DropHistoryRepository) GetByGroupSince(groupID string, since time.Time) ([]*models.DropHistory, error) {
	var rows []*models.DropHistory
	err := r.db.Where("whatsapp_group_id = ? AND sent_at >= ?", groupID, since).
		Find(&rows).Error
	return rows, err
}

// GetByDropSince retrieves a drop's history rows within a trailing window,
// with article and group names preloaded for display
func (r *DropHistoryRepository) GetByDropSince(dropID string, since time.Time) ([]*models.DropHistory, error) {
	var rows []*models.DropHistory
	err := r.db.Where("drop_id = ? AND sent_at >= ?", dropID, since).
		Preload("Article").
		Preload("Group").
		Order("sent_at ASC").
		Find(&rows).Error
	return rows, err
}

// GetByDrop retrieves the full ledger of a drop, newest first, paginated
func (r *DropHistoryRepository) GetByDrop(dropID string, offset, limit int) ([]*models.DropHistory, int64, error) {
	var rows []*models.DropHistory
	var total int64

	if err := r.db.Model(&models.DropHistory{}).Where("drop_id = ?", dropID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Where("drop_id = ?", dropID).
		Preload("Article").
		Preload("Group").
		Order("sent_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, total, err
}
