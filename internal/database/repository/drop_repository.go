package repository

import (
	"time"

	"github.com/ledropshop/wa-drops-backend/internal/models"

	"gorm.io/gorm"
)

type DropRepository struct {
	db *gorm.DB
}

func NewDropRepository(db *gorm.DB) *DropRepository {
	return &DropRepository{db: db}
}

// Create creates a new drop
func (r *DropRepository) Create(drop *models.Drop) error {
	return r.db.Create(drop).Error
}

// GetByID retrieves a drop by ID with its articles and groups
func (r *DropRepository) GetByID(id string) (*models.Drop, error) {
	var drop models.Drop
	err := r.db.Preload("Articles").
		Preload("Groups").
		First(&drop, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &drop, nil
}

// GetAll retrieves drops ordered by creation time, newest first
func (r *DropRepository) GetAll(offset, limit int) ([]*models.Drop, int64, error) {
	var drops []*models.Drop
	var total int64

	if err := r.db.Model(&models.Drop{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Preload("Articles").
		Preload("Groups").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&drops).Error
	return drops, total, err
}

// Update updates a drop
func (r *DropRepository) Update(drop *models.Drop) error {
	return r.db.Save(drop).Error
}

// Delete soft-deletes a drop
func (r *DropRepository) Delete(id string) error {
	return r.db.Delete(&models.Drop{}, "id = ?", id).Error
}

// UpdateAssociations replaces the article and group associations of a drop
func (r *DropRepository) UpdateAssociations(drop *models.Drop, articles []models.Article, groups []models.WhatsAppGroup) error {
	if err := r.db.Model(drop).Association("Articles").Replace(articles); err != nil {
		return err
	}
	return r.db.Model(drop).Association("Groups").Replace(groups)
}

// ClaimForSending atomically moves a drop into SENDING. The conditional
// update is the idempotency guard against concurrent dispatches: only one
// caller observes RowsAffected == 1.
func (r *DropRepository) ClaimForSending(id string) (bool, error) {
	res := r.db.Model(&models.Drop{}).
		Where("id = ? AND status IN ?", id, []string{
			models.DropStatusDraft,
			models.DropStatusScheduled,
			models.DropStatusFailed,
		}).
		Update("status", models.DropStatusSending)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateStatus sets the status of a drop
func (r *DropRepository) UpdateStatus(id, status string) error {
	return r.db.Model(&models.Drop{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// FinishDispatch stamps the terminal state of a dispatch in one update
func (r *DropRepository) FinishDispatch(id, status string, sentAt time.Time, totalArticles, totalGroups int) error {
	return r.db.Model(&models.Drop{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              status,
			"sent_at":             sentAt,
			"total_articles_sent": totalArticles,
			"total_groups_sent":   totalGroups,
		}).Error
}
