package repository

import (
	"github.com/ledropshop/wa-drops-backend/internal/models"

	"gorm.io/gorm"
)

type WhatsAppGroupRepository struct {
	db *gorm.DB
}

func NewWhatsAppGroupRepository(db *gorm.DB) *WhatsAppGroupRepository {
	return &WhatsAppGroupRepository{db: db}
}

// GetByID retrieves a group by ID
func (r *WhatsAppGroupRepository) GetByID(id string) (*models.WhatsAppGroup, error) {
	var group models.WhatsAppGroup
	err := r.db.First(&group, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetByIDs retrieves groups matching the given IDs
func (r *WhatsAppGroupRepository) GetByIDs(ids []string) ([]models.WhatsAppGroup, error) {
	var groups []models.WhatsAppGroup
	err := r.db.Where("id IN ?", ids).Find(&groups).Error
	return groups, err
}

// GetAll retrieves all known groups
func (r *WhatsAppGroupRepository) GetAll() ([]models.WhatsAppGroup, error) {
	var groups []models.WhatsAppGroup
	err := r.db.Order("name ASC").Find(&groups).Error
	return groups, err
}

// UpsertByChatID inserts the group or refreshes its name when the chat id is
// already known. Used by the gateway sync.
func (r *WhatsAppGroupRepository) UpsertByChatID(group *models.WhatsAppGroup) error {
	var existing models.WhatsAppGroup
	err := r.db.Where("chat_id = ?", group.ChatID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.Create(group).Error
	}
	if err != nil {
		return err
	}
	existing.Name = group.Name
	return r.db.Save(&existing).Error
}
