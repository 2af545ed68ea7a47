package models

import (
	"time"
)

// Article is the catalog read model used when composing drop messages.
// Catalog management lives in the admin service; this side only reads.
type Article struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name        string `json:"name" gorm:"type:varchar(255);not null"`
	Description string `json:"description" gorm:"type:text"`
	PriceCents  int    `json:"price_cents" gorm:"not null;default:0"`
	ImageURL    string `json:"image_url" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Article model
func (Article) TableName() string {
	return "articles"
}
