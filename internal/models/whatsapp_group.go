package models

import (
	"time"
)

// WhatsAppGroup is a target distribution channel. ChatID is the external
// group reference on the gateway (JID). Read-only from the dispatch engine;
// rows are refreshed from the gateway by the sync endpoint.
type WhatsAppGroup struct {
	ID     string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name   string `json:"name" gorm:"type:varchar(255);not null"`
	ChatID string `json:"chat_id" gorm:"type:varchar(255);not null;uniqueIndex"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the WhatsAppGroup model
func (WhatsAppGroup) TableName() string {
	return "whatsapp_groups"
}
