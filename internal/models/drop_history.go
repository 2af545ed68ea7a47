package models

import (
	"time"
)

// DropHistory is one row per attempted (drop, article, group) send. The
// table is append-only: rows are never updated or deleted, they are the
// source of truth for the same-day duplication rule.
type DropHistory struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	DropID          string    `json:"drop_id" gorm:"not null;index;type:uuid"`
	ArticleID       string    `json:"article_id" gorm:"not null;index;type:uuid"`
	WhatsappGroupID string    `json:"whatsapp_group_id" gorm:"not null;index;type:uuid"`
	SentAt          time.Time `json:"sent_at" gorm:"not null;index"`
	DeliveryStatus  string    `json:"delivery_status" gorm:"type:varchar(50);not null"` // e.g. "sent"
	MessagesSent    int       `json:"messages_sent" gorm:"default:1"`
	GatewayMessageID string   `json:"gateway_message_id" gorm:"type:varchar(255)"`

	CreatedAt time.Time `json:"created_at"`

	// Relationships
	Drop    Drop          `json:"-" gorm:"foreignKey:DropID;references:ID;constraint:OnDelete:CASCADE"`
	Article Article       `json:"article,omitempty" gorm:"foreignKey:ArticleID;references:ID"`
	Group   WhatsAppGroup `json:"group,omitempty" gorm:"foreignKey:WhatsappGroupID;references:ID"`
}

// TableName specifies the table name for the DropHistory model
func (DropHistory) TableName() string {
	return "drop_histories"
}

// DropHistoryResponse represents the response for drop history queries
type DropHistoryResponse struct {
	ID              string    `json:"id"`
	DropID          string    `json:"drop_id"`
	ArticleID       string    `json:"article_id"`
	ArticleName     string    `json:"article_name"`
	WhatsappGroupID string    `json:"whatsapp_group_id"`
	GroupName       string    `json:"group_name"`
	SentAt          time.Time `json:"sent_at"`
	DeliveryStatus  string    `json:"delivery_status"`
	MessagesSent    int       `json:"messages_sent"`
}
