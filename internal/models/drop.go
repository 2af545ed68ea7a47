package models

import (
	"time"

	"gorm.io/gorm"
)

// Drop statuses. SENT is terminal: a sent drop can never be edited or re-sent.
// FAILED is not terminal, a failed drop may be dispatched again.
const (
	DropStatusDraft     = "DRAFT"
	DropStatusScheduled = "SCHEDULED"
	DropStatusSending   = "SENDING"
	DropStatusSent      = "SENT"
	DropStatusFailed    = "FAILED"
)

// Drop represents a marketing campaign broadcast to WhatsApp groups
type Drop struct {
	ID     string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name   string `json:"name" gorm:"type:varchar(255);not null"`
	Status string `json:"status" gorm:"type:varchar(20);not null;index;default:'DRAFT'"`

	// Scheduling and completion markers
	ScheduledFor *time.Time `json:"scheduled_for" gorm:"index"`
	SentAt       *time.Time `json:"sent_at"`

	// Aggregate counters, stamped at the end of a dispatch (attempted scope)
	TotalArticlesSent int `json:"total_articles_sent" gorm:"default:0"`
	TotalGroupsSent   int `json:"total_groups_sent" gorm:"default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Articles []Article       `json:"articles,omitempty" gorm:"many2many:drop_articles"`
	Groups   []WhatsAppGroup `json:"groups,omitempty" gorm:"many2many:drop_groups"`
}

// TableName specifies the table name for the Drop model
func (Drop) TableName() string {
	return "drops"
}

// IsTerminal reports whether the drop can never be dispatched again
func (d *Drop) IsTerminal() bool {
	return d.Status == DropStatusSent
}

// dropTransitions is the allowed status transition table
var dropTransitions = map[string][]string{
	DropStatusDraft:     {DropStatusScheduled, DropStatusSending},
	DropStatusScheduled: {DropStatusDraft, DropStatusSending},
	DropStatusSending:   {DropStatusSent, DropStatusFailed},
	DropStatusFailed:    {DropStatusSending},
	DropStatusSent:      {},
}

// CanTransition reports whether a drop may move from one status to another
func CanTransition(from, to string) bool {
	for _, next := range dropTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsValidDropStatus reports whether s is one of the known drop statuses
func IsValidDropStatus(s string) bool {
	switch s {
	case DropStatusDraft, DropStatusScheduled, DropStatusSending, DropStatusSent, DropStatusFailed:
		return true
	}
	return false
}

// CreateDropRequest represents the request to create a new drop
type CreateDropRequest struct {
	Name         string     `json:"name" binding:"required" example:"Drop sneakers vendredi"`
	ArticleIDs   []string   `json:"article_ids" binding:"required,min=1"`
	GroupIDs     []string   `json:"group_ids" binding:"required,min=1"`
	ScheduledFor *time.Time `json:"scheduled_for" example:"2026-09-04T18:00:00Z"`
}

// UpdateDropRequest represents the request to update a drop
type UpdateDropRequest struct {
	Name         string     `json:"name" binding:"required" example:"Drop sneakers samedi"`
	Status       string     `json:"status" example:"SCHEDULED"`
	ScheduledFor *time.Time `json:"scheduled_for"`
}

// SendDropRequest represents the request body of the send endpoint. Both
// flags are optional so the historical empty body keeps working.
type SendDropRequest struct {
	Force bool `json:"force"`
	Async bool `json:"async"`
}

// DropResponse represents the response for drop operations
type DropResponse struct {
	ID                string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name              string     `json:"name" example:"Drop sneakers vendredi"`
	Status            string     `json:"status" example:"DRAFT"`
	ScheduledFor      *time.Time `json:"scheduled_for"`
	SentAt            *time.Time `json:"sent_at"`
	TotalArticlesSent int        `json:"total_articles_sent" example:"3"`
	TotalGroupsSent   int        `json:"total_groups_sent" example:"2"`
	Articles          []Article  `json:"articles,omitempty"`
	Groups            []WhatsAppGroup `json:"groups,omitempty"`
	CreatedAt         string     `json:"created_at" example:"2026-08-30T10:30:00Z"`
	UpdatedAt         string     `json:"updated_at" example:"2026-08-30T10:30:00Z"`
}

// DropProgressGroup is the per-group slice of a progress snapshot
type DropProgressGroup struct {
	GroupID          string `json:"group_id"`
	GroupName        string `json:"group_name"`
	SentMessages     int    `json:"sent_messages"`
	ExpectedMessages int    `json:"expected_messages"`
	Completed        bool   `json:"completed"`
}

// DropProgressResponse is a polling snapshot of a dispatch, derived from the
// history ledger over the trailing 24 hours
type DropProgressResponse struct {
	DropID          string              `json:"drop_id"`
	Status          string              `json:"status"`
	TotalGroups     int                 `json:"total_groups"`
	CompletedGroups int                 `json:"completed_groups"`
	TotalMessages   int                 `json:"total_messages"`
	SentMessages    int                 `json:"sent_messages"`
	Groups          []DropProgressGroup `json:"groups"`
	Errors          []string            `json:"errors"`
}
