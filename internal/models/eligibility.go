package models

import (
	"time"
)

// GroupEligibility is the per-group slice of an eligibility verdict. Allowed
// and blocked always partition the drop's article id set.
type GroupEligibility struct {
	GroupID           string   `json:"group_id"`
	GroupName         string   `json:"group_name"`
	AllowedArticleIDs []string `json:"allowed_article_ids"`
	BlockedArticleIDs []string `json:"blocked_article_ids"`
	Warnings          []string `json:"warnings"`
}

// EligibilitySummary aggregates the per-group outcomes. The three group
// counters are mutually exclusive and sum to TotalGroups.
type EligibilitySummary struct {
	TotalGroups            int `json:"total_groups"`
	ClearGroups            int `json:"clear_groups"`
	PartiallyBlockedGroups int `json:"partially_blocked_groups"`
	BlockedGroups          int `json:"blocked_groups"`
	TotalWarnings          int `json:"total_warnings"`
}

// EligibilityVerdict is the output of the same-day validation. It is
// recomputed on every call and never persisted.
type EligibilityVerdict struct {
	CanSend bool               `json:"can_send"`
	Groups  []GroupEligibility `json:"groups"`
	Summary EligibilitySummary `json:"summary"`
}

// SendStatistics describes the attempted scope of a dispatch
type SendStatistics struct {
	TotalGroups       int   `json:"total_groups"`
	TotalArticlesSent int   `json:"total_articles_sent"`
	TotalMessages     int   `json:"total_messages"`
	DurationMs        int64 `json:"duration_ms"`
}

// SendResult is the envelope returned by the send endpoint. Partial failure
// is reported here (success=false, populated errors), not as an HTTP error.
type SendResult struct {
	Success    bool           `json:"success"`
	DropID     string         `json:"drop_id"`
	SentAt     time.Time      `json:"sent_at"`
	Statistics SendStatistics `json:"statistics"`
	Errors     []string       `json:"errors"`
}
