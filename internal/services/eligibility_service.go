package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/ledropshop/wa-drops-backend/internal/models"

	"gorm.io/gorm"
)

// DropFinder is the subset of the drop repository the evaluator needs
type DropFinder interface {
	GetByID(id string) (*models.Drop, error)
}

// HistoryReader reads the append-only send ledger
type HistoryReader interface {
	GetByGroupSince(groupID string, since time.Time) ([]*models.DropHistory, error)
}

// EligibilityService decides, per group, which articles of a drop are safe
// to send today under the one-article-per-group-per-day rule.
type EligibilityService struct {
	dropRepo    DropFinder
	historyRepo HistoryReader
	clock       Clock
}

func NewEligibilityService(dropRepo DropFinder, historyRepo HistoryReader, clock Clock) *EligibilityService {
	return &EligibilityService{
		dropRepo:    dropRepo,
		historyRepo: historyRepo,
		clock:       clock,
	}
}

// Evaluate computes the verdict for a drop. Read-only: groups are evaluated
// independently, in stored association order, against the ledger rows of the
// current calendar day. CanSend is permissive: true as soon as one group has
// at least one allowed article.
func (s *EligibilityService) Evaluate(dropID string) (*models.EligibilityVerdict, error) {
	drop, err := s.dropRepo.GetByID(dropID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDropNotFound
		}
		return nil, fmt.Errorf("failed to load drop: %w", err)
	}

	todayStart := StartOfDay(s.clock.Now())

	verdict := &models.EligibilityVerdict{
		Groups: make([]models.GroupEligibility, 0, len(drop.Groups)),
	}
	verdict.Summary.TotalGroups = len(drop.Groups)

	for _, group := range drop.Groups {
		rows, err := s.historyRepo.GetByGroupSince(group.ID, todayStart)
		if err != nil {
			return nil, fmt.Errorf("failed to load send history for group %s: %w", group.ID, err)
		}

		sentToday := make(map[string]bool, len(rows))
		for _, row := range rows {
			sentToday[row.ArticleID] = true
		}

		entry := models.GroupEligibility{
			GroupID:           group.ID,
			GroupName:         group.Name,
			AllowedArticleIDs: []string{},
			BlockedArticleIDs: []string{},
			Warnings:          []string{},
		}

		for _, article := range drop.Articles {
			if sentToday[article.ID] {
				entry.BlockedArticleIDs = append(entry.BlockedArticleIDs, article.ID)
			} else {
				entry.AllowedArticleIDs = append(entry.AllowedArticleIDs, article.ID)
			}
		}

		if len(entry.BlockedArticleIDs) > 0 {
			entry.Warnings = append(entry.Warnings,
				fmt.Sprintf("%d article(s) déjà envoyé(s) aujourd'hui", len(entry.BlockedArticleIDs)))
		}

		switch {
		case len(entry.BlockedArticleIDs) == 0:
			verdict.Summary.ClearGroups++
		case len(entry.AllowedArticleIDs) == 0:
			verdict.Summary.BlockedGroups++
		default:
			verdict.Summary.PartiallyBlockedGroups++
		}
		verdict.Summary.TotalWarnings += len(entry.Warnings)

		if len(entry.AllowedArticleIDs) > 0 {
			verdict.CanSend = true
		}

		verdict.Groups = append(verdict.Groups, entry)
	}

	return verdict, nil
}
