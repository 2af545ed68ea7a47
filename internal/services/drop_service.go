package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/ledropshop/wa-drops-backend/internal/models"
	"github.com/ledropshop/wa-drops-backend/internal/utils"

	"gorm.io/gorm"
)

// DropStore is the drop repository surface the lifecycle service needs
type DropStore interface {
	Create(drop *models.Drop) error
	GetByID(id string) (*models.Drop, error)
	GetAll(offset, limit int) ([]*models.Drop, int64, error)
	Update(drop *models.Drop) error
	Delete(id string) error
	UpdateAssociations(drop *models.Drop, articles []models.Article, groups []models.WhatsAppGroup) error
}

// ArticleReader resolves catalog articles
type ArticleReader interface {
	GetByIDs(ids []string) ([]models.Article, error)
}

// GroupReader resolves WhatsApp groups
type GroupReader interface {
	GetByIDs(ids []string) ([]models.WhatsAppGroup, error)
}

// LedgerReader reads the send ledger for progress and history views
type LedgerReader interface {
	GetByDropSince(dropID string, since time.Time) ([]*models.DropHistory, error)
	GetByDrop(dropID string, offset, limit int) ([]*models.DropHistory, int64, error)
}

// DropService owns drop CRUD and the operator-facing lifecycle guards.
// Dispatch-time transitions belong to the DispatchService.
type DropService struct {
	dropRepo    DropStore
	articleRepo ArticleReader
	groupRepo   GroupReader
	historyRepo LedgerReader
	clock       Clock
}

func NewDropService(
	dropRepo DropStore,
	articleRepo ArticleReader,
	groupRepo GroupReader,
	historyRepo LedgerReader,
	clock Clock,
) *DropService {
	return &DropService{
		dropRepo:    dropRepo,
		articleRepo: articleRepo,
		groupRepo:   groupRepo,
		historyRepo: historyRepo,
		clock:       clock,
	}
}

// CreateDrop creates a drop in DRAFT, or SCHEDULED when a schedule is given.
// Article and group associations are fixed at creation time.
func (s *DropService) CreateDrop(req *models.CreateDropRequest) (*models.DropResponse, error) {
	articles, err := s.articleRepo.GetByIDs(req.ArticleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch articles: %w", err)
	}
	if len(articles) != len(req.ArticleIDs) {
		return nil, errors.New("one or more articles not found")
	}

	groups, err := s.groupRepo.GetByIDs(req.GroupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch groups: %w", err)
	}
	if len(groups) != len(req.GroupIDs) {
		return nil, errors.New("one or more groups not found")
	}

	drop := &models.Drop{
		Name:         req.Name,
		Status:       models.DropStatusDraft,
		ScheduledFor: req.ScheduledFor,
	}
	if req.ScheduledFor != nil {
		drop.Status = models.DropStatusScheduled
	}

	if err := s.dropRepo.Create(drop); err != nil {
		return nil, fmt.Errorf("failed to create drop: %w", err)
	}

	if err := s.dropRepo.UpdateAssociations(drop, articles, groups); err != nil {
		return nil, fmt.Errorf("failed to associate articles and groups: %w", err)
	}

	drop.Articles = articles
	drop.Groups = groups
	return s.toResponse(drop), nil
}

// GetDrop retrieves a drop by ID
func (s *DropService) GetDrop(dropID string) (*models.DropResponse, error) {
	drop, err := s.dropRepo.GetByID(dropID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDropNotFound
		}
		return nil, fmt.Errorf("failed to get drop: %w", err)
	}
	return s.toResponse(drop), nil
}

// ListDrops retrieves drops with pagination metadata
func (s *DropService) ListDrops(page, pageSize int) ([]*models.DropResponse, *utils.PaginationResponse, error) {
	page, pageSize = utils.ValidateAndNormalizePagination(page, pageSize)

	drops, total, err := s.dropRepo.GetAll(utils.CalculateOffset(page, pageSize), pageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list drops: %w", err)
	}

	responses := make([]*models.DropResponse, len(drops))
	for i, drop := range drops {
		responses[i] = s.toResponse(drop)
	}

	pagination := utils.CalculatePaginationInfo(int(total), page, pageSize)
	return responses, &pagination, nil
}

// UpdateDrop updates name, schedule and operator-settable status. A SENT
// drop is immutable; SENDING and SENT are machine-owned statuses and cannot
// be requested here.
func (s *DropService) UpdateDrop(dropID string, req *models.UpdateDropRequest) (*models.DropResponse, error) {
	drop, err := s.dropRepo.GetByID(dropID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDropNotFound
		}
		return nil, fmt.Errorf("failed to get drop: %w", err)
	}

	if drop.IsTerminal() {
		return nil, ErrDropImmutable
	}

	if req.Status != "" && req.Status != drop.Status {
		if !models.IsValidDropStatus(req.Status) {
			return nil, ErrInvalidStatus
		}
		if req.Status != models.DropStatusDraft && req.Status != models.DropStatusScheduled {
			return nil, ErrInvalidStatus
		}
		if !models.CanTransition(drop.Status, req.Status) {
			return nil, ErrInvalidStatus
		}
		drop.Status = req.Status
	}

	drop.Name = req.Name
	drop.ScheduledFor = req.ScheduledFor
	if req.ScheduledFor != nil && drop.Status == models.DropStatusDraft {
		drop.Status = models.DropStatusScheduled
	}

	if err := s.dropRepo.Update(drop); err != nil {
		return nil, fmt.Errorf("failed to update drop: %w", err)
	}

	return s.toResponse(drop), nil
}

// DeleteDrop soft-archives a drop. Only DRAFT and SCHEDULED drops may be
// deleted; a sent drop is kept forever as the audit anchor of its ledger.
func (s *DropService) DeleteDrop(dropID string) error {
	drop, err := s.dropRepo.GetByID(dropID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDropNotFound
		}
		return fmt.Errorf("failed to get drop: %w", err)
	}

	switch drop.Status {
	case models.DropStatusSent:
		return ErrDropImmutable
	case models.DropStatusSending:
		return ErrDropLocked
	}

	if err := s.dropRepo.Delete(dropID); err != nil {
		return fmt.Errorf("failed to delete drop: %w", err)
	}
	return nil
}

// GetProgress derives a polling snapshot of a dispatch from the ledger rows
// of the trailing 24 hours
func (s *DropService) GetProgress(dropID string) (*models.DropProgressResponse, error) {
	drop, err := s.dropRepo.GetByID(dropID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDropNotFound
		}
		return nil, fmt.Errorf("failed to get drop: %w", err)
	}

	since := s.clock.Now().Add(-24 * time.Hour)
	rows, err := s.historyRepo.GetByDropSince(dropID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load send history: %w", err)
	}

	sentByGroup := make(map[string]int, len(drop.Groups))
	for _, row := range rows {
		sentByGroup[row.WhatsappGroupID]++
	}

	progress := &models.DropProgressResponse{
		DropID:        drop.ID,
		Status:        drop.Status,
		TotalGroups:   len(drop.Groups),
		TotalMessages: len(drop.Groups) * len(drop.Articles),
		SentMessages:  len(rows),
		Groups:        make([]models.DropProgressGroup, 0, len(drop.Groups)),
		Errors:        []string{},
	}

	for _, group := range drop.Groups {
		sent := sentByGroup[group.ID]
		completed := sent >= len(drop.Articles) && len(drop.Articles) > 0
		if completed {
			progress.CompletedGroups++
		}
		progress.Groups = append(progress.Groups, models.DropProgressGroup{
			GroupID:          group.ID,
			GroupName:        group.Name,
			SentMessages:     sent,
			ExpectedMessages: len(drop.Articles),
			Completed:        completed,
		})
	}

	// Per-pair error strings only live in the transient send result; the
	// snapshot reports the shortfall observed in the ledger instead.
	if drop.Status == models.DropStatusFailed {
		if missing := progress.TotalMessages - progress.SentMessages; missing > 0 {
			progress.Errors = append(progress.Errors,
				fmt.Sprintf("%d message(s) manquant(s) sur le dernier envoi", missing))
		} else {
			progress.Errors = append(progress.Errors, "le dernier envoi s'est terminé en échec")
		}
	}

	return progress, nil
}

// GetHistory retrieves the paginated ledger of a drop
func (s *DropService) GetHistory(dropID string, page, pageSize int) ([]*models.DropHistoryResponse, *utils.PaginationResponse, error) {
	if _, err := s.dropRepo.GetByID(dropID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrDropNotFound
		}
		return nil, nil, fmt.Errorf("failed to get drop: %w", err)
	}

	page, pageSize = utils.ValidateAndNormalizePagination(page, pageSize)
	rows, total, err := s.historyRepo.GetByDrop(dropID, utils.CalculateOffset(page, pageSize), pageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load drop history: %w", err)
	}

	responses := make([]*models.DropHistoryResponse, len(rows))
	for i, row := range rows {
		responses[i] = &models.DropHistoryResponse{
			ID:              row.ID,
			DropID:          row.DropID,
			ArticleID:       row.ArticleID,
			ArticleName:     row.Article.Name,
			WhatsappGroupID: row.WhatsappGroupID,
			GroupName:       row.Group.Name,
			SentAt:          row.SentAt,
			DeliveryStatus:  row.DeliveryStatus,
			MessagesSent:    row.MessagesSent,
		}
	}

	pagination := utils.CalculatePaginationInfo(int(total), page, pageSize)
	return responses, &pagination, nil
}

// toResponse converts a Drop model to its response DTO
func (s *DropService) toResponse(drop *models.Drop) *models.DropResponse {
	return &models.DropResponse{
		ID:                drop.ID,
		Name:              drop.Name,
		Status:            drop.Status,
		ScheduledFor:      drop.ScheduledFor,
		SentAt:            drop.SentAt,
		TotalArticlesSent: drop.TotalArticlesSent,
		TotalGroupsSent:   drop.TotalGroupsSent,
		Articles:          drop.Articles,
		Groups:            drop.Groups,
		CreatedAt:         drop.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         drop.UpdatedAt.Format(time.RFC3339),
	}
}
