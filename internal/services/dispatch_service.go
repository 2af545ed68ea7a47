package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ledropshop/wa-drops-backend/internal/config"
	"github.com/ledropshop/wa-drops-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DispatchDropStore is the subset of the drop repository the orchestrator needs
type DispatchDropStore interface {
	GetByID(id string) (*models.Drop, error)
	ClaimForSending(id string) (bool, error)
	UpdateStatus(id, status string) error
	FinishDispatch(id, status string, sentAt time.Time, totalArticles, totalGroups int) error
}

// HistoryWriter appends rows to the send ledger
type HistoryWriter interface {
	Create(history *models.DropHistory) error
}

// MessageSender delivers one article to one group and returns the gateway
// message id. Each call may fail independently.
type MessageSender interface {
	SendArticle(ctx context.Context, group *models.WhatsAppGroup, article *models.Article) (string, error)
}

// Evaluator computes the same-day verdict, used in strict mode only
type Evaluator interface {
	Evaluate(dropID string) (*models.EligibilityVerdict, error)
}

// DispatchService executes the fanout of a drop across its groups and
// articles and owns the drop's lifecycle transitions around it.
type DispatchService struct {
	dropRepo    DispatchDropStore
	historyRepo HistoryWriter
	gateway     MessageSender
	evaluator   Evaluator
	clock       Clock
	cfg         *config.DispatchConfig

	// cancel flags of in-flight dispatches, keyed by drop id
	cancels sync.Map
}

func NewDispatchService(
	dropRepo DispatchDropStore,
	historyRepo HistoryWriter,
	gateway MessageSender,
	evaluator Evaluator,
	clock Clock,
	cfg *config.DispatchConfig,
) *DispatchService {
	return &DispatchService{
		dropRepo:    dropRepo,
		historyRepo: historyRepo,
		gateway:     gateway,
		evaluator:   evaluator,
		clock:       clock,
		cfg:         cfg,
	}
}

type sendPair struct {
	group   models.WhatsAppGroup
	article models.Article
}

// Send runs the full dispatch of a drop. Individual pair failures are
// collected, never raised: the method only errors on a missing drop or an
// illegal state, and otherwise always reaches SENT or FAILED.
func (s *DispatchService) Send(ctx context.Context, dropID string, force bool) (*models.SendResult, error) {
	drop, err := s.dropRepo.GetByID(dropID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDropNotFound
		}
		return nil, fmt.Errorf("failed to load drop: %w", err)
	}

	if drop.Status == models.DropStatusSent {
		return nil, ErrDropAlreadySent
	}

	pairs, err := s.buildPairs(drop, force)
	if err != nil {
		return nil, err
	}

	// Atomic claim into SENDING guards against a concurrent double-send
	claimed, err := s.dropRepo.ClaimForSending(drop.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim drop for sending: %w", err)
	}
	if !claimed {
		if current, err := s.dropRepo.GetByID(drop.ID); err == nil && current.Status == models.DropStatusSent {
			return nil, ErrDropAlreadySent
		}
		return nil, ErrDropLocked
	}

	cancelled := &atomic.Bool{}
	s.cancels.Store(drop.ID, cancelled)
	defer s.cancels.Delete(drop.ID)

	start := s.clock.Now()
	logrus.WithFields(logrus.Fields{
		"drop_id":  drop.ID,
		"groups":   len(drop.Groups),
		"articles": len(drop.Articles),
		"pairs":    len(pairs),
		"force":    force,
	}).Info("Drop dispatch started")

	errs := s.fanout(ctx, drop.ID, pairs, cancelled)

	if cancelled.Load() {
		errs = append(errs, "envoi annulé")
	}

	sentAt := s.clock.Now()
	status := models.DropStatusSent
	if len(errs) > 0 {
		status = models.DropStatusFailed
	}

	// Counters record the attempted scope of the drop, not successful pairs
	if err := s.dropRepo.FinishDispatch(drop.ID, status, sentAt, len(drop.Articles), len(drop.Groups)); err != nil {
		errs = append(errs, fmt.Sprintf("failed to finalize drop: %v", err))
		status = models.DropStatusFailed
	}

	result := &models.SendResult{
		Success: len(errs) == 0,
		DropID:  drop.ID,
		SentAt:  sentAt,
		Statistics: models.SendStatistics{
			TotalGroups:       len(drop.Groups),
			TotalArticlesSent: len(drop.Articles),
			TotalMessages:     len(pairs),
			DurationMs:        sentAt.Sub(start).Milliseconds(),
		},
		Errors: errs,
	}

	logrus.WithFields(logrus.Fields{
		"drop_id": drop.ID,
		"status":  status,
		"errors":  len(errs),
	}).Info("Drop dispatch finished")

	return result, nil
}

// Cancel forces a SENDING drop to FAILED. The in-flight fanout checks the
// flag between pairs; pairs already handed to the gateway are not recalled.
func (s *DispatchService) Cancel(dropID string) error {
	drop, err := s.dropRepo.GetByID(dropID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDropNotFound
		}
		return fmt.Errorf("failed to load drop: %w", err)
	}

	if drop.Status != models.DropStatusSending {
		return ErrDropNotSending
	}

	if flag, ok := s.cancels.Load(dropID); ok {
		flag.(*atomic.Bool).Store(true)
	}

	if err := s.dropRepo.UpdateStatus(dropID, models.DropStatusFailed); err != nil {
		return fmt.Errorf("failed to cancel drop: %w", err)
	}

	logrus.WithField("drop_id", dropID).Info("Drop dispatch cancelled")
	return nil
}

// buildPairs expands the group × article product. In strict mode an
// unforced send only keeps each group's allowed articles; the default keeps
// the historical unconditional fanout where validation is purely advisory.
func (s *DispatchService) buildPairs(drop *models.Drop, force bool) ([]sendPair, error) {
	var allowedByGroup map[string]map[string]bool
	if s.cfg.StrictEligibility && !force {
		verdict, err := s.evaluator.Evaluate(drop.ID)
		if err != nil {
			return nil, err
		}
		allowedByGroup = make(map[string]map[string]bool, len(verdict.Groups))
		for _, g := range verdict.Groups {
			allowed := make(map[string]bool, len(g.AllowedArticleIDs))
			for _, id := range g.AllowedArticleIDs {
				allowed[id] = true
			}
			allowedByGroup[g.GroupID] = allowed
		}
	}

	pairs := make([]sendPair, 0, len(drop.Groups)*len(drop.Articles))
	for _, group := range drop.Groups {
		for _, article := range drop.Articles {
			if allowedByGroup != nil && !allowedByGroup[group.ID][article.ID] {
				continue
			}
			pairs = append(pairs, sendPair{group: group, article: article})
		}
	}
	return pairs, nil
}

// fanout attempts every pair and collects per-pair errors. A failing pair
// never aborts its siblings; the returned slice is complete only after all
// workers have joined.
func (s *DispatchService) fanout(ctx context.Context, dropID string, pairs []sendPair, cancelled *atomic.Bool) []string {
	var (
		mu   sync.Mutex
		errs []string
		wg   sync.WaitGroup
	)

	sem := make(chan struct{}, s.cfg.Workers)

	for _, pair := range pairs {
		if cancelled.Load() {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(p sendPair) {
			defer wg.Done()
			defer func() { <-sem }()

			// Re-check once the worker slot is held: a cancel raised while
			// this pair was queued must still skip it
			if cancelled.Load() {
				return
			}

			if err := s.sendPair(ctx, dropID, p); err != nil {
				logrus.WithFields(logrus.Fields{
					"drop_id":    dropID,
					"group_id":   p.group.ID,
					"article_id": p.article.ID,
				}).Warnf("Pair send failed: %v", err)

				mu.Lock()
				errs = append(errs, fmt.Sprintf("groupe %s / article %s: %v", p.group.Name, p.article.Name, err))
				mu.Unlock()
			}
		}(pair)
	}

	wg.Wait()
	return errs
}

func (s *DispatchService) sendPair(ctx context.Context, dropID string, p sendPair) error {
	messageID, err := s.gateway.SendArticle(ctx, &p.group, &p.article)
	if err != nil {
		return err
	}

	history := &models.DropHistory{
		DropID:           dropID,
		ArticleID:        p.article.ID,
		WhatsappGroupID:  p.group.ID,
		SentAt:           s.clock.Now(),
		DeliveryStatus:   "sent",
		MessagesSent:     1,
		GatewayMessageID: messageID,
	}
	if err := s.historyRepo.Create(history); err != nil {
		return fmt.Errorf("message sent but history write failed: %w", err)
	}
	return nil
}
