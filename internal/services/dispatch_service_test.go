package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ledropshop/wa-drops-backend/internal/config"
	"github.com/ledropshop/wa-drops-backend/internal/models"
	"github.com/ledropshop/wa-drops-backend/internal/services"

	"gorm.io/gorm"
)

type fakeDropStore struct {
	mu   sync.Mutex
	drop *models.Drop
}

func (f *fakeDropStore) GetByID(id string) (*models.Drop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.drop == nil || f.drop.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.drop
	return &copied, nil
}

func (f *fakeDropStore) ClaimForSending(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.drop.Status {
	case models.DropStatusDraft, models.DropStatusScheduled, models.DropStatusFailed:
		f.drop.Status = models.DropStatusSending
		return true, nil
	}
	return false, nil
}

func (f *fakeDropStore) UpdateStatus(id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drop.Status = status
	return nil
}

func (f *fakeDropStore) FinishDispatch(id, status string, sentAt time.Time, totalArticles, totalGroups int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drop.Status = status
	f.drop.SentAt = &sentAt
	f.drop.TotalArticlesSent = totalArticles
	f.drop.TotalGroupsSent = totalGroups
	return nil
}

func (f *fakeDropStore) status() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drop.Status
}

type fakeLedger struct {
	mu   sync.Mutex
	rows []*models.DropHistory
}

func (f *fakeLedger) Create(history *models.DropHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, history)
	return nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeSender struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]bool
	onSend func(pair string)
}

func (f *fakeSender) SendArticle(ctx context.Context, group *models.WhatsAppGroup, article *models.Article) (string, error) {
	pair := group.ID + "/" + article.ID

	f.mu.Lock()
	f.calls = append(f.calls, pair)
	hook := f.onSend
	fail := f.failOn[pair]
	f.mu.Unlock()

	if hook != nil {
		hook(pair)
	}
	if fail {
		return "", fmt.Errorf("gateway unreachable")
	}
	return "msg-" + pair, nil
}

func (f *fakeSender) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type stubEvaluator struct {
	verdict *models.EligibilityVerdict
}

func (s *stubEvaluator) Evaluate(dropID string) (*models.EligibilityVerdict, error) {
	return s.verdict, nil
}

func newDispatch(store *fakeDropStore, ledger *fakeLedger, sender *fakeSender, cfg *config.DispatchConfig, ev services.Evaluator) *services.DispatchService {
	if cfg == nil {
		cfg = &config.DispatchConfig{Workers: 1}
	}
	if ev == nil {
		ev = &stubEvaluator{verdict: &models.EligibilityVerdict{}}
	}
	return services.NewDispatchService(store, ledger, sender, ev, fixedClock{now: testNow}, cfg)
}

func TestSendFullFanout(t *testing.T) {
	store := &fakeDropStore{drop: testDrop([]string{"A", "B"}, []string{"G1", "G2"})}
	ledger := &fakeLedger{}
	sender := &fakeSender{}
	svc := newDispatch(store, ledger, sender, nil, nil)

	result, err := svc.Send(context.Background(), "drop-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Success {
		t.Errorf("expected success, got errors %v", result.Errors)
	}
	if ledger.count() != 4 {
		t.Errorf("expected 4 history rows, got %d", ledger.count())
	}
	if store.status() != models.DropStatusSent {
		t.Errorf("expected status SENT, got %s", store.status())
	}
	if result.Statistics.TotalMessages != 4 {
		t.Errorf("expected 4 total messages, got %d", result.Statistics.TotalMessages)
	}
	if result.Statistics.TotalGroups != 2 || result.Statistics.TotalArticlesSent != 2 {
		t.Errorf("unexpected statistics: %+v", result.Statistics)
	}
}

func TestSendPartialFailure(t *testing.T) {
	store := &fakeDropStore{drop: testDrop([]string{"A", "B"}, []string{"G1", "G2"})}
	ledger := &fakeLedger{}
	sender := &fakeSender{failOn: map[string]bool{"G1/A": true}}
	svc := newDispatch(store, ledger, sender, nil, nil)

	result, err := svc.Send(context.Background(), "drop-1", false)
	if err != nil {
		t.Fatalf("partial failure must not raise, got %v", err)
	}

	if result.Success {
		t.Error("expected success=false on partial failure")
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error, got %v", result.Errors)
	}
	// The failing pair never aborts its siblings
	if sender.attempts() != 4 {
		t.Errorf("expected all 4 pairs attempted, got %d", sender.attempts())
	}
	if ledger.count() != 3 {
		t.Errorf("expected 3 history rows, got %d", ledger.count())
	}
	if store.status() != models.DropStatusFailed {
		t.Errorf("expected status FAILED, got %s", store.status())
	}
}

func TestSendAlreadySent(t *testing.T) {
	drop := testDrop([]string{"A"}, []string{"G"})
	drop.Status = models.DropStatusSent
	store := &fakeDropStore{drop: drop}
	ledger := &fakeLedger{}
	svc := newDispatch(store, ledger, &fakeSender{}, nil, nil)

	_, err := svc.Send(context.Background(), "drop-1", false)
	if !errors.Is(err, services.ErrDropAlreadySent) {
		t.Errorf("expected ErrDropAlreadySent, got %v", err)
	}
	if ledger.count() != 0 {
		t.Errorf("a sent drop must not produce new history rows, got %d", ledger.count())
	}
}

func TestSendTwiceSecondConflicts(t *testing.T) {
	store := &fakeDropStore{drop: testDrop([]string{"A", "B"}, []string{"G1", "G2"})}
	ledger := &fakeLedger{}
	svc := newDispatch(store, ledger, &fakeSender{}, nil, nil)

	if _, err := svc.Send(context.Background(), "drop-1", false); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	_, err := svc.Send(context.Background(), "drop-1", false)
	if !errors.Is(err, services.ErrDropAlreadySent) {
		t.Errorf("expected ErrDropAlreadySent on resend, got %v", err)
	}
	if ledger.count() != 4 {
		t.Errorf("second send must not add rows, got %d", ledger.count())
	}
}

func TestSendConcurrentClaimRejected(t *testing.T) {
	drop := testDrop([]string{"A"}, []string{"G"})
	drop.Status = models.DropStatusSending
	store := &fakeDropStore{drop: drop}
	svc := newDispatch(store, &fakeLedger{}, &fakeSender{}, nil, nil)

	_, err := svc.Send(context.Background(), "drop-1", false)
	if !errors.Is(err, services.ErrDropLocked) {
		t.Errorf("expected ErrDropLocked while another dispatch holds SENDING, got %v", err)
	}
}

func TestSendMissingDrop(t *testing.T) {
	store := &fakeDropStore{drop: testDrop([]string{"A"}, []string{"G"})}
	svc := newDispatch(store, &fakeLedger{}, &fakeSender{}, nil, nil)

	_, err := svc.Send(context.Background(), "unknown", false)
	if !errors.Is(err, services.ErrDropNotFound) {
		t.Errorf("expected ErrDropNotFound, got %v", err)
	}
}

func TestSendResendAfterFailure(t *testing.T) {
	drop := testDrop([]string{"A"}, []string{"G"})
	drop.Status = models.DropStatusFailed
	store := &fakeDropStore{drop: drop}
	ledger := &fakeLedger{}
	svc := newDispatch(store, ledger, &fakeSender{}, nil, nil)

	result, err := svc.Send(context.Background(), "drop-1", false)
	if err != nil {
		t.Fatalf("a FAILED drop must be resendable: %v", err)
	}
	if !result.Success || store.status() != models.DropStatusSent {
		t.Errorf("expected successful resend, status %s", store.status())
	}
}

func TestCancelStopsRemainingPairs(t *testing.T) {
	store := &fakeDropStore{drop: testDrop([]string{"A", "B", "C"}, []string{"G"})}
	ledger := &fakeLedger{}
	sender := &fakeSender{}
	svc := newDispatch(store, ledger, sender, nil, nil)

	// Cancel from inside the first pair: the loop must stop before the rest
	sender.onSend = func(pair string) {
		if pair == "G/A" {
			if err := svc.Cancel("drop-1"); err != nil {
				t.Errorf("cancel during fanout failed: %v", err)
			}
		}
	}

	result, err := svc.Send(context.Background(), "drop-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sender.attempts() != 1 {
		t.Errorf("expected remaining pairs skipped after cancel, attempts=%d", sender.attempts())
	}
	if result.Success {
		t.Error("a cancelled dispatch must not report success")
	}
	if store.status() != models.DropStatusFailed {
		t.Errorf("expected status FAILED after cancel, got %s", store.status())
	}
}

func TestCancelOutsideSending(t *testing.T) {
	store := &fakeDropStore{drop: testDrop([]string{"A"}, []string{"G"})}
	svc := newDispatch(store, &fakeLedger{}, &fakeSender{}, nil, nil)

	if err := svc.Cancel("drop-1"); !errors.Is(err, services.ErrDropNotSending) {
		t.Errorf("expected ErrDropNotSending on a DRAFT drop, got %v", err)
	}
}

func TestStrictModeFiltersBlockedPairs(t *testing.T) {
	store := &fakeDropStore{drop: testDrop([]string{"A", "B"}, []string{"G1", "G2"})}
	ledger := &fakeLedger{}
	sender := &fakeSender{}
	verdict := &models.EligibilityVerdict{
		CanSend: true,
		Groups: []models.GroupEligibility{
			{GroupID: "G1", AllowedArticleIDs: []string{"B"}, BlockedArticleIDs: []string{"A"}},
			{GroupID: "G2", AllowedArticleIDs: []string{"A", "B"}},
		},
	}
	cfg := &config.DispatchConfig{Workers: 1, StrictEligibility: true}
	svc := newDispatch(store, ledger, sender, cfg, &stubEvaluator{verdict: verdict})

	result, err := svc.Send(context.Background(), "drop-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sender.attempts() != 3 {
		t.Errorf("strict mode must skip blocked pairs, attempts=%d", sender.attempts())
	}
	if result.Statistics.TotalMessages != 3 {
		t.Errorf("expected 3 attempted messages, got %d", result.Statistics.TotalMessages)
	}
}

func TestStrictModeForcedSendsEverything(t *testing.T) {
	store := &fakeDropStore{drop: testDrop([]string{"A", "B"}, []string{"G1", "G2"})}
	sender := &fakeSender{}
	verdict := &models.EligibilityVerdict{
		Groups: []models.GroupEligibility{
			{GroupID: "G1", BlockedArticleIDs: []string{"A", "B"}},
			{GroupID: "G2", BlockedArticleIDs: []string{"A", "B"}},
		},
	}
	cfg := &config.DispatchConfig{Workers: 1, StrictEligibility: true}
	svc := newDispatch(store, &fakeLedger{}, sender, cfg, &stubEvaluator{verdict: verdict})

	if _, err := svc.Send(context.Background(), "drop-1", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.attempts() != 4 {
		t.Errorf("force must bypass the verdict, attempts=%d", sender.attempts())
	}
}

func TestSendParallelWorkersAttemptEverything(t *testing.T) {
	store := &fakeDropStore{drop: testDrop([]string{"A", "B", "C"}, []string{"G1", "G2", "G3"})}
	ledger := &fakeLedger{}
	sender := &fakeSender{failOn: map[string]bool{"G2/B": true}}
	cfg := &config.DispatchConfig{Workers: 4}
	svc := newDispatch(store, ledger, sender, cfg, nil)

	result, err := svc.Send(context.Background(), "drop-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sender.attempts() != 9 {
		t.Errorf("expected 9 attempts with a worker pool, got %d", sender.attempts())
	}
	if ledger.count() != 8 || len(result.Errors) != 1 {
		t.Errorf("expected 8 rows and 1 error, got %d rows, errors %v", ledger.count(), result.Errors)
	}
	if store.status() != models.DropStatusFailed {
		t.Errorf("expected FAILED after a partial failure, got %s", store.status())
	}
}
