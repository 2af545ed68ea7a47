package services_test

import (
	"testing"
	"time"

	"github.com/ledropshop/wa-drops-backend/internal/models"
	"github.com/ledropshop/wa-drops-backend/internal/services"

	"gorm.io/gorm"
)

// fixedClock pins "now" so the day boundary is deterministic
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

type fakeDropFinder struct {
	drop *models.Drop
}

func (f *fakeDropFinder) GetByID(id string) (*models.Drop, error) {
	if f.drop == nil || f.drop.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.drop, nil
}

type fakeHistoryReader struct {
	rows []*models.DropHistory
}

func (f *fakeHistoryReader) GetByGroupSince(groupID string, since time.Time) ([]*models.DropHistory, error) {
	var out []*models.DropHistory
	for _, row := range f.rows {
		if row.WhatsappGroupID == groupID && !row.SentAt.Before(since) {
			out = append(out, row)
		}
	}
	return out, nil
}

func testDrop(articleIDs, groupIDs []string) *models.Drop {
	drop := &models.Drop{ID: "drop-1", Name: "Drop test", Status: models.DropStatusDraft}
	for _, id := range articleIDs {
		drop.Articles = append(drop.Articles, models.Article{ID: id, Name: "Article " + id})
	}
	for _, id := range groupIDs {
		drop.Groups = append(drop.Groups, models.WhatsAppGroup{ID: id, Name: "Groupe " + id, ChatID: id + "@g.us"})
	}
	return drop
}

func historyRow(groupID, articleID string, sentAt time.Time) *models.DropHistory {
	return &models.DropHistory{
		DropID:          "older-drop",
		WhatsappGroupID: groupID,
		ArticleID:       articleID,
		SentAt:          sentAt,
		DeliveryStatus:  "sent",
		MessagesSent:    1,
	}
}

func newEligibility(drop *models.Drop, rows []*models.DropHistory) *services.EligibilityService {
	return services.NewEligibilityService(
		&fakeDropFinder{drop: drop},
		&fakeHistoryReader{rows: rows},
		fixedClock{now: testNow},
	)
}

func TestEvaluateNoHistoryToday(t *testing.T) {
	svc := newEligibility(testDrop([]string{"A", "B"}, []string{"G"}), nil)

	verdict, err := svc.Evaluate("drop-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !verdict.CanSend {
		t.Error("expected can_send to be true")
	}
	if len(verdict.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(verdict.Groups))
	}
	g := verdict.Groups[0]
	if len(g.AllowedArticleIDs) != 2 || len(g.BlockedArticleIDs) != 0 {
		t.Errorf("expected allowed=[A B] blocked=[], got allowed=%v blocked=%v", g.AllowedArticleIDs, g.BlockedArticleIDs)
	}
	if verdict.Summary.ClearGroups != 1 || verdict.Summary.TotalWarnings != 0 {
		t.Errorf("unexpected summary: %+v", verdict.Summary)
	}
}

func TestEvaluatePartiallyBlocked(t *testing.T) {
	rows := []*models.DropHistory{
		historyRow("G", "A", testNow.Add(-2*time.Hour)),
	}
	svc := newEligibility(testDrop([]string{"A", "B"}, []string{"G"}), rows)

	verdict, err := svc.Evaluate("drop-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !verdict.CanSend {
		t.Error("expected can_send to be true on a partial block")
	}
	g := verdict.Groups[0]
	if len(g.AllowedArticleIDs) != 1 || g.AllowedArticleIDs[0] != "B" {
		t.Errorf("expected allowed=[B], got %v", g.AllowedArticleIDs)
	}
	if len(g.BlockedArticleIDs) != 1 || g.BlockedArticleIDs[0] != "A" {
		t.Errorf("expected blocked=[A], got %v", g.BlockedArticleIDs)
	}
	if verdict.Summary.PartiallyBlockedGroups != 1 {
		t.Errorf("expected 1 partially blocked group, got %+v", verdict.Summary)
	}
	if len(g.Warnings) != 1 || g.Warnings[0] != "1 article(s) déjà envoyé(s) aujourd'hui" {
		t.Errorf("unexpected warnings: %v", g.Warnings)
	}
}

func TestEvaluateFullyBlocked(t *testing.T) {
	rows := []*models.DropHistory{
		historyRow("G", "A", testNow.Add(-1*time.Hour)),
		historyRow("G", "B", testNow.Add(-3*time.Hour)),
	}
	svc := newEligibility(testDrop([]string{"A", "B"}, []string{"G"}), rows)

	verdict, err := svc.Evaluate("drop-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if verdict.CanSend {
		t.Error("expected can_send to be false when every group is blocked")
	}
	g := verdict.Groups[0]
	if len(g.AllowedArticleIDs) != 0 || len(g.BlockedArticleIDs) != 2 {
		t.Errorf("expected allowed=[] blocked=[A B], got allowed=%v blocked=%v", g.AllowedArticleIDs, g.BlockedArticleIDs)
	}
	if verdict.Summary.BlockedGroups != 1 {
		t.Errorf("expected 1 blocked group, got %+v", verdict.Summary)
	}
}

func TestEvaluateIgnoresYesterday(t *testing.T) {
	// A row before today's midnight must not block anything
	yesterday := time.Date(2026, 8, 29, 23, 30, 0, 0, time.UTC)
	rows := []*models.DropHistory{
		historyRow("G", "A", yesterday),
	}
	svc := newEligibility(testDrop([]string{"A"}, []string{"G"}), rows)

	verdict, err := svc.Evaluate("drop-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict.CanSend || len(verdict.Groups[0].BlockedArticleIDs) != 0 {
		t.Errorf("yesterday's history must not block today's send: %+v", verdict.Groups[0])
	}
}

func TestEvaluatePartitionAndSummaryInvariants(t *testing.T) {
	rows := []*models.DropHistory{
		historyRow("G1", "A", testNow.Add(-time.Hour)),
		historyRow("G2", "A", testNow.Add(-time.Hour)),
		historyRow("G2", "B", testNow.Add(-time.Hour)),
	}
	drop := testDrop([]string{"A", "B"}, []string{"G1", "G2", "G3"})
	svc := newEligibility(drop, rows)

	verdict, err := svc.Evaluate("drop-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Allowed and blocked partition the article set for every group
	for _, g := range verdict.Groups {
		if len(g.AllowedArticleIDs)+len(g.BlockedArticleIDs) != len(drop.Articles) {
			t.Errorf("group %s: partition incomplete: %v + %v", g.GroupID, g.AllowedArticleIDs, g.BlockedArticleIDs)
		}
		seen := map[string]bool{}
		for _, id := range g.AllowedArticleIDs {
			seen[id] = true
		}
		for _, id := range g.BlockedArticleIDs {
			if seen[id] {
				t.Errorf("group %s: article %s in both partitions", g.GroupID, id)
			}
		}
	}

	// Group categories are exclusive and sum to the total
	s := verdict.Summary
	if s.ClearGroups+s.PartiallyBlockedGroups+s.BlockedGroups != s.TotalGroups {
		t.Errorf("summary categories do not sum: %+v", s)
	}
	if s.ClearGroups != 1 || s.PartiallyBlockedGroups != 1 || s.BlockedGroups != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}

	// Result order matches the stored group order
	for i, g := range verdict.Groups {
		if g.GroupID != drop.Groups[i].ID {
			t.Errorf("group order mismatch at %d: %s", i, g.GroupID)
		}
	}
}

func TestEvaluateMissingDrop(t *testing.T) {
	svc := newEligibility(nil, nil)

	_, err := svc.Evaluate("nope")
	if err != services.ErrDropNotFound {
		t.Errorf("expected ErrDropNotFound, got %v", err)
	}
}
