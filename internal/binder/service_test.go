package binder

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pokebinder/backend/internal/database"
	"github.com/pokebinder/backend/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewService(db, logger)
}

func TestCreateBinderStarterPages(t *testing.T) {
	s := newTestService(t)

	b, pages, err := s.CreateBinder("user1", models.CreateBinderRequest{Name: "My Binder"})
	if err != nil {
		t.Fatalf("CreateBinder failed: %v", err)
	}
	if b.Layout != models.Layout3x3 {
		t.Errorf("expected default 3x3 layout, got %q", b.Layout)
	}
	if len(pages) != models.StarterPageCount {
		t.Fatalf("expected %d starter pages, got %d", models.StarterPageCount, len(pages))
	}
	for i, page := range pages {
		if page.Index != i+1 {
			t.Errorf("page %d has index %d", i, page.Index)
		}
		if page.Slots != 9 || len(page.CardOrder) != 9 {
			t.Errorf("page %d has %d slots, want 9", i, page.Slots)
		}
	}
}

func TestGetBinderScopedToUser(t *testing.T) {
	s := newTestService(t)

	b, _, err := s.CreateBinder("user1", models.CreateBinderRequest{Name: "Mine"})
	if err != nil {
		t.Fatalf("CreateBinder failed: %v", err)
	}

	if _, _, err := s.GetBinder("user2", b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign user, got %v", err)
	}
	if _, _, err := s.GetBinder("user1", b.ID); err != nil {
		t.Errorf("owner should see the binder: %v", err)
	}
}

func TestAddAndDeletePage(t *testing.T) {
	s := newTestService(t)
	b, _, _ := s.CreateBinder("user1", models.CreateBinderRequest{Name: "B"})

	page, err := s.AddPage("user1", b.ID)
	if err != nil {
		t.Fatalf("AddPage failed: %v", err)
	}
	if page.Index != models.StarterPageCount+1 {
		t.Errorf("expected index %d, got %d", models.StarterPageCount+1, page.Index)
	}

	if err := s.DeletePage("user1", b.ID, page.ID); err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}
	if err := s.DeletePage("user1", b.ID, page.ID); !errors.Is(err, ErrPageNotFound) {
		t.Errorf("expected ErrPageNotFound on second delete, got %v", err)
	}
}

func TestPlaceCardsPersists(t *testing.T) {
	s := newTestService(t)
	b, _, _ := s.CreateBinder("user1", models.CreateBinderRequest{Name: "B"})

	resp, err := s.PlaceCards("user1", b.ID, []models.BinderCard{card("A"), card("B")})
	if err != nil {
		t.Fatalf("PlaceCards failed: %v", err)
	}
	if resp.AddedCount != 2 || resp.RemainingCount != 0 {
		t.Fatalf("expected 2 added, got %d/%d", resp.AddedCount, resp.RemainingCount)
	}
	if len(resp.ChangedPageIDs) != 1 {
		t.Errorf("expected one changed page, got %v", resp.ChangedPageIDs)
	}

	_, pages, err := s.GetBinder("user1", b.ID)
	if err != nil {
		t.Fatalf("GetBinder failed: %v", err)
	}
	if pages[0].CardOrder[0] == nil || pages[0].CardOrder[0].ID != "A" {
		t.Error("placement did not persist")
	}
}

func TestSavePagesWritesOnlyDirty(t *testing.T) {
	s := newTestService(t)
	b, pages, _ := s.CreateBinder("user1", models.CreateBinderRequest{Name: "B"})

	a := card("A")
	pages[1].CardOrder[4] = &a

	saved, err := s.SavePages("user1", b.ID, pages)
	if err != nil {
		t.Fatalf("SavePages failed: %v", err)
	}
	if len(saved) != 1 || saved[0] != pages[1].ID {
		t.Errorf("expected only the edited page saved, got %v", saved)
	}

	// Saving the same state again is a no-op.
	_, reloaded, _ := s.GetBinder("user1", b.ID)
	saved, err = s.SavePages("user1", b.ID, reloaded)
	if err != nil {
		t.Fatalf("SavePages failed: %v", err)
	}
	if len(saved) != 0 {
		t.Errorf("unchanged pages were rewritten: %v", saved)
	}
}

func TestTransferPile(t *testing.T) {
	s := newTestService(t)
	b, _, _ := s.CreateBinder("user1", models.CreateBinderRequest{Name: "B"})

	resp, err := s.TransferPile("user1", b.ID, []models.PileEntry{
		{Card: card("A"), Quantity: 2},
		{Card: card("B"), Quantity: 1},
	})
	if err != nil {
		t.Fatalf("TransferPile failed: %v", err)
	}
	if resp.AddedCount != 3 {
		t.Errorf("expected 3 placed, got %d", resp.AddedCount)
	}

	_, pages, _ := s.GetBinder("user1", b.ID)
	order := pages[0].CardOrder
	for i, want := range []string{"A", "A", "B"} {
		if order[i] == nil || order[i].ID != want {
			t.Errorf("slot %d = %v, want %s", i, order[i], want)
		}
	}
}

func TestBulkBoxCapAndFlush(t *testing.T) {
	s := newTestService(t)
	b, _, _ := s.CreateBinder("user1", models.CreateBinderRequest{Name: "B"})

	cards := make([]models.BinderCard, models.MaxBulkBoxCards)
	for i := range cards {
		cards[i] = card(strings.Repeat("x", i+1))
	}
	if _, err := s.AddToBulkBox("user1", b.ID, cards); err != nil {
		t.Fatalf("filling the box should succeed: %v", err)
	}
	if _, err := s.AddToBulkBox("user1", b.ID, []models.BinderCard{card("overflow")}); !errors.Is(err, ErrBulkBoxFull) {
		t.Errorf("expected ErrBulkBoxFull, got %v", err)
	}

	resp, err := s.FlushBulkBox("user1", b.ID)
	if err != nil {
		t.Fatalf("FlushBulkBox failed: %v", err)
	}
	if resp.AddedCount != models.MaxBulkBoxCards {
		t.Errorf("expected full flush, got %d", resp.AddedCount)
	}

	got, err := s.findBinder("user1", b.ID)
	if err != nil {
		t.Fatalf("findBinder failed: %v", err)
	}
	if len(got.BulkBoxCards) != 0 {
		t.Errorf("flushed cards should leave the box, %d remain", len(got.BulkBoxCards))
	}
}

func TestAddGoalLimits(t *testing.T) {
	s := newTestService(t)
	b, _, _ := s.CreateBinder("user1", models.CreateBinderRequest{Name: "B"})

	if _, err := s.AddGoal("user1", b.ID, strings.Repeat("x", models.MaxGoalTextLen+1)); !errors.Is(err, ErrGoalTooLong) {
		t.Errorf("expected ErrGoalTooLong, got %v", err)
	}

	base := time.Now()
	s.now = func() time.Time { return base }
	for i := 0; i < models.MaxGoalsPerWindow; i++ {
		if _, err := s.AddGoal("user1", b.ID, "collect them all"); err != nil {
			t.Fatalf("goal %d failed: %v", i, err)
		}
	}
	if _, err := s.AddGoal("user1", b.ID, "one more"); !errors.Is(err, ErrGoalCooldown) {
		t.Errorf("expected ErrGoalCooldown, got %v", err)
	}

	// Once the window rolls past, creation opens up again.
	s.now = func() time.Time { return base.Add(models.GoalCooldownWindow + time.Minute) }
	if _, err := s.AddGoal("user1", b.ID, "after the window"); err != nil {
		t.Errorf("goal after cooldown window failed: %v", err)
	}
}

func TestCompleteGoalOneWay(t *testing.T) {
	s := newTestService(t)
	b, _, _ := s.CreateBinder("user1", models.CreateBinderRequest{Name: "B"})

	goal, err := s.AddGoal("user1", b.ID, "finish the set")
	if err != nil {
		t.Fatalf("AddGoal failed: %v", err)
	}

	done, err := s.CompleteGoal("user1", b.ID, goal.ID)
	if err != nil {
		t.Fatalf("CompleteGoal failed: %v", err)
	}
	if !done.Completed || done.CompletedAt == nil {
		t.Error("goal should be completed with a timestamp")
	}
	first := *done.CompletedAt

	// Completing again is a no-op, not an error; the timestamp holds.
	again, err := s.CompleteGoal("user1", b.ID, goal.ID)
	if err != nil {
		t.Fatalf("second CompleteGoal failed: %v", err)
	}
	if !again.CompletedAt.Equal(first) {
		t.Error("repeat completion moved the timestamp")
	}

	if _, err := s.CompleteGoal("user1", b.ID, "nope"); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("expected ErrGoalNotFound, got %v", err)
	}
}

func TestActiveGoalCount(t *testing.T) {
	s := newTestService(t)
	b, _, _ := s.CreateBinder("user1", models.CreateBinderRequest{Name: "B"})

	g1, _ := s.AddGoal("user1", b.ID, "one")
	s.AddGoal("user1", b.ID, "two")
	s.CompleteGoal("user1", b.ID, g1.ID)

	got, _ := s.findBinder("user1", b.ID)
	if n := ActiveGoalCount(got); n != 1 {
		t.Errorf("ActiveGoalCount = %d, want 1", n)
	}
}

func TestUpdateSettingsLayoutResize(t *testing.T) {
	s := newTestService(t)
	b, _, _ := s.CreateBinder("user1", models.CreateBinderRequest{Name: "B"})

	layout := models.Layout4x4
	updated, err := s.UpdateSettings("user1", b.ID, models.UpdateBinderSettingsRequest{Layout: &layout})
	if err != nil {
		t.Fatalf("grow failed: %v", err)
	}
	if updated.Layout != models.Layout4x4 {
		t.Errorf("layout not updated: %q", updated.Layout)
	}
	_, pages, _ := s.GetBinder("user1", b.ID)
	for _, page := range pages {
		if page.Slots != 16 {
			t.Errorf("page %d not resized: %d slots", page.Index, page.Slots)
		}
	}
}

func TestUpdateSettingsShrinkFailsClosed(t *testing.T) {
	s := newTestService(t)
	b, pages, _ := s.CreateBinder("user1", models.CreateBinderRequest{Name: "B"})

	// Occupy a slot beyond 2x2 capacity on one page.
	a := card("A")
	pages[0].CardOrder[8] = &a
	if _, err := s.SavePages("user1", b.ID, pages); err != nil {
		t.Fatalf("SavePages failed: %v", err)
	}

	layout := models.Layout2x2
	_, err := s.UpdateSettings("user1", b.ID, models.UpdateBinderSettingsRequest{Layout: &layout})
	if !errors.Is(err, ErrShrinkBlocked) {
		t.Fatalf("expected ErrShrinkBlocked, got %v", err)
	}

	// Nothing was written: layout and pages are untouched.
	got, reloaded, _ := s.GetBinder("user1", b.ID)
	if got.Layout != models.Layout3x3 {
		t.Errorf("layout changed despite blocked shrink: %q", got.Layout)
	}
	for _, page := range reloaded {
		if page.Slots != 9 {
			t.Errorf("page %d resized despite blocked shrink", page.Index)
		}
	}
}

func TestDeleteBinderRemovesPages(t *testing.T) {
	s := newTestService(t)
	b, _, _ := s.CreateBinder("user1", models.CreateBinderRequest{Name: "B"})

	if err := s.DeleteBinder("user1", b.ID); err != nil {
		t.Fatalf("DeleteBinder failed: %v", err)
	}
	if _, _, err := s.GetBinder("user1", b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("binder should be gone, got %v", err)
	}
	pages, err := s.loadPages("user1", b.ID)
	if err != nil {
		t.Fatalf("loadPages failed: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("orphaned pages remain: %d", len(pages))
	}
}
