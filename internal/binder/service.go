package binder

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pokebinder/backend/internal/metrics"
	"github.com/pokebinder/backend/internal/models"
)

// Capacity and not-found errors are user-facing: handlers map them to 4xx
// messages rather than logging them as system failures.
var (
	ErrNotFound     = errors.New("binder not found")
	ErrPageNotFound = errors.New("binder page not found")
	ErrGoalNotFound = errors.New("goal not found")
	ErrGoalTooLong  = fmt.Errorf("goal text exceeds %d characters", models.MaxGoalTextLen)
	ErrGoalCooldown = errors.New("too many goals created in the last 24 hours")
	ErrBulkBoxFull  = fmt.Errorf("bulk box is full (max %d cards)", models.MaxBulkBoxCards)
)

// Service persists binders and their pages. Every operation is scoped by the
// owning user; multi-page saves are independent per-page writes with no
// transaction across them.
type Service struct {
	db  *gorm.DB
	log logrus.FieldLogger
	now func() time.Time
}

func NewService(db *gorm.DB, logger logrus.FieldLogger) *Service {
	return &Service{
		db:  db,
		log: logger.WithField("component", "binder"),
		now: time.Now,
	}
}

// CreateBinder creates a binder with its starter pages.
func (s *Service) CreateBinder(userID string, req models.CreateBinderRequest) (*models.Binder, []models.BinderPage, error) {
	layout := req.Layout
	if layout == "" {
		layout = models.Layout3x3
	}
	slots, err := SlotsForLayout(layout)
	if err != nil {
		return nil, nil, err
	}

	b := models.Binder{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          req.Name,
		Layout:        layout,
		ColorScheme:   req.ColorScheme,
		Goals:         models.GoalList{},
		GoalCooldowns: models.TimeList{},
		BulkBoxCards:  models.BulkBox{},
		ShowGoals:     true,
	}
	if err := s.db.Create(&b).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create binder: %w", err)
	}

	pages := make([]models.BinderPage, 0, models.StarterPageCount)
	for i := 1; i <= models.StarterPageCount; i++ {
		page := models.BinderPage{
			ID:        uuid.NewString(),
			BinderID:  b.ID,
			UserID:    userID,
			Index:     i,
			Slots:     slots,
			CardOrder: make(models.SlotList, slots),
		}
		if err := s.db.Create(&page).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to create starter page %d: %w", i, err)
		}
		pages = append(pages, page)
	}

	return &b, pages, nil
}

// ListBinders returns the user's binders, newest first.
func (s *Service) ListBinders(userID string) ([]models.Binder, error) {
	var binders []models.Binder
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&binders).Error; err != nil {
		return nil, fmt.Errorf("failed to list binders: %w", err)
	}
	return binders, nil
}

// GetBinder loads a binder and its pages ordered by index, slots normalized.
func (s *Service) GetBinder(userID, binderID string) (*models.Binder, []models.BinderPage, error) {
	b, err := s.findBinder(userID, binderID)
	if err != nil {
		return nil, nil, err
	}
	pages, err := s.loadPages(userID, binderID)
	if err != nil {
		return nil, nil, err
	}
	return b, pages, nil
}

// DeleteBinder removes a binder and all of its pages. Only whole-binder
// deletes exist; there is no partial variant.
func (s *Service) DeleteBinder(userID, binderID string) error {
	if _, err := s.findBinder(userID, binderID); err != nil {
		return err
	}
	if err := s.db.Where("binder_id = ? AND user_id = ?", binderID, userID).Delete(&models.BinderPage{}).Error; err != nil {
		return fmt.Errorf("failed to delete binder pages: %w", err)
	}
	if err := s.db.Where("id = ? AND user_id = ?", binderID, userID).Delete(&models.Binder{}).Error; err != nil {
		return fmt.Errorf("failed to delete binder: %w", err)
	}
	return nil
}

// AddPage appends an empty page after the current highest index.
func (s *Service) AddPage(userID, binderID string) (*models.BinderPage, error) {
	b, err := s.findBinder(userID, binderID)
	if err != nil {
		return nil, err
	}
	slots, err := SlotsForLayout(b.Layout)
	if err != nil {
		return nil, err
	}

	var maxIndex int
	row := s.db.Model(&models.BinderPage{}).
		Where("binder_id = ? AND user_id = ?", binderID, userID).
		Select("COALESCE(MAX(page_index), 0)").
		Row()
	if err := row.Scan(&maxIndex); err != nil {
		return nil, fmt.Errorf("failed to find highest page index: %w", err)
	}

	page := models.BinderPage{
		ID:        uuid.NewString(),
		BinderID:  binderID,
		UserID:    userID,
		Index:     maxIndex + 1,
		Slots:     slots,
		CardOrder: make(models.SlotList, slots),
	}
	if err := s.db.Create(&page).Error; err != nil {
		return nil, fmt.Errorf("failed to add binder page: %w", err)
	}
	return &page, nil
}

// DeletePage removes one whole page.
func (s *Service) DeletePage(userID, binderID, pageID string) error {
	result := s.db.Where("id = ? AND binder_id = ? AND user_id = ?", pageID, binderID, userID).
		Delete(&models.BinderPage{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete binder page: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPageNotFound
	}
	return nil
}

// SavePages writes only the pages whose slot contents differ from what is
// stored. Each page is an independent write: a failure on one does not roll
// back the others, so the returned saved list can be a strict subset.
func (s *Service) SavePages(userID, binderID string, pages []models.BinderPage) (saved []string, err error) {
	b, err := s.findBinder(userID, binderID)
	if err != nil {
		return nil, err
	}
	slots, err := SlotsForLayout(b.Layout)
	if err != nil {
		return nil, err
	}

	existing, err := s.loadPages(userID, binderID)
	if err != nil {
		return nil, err
	}
	baseline := SnapshotSignatures(existing)

	normalized := make([]models.BinderPage, len(pages))
	for i, page := range pages {
		page.BinderID = binderID
		page.UserID = userID
		page.Slots = slots
		normalized[i] = NormalizePage(page)
	}

	dirty := make(map[string]bool)
	for _, id := range DirtyPages(normalized, baseline) {
		dirty[id] = true
	}

	var errs []error
	for _, page := range normalized {
		if !dirty[page.ID] {
			continue
		}
		if err := s.upsertPage(page); err != nil {
			errs = append(errs, fmt.Errorf("failed to save binder page %s: %w", page.ID, err))
			continue
		}
		saved = append(saved, page.ID)
		metrics.BinderPageSavesTotal.Inc()
	}
	return saved, errors.Join(errs...)
}

// PlaceCards reconciles new cards into the binder's first free slots and
// persists only the pages that changed.
func (s *Service) PlaceCards(userID, binderID string, cards []models.BinderCard) (*models.PlacementResponse, error) {
	_, pages, err := s.GetBinder(userID, binderID)
	if err != nil {
		return nil, err
	}

	result := PlaceCards(pages, cards)

	changed := make(map[string]bool, len(result.ChangedPageIDs))
	for _, id := range result.ChangedPageIDs {
		changed[id] = true
	}
	var errs []error
	for _, page := range result.Pages {
		if !changed[page.ID] {
			continue
		}
		if err := s.upsertPage(page); err != nil {
			errs = append(errs, fmt.Errorf("failed to save binder page %s: %w", page.ID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	metrics.BinderCardsPlacedTotal.Add(float64(result.AddedCount))

	return &models.PlacementResponse{
		Pages:          result.Pages,
		ChangedPageIDs: result.ChangedPageIDs,
		AddedCount:     result.AddedCount,
		RemainingCount: result.RemainingCount,
	}, nil
}

// TransferPile expands pile entries into consecutive placements and runs them
// through PlaceCards.
func (s *Service) TransferPile(userID, binderID string, entries []models.PileEntry) (*models.PlacementResponse, error) {
	return s.PlaceCards(userID, binderID, ExpandPile(entries))
}

// AddToBulkBox appends cards to the binder's holding area, capped at
// MaxBulkBoxCards.
func (s *Service) AddToBulkBox(userID, binderID string, cards []models.BinderCard) (*models.Binder, error) {
	b, err := s.findBinder(userID, binderID)
	if err != nil {
		return nil, err
	}

	for _, card := range cards {
		normalized := NormalizeSlot(&card)
		if normalized == nil {
			continue
		}
		if len(b.BulkBoxCards) >= models.MaxBulkBoxCards {
			return nil, ErrBulkBoxFull
		}
		b.BulkBoxCards = append(b.BulkBoxCards, *normalized)
	}

	if err := s.db.Save(b).Error; err != nil {
		return nil, fmt.Errorf("failed to save bulk box: %w", err)
	}
	return b, nil
}

// FlushBulkBox places everything in the bulk box into the binder's free
// slots; cards that fit leave the box, overflow stays behind.
func (s *Service) FlushBulkBox(userID, binderID string) (*models.PlacementResponse, error) {
	b, err := s.findBinder(userID, binderID)
	if err != nil {
		return nil, err
	}

	resp, err := s.PlaceCards(userID, binderID, []models.BinderCard(b.BulkBoxCards))
	if err != nil {
		return nil, err
	}

	b.BulkBoxCards = append(models.BulkBox{}, b.BulkBoxCards[resp.AddedCount:]...)
	if err := s.db.Save(b).Error; err != nil {
		return nil, fmt.Errorf("failed to save bulk box: %w", err)
	}
	return resp, nil
}

// AddGoal creates a goal, enforcing text length and the rolling creation
// window: at most MaxGoalsPerWindow new goals inside GoalCooldownWindow.
// Expired cooldown timestamps are pruned on every write.
func (s *Service) AddGoal(userID, binderID, text string) (*models.BinderGoal, error) {
	if len(text) > models.MaxGoalTextLen {
		return nil, ErrGoalTooLong
	}

	b, err := s.findBinder(userID, binderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cutoff := now.Add(-models.GoalCooldownWindow)
	recent := make(models.TimeList, 0, len(b.GoalCooldowns))
	for _, t := range b.GoalCooldowns {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= models.MaxGoalsPerWindow {
		return nil, ErrGoalCooldown
	}

	goal := models.BinderGoal{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: now,
	}
	b.Goals = append(b.Goals, goal)
	b.GoalCooldowns = append(recent, now)

	if err := s.db.Save(b).Error; err != nil {
		return nil, fmt.Errorf("failed to save goal: %w", err)
	}
	return &goal, nil
}

// CompleteGoal marks a goal done. The transition is one-way; completing an
// already-completed goal is a no-op.
func (s *Service) CompleteGoal(userID, binderID, goalID string) (*models.BinderGoal, error) {
	b, err := s.findBinder(userID, binderID)
	if err != nil {
		return nil, err
	}

	for i := range b.Goals {
		if b.Goals[i].ID != goalID {
			continue
		}
		if !b.Goals[i].Completed {
			now := s.now()
			b.Goals[i].Completed = true
			b.Goals[i].CompletedAt = &now
			if err := s.db.Save(b).Error; err != nil {
				return nil, fmt.Errorf("failed to save goal completion: %w", err)
			}
		}
		goal := b.Goals[i]
		return &goal, nil
	}
	return nil, ErrGoalNotFound
}

// ActiveGoalCount counts a binder's incomplete goals.
func ActiveGoalCount(b *models.Binder) int {
	count := 0
	for _, g := range b.Goals {
		if !g.Completed {
			count++
		}
	}
	return count
}

// UpdateSettings mutates binder metadata. A layout change resizes every page
// first and fails closed: if any page has an occupied slot beyond the new
// capacity, nothing is written.
func (s *Service) UpdateSettings(userID, binderID string, req models.UpdateBinderSettingsRequest) (*models.Binder, error) {
	b, err := s.findBinder(userID, binderID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		b.Name = *req.Name
	}
	if req.ColorScheme != nil {
		b.ColorScheme = *req.ColorScheme
	}
	if req.ShowGoals != nil {
		b.ShowGoals = *req.ShowGoals
	}

	var resized []models.BinderPage
	if req.Layout != nil && *req.Layout != b.Layout {
		pages, err := s.loadPages(userID, binderID)
		if err != nil {
			return nil, err
		}
		for _, page := range pages {
			out, err := ResizePage(page, *req.Layout)
			if err != nil {
				return nil, err
			}
			resized = append(resized, out)
		}
		b.Layout = *req.Layout
	}

	if err := s.db.Save(b).Error; err != nil {
		return nil, fmt.Errorf("failed to save binder settings: %w", err)
	}
	for _, page := range resized {
		if err := s.upsertPage(page); err != nil {
			return nil, fmt.Errorf("failed to save resized page %s: %w", page.ID, err)
		}
	}
	return b, nil
}

func (s *Service) findBinder(userID, binderID string) (*models.Binder, error) {
	var b models.Binder
	err := s.db.Where("id = ? AND user_id = ?", binderID, userID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load binder: %w", err)
	}
	return &b, nil
}

func (s *Service) loadPages(userID, binderID string) ([]models.BinderPage, error) {
	var pages []models.BinderPage
	err := s.db.Where("binder_id = ? AND user_id = ?", binderID, userID).
		Order("page_index ASC").
		Find(&pages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load binder pages: %w", err)
	}
	for i := range pages {
		pages[i] = NormalizePage(pages[i])
	}
	return pages, nil
}

func (s *Service) upsertPage(page models.BinderPage) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&page).Error
}
