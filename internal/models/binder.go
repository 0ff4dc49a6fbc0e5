package models

import (
	"time"
)

type CollectionStatus string

const (
	StatusCollected CollectionStatus = "collected"
	StatusMissing   CollectionStatus = "missing"
)

type BinderLayout string

const (
	Layout2x2 BinderLayout = "2x2"
	Layout3x3 BinderLayout = "3x3"
	Layout4x4 BinderLayout = "4x4"
)

const (
	// MaxBulkBoxCards caps the holding area for cards not yet placed in slots.
	MaxBulkBoxCards = 16
	// MaxActiveGoals caps the number of incomplete goals per binder.
	MaxActiveGoals = 5
	// MaxGoalTextLen caps goal text length in characters.
	MaxGoalTextLen = 150
	// MaxGoalsPerWindow caps goal creations inside GoalCooldownWindow.
	MaxGoalsPerWindow  = 10
	GoalCooldownWindow = 24 * time.Hour
	// StarterPageCount is the number of pages a new binder is created with.
	StarterPageCount = 3
)

// BinderCard is the persisted variant of a CardPreview: identity plus display
// attributes plus collection status. LegacyMissing carries the old boolean
// flag that some stored rows still use; slot normalization folds it into
// CollectionStatus and clears it.
type BinderCard struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Number           string           `json:"number,omitempty"`
	Rarity           string           `json:"rarity,omitempty"`
	ExpansionID      string           `json:"expansionId,omitempty"`
	ImageSmall       string           `json:"imageSmall,omitempty"`
	CollectionStatus CollectionStatus `json:"collectionStatus,omitempty"`
	LegacyMissing    bool             `json:"missing,omitempty"`
}

// SlotList is a page's ordered card slots, nil meaning empty. Stored as a
// JSON column.
type SlotList []*BinderCard

// BinderPage is one fixed-capacity grid of card slots. Index is 1-based and
// defines render order; it is not necessarily a dense sequence. The invariant
// len(CardOrder) == Slots holds for every persisted page.
type BinderPage struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	BinderID  string    `json:"binderId" gorm:"index:idx_pages_owner"`
	UserID    string    `json:"-" gorm:"index:idx_pages_owner"`
	Index     int       `json:"index" gorm:"column:page_index;not null"`
	Slots     int       `json:"slots" gorm:"not null"`
	CardOrder SlotList  `json:"cardOrder" gorm:"serializer:json"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BinderGoal is a user-set collection goal. Completion is one-way.
type BinderGoal struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type GoalList []BinderGoal

type TimeList []time.Time

type BulkBox []BinderCard

// Binder is a user-owned collection of ordered pages. Pages live in their own
// table; goals, cooldown timestamps and the bulk box are JSON columns on the
// binder row itself.
type Binder struct {
	ID            string       `json:"id" gorm:"primaryKey"`
	UserID        string       `json:"-" gorm:"index"`
	Name          string       `json:"name" gorm:"not null"`
	Layout        BinderLayout `json:"layout" gorm:"not null;default:'3x3'"`
	ColorScheme   string       `json:"colorScheme"`
	Goals         GoalList     `json:"goals" gorm:"serializer:json"`
	GoalCooldowns TimeList     `json:"goalCooldowns" gorm:"serializer:json"`
	BulkBoxCards  BulkBox      `json:"bulkBoxCards" gorm:"serializer:json"`
	ShowGoals     bool         `json:"showGoals"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// PileEntry is one line of a pile-to-binder transfer; Quantity copies of the
// card are placed consecutively.
type PileEntry struct {
	Card     BinderCard `json:"card"`
	Quantity int        `json:"quantity"`
}

type CreateBinderRequest struct {
	Name        string       `json:"name" binding:"required"`
	Layout      BinderLayout `json:"layout"`
	ColorScheme string       `json:"colorScheme"`
}

type UpdateBinderSettingsRequest struct {
	Name        *string       `json:"name"`
	Layout      *BinderLayout `json:"layout"`
	ColorScheme *string       `json:"colorScheme"`
	ShowGoals   *bool         `json:"showGoals"`
}

type AddGoalRequest struct {
	Text string `json:"text" binding:"required"`
}

type AddCardsRequest struct {
	Cards []BinderCard `json:"cards" binding:"required"`
}

type TransferPileRequest struct {
	Entries []PileEntry `json:"entries" binding:"required"`
}

type SavePagesRequest struct {
	Pages []BinderPage `json:"pages" binding:"required"`
}

// PlacementResponse reports how a placement went: which pages were written
// and how many cards did or did not fit.
type PlacementResponse struct {
	Pages          []BinderPage `json:"pages"`
	ChangedPageIDs []string     `json:"changedPageIds"`
	AddedCount     int          `json:"addedCount"`
	RemainingCount int          `json:"remainingCount"`
}
