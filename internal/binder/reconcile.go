// Package binder implements binder page reconciliation and persistence:
// placing cards into the first free slots across ordered pages, computing
// which pages actually changed so saves stay minimal, and resizing page grids
// when the binder layout changes.
package binder

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pokebinder/backend/internal/models"
)

// ErrShrinkBlocked marks a layout shrink rejected because a card occupies a
// slot beyond the new capacity.
var ErrShrinkBlocked = errors.New("occupied slots beyond new layout capacity")

// SlotsForLayout maps a binder layout to its per-page slot count.
func SlotsForLayout(layout models.BinderLayout) (int, error) {
	switch layout {
	case models.Layout2x2:
		return 4, nil
	case models.Layout3x3:
		return 9, nil
	case models.Layout4x4:
		return 16, nil
	default:
		return 0, fmt.Errorf("unknown binder layout %q", layout)
	}
}

// NormalizeSlot returns a clean copy of a persisted slot entry. Malformed
// entries (no id) become nil. A missing collectionStatus defaults to
// "collected"; rows from before the status field carried a boolean missing
// flag, which is dropped during normalization.
func NormalizeSlot(card *models.BinderCard) *models.BinderCard {
	if card == nil || strings.TrimSpace(card.ID) == "" {
		return nil
	}
	out := *card
	if out.CollectionStatus != models.StatusCollected && out.CollectionStatus != models.StatusMissing {
		out.CollectionStatus = models.StatusCollected
	}
	out.LegacyMissing = false
	return &out
}

// NormalizePage restores the page invariant len(CardOrder) == Slots, cleaning
// every slot entry on the way.
func NormalizePage(page models.BinderPage) models.BinderPage {
	slots := page.Slots
	if slots <= 0 {
		slots = len(page.CardOrder)
		page.Slots = slots
	}
	order := make(models.SlotList, slots)
	for i := 0; i < slots && i < len(page.CardOrder); i++ {
		order[i] = NormalizeSlot(page.CardOrder[i])
	}
	page.CardOrder = order
	return page
}

// PlacementResult reports a reconciliation run: the updated pages, the IDs of
// pages whose slots changed, and how many cards did or did not fit.
type PlacementResult struct {
	Pages          []models.BinderPage
	ChangedPageIDs []string
	AddedCount     int
	RemainingCount int
}

// PlaceCards fills the given cards into the first empty slots, scanning pages
// by ascending index and slots in array order. Placement order is preserved:
// the Nth card lands at or after the (N-1)th card's slot. Cards that do not
// fit are counted, not placed. Inputs are not mutated.
func PlaceCards(pages []models.BinderPage, cards []models.BinderCard) PlacementResult {
	ordered := make([]models.BinderPage, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})
	for i := range ordered {
		ordered[i] = NormalizePage(ordered[i])
	}

	changed := make(map[string]bool)
	placed := 0
	pageIdx, slotIdx := 0, 0

	for _, card := range cards {
		normalized := NormalizeSlot(&card)
		if normalized == nil {
			continue
		}
		found := false
		for pageIdx < len(ordered) {
			order := ordered[pageIdx].CardOrder
			for slotIdx < len(order) {
				if order[slotIdx] == nil {
					order[slotIdx] = normalized
					changed[ordered[pageIdx].ID] = true
					placed++
					slotIdx++
					found = true
					break
				}
				slotIdx++
			}
			if found {
				break
			}
			pageIdx++
			slotIdx = 0
		}
		if !found {
			break // binder full; everything after this card stays unplaced
		}
	}

	changedIDs := make([]string, 0, len(changed))
	for _, p := range ordered {
		if changed[p.ID] {
			changedIDs = append(changedIDs, p.ID)
		}
	}

	return PlacementResult{
		Pages:          ordered,
		ChangedPageIDs: changedIDs,
		AddedCount:     placed,
		RemainingCount: len(cards) - placed,
	}
}

// ExpandPile flattens pile entries into the placement stream, keeping the
// copies of one card consecutive. A zero quantity means one copy.
func ExpandPile(entries []models.PileEntry) []models.BinderCard {
	var out []models.BinderCard
	for _, entry := range entries {
		qty := entry.Quantity
		if qty == 0 {
			qty = 1
		}
		for i := 0; i < qty; i++ {
			out = append(out, entry.Card)
		}
	}
	return out
}

// PageSignature fingerprints a page's slot contents for dirty checking.
// Empty slots contribute an empty segment so slot positions stay significant.
func PageSignature(page models.BinderPage) string {
	segments := make([]string, len(page.CardOrder))
	for i, slot := range page.CardOrder {
		if slot == nil {
			continue
		}
		segments[i] = fmt.Sprintf("%s:%s:%s", slot.ID, slot.Number, slot.CollectionStatus)
	}
	return strings.Join(segments, "|")
}

// SnapshotSignatures captures a baseline of every page's signature, taken at
// load and after each save.
func SnapshotSignatures(pages []models.BinderPage) map[string]string {
	baseline := make(map[string]string, len(pages))
	for _, p := range pages {
		baseline[p.ID] = PageSignature(p)
	}
	return baseline
}

// DirtyPages returns the IDs of pages whose signature no longer matches the
// baseline, in page order. Pages absent from the baseline are dirty.
func DirtyPages(pages []models.BinderPage, baseline map[string]string) []string {
	var dirty []string
	for _, p := range pages {
		sig, ok := baseline[p.ID]
		if !ok || sig != PageSignature(p) {
			dirty = append(dirty, p.ID)
		}
	}
	return dirty
}

// ResizePage reconciles one page to a new layout. Growing pads with empty
// slots; shrinking fails closed when any slot beyond the new capacity is
// occupied, so the caller must clear those slots first.
func ResizePage(page models.BinderPage, layout models.BinderLayout) (models.BinderPage, error) {
	slots, err := SlotsForLayout(layout)
	if err != nil {
		return models.BinderPage{}, err
	}

	page = NormalizePage(page)
	if slots == page.Slots {
		return page, nil
	}

	if slots < page.Slots {
		for i := slots; i < len(page.CardOrder); i++ {
			if page.CardOrder[i] != nil {
				return models.BinderPage{}, fmt.Errorf(
					"cannot shrink page %d to %d slots: slot %d holds %q: %w",
					page.Index, slots, i+1, page.CardOrder[i].Name, ErrShrinkBlocked)
			}
		}
		page.CardOrder = page.CardOrder[:slots]
		page.Slots = slots
		return page, nil
	}

	order := make(models.SlotList, slots)
	copy(order, page.CardOrder)
	page.CardOrder = order
	page.Slots = slots
	return page, nil
}
