package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pokebinder/backend/internal/models"
)

// State is a controller's lifecycle position: idle -> loading -> (success |
// error) -> idle.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// CardFetcher runs one card search page. *Service implements it.
type CardFetcher interface {
	SearchCards(ctx context.Context, req CardRequest) (*models.CardSearchResult, error)
}

// SetFetcher runs one set search page. *Service implements it.
type SetFetcher interface {
	SearchSets(ctx context.Context, req SetRequest) (*models.SetSearchResult, error)
}

// CardSearchController is the per-session card search state machine. At most
// one request is in flight at a time: every new fetch cancels the previous
// one, and each request carries a generation number so only the newest
// completion ever applies. Controllers are independent of each other; card
// and set browsing never share state.
type CardSearchController struct {
	mu    sync.Mutex
	fetch CardFetcher

	debounce time.Duration
	timer    *time.Timer

	gen    uint64
	cancel context.CancelFunc

	state    State
	query    string
	setID    string
	sort     SortOption
	rarities []string
	types    []string
	page     int
	pageSize int
	result   *models.CardSearchResult
	err      error
}

func NewCardSearchController(fetch CardFetcher, pageSize int, debounce time.Duration) *CardSearchController {
	return &CardSearchController{
		fetch:    fetch,
		debounce: debounce,
		state:    StateIdle,
		sort:     DefaultSort,
		page:     1,
		pageSize: pageSize,
	}
}

// CardSnapshot is a consistent copy of the controller state for rendering.
type CardSnapshot struct {
	State      State
	Query      string
	SetID      string
	Sort       SortOption
	Page       int
	Results    []models.CardPreview
	TotalCount *int
	HasNext    bool
	Err        error
}

func (c *CardSearchController) Snapshot() CardSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := CardSnapshot{
		State: c.state,
		Query: c.query,
		SetID: c.setID,
		Sort:  c.sort,
		Page:  c.page,
		Err:   c.err,
	}
	if c.result != nil {
		snap.Results = c.result.Results
		snap.TotalCount = c.result.TotalCount
		snap.HasNext = c.result.HasNext
	}
	return snap
}

// OnQueryChanged records an edited query and schedules a page-1 fetch after
// the debounce delay. Further edits inside the window restart it.
func (c *CardSearchController) OnQueryChanged(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.query = query
	c.page = 1
	c.stopTimerLocked()
	if c.debounce <= 0 {
		c.fetchLocked()
		return
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.fetchLocked()
	})
}

// Submit fires a page-1 fetch immediately, bypassing any pending debounce.
func (c *CardSearchController) Submit(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.query = query
	c.page = 1
	c.stopTimerLocked()
	c.fetchLocked()
}

// SetSort applies a sort selection (clamped to the card scope) and
// re-triggers a page-1 fetch.
func (c *CardSearchController) SetSort(opt SortOption) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sort = SanitizeSortForScope(opt, ScopeCards)
	c.page = 1
	c.stopTimerLocked()
	c.fetchLocked()
}

// SetRarityFilters replaces the rarity selection and re-triggers a page-1
// fetch.
func (c *CardSearchController) SetRarityFilters(values []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rarities = SanitizeRarityFilters(values)
	c.page = 1
	c.stopTimerLocked()
	c.fetchLocked()
}

// SetTypeFilters replaces the energy type selection and re-triggers a page-1
// fetch.
func (c *CardSearchController) SetTypeFilters(values []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.types = SanitizeTypeFilters(values)
	c.page = 1
	c.stopTimerLocked()
	c.fetchLocked()
}

// ShowSet switches the controller into an expansion drill-down: query and
// filters reset, results list that set's cards.
func (c *CardSearchController) ShowSet(setID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setID = setID
	c.query = ""
	c.rarities = nil
	c.types = nil
	c.sort = DefaultSort
	c.page = 1
	c.stopTimerLocked()
	c.fetchLocked()
}

// NextPage advances when the current result reports more pages. Returns false
// when there is nothing to advance to.
func (c *CardSearchController) NextPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result == nil || !c.result.HasNext {
		return false
	}
	c.page++
	c.stopTimerLocked()
	c.fetchLocked()
	return true
}

// PrevPage steps back one page; pages are 1-based.
func (c *CardSearchController) PrevPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page <= 1 {
		return false
	}
	c.page--
	c.stopTimerLocked()
	c.fetchLocked()
	return true
}

// Reset cancels any in-flight request and returns the controller to idle with
// cleared input, filters and results.
func (c *CardSearchController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++ // stragglers from before the reset never apply
	c.state = StateIdle
	c.query = ""
	c.setID = ""
	c.sort = DefaultSort
	c.rarities = nil
	c.types = nil
	c.page = 1
	c.result = nil
	c.err = nil
}

func (c *CardSearchController) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// fetchLocked supersedes any in-flight request and starts a new one. Callers
// hold c.mu.
func (c *CardSearchController) fetchLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.gen++
	gen := c.gen
	c.state = StateLoading

	req := CardRequest{
		Query:    c.query,
		SetID:    c.setID,
		Page:     c.page,
		PageSize: c.pageSize,
		Rarities: append([]string(nil), c.rarities...),
		Types:    append([]string(nil), c.types...),
		Sort:     c.sort,
	}
	if c.setID != "" {
		req.Mode = ModeSetCards
	}

	go func() {
		result, err := c.fetch.SearchCards(ctx, req)

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			// Superseded: its result never applies, its error never shows.
			return
		}
		c.cancel = nil
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.state = StateError
			c.err = err
			c.result = nil // stale results never outlive an error
			return
		}
		c.state = StateSuccess
		c.err = nil
		c.result = result
	}()
}

// View is which listing the set search session is showing.
type View string

const (
	ViewSets     View = "sets"
	ViewSetCards View = "setCards"
)

// SetSearchController is the per-session set browsing state machine. Choosing
// a set drills into its cards via a fresh CardSearchController; going back
// discards that drill-down while the sets-view query, sort and pagination
// stay exactly where they were.
type SetSearchController struct {
	mu        sync.Mutex
	fetch     SetFetcher
	cardFetch CardFetcher

	debounce time.Duration
	timer    *time.Timer

	gen    uint64
	cancel context.CancelFunc

	view     View
	state    State
	query    string
	sort     SortOption
	page     int
	pageSize int
	result   *models.SetSearchResult
	err      error

	cards *CardSearchController
}

func NewSetSearchController(fetch SetFetcher, cardFetch CardFetcher, pageSize int, debounce time.Duration) *SetSearchController {
	return &SetSearchController{
		fetch:     fetch,
		cardFetch: cardFetch,
		debounce:  debounce,
		view:      ViewSets,
		state:     StateIdle,
		sort:      DefaultSort,
		page:      1,
		pageSize:  pageSize,
	}
}

// SetSnapshot is a consistent copy of the sets-view state.
type SetSnapshot struct {
	View       View
	State      State
	Query      string
	Sort       SortOption
	Page       int
	Results    []models.SetPreview
	TotalCount *int
	HasNext    bool
	Err        error
}

func (c *SetSearchController) Snapshot() SetSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := SetSnapshot{
		View:  c.view,
		State: c.state,
		Query: c.query,
		Sort:  c.sort,
		Page:  c.page,
		Err:   c.err,
	}
	if c.result != nil {
		snap.Results = c.result.Results
		snap.TotalCount = c.result.TotalCount
		snap.HasNext = c.result.HasNext
	}
	return snap
}

// Cards exposes the drill-down controller; nil while the sets view is active.
func (c *SetSearchController) Cards() *CardSearchController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cards
}

// EnterSet drills into one expansion's cards. The drill-down starts from a
// clean slate every time; the sets view keeps its state for BackToSets.
func (c *SetSearchController) EnterSet(setID string) *CardSearchController {
	c.mu.Lock()
	c.view = ViewSetCards
	drill := NewCardSearchController(c.cardFetch, c.pageSize, c.debounce)
	c.cards = drill
	c.mu.Unlock()

	drill.ShowSet(setID)
	return drill
}

// BackToSets leaves the drill-down. The preserved sets-view state becomes
// visible again untouched; no refetch happens.
func (c *SetSearchController) BackToSets() {
	c.mu.Lock()
	c.view = ViewSets
	drill := c.cards
	c.cards = nil
	c.mu.Unlock()

	if drill != nil {
		drill.Reset()
	}
}

// OnQueryChanged records an edited set query and schedules a debounced
// page-1 fetch.
func (c *SetSearchController) OnQueryChanged(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.query = query
	c.page = 1
	c.stopTimerLocked()
	if c.debounce <= 0 {
		c.fetchLocked()
		return
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.fetchLocked()
	})
}

// Submit fires a page-1 set fetch immediately.
func (c *SetSearchController) Submit(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.query = query
	c.page = 1
	c.stopTimerLocked()
	c.fetchLocked()
}

// SetSort applies a sort selection clamped to the set scope and re-triggers a
// page-1 fetch.
func (c *SetSearchController) SetSort(opt SortOption) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sort = SanitizeSortForScope(opt, ScopeSets)
	c.page = 1
	c.stopTimerLocked()
	c.fetchLocked()
}

// NextPage advances when the current result reports more pages.
func (c *SetSearchController) NextPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result == nil || !c.result.HasNext {
		return false
	}
	c.page++
	c.stopTimerLocked()
	c.fetchLocked()
	return true
}

// PrevPage steps back one page.
func (c *SetSearchController) PrevPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page <= 1 {
		return false
	}
	c.page--
	c.stopTimerLocked()
	c.fetchLocked()
	return true
}

// Reset cancels any in-flight request and clears both views.
func (c *SetSearchController) Reset() {
	c.mu.Lock()
	c.stopTimerLocked()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.view = ViewSets
	c.state = StateIdle
	c.query = ""
	c.sort = DefaultSort
	c.page = 1
	c.result = nil
	c.err = nil
	drill := c.cards
	c.cards = nil
	c.mu.Unlock()

	if drill != nil {
		drill.Reset()
	}
}

func (c *SetSearchController) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *SetSearchController) fetchLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.gen++
	gen := c.gen
	c.state = StateLoading

	req := SetRequest{
		Query:    c.query,
		Page:     c.page,
		PageSize: c.pageSize,
		Sort:     c.sort,
	}

	go func() {
		result, err := c.fetch.SearchSets(ctx, req)

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			return
		}
		c.cancel = nil
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.state = StateError
			c.err = err
			c.result = nil
			return
		}
		c.state = StateSuccess
		c.err = nil
		c.result = result
	}()
}
