package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pokebinder/backend/internal/cache"
	"github.com/pokebinder/backend/internal/catalog"
	"github.com/pokebinder/backend/internal/metrics"
	"github.com/pokebinder/backend/internal/models"
)

// Mode selects how a search request is interpreted.
type Mode string

const (
	// ModeQuery is a free-text prefix search.
	ModeQuery Mode = "query"
	// ModeRecent is the default listing ordered by catalog recency, used
	// when no free-text query is active.
	ModeRecent Mode = "recent"
	// ModeSetCards drills into one expansion's cards.
	ModeSetCards Mode = "set_cards"
)

// CardRequest describes one card search page.
type CardRequest struct {
	Query    string
	Mode     Mode
	SetID    string
	Page     int
	PageSize int
	Rarities []string
	Types    []string
	Sort     SortOption
}

// SetRequest describes one set search page.
type SetRequest struct {
	Query    string
	Mode     Mode
	Page     int
	PageSize int
	Sort     SortOption
}

// Service is the search pipeline: query builders compose a catalog query, the
// result cache short-circuits repeats, and the catalog client serves misses.
type Service struct {
	catalog  *catalog.Client
	cache    *cache.Cache
	ttl      time.Duration
	pageSize int
	log      logrus.FieldLogger
}

func NewService(client *catalog.Client, c *cache.Cache, ttl time.Duration, pageSize int, logger logrus.FieldLogger) *Service {
	if pageSize <= 0 {
		pageSize = 24
	}
	return &Service{
		catalog:  client,
		cache:    c,
		ttl:      ttl,
		pageSize: pageSize,
		log:      logger.WithField("component", "search"),
	}
}

// cachedPage is the payload stored per cache entry.
type cachedPage struct {
	Cards      []models.CardPreview `json:"cards,omitempty"`
	Sets       []models.SetPreview  `json:"sets,omitempty"`
	TotalCount *int                 `json:"totalCount,omitempty"`
}

// ResolveCardMode applies the query selection policy: an explicit mode wins;
// otherwise a set drill-down, then a free-text query of at least
// MinQueryLength characters, then the recent listing.
func ResolveCardMode(req CardRequest) Mode {
	if req.Mode != "" {
		return req.Mode
	}
	if req.SetID != "" {
		return ModeSetCards
	}
	if len(NormalizeQuery(req.Query)) >= MinQueryLength {
		return ModeQuery
	}
	return ModeRecent
}

// SearchCards runs one card search page through cache and catalog.
func (s *Service) SearchCards(ctx context.Context, req CardRequest) (*models.CardSearchResult, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	mode := ResolveCardMode(req)
	metrics.SearchRequestsTotal.WithLabelValues(string(ScopeCards), string(mode)).Inc()

	// Near-empty free-text input never reaches the catalog; the empty result
	// is a local degenerate case, not an error.
	if mode == ModeQuery && len(NormalizeQuery(req.Query)) < MinQueryLength {
		return &models.CardSearchResult{
			Results:  []models.CardPreview{},
			Page:     page,
			PageSize: pageSize,
		}, nil
	}

	query, orderBy := s.composeCardQuery(req, mode)
	key := MakeQueryKey(fmt.Sprintf("cards|%s|%s|page=%d|size=%d", query, orderBy, page, pageSize))

	if payload, hit := s.cache.Get(key); hit {
		var cached cachedPage
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cardResult(cached.Cards, cached.TotalCount, page, pageSize, true), nil
		}
		s.log.WithField("key", key).Warn("discarding undecodable cache entry")
	}

	resp, err := s.catalog.SearchCards(ctx, catalog.Params{
		Page:     page,
		PageSize: pageSize,
		Query:    query,
		OrderBy:  orderBy,
		Select:   []string{"id", "name", "number", "rarity", "set", "images"},
	})
	if err != nil {
		return nil, err
	}

	previews := make([]models.CardPreview, 0, len(resp.Cards))
	for _, card := range resp.Cards {
		if catalog.IsOnlineOnly(card.Set.ID, card.Set.Name) {
			continue
		}
		previews = append(previews, catalog.ToPreview(card))
	}

	if payload, err := json.Marshal(cachedPage{Cards: previews, TotalCount: resp.TotalCount}); err == nil {
		s.cache.Set(key, payload, s.ttl)
	}

	return cardResult(previews, resp.TotalCount, page, pageSize, false), nil
}

// SearchSets runs one set search page through cache and catalog.
func (s *Service) SearchSets(ctx context.Context, req SetRequest) (*models.SetSearchResult, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	mode := req.Mode
	if mode == "" {
		if len(NormalizeQuery(req.Query)) >= MinQueryLength {
			mode = ModeQuery
		} else {
			mode = ModeRecent
		}
	}
	metrics.SearchRequestsTotal.WithLabelValues(string(ScopeSets), string(mode)).Inc()

	if mode == ModeQuery && len(NormalizeQuery(req.Query)) < MinQueryLength {
		return &models.SetSearchResult{
			Results:  []models.SetPreview{},
			Page:     page,
			PageSize: pageSize,
		}, nil
	}

	var query string
	orderBy := OrderBy(req.Sort, ScopeSets)
	if mode == ModeQuery {
		query = BuildNameQuery(req.Query)
	} else {
		orderBy = OrderBy(SortNewest, ScopeSets)
	}

	key := MakeQueryKey(fmt.Sprintf("sets|%s|%s|page=%d|size=%d", query, orderBy, page, pageSize))

	if payload, hit := s.cache.Get(key); hit {
		var cached cachedPage
		if err := json.Unmarshal(payload, &cached); err == nil {
			return setResult(cached.Sets, cached.TotalCount, page, pageSize, true), nil
		}
		s.log.WithField("key", key).Warn("discarding undecodable cache entry")
	}

	resp, err := s.catalog.SearchSets(ctx, catalog.Params{
		Page:     page,
		PageSize: pageSize,
		Query:    query,
		OrderBy:  orderBy,
	})
	if err != nil {
		return nil, err
	}

	previews := make([]models.SetPreview, 0, len(resp.Sets))
	for _, set := range resp.Sets {
		if catalog.IsOnlineOnly(set.ID, set.Name) {
			continue
		}
		previews = append(previews, catalog.SetToPreview(set))
	}

	if payload, err := json.Marshal(cachedPage{Sets: previews, TotalCount: resp.TotalCount}); err == nil {
		s.cache.Set(key, payload, s.ttl)
	}

	return setResult(previews, resp.TotalCount, page, pageSize, false), nil
}

func (s *Service) composeCardQuery(req CardRequest, mode Mode) (query, orderBy string) {
	var parts []string
	switch mode {
	case ModeSetCards:
		parts = append(parts, BuildSetCardsQuery(req.SetID))
	case ModeQuery:
		parts = append(parts, BuildNameQuery(req.Query))
	}

	if clause, ok := BuildRarityQuery(req.Rarities); ok {
		parts = append(parts, clause)
	}
	if clause, ok := BuildTypeQuery(req.Types); ok {
		parts = append(parts, clause)
	}

	sort := req.Sort
	if mode == ModeRecent {
		// The default listing is defined by catalog recency.
		sort = SortNewest
	}

	return joinClauses(parts), OrderBy(sort, ScopeCards)
}

func joinClauses(parts []string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}

// hasNext prefers the authoritative total when the catalog reported one; a
// full page otherwise implies more. The heuristic can over-report on exact
// page-size multiples, in which case the next page comes back empty and the
// caller treats that as a benign end-of-list.
func hasNext(count int, total *int, page, pageSize int) bool {
	if total != nil {
		return page*pageSize < *total
	}
	return count == pageSize
}

func cardResult(previews []models.CardPreview, total *int, page, pageSize int, cached bool) *models.CardSearchResult {
	if previews == nil {
		previews = []models.CardPreview{}
	}
	return &models.CardSearchResult{
		Results:    previews,
		Cached:     cached,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		HasNext:    hasNext(len(previews), total, page, pageSize),
	}
}

func setResult(previews []models.SetPreview, total *int, page, pageSize int, cached bool) *models.SetSearchResult {
	if previews == nil {
		previews = []models.SetPreview{}
	}
	return &models.SetSearchResult{
		Results:    previews,
		Cached:     cached,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		HasNext:    hasNext(len(previews), total, page, pageSize),
	}
}
