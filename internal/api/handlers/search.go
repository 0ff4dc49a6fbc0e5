package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pokebinder/backend/internal/catalog"
	"github.com/pokebinder/backend/internal/search"
)

const maxPageSize = 100

// SearchHandler serves the card and set search endpoints on top of the
// search pipeline (cache in front of the catalog).
type SearchHandler struct {
	service *search.Service
	log     logrus.FieldLogger
}

func NewSearchHandler(service *search.Service, logger logrus.FieldLogger) *SearchHandler {
	return &SearchHandler{
		service: service,
		log:     logger.WithField("component", "search_handler"),
	}
}

// SearchCards handles GET /api/cards/search. A query under two characters in
// query mode returns an empty result set without contacting the catalog.
func (h *SearchHandler) SearchCards(c *gin.Context) {
	page, pageSize, ok := paginationParams(c)
	if !ok {
		return
	}

	mode := search.Mode(c.Query("mode"))
	switch mode {
	case "", search.ModeQuery, search.ModeRecent, search.ModeSetCards:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be one of query, recent, set_cards"})
		return
	}

	req := search.CardRequest{
		Query:    c.Query("q"),
		Mode:     mode,
		SetID:    c.Query("set"),
		Page:     page,
		PageSize: pageSize,
		Rarities: c.QueryArray("rarity"),
		Types:    c.QueryArray("type"),
		Sort:     search.SortOption(c.Query("sort")),
	}

	result, err := h.service.SearchCards(c.Request.Context(), req)
	if err != nil {
		h.searchError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SearchSets handles GET /api/sets/search.
func (h *SearchHandler) SearchSets(c *gin.Context) {
	page, pageSize, ok := paginationParams(c)
	if !ok {
		return
	}

	req := search.SetRequest{
		Query:    c.Query("q"),
		Mode:     search.Mode(c.Query("mode")),
		Page:     page,
		PageSize: pageSize,
		Sort:     search.SortOption(c.Query("sort")),
	}

	result, err := h.service.SearchSets(c.Request.Context(), req)
	if err != nil {
		h.searchError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SearchHandler) searchError(c *gin.Context, err error) {
	var apiErr *catalog.APIError
	if errors.As(err, &apiErr) {
		h.log.WithError(err).Warn("catalog request failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "card catalog is unavailable"})
		return
	}
	h.log.WithError(err).Error("search failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func paginationParams(c *gin.Context) (page, pageSize int, ok bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
		return 0, 0, false
	}

	pageSize = 0
	if raw := c.Query("page_size"); raw != "" {
		pageSize, err = strconv.Atoi(raw)
		if err != nil || pageSize < 1 || pageSize > maxPageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page_size must be between 1 and 100"})
			return 0, 0, false
		}
	}
	return page, pageSize, true
}
