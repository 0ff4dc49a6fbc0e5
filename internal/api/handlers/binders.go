package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pokebinder/backend/internal/binder"
	"github.com/pokebinder/backend/internal/models"
)

// maxBindersPerUser caps how many binders one account can hold.
const maxBindersPerUser = 10

// BinderHandler serves the binder CRUD, page save, goal and bulk-box routes.
// All operations are scoped to the authenticated user.
type BinderHandler struct {
	service *binder.Service
	log     logrus.FieldLogger
}

func NewBinderHandler(service *binder.Service, logger logrus.FieldLogger) *BinderHandler {
	return &BinderHandler{
		service: service,
		log:     logger.WithField("component", "binder_handler"),
	}
}

func (h *BinderHandler) CreateBinder(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.CreateBinderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.service.ListBinders(userID)
	if err != nil {
		h.binderError(c, err)
		return
	}
	if len(existing) >= maxBindersPerUser {
		c.JSON(http.StatusConflict, gin.H{"error": "binder limit reached"})
		return
	}

	b, pages, err := h.service.CreateBinder(userID, req)
	if err != nil {
		h.binderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"binder": b, "pages": pages})
}

func (h *BinderHandler) ListBinders(c *gin.Context) {
	binders, err := h.service.ListBinders(c.GetString("user_id"))
	if err != nil {
		h.binderError(c, err)
		return
	}
	c.JSON(http.StatusOK, binders)
}

func (h *BinderHandler) GetBinder(c *gin.Context) {
	b, pages, err := h.service.GetBinder(c.GetString("user_id"), c.Param("id"))
	if err != nil {
		h.binderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"binder": b, "pages": pages})
}

func (h *BinderHandler) DeleteBinder(c *gin.Context) {
	if err := h.service.DeleteBinder(c.GetString("user_id"), c.Param("id")); err != nil {
		h.binderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BinderHandler) AddPage(c *gin.Context) {
	page, err := h.service.AddPage(c.GetString("user_id"), c.Param("id"))
	if err != nil {
		h.binderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, page)
}

func (h *BinderHandler) DeletePage(c *gin.Context) {
	err := h.service.DeletePage(c.GetString("user_id"), c.Param("id"), c.Param("pageId"))
	if err != nil {
		h.binderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SavePages persists the dirty subset of the submitted pages. Writes are
// independent, so a partial failure still reports which pages made it.
func (h *BinderHandler) SavePages(c *gin.Context) {
	var req models.SavePagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := h.service.SavePages(c.GetString("user_id"), c.Param("id"), req.Pages)
	if err != nil {
		if errors.Is(err, binder.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.log.WithError(err).Error("page save failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":        err.Error(),
			"savedPageIds": saved,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"savedPageIds": saved})
}

func (h *BinderHandler) AddCards(c *gin.Context) {
	var req models.AddCardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.PlaceCards(c.GetString("user_id"), c.Param("id"), req.Cards)
	if err != nil {
		h.binderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BinderHandler) TransferPile(c *gin.Context) {
	var req models.TransferPileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.TransferPile(c.GetString("user_id"), c.Param("id"), req.Entries)
	if err != nil {
		h.binderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BinderHandler) AddToBulkBox(c *gin.Context) {
	var req models.AddCardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.service.AddToBulkBox(c.GetString("user_id"), c.Param("id"), req.Cards)
	if err != nil {
		h.binderError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BinderHandler) FlushBulkBox(c *gin.Context) {
	resp, err := h.service.FlushBulkBox(c.GetString("user_id"), c.Param("id"))
	if err != nil {
		h.binderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BinderHandler) AddGoal(c *gin.Context) {
	userID := c.GetString("user_id")
	binderID := c.Param("id")

	var req models.AddGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, _, err := h.service.GetBinder(userID, binderID)
	if err != nil {
		h.binderError(c, err)
		return
	}
	if binder.ActiveGoalCount(b) >= models.MaxActiveGoals {
		c.JSON(http.StatusConflict, gin.H{"error": "active goal limit reached"})
		return
	}

	goal, err := h.service.AddGoal(userID, binderID, req.Text)
	if err != nil {
		h.binderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

func (h *BinderHandler) CompleteGoal(c *gin.Context) {
	goal, err := h.service.CompleteGoal(c.GetString("user_id"), c.Param("id"), c.Param("goalId"))
	if err != nil {
		h.binderError(c, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (h *BinderHandler) UpdateSettings(c *gin.Context) {
	var req models.UpdateBinderSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.service.UpdateSettings(c.GetString("user_id"), c.Param("id"), req)
	if err != nil {
		h.binderError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// binderError maps service errors: capacity violations are user mistakes and
// render as conflicts, missing rows as 404, the rest as server failures.
func (h *BinderHandler) binderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, binder.ErrNotFound),
		errors.Is(err, binder.ErrPageNotFound),
		errors.Is(err, binder.ErrGoalNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, binder.ErrShrinkBlocked),
		errors.Is(err, binder.ErrBulkBoxFull),
		errors.Is(err, binder.ErrGoalCooldown):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, binder.ErrGoalTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.WithError(err).Error("binder operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
