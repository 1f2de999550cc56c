package limits

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
)

// Handler provides HTTP endpoints for user limit configuration.
type Handler struct {
	store Store
}

// NewHandler creates a new limits handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up limit routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/users/:id/limits", h.GetLimits)
	r.PUT("/users/:id/limits", h.SetLimits)
}

// GetLimits handles GET /v1/users/:id/limits
func (h *Handler) GetLimits(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	l, configured, err := h.store.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}
	if !configured {
		l = fraud.DefaultLimits(userID)
	}

	c.JSON(http.StatusOK, gin.H{
		"limits":     l,
		"configured": configured,
	})
}

// SetLimits handles PUT /v1/users/:id/limits
func (h *Handler) SetLimits(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var req SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	day, err := decimal.NewFromString(req.DayLimit)
	if err != nil || !day.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "day_limit must be a positive decimal",
		})
		return
	}
	night, err := decimal.NewFromString(req.NightLimit)
	if err != nil || !night.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "night_limit must be a positive decimal",
		})
		return
	}

	l := fraud.UserLimits{UserID: userID, DayLimit: day, NightLimit: night}
	if err := h.store.Set(c.Request.Context(), l); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"limits": l})
}

func userIDParam(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "user id must be an integer",
		})
		return 0, false
	}
	return userID, true
}
