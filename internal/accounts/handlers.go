package accounts

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Diego-Anjos/Forsakenscan-Projeto/internal/fraud"
)

// Handler provides HTTP endpoints for account activity ingestion.
type Handler struct {
	store Store
}

// NewHandler creates a new accounts handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up account activity routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/logins", h.RecordLogin)
	r.POST("/users/:id/events", h.RecordEvent)
}

// RecordLogin handles POST /v1/logins
func (h *Handler) RecordLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	if req.Result != fraud.LoginSuccess && req.Result != fraud.LoginFail {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": ErrInvalidResult.Error(),
		})
		return
	}

	at := time.Now().UTC()
	if req.OccurredAt != nil {
		at = req.OccurredAt.UTC()
	}

	if err := h.store.AddLogin(c.Request.Context(), req.UserID, req.IP, req.Result, at); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "recorded"})
}

// RecordEvent handles POST /v1/users/:id/events
func (h *Handler) RecordEvent(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "user id must be an integer",
		})
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	switch req.Action {
	case fraud.ActionPasswordChange:
	case fraud.ActionProfileUpdate:
		if req.Field == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": ErrMissingField.Error(),
			})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": ErrInvalidAction.Error(),
		})
		return
	}

	at := time.Now().UTC()
	if req.OccurredAt != nil {
		at = req.OccurredAt.UTC()
	}

	if err := h.store.AddEvent(c.Request.Context(), userID, req.Action, req.Field, at); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "recorded"})
}
