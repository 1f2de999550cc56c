package transactions

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for transaction submission and the fraud
// audit trail.
type Handler struct {
	service *Service
	audit   AuditReader
}

// NewHandler creates a new transactions handler.
func NewHandler(service *Service, audit AuditReader) *Handler {
	return &Handler{service: service, audit: audit}
}

// RegisterRoutes sets up transaction and audit routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transactions", h.Submit)
	r.GET("/transactions/flagged", h.ListFlagged)
	r.GET("/users/:id/transactions", h.ListByUser)
	r.GET("/users/:id/limit-attempts", h.ListLimitAttempts)
	r.GET("/frauds", h.ListFrauds)
	r.GET("/frauds/:transactionId", h.GetFraud)
}

// Submit handles POST /v1/transactions
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	rec, err := h.service.Submit(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidType), errors.Is(err, ErrInvalidValue):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": err.Error(),
			})
		case errors.Is(err, ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "evaluation_unavailable",
				"message": "fraud evaluation is temporarily unavailable",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": rec})
}

// ListByUser handles GET /v1/users/:id/transactions
func (h *Handler) ListByUser(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	txs, err := h.service.ByUser(c.Request.Context(), userID, limitQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"count":        len(txs),
	})
}

// ListFlagged handles GET /v1/transactions/flagged
func (h *Handler) ListFlagged(c *gin.Context) {
	txs, err := h.service.Flagged(c.Request.Context(), limitQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"count":        len(txs),
	})
}

// ListFrauds handles GET /v1/frauds
func (h *Handler) ListFrauds(c *gin.Context) {
	frauds, err := h.audit.ListFrauds(c.Request.Context(), limitQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"frauds": frauds,
		"count":  len(frauds),
	})
}

// GetFraud handles GET /v1/frauds/:transactionId
func (h *Handler) GetFraud(c *gin.Context) {
	rec, err := h.audit.GetFraud(c.Request.Context(), c.Param("transactionId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No fraud record for this transaction",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"fraud": rec})
}

// ListLimitAttempts handles GET /v1/users/:id/limit-attempts
func (h *Handler) ListLimitAttempts(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	attempts, err := h.audit.ListLimitAttempts(c.Request.Context(), userID, limitQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"limit_attempts": attempts,
		"count":          len(attempts),
	})
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

func limitQuery(c *gin.Context) int {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	return limit
}
