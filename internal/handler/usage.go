package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"nogoon-backend/internal/middleware"
	"nogoon-backend/internal/models"
	"nogoon-backend/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UsageHandler interface {
	SyncBlockEvents(c *gin.Context)
	GetStats(c *gin.Context)
}

type usageHandler struct {
	usageRepo repository.UsageRepository
	logger    *zap.Logger
}

func NewUsageHandler(usageRepo repository.UsageRepository, logger *zap.Logger) UsageHandler {
	return &usageHandler{usageRepo: usageRepo, logger: logger}
}

type BlockEventInput struct {
	Domain string `json:"domain"`
	// Pointer so an omitted count can default to 1 while an explicit 0
	// still gets rejected.
	Count *int64 `json:"count"`
}

type BlockEventsRequest struct {
	Events []BlockEventInput `json:"events" binding:"required"`
}

// SyncBlockEvents handles POST /api/v1/users/block-events: persist the
// extension's batch of block events and bump the user's counter.
func (h *usageHandler) SyncBlockEvents(c *gin.Context) {
	user := c.MustGet(middleware.UserContextKey).(*models.User)

	var req BlockEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events := make([]models.BlockEvent, 0, len(req.Events))
	for _, in := range req.Events {
		count := int64(1)
		if in.Count != nil {
			count = *in.Count
		}
		events = append(events, models.BlockEvent{Domain: in.Domain, Count: count})
	}

	// An accepted batch must commit even if the extension disconnects
	// mid-request, so the write is detached from request cancellation.
	ctx := context.WithoutCancel(c.Request.Context())
	result, err := h.usageRepo.RecordEvents(ctx, user.UserID, events)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidUsageEvent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Block counts must be positive"})
			return
		}
		h.logger.Error("failed to sync block events",
			zap.String("user_id", user.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync block events"})
		return
	}

	h.logger.Info("synced block events",
		zap.String("user_id", user.UserID),
		zap.Int("events", len(events)),
		zap.Int64("total_blocks", result.TotalAdded))

	c.JSON(http.StatusOK, gin.H{
		"status":             "success",
		"message":            "Block events synced successfully",
		"events_processed":   len(events),
		"total_blocks_added": result.TotalAdded,
		"domains_processed":  result.Domains,
	})
}

// GetStats handles GET /api/v1/users/stats.
func (h *usageHandler) GetStats(c *gin.Context) {
	user := c.MustGet(middleware.UserContextKey).(*models.User)

	stats, err := h.usageRepo.Stats(c.Request.Context(), user.UserID, time.Now())
	if err != nil {
		h.logger.Error("failed to compute usage stats",
			zap.String("user_id", user.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"stats":  stats,
	})
}
