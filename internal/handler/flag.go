package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flagbot/internal/repository"
)

const (
	defaultFlagLimit = 50
	maxFlagLimit     = 500
)

type FlagHandler interface {
	GetRecentFlags(c *gin.Context)
}

type flagHandler struct {
	flagRepo repository.FlagRepository
	logger   *zap.Logger
}

func NewFlagHandler(flagRepo repository.FlagRepository, logger *zap.Logger) FlagHandler {
	return &flagHandler{flagRepo: flagRepo, logger: logger}
}

// GetRecentFlags handles GET /api/v1/flags?limit=N
func (h *flagHandler) GetRecentFlags(c *gin.Context) {
	limit := defaultFlagLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxFlagLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	records, err := h.flagRepo.GetRecentFlagRecords(limit)
	if err != nil {
		h.logger.Error("Failed to get flag records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve flag records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"flags": records})
}
