package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"flagbot/internal/corpus"
	"flagbot/internal/models"
	"flagbot/internal/pipeline"
	"flagbot/internal/repository"
)

// Scorer runs a batch through the scoring pipeline.
type Scorer interface {
	Submit(ctx context.Context, msgs []models.RawMessage) (*pipeline.Result, error)
}

type ScanHandler interface {
	Scan(c *gin.Context)
}

type scanHandler struct {
	scorer   Scorer
	flagRepo repository.FlagRepository
	logger   *zap.Logger
}

func NewScanHandler(scorer Scorer, flagRepo repository.FlagRepository, logger *zap.Logger) ScanHandler {
	return &scanHandler{scorer: scorer, flagRepo: flagRepo, logger: logger}
}

// ScanRequest is an ordered batch of messages to score.
type ScanRequest struct {
	Messages []models.RawMessage `json:"messages"`
}

// ScanResponse carries the reports, the audit set and the timing log of one run.
type ScanResponse struct {
	RunID   string                 `json:"run_id"`
	Reports []models.ReportEntry   `json:"reports"`
	Audit   []models.ScoredMessage `json:"audit"`
	Log     []string               `json:"log"`
}

// Scan handles POST /api/v1/scan
func (h *scanHandler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.scorer.Submit(c.Request.Context(), req.Messages)
	if err != nil {
		switch {
		case errors.Is(err, corpus.ErrCorpusUnavailable):
			h.logger.Error("Training corpus unavailable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Training corpus unavailable"})
		case errors.Is(err, pipeline.ErrWorkerStopped):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service is shutting down"})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusRequestTimeout, gin.H{"error": "Request cancelled"})
		default:
			h.logger.Error("Scan failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Scan failed"})
		}
		return
	}

	resp := ScanResponse{Reports: result.Reports, Audit: result.Audit, Log: result.Log}
	if len(result.Audit) > 0 {
		resp.RunID = uuid.NewString()
		if err := h.flagRepo.SaveFlagRecords(resp.RunID, result.Audit); err != nil {
			h.logger.Error("Failed to save flag records", zap.String("run_id", resp.RunID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, resp)
}
