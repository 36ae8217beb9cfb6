package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flagbot/internal/models"
	"flagbot/internal/repository"
)

type ChannelHandler interface {
	GetChannels(c *gin.Context)
}

type channelHandler struct {
	channelRepo repository.ChannelRepository
	logger      *zap.Logger
}

func NewChannelHandler(channelRepo repository.ChannelRepository, logger *zap.Logger) ChannelHandler {
	return &channelHandler{channelRepo: channelRepo, logger: logger}
}

// GetChannels handles GET /api/v1/channels?kind=scan|reviewer
func (h *channelHandler) GetChannels(c *gin.Context) {
	kinds := []models.ChannelKind{models.ChannelScan, models.ChannelReviewer}
	if k := c.Query("kind"); k != "" {
		kind := models.ChannelKind(k)
		if kind != models.ChannelScan && kind != models.ChannelReviewer {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be scan or reviewer"})
			return
		}
		kinds = []models.ChannelKind{kind}
	}

	channels := []models.Channel{}
	for _, kind := range kinds {
		list, err := h.channelRepo.ListChannels(kind)
		if err != nil {
			h.logger.Error("Failed to get channels", zap.String("kind", string(kind)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve channels"})
			return
		}
		channels = append(channels, list...)
	}

	c.JSON(http.StatusOK, gin.H{"channels": channels})
}
