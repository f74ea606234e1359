package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roadmap-api/internal/service"
	"github.com/noah-isme/sma-roadmap-api/pkg/response"
)

type enrichmentService interface {
	Status() service.EnrichmentStatus
	PurgeCache(ctx context.Context) error
}

// EnrichmentHandler exposes operator controls for lesson enrichment.
type EnrichmentHandler struct {
	service enrichmentService
}

// NewEnrichmentHandler builds a new handler.
func NewEnrichmentHandler(service enrichmentService) *EnrichmentHandler {
	return &EnrichmentHandler{service: service}
}

// Status godoc
// @Summary Lesson enrichment status
// @Tags Enrichment
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /enrichment/status [get]
func (h *EnrichmentHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Status(), nil)
}

// PurgeCache godoc
// @Summary Drop cached lesson details
// @Tags Enrichment
// @Security BearerAuth
// @Success 204
// @Failure 500 {object} response.Envelope
// @Router /enrichment/cache [delete]
func (h *EnrichmentHandler) PurgeCache(c *gin.Context) {
	if err := h.service.PurgeCache(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
