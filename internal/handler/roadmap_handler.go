package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roadmap-api/internal/dto"
	"github.com/noah-isme/sma-roadmap-api/internal/middleware"
	"github.com/noah-isme/sma-roadmap-api/internal/models"
	appErrors "github.com/noah-isme/sma-roadmap-api/pkg/errors"
	"github.com/noah-isme/sma-roadmap-api/pkg/response"
)

type roadmapService interface {
	Preview(ctx context.Context, req dto.RoadmapPreviewRequest) (*models.Roadmap, error)
	Stats(ctx context.Context, req dto.RoadmapStatsRequest) (*models.RoadmapStats, error)
	WeekRanges(ctx context.Context, query dto.WeekRangesQuery) ([]models.WeekRange, error)
	PlanRoadmap(ctx context.Context, planID string) (*models.Roadmap, error)
	LessonDays(ctx context.Context, planID, lessonID string) (*dto.LessonDaysResponse, error)
}

// RoadmapHandler exposes roadmap computation endpoints.
type RoadmapHandler struct {
	service roadmapService
}

// NewRoadmapHandler builds a new handler.
func NewRoadmapHandler(service roadmapService) *RoadmapHandler {
	return &RoadmapHandler{service: service}
}

// Preview godoc
// @Summary Build a roadmap from the request body
// @Description Lays lessons over the instructional days of the range. Nothing is stored.
// @Tags Roadmap
// @Accept json
// @Produce json
// @Param payload body dto.RoadmapPreviewRequest true "Range, exclusions and lessons"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /roadmap/preview [post]
func (h *RoadmapHandler) Preview(c *gin.Context) {
	var req dto.RoadmapPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid roadmap payload"))
		return
	}
	roadmap, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "weeks", len(roadmap.Weeks))
	response.JSON(c, http.StatusOK, roadmap, nil, middleware.ResponseMeta(c))
}

// Stats godoc
// @Summary Available days and weeks
// @Tags Roadmap
// @Accept json
// @Produce json
// @Param payload body dto.RoadmapStatsRequest true "Range and exclusions"
// @Success 200 {object} response.Envelope
// @Router /roadmap/stats [post]
func (h *RoadmapHandler) Stats(c *gin.Context) {
	var req dto.RoadmapStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid stats payload"))
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// WeekRanges godoc
// @Summary Raw weeks of a range
// @Tags Roadmap
// @Produce json
// @Param start query string true "Start date (YYYY-MM-DD)"
// @Param end query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /roadmap/weeks [get]
func (h *RoadmapHandler) WeekRanges(c *gin.Context) {
	var query dto.WeekRangesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	ranges, err := h.service.WeekRanges(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranges, nil)
}

// PlanRoadmap godoc
// @Summary Build the roadmap of a stored plan
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /plans/{id}/roadmap [get]
func (h *RoadmapHandler) PlanRoadmap(c *gin.Context) {
	roadmap, err := h.service.PlanRoadmap(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "weeks", len(roadmap.Weeks))
	response.JSON(c, http.StatusOK, roadmap, nil, middleware.ResponseMeta(c))
}

// LessonDays godoc
// @Summary Dates assigned to one lesson
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /plans/{id}/lessons/{lessonId}/days [get]
func (h *RoadmapHandler) LessonDays(c *gin.Context) {
	days, err := h.service.LessonDays(c.Request.Context(), c.Param("id"), c.Param("lessonId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}
