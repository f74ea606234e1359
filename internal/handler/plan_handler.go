package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roadmap-api/internal/dto"
	"github.com/noah-isme/sma-roadmap-api/internal/middleware"
	"github.com/noah-isme/sma-roadmap-api/internal/models"
	appErrors "github.com/noah-isme/sma-roadmap-api/pkg/errors"
	"github.com/noah-isme/sma-roadmap-api/pkg/planfile"
	"github.com/noah-isme/sma-roadmap-api/pkg/response"
)

const maxExclusionsUpload = 1 << 20

type planService interface {
	List(ctx context.Context, query dto.PlanQuery, actorID string) ([]models.TermPlan, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.TermPlan, error)
	Create(ctx context.Context, req dto.CreatePlanRequest, actorID string) (*models.TermPlan, error)
	Update(ctx context.Context, id string, req dto.UpdatePlanRequest) (*models.TermPlan, error)
	Delete(ctx context.Context, id string) error
	ReplaceLessons(ctx context.Context, id string, req dto.ReplaceLessonsRequest) (*models.TermPlan, error)
	ReplaceExclusions(ctx context.Context, id string, req dto.ReplaceExclusionsRequest) (*models.TermPlan, error)
	ExportExclusions(ctx context.Context, id, format string) ([]byte, planfile.Format, error)
	ImportExclusions(ctx context.Context, id, format string, data []byte) (*models.TermPlan, error)
	LessonDetails(ctx context.Context, id string) ([]models.LessonDetail, error)
}

// PlanHandler exposes term plan endpoints.
type PlanHandler struct {
	service planService
}

// NewPlanHandler builds a new handler.
func NewPlanHandler(service planService) *PlanHandler {
	return &PlanHandler{service: service}
}

// List godoc
// @Summary List term plans
// @Tags Plans
// @Produce json
// @Param subject query string false "Subject"
// @Param gradeLevel query string false "Grade level"
// @Param mine query bool false "Only plans created by the caller"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /plans [get]
func (h *PlanHandler) List(c *gin.Context) {
	var query dto.PlanQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	plans, pagination, err := h.service.List(c.Request.Context(), query, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]*dto.PlanResponse, 0, len(plans))
	for i := range plans {
		item, err := dto.NewPlanResponse(&plans[i])
		if err != nil {
			response.Error(c, err)
			return
		}
		items = append(items, item)
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a term plan
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /plans/{id} [get]
func (h *PlanHandler) Get(c *gin.Context) {
	plan, err := h.service.Get(c.Request.Context(), c.Param("id"))
	h.respondPlan(c, http.StatusOK, plan, err)
}

// Create godoc
// @Summary Create a term plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param payload body dto.CreatePlanRequest true "Plan payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /plans [post]
func (h *PlanHandler) Create(c *gin.Context) {
	var req dto.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan payload"))
		return
	}
	plan, err := h.service.Create(c.Request.Context(), req, actorID(c))
	h.respondPlan(c, http.StatusCreated, plan, err)
}

// Update godoc
// @Summary Update plan metadata and range
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body dto.UpdatePlanRequest true "Plan payload"
// @Success 200 {object} response.Envelope
// @Router /plans/{id} [put]
func (h *PlanHandler) Update(c *gin.Context) {
	var req dto.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan payload"))
		return
	}
	plan, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	h.respondPlan(c, http.StatusOK, plan, err)
}

// Delete godoc
// @Summary Delete a term plan
// @Tags Plans
// @Param id path string true "Plan ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /plans/{id} [delete]
func (h *PlanHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ReplaceLessons godoc
// @Summary Replace the ordered lesson list
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body dto.ReplaceLessonsRequest true "Lessons"
// @Success 200 {object} response.Envelope
// @Router /plans/{id}/lessons [put]
func (h *PlanHandler) ReplaceLessons(c *gin.Context) {
	var req dto.ReplaceLessonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lessons payload"))
		return
	}
	plan, err := h.service.ReplaceLessons(c.Request.Context(), c.Param("id"), req)
	h.respondPlan(c, http.StatusOK, plan, err)
}

// ReplaceExclusions godoc
// @Summary Replace day and week exclusions
// @Tags Plans
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body dto.ReplaceExclusionsRequest true "Exclusions"
// @Success 200 {object} response.Envelope
// @Router /plans/{id}/exclusions [put]
func (h *PlanHandler) ReplaceExclusions(c *gin.Context) {
	var req dto.ReplaceExclusionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exclusions payload"))
		return
	}
	plan, err := h.service.ReplaceExclusions(c.Request.Context(), c.Param("id"), req)
	h.respondPlan(c, http.StatusOK, plan, err)
}

// ExportExclusions godoc
// @Summary Download the exclusions configuration
// @Tags Plans
// @Produce application/yaml
// @Produce json
// @Param id path string true "Plan ID"
// @Param format query string false "yaml (default) or json"
// @Success 200 {string} string
// @Router /plans/{id}/exclusions/export [get]
func (h *PlanHandler) ExportExclusions(c *gin.Context) {
	data, format, err := h.service.ExportExclusions(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, fmt.Sprintf("plan-%s-exclusions.%s", c.Param("id"), format), format.ContentType(), data)
}

// ImportExclusions godoc
// @Summary Replace exclusions from a configuration file
// @Tags Plans
// @Accept application/yaml
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param format query string false "yaml (default) or json"
// @Success 200 {object} response.Envelope
// @Router /plans/{id}/exclusions/import [post]
func (h *PlanHandler) ImportExclusions(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxExclusionsUpload))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "exclusions file too large or unreadable"))
		return
	}
	plan, err := h.service.ImportExclusions(c.Request.Context(), c.Param("id"), c.Query("format"), body)
	h.respondPlan(c, http.StatusOK, plan, err)
}

// LessonDetails godoc
// @Summary Enriched lesson descriptions
// @Description Placeholder text is returned when the enrichment service is unavailable.
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} response.Envelope
// @Router /plans/{id}/lessons/details [get]
func (h *PlanHandler) LessonDetails(c *gin.Context) {
	details, err := h.service.LessonDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	placeholders := 0
	for _, d := range details {
		if d.Placeholder {
			placeholders++
		}
	}
	middleware.SetMeta(c, "placeholders", placeholders)
	response.JSON(c, http.StatusOK, details, nil, middleware.ResponseMeta(c))
}

func (h *PlanHandler) respondPlan(c *gin.Context, status int, plan *models.TermPlan, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	body, err := dto.NewPlanResponse(plan)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored exclusions are corrupt"))
		return
	}
	response.JSON(c, status, body, nil)
}
