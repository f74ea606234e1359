package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roadmap-api/internal/dto"
	"github.com/noah-isme/sma-roadmap-api/internal/service"
	appErrors "github.com/noah-isme/sma-roadmap-api/pkg/errors"
	"github.com/noah-isme/sma-roadmap-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, planID string, req dto.ExportRequest) (*dto.ExportResponse, error)
	Download(token string) (*service.ExportFile, error)
}

// ExportHandler renders roadmap files and serves signed downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds a new handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Create godoc
// @Summary Render a roadmap export
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Plan ID"
// @Param payload body dto.ExportRequest false "Format and view"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /plans/{id}/exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.ExportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
			return
		}
	}
	res, err := h.service.Export(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Download godoc
// @Summary Download a rendered export
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, err := h.service.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.File.Close()

	info, err := file.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export"))
		return
	}
	response.Stream(c, file.Filename, file.ContentType, info.Size(), file.File)
}
