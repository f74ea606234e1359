package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roadmap-api/internal/dto"
	"github.com/noah-isme/sma-roadmap-api/internal/service"
	appErrors "github.com/noah-isme/sma-roadmap-api/pkg/errors"
)

type exportServiceMock struct {
	lastReq dto.ExportRequest
	path    string
}

func (m *exportServiceMock) Export(ctx context.Context, planID string, req dto.ExportRequest) (*dto.ExportResponse, error) {
	m.lastReq = req
	if req.Format == "xlsx" {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, "unsupported export format")
	}
	return &dto.ExportResponse{ExportID: "e1", Filename: "plan-roadmap.csv", URL: "/api/v1/exports/tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *exportServiceMock) Download(token string) (*service.ExportFile, error) {
	switch token {
	case "expired":
		return nil, appErrors.Clone(appErrors.ErrTokenExpired, "")
	case "good":
		f, err := os.Open(m.path)
		if err != nil {
			return nil, err
		}
		return &service.ExportFile{File: f, Filename: "plan-roadmap.csv", ContentType: "text/csv; charset=utf-8"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
}

func newExportRouter(t *testing.T) (*gin.Engine, *exportServiceMock) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "plan-roadmap.csv")
	require.NoError(t, os.WriteFile(path, []byte("Week,Date\nWeek 1,2024-09-01\n"), 0o644))
	svc := &exportServiceMock{path: path}
	h := NewExportHandler(svc)
	r := gin.New()
	r.POST("/plans/:id/exports", h.Create)
	r.GET("/exports/:token", h.Download)
	return r, svc
}

func TestExportHandlerCreate(t *testing.T) {
	r, svc := newExportRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/plans/plan-1/exports", map[string]string{"format": "csv", "view": "distribution"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "distribution", svc.lastReq.View)
	assert.Contains(t, string(env.Data), `"url":"/api/v1/exports/tok"`)

	w, _ = doJSON(t, r, http.MethodPost, "/plans/plan-1/exports", nil)
	assert.Equal(t, http.StatusCreated, w.Code, "an empty body uses the defaults")

	w, _ = doJSON(t, r, http.MethodPost, "/plans/plan-1/exports", map[string]string{"format": "xlsx"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHandlerDownload(t *testing.T) {
	r, _ := newExportRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/exports/good", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="plan-roadmap.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "Week 1,2024-09-01")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/exports/expired", nil))
	assert.Equal(t, http.StatusGone, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/exports/forged", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
