package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roadmap-api/internal/dto"
	"github.com/noah-isme/sma-roadmap-api/internal/models"
	appErrors "github.com/noah-isme/sma-roadmap-api/pkg/errors"
	"github.com/noah-isme/sma-roadmap-api/pkg/export"
	"github.com/noah-isme/sma-roadmap-api/pkg/storage"
)

// Export views.
const (
	ExportViewRoadmap      = "roadmap"
	ExportViewDistribution = "distribution"
)

type planRoadmapBuilder interface {
	PlanWithRoadmap(ctx context.Context, planID string) (*models.TermPlan, *models.Roadmap, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportFile is an opened export ready to stream. Callers close File.
type ExportFile struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ExportService renders plan roadmaps to files and hands out signed links.
type ExportService struct {
	roadmaps  planRoadmapBuilder
	storage   fileStorage
	renderers map[export.Format]datasetRenderer
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService. nil renderers fall back to the
// package exporters.
func NewExportService(roadmaps planRoadmapBuilder, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, metrics *MetricsService, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		roadmaps:  roadmaps,
		storage:   store,
		renderers: map[export.Format]datasetRenderer{export.FormatCSV: csv, export.FormatPDF: pdf},
		signer:    signer,
		validator: validator.New(),
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Export renders a plan's roadmap or distribution view and returns a signed
// download link.
func (s *ExportService) Export(ctx context.Context, planID string, req dto.ExportRequest) (*dto.ExportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, "format must be csv or pdf and view roadmap or distribution")
	}
	format, ok := export.ParseFormat(req.Format)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, fmt.Sprintf("unsupported export format %q", req.Format))
	}
	view := req.View
	if view == "" {
		view = ExportViewRoadmap
	}

	plan, roadmap, err := s.roadmaps.PlanWithRoadmap(ctx, planID)
	if err != nil {
		return nil, err
	}

	var dataset export.Dataset
	switch view {
	case ExportViewDistribution:
		dataset = distributionDataset(plan, roadmap)
	default:
		dataset = roadmapDataset(plan, roadmap)
	}
	payload, err := s.renderers[format].Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("%s-%s.%s", sanitizeFilename(plan.Name), view, format)
	relPath, err := s.storage.Save(path.Join("plans", sanitizeFilename(plan.ID), exportID, filename), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	s.metrics.RecordExport(string(format), view)
	s.logger.Info("roadmap exported",
		zap.String("plan_id", plan.ID),
		zap.String("export_id", exportID),
		zap.String("format", string(format)),
		zap.String("view", view),
		zap.Int("bytes", len(payload)),
	)
	return &dto.ExportResponse{
		ExportID:  exportID,
		Filename:  filename,
		URL:       fmt.Sprintf("%s/exports/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		ExpiresAt: expiresAt,
	}, nil
}

// Download validates a signed token and opens the file it points to.
func (s *ExportService) Download(token string) (*ExportFile, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrTokenExpired, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	format, _ := export.ParseFormat(strings.TrimPrefix(path.Ext(relPath), "."))
	return &ExportFile{File: file, Filename: path.Base(relPath), ContentType: format.ContentType()}, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("files", len(removed)))
	}
	return removed, nil
}

var roadmapHeaders = []string{"Week", "Date", "Weekday", "Lesson", "Note"}

func roadmapDataset(plan *models.TermPlan, roadmap *models.Roadmap) export.Dataset {
	rows := make([]map[string]string, 0)
	for _, week := range roadmap.Weeks {
		for _, day := range week.Days {
			note := day.BlockLabel
			if note == "" && day.IsBlocked {
				note = "Blocked"
			}
			rows = append(rows, map[string]string{
				"Week":    week.DisplayLabel,
				"Date":    day.Date,
				"Weekday": day.Weekday,
				"Lesson":  day.LessonName,
				"Note":    note,
			})
		}
	}
	return export.Dataset{Title: exportTitle(plan, "Roadmap"), Headers: roadmapHeaders, Rows: rows}
}

var distributionHeaders = []string{"Week", "Dates", "Available Days", "Lessons", "Note"}

func distributionDataset(plan *models.TermPlan, roadmap *models.Roadmap) export.Dataset {
	rows := make([]map[string]string, 0, len(roadmap.Distribution))
	for _, week := range roadmap.Distribution {
		spans := make([]string, len(week.Lessons))
		for i, span := range week.Lessons {
			spans[i] = fmt.Sprintf("%s (%d)", span.LessonName, span.Days)
		}
		rows = append(rows, map[string]string{
			"Week":           week.DisplayLabel,
			"Dates":          week.DateRange,
			"Available Days": strconv.Itoa(week.AvailableDays),
			"Lessons":        strings.Join(spans, ", "),
			"Note":           week.BlockLabel,
		})
	}
	return export.Dataset{Title: exportTitle(plan, "Weekly Distribution"), Headers: distributionHeaders, Rows: rows}
}

func exportTitle(plan *models.TermPlan, view string) string {
	return fmt.Sprintf("%s %s (%s to %s)", plan.Name, view, plan.StartDate.Format("2006-01-02"), plan.EndDate.Format("2006-01-02"))
}

const maxFilenameRunes = 100

func sanitizeFilename(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "plan"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := strings.Trim(replacer.Replace(strings.TrimSpace(raw)), ".")
	if result == "" {
		return "plan"
	}
	if runes := []rune(result); len(runes) > maxFilenameRunes {
		return string(runes[:maxFilenameRunes])
	}
	return result
}
