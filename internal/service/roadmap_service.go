package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roadmap-api/internal/dto"
	"github.com/noah-isme/sma-roadmap-api/internal/models"
	"github.com/noah-isme/sma-roadmap-api/internal/planner"
	appErrors "github.com/noah-isme/sma-roadmap-api/pkg/errors"
)

const (
	roadmapSourcePreview = "preview"
	roadmapSourcePlan    = "plan"

	defaultMaxRangeDays = 731
)

type roadmapPlanReader interface {
	FindByID(ctx context.Context, id string) (*models.TermPlan, error)
}

// RoadmapService builds roadmaps from request payloads or stored plans.
type RoadmapService struct {
	planner      *planner.Planner
	plans        roadmapPlanReader
	validator    *validator.Validate
	metrics      *MetricsService
	logger       *zap.Logger
	maxRangeDays int
}

// NewRoadmapService constructs the service.
func NewRoadmapService(p *planner.Planner, plans roadmapPlanReader, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, maxRangeDays int) *RoadmapService {
	if p == nil {
		p = planner.New(planner.DefaultPattern())
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRangeDays <= 0 {
		maxRangeDays = defaultMaxRangeDays
	}
	registerRoadmapValidations(validate)
	return &RoadmapService{
		planner:      p,
		plans:        plans,
		validator:    validate,
		metrics:      metrics,
		logger:       logger,
		maxRangeDays: maxRangeDays,
	}
}

// registerRoadmapValidations installs the custom tags used by roadmap DTOs.
func registerRoadmapValidations(v *validator.Validate) {
	_ = v.RegisterValidation("exclusion_category", func(fl validator.FieldLevel) bool {
		return models.ExclusionCategory(fl.Field().String()).Valid()
	})
}

// Preview builds a roadmap from the request without persisting anything.
func (s *RoadmapService) Preview(ctx context.Context, req dto.RoadmapPreviewRequest) (*models.Roadmap, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roadmap payload")
	}
	if err := s.checkRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	lessons, err := prepareLessons(dto.ToLessons(req.Lessons))
	if err != nil {
		return nil, err
	}
	roadmap := s.build(roadmapSourcePreview, models.RoadmapInput{
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		DayExclusions:  dto.PreviewDayExclusions(req.DayExclusions),
		WeekExclusions: dto.ToWeekExclusions(req.WeekExclusions),
		Lessons:        lessons,
	})
	return &roadmap, nil
}

// Stats returns the capacity figures for a range and its exclusions.
func (s *RoadmapService) Stats(ctx context.Context, req dto.RoadmapStatsRequest) (*models.RoadmapStats, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stats payload")
	}
	if err := s.checkRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	stats := s.planner.Stats(models.RoadmapInput{
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		DayExclusions:  dto.PreviewDayExclusions(req.DayExclusions),
		WeekExclusions: dto.ToWeekExclusions(req.WeekExclusions),
	})
	return &stats, nil
}

// WeekRanges lists the raw weeks of a range for week pickers.
func (s *RoadmapService) WeekRanges(ctx context.Context, query dto.WeekRangesQuery) ([]models.WeekRange, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "start and end must be YYYY-MM-DD dates")
	}
	if err := s.checkRange(query.Start, query.End); err != nil {
		return nil, err
	}
	return s.planner.WeekRanges(query.Start, query.End), nil
}

// PlanRoadmap rebuilds the roadmap of a stored plan.
func (s *RoadmapService) PlanRoadmap(ctx context.Context, planID string) (*models.Roadmap, error) {
	_, roadmap, err := s.PlanWithRoadmap(ctx, planID)
	return roadmap, err
}

// PlanWithRoadmap returns the stored plan together with its rebuilt roadmap.
func (s *RoadmapService) PlanWithRoadmap(ctx context.Context, planID string) (*models.TermPlan, *models.Roadmap, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	input, err := plan.RoadmapInput()
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored exclusions are corrupt")
	}
	roadmap := s.build(roadmapSourcePlan, input)
	return plan, &roadmap, nil
}

// LessonDays returns the dates one lesson of a stored plan is packed onto.
func (s *RoadmapService) LessonDays(ctx context.Context, planID, lessonID string) (*dto.LessonDaysResponse, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	found := false
	for _, l := range plan.Lessons {
		if l.ID == lessonID {
			found = true
			break
		}
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found in plan")
	}
	input, err := plan.RoadmapInput()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored exclusions are corrupt")
	}
	weeks := s.planner.Weeks(input)
	return &dto.LessonDaysResponse{LessonID: lessonID, AssignedDays: planner.AssignedDays(weeks, lessonID)}, nil
}

func (s *RoadmapService) build(source string, input models.RoadmapInput) models.Roadmap {
	start := time.Now()
	roadmap := s.planner.Build(input)
	elapsed := time.Since(start)
	s.metrics.ObserveRoadmapBuild(source, len(roadmap.Weeks), elapsed)
	s.logger.Debug("roadmap built",
		zap.String("source", source),
		zap.Int("weeks", len(roadmap.Weeks)),
		zap.Int("lessons", len(input.Lessons)),
		zap.Int("available_days", roadmap.Stats.TotalAvailableDays),
		zap.Duration("elapsed", elapsed),
	)
	return roadmap
}

func (s *RoadmapService) loadPlan(ctx context.Context, planID string) (*models.TermPlan, error) {
	if s.plans == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "plan storage not configured")
	}
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "plan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
	}
	return plan, nil
}

// checkRange rejects ranges longer than the configured limit. Inverted ranges
// pass through; the planner answers them with an empty roadmap.
func (s *RoadmapService) checkRange(start, end string) error {
	if days := planner.NewDateRange(start, end).Days(); days > s.maxRangeDays {
		return appErrors.Clone(appErrors.ErrRangeTooLong, fmt.Sprintf("date range spans %d days, limit is %d", days, s.maxRangeDays))
	}
	return nil
}

// prepareLessons fills missing IDs and rejects duplicates, which would merge
// two lessons' assigned days.
func prepareLessons(lessons []models.Lesson) ([]models.Lesson, error) {
	seen := make(map[string]struct{}, len(lessons))
	for i := range lessons {
		if lessons[i].ID == "" {
			lessons[i].ID = uuid.NewString()
		}
		if _, dup := seen[lessons[i].ID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate lesson id %q", lessons[i].ID))
		}
		seen[lessons[i].ID] = struct{}{}
	}
	return lessons, nil
}
