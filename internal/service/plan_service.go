package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-roadmap-api/internal/dto"
	"github.com/noah-isme/sma-roadmap-api/internal/models"
	"github.com/noah-isme/sma-roadmap-api/internal/planner"
	appErrors "github.com/noah-isme/sma-roadmap-api/pkg/errors"
	"github.com/noah-isme/sma-roadmap-api/pkg/jobs"
	"github.com/noah-isme/sma-roadmap-api/pkg/planfile"
)

type planRepository interface {
	Create(ctx context.Context, plan *models.TermPlan) error
	FindByID(ctx context.Context, id string) (*models.TermPlan, error)
	List(ctx context.Context, filter models.PlanFilter) ([]models.TermPlan, int, error)
	Update(ctx context.Context, plan *models.TermPlan) error
	UpdateExclusions(ctx context.Context, plan *models.TermPlan) error
	ReplaceLessons(ctx context.Context, planID string, lessons []models.PlanLesson) error
	Delete(ctx context.Context, id string) error
}

type jobEnqueuer interface {
	Enqueue(ctx context.Context, job jobs.Job) (string, error)
}

type lessonDetailProvider interface {
	LessonDetails(ctx context.Context, lessons []models.Lesson) []models.LessonDetail
}

// PlanService manages persisted term plans and their inputs.
type PlanService struct {
	repo         planRepository
	enrichment   lessonDetailProvider
	warmup       jobEnqueuer
	validator    *validator.Validate
	logger       *zap.Logger
	maxRangeDays int
}

// NewPlanService constructs the service. enrichment and warmup are optional.
func NewPlanService(repo planRepository, enrichment lessonDetailProvider, warmup jobEnqueuer, validate *validator.Validate, logger *zap.Logger, maxRangeDays int) *PlanService {
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
	return &PlanService{
		repo:         repo,
		enrichment:   enrichment,
		warmup:       warmup,
		validator:    validate,
		logger:       logger,
		maxRangeDays: maxRangeDays,
	}
}

// List returns plan headers. mine restricts the listing to plans created by actorID.
func (s *PlanService) List(ctx context.Context, query dto.PlanQuery, actorID string) ([]models.TermPlan, *models.Pagination, error) {
	filter := models.PlanFilter{
		Subject:    strings.TrimSpace(query.Subject),
		GradeLevel: strings.TrimSpace(query.GradeLevel),
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	if query.Mine {
		if actorID == "" {
			return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "mine=true requires an authenticated user")
		}
		filter.CreatedBy = actorID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	plans, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list plans")
	}
	return plans, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a plan with its lessons.
func (s *PlanService) Get(ctx context.Context, id string) (*models.TermPlan, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, planLookupError(err)
	}
	return plan, nil
}

// Create stores a new plan with its exclusions and lessons.
func (s *PlanService) Create(ctx context.Context, req dto.CreatePlanRequest, actorID string) (*models.TermPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan payload")
	}
	start, end, err := s.parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	lessons, err := prepareLessons(dto.ToLessons(req.Lessons))
	if err != nil {
		return nil, err
	}
	plan := &models.TermPlan{
		Name:       strings.TrimSpace(req.Name),
		Subject:    strings.TrimSpace(req.Subject),
		GradeLevel: strings.TrimSpace(req.GradeLevel),
		StartDate:  start,
		EndDate:    end,
		Lessons:    toPlanLessons(lessons),
	}
	if actorID != "" {
		plan.CreatedBy = &actorID
	}
	if err := plan.SetExclusions(dto.ToDayExclusions(req.DayExclusions), dto.ToWeekExclusions(req.WeekExclusions)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode exclusions")
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create plan")
	}
	s.logger.Info("plan created", zap.String("plan_id", plan.ID), zap.Int("lessons", len(lessons)))
	s.enqueueWarmup(ctx, plan.ID, lessons)
	return plan, nil
}

// Update changes plan metadata and its date range.
func (s *PlanService) Update(ctx context.Context, id string, req dto.UpdatePlanRequest) (*models.TermPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan payload")
	}
	start, end, err := s.parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, planLookupError(err)
	}
	plan.Name = strings.TrimSpace(req.Name)
	plan.Subject = strings.TrimSpace(req.Subject)
	plan.GradeLevel = strings.TrimSpace(req.GradeLevel)
	plan.StartDate = start
	plan.EndDate = end
	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, planWriteError(err, "failed to update plan")
	}
	return plan, nil
}

// Delete removes a plan and its lessons.
func (s *PlanService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return planWriteError(err, "failed to delete plan")
	}
	s.logger.Info("plan deleted", zap.String("plan_id", id))
	return nil
}

// ReplaceLessons swaps the ordered lesson list and schedules a cache warm-up.
func (s *PlanService) ReplaceLessons(ctx context.Context, id string, req dto.ReplaceLessonsRequest) (*models.TermPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lessons payload")
	}
	lessons, err := prepareLessons(dto.ToLessons(req.Lessons))
	if err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceLessons(ctx, id, toPlanLessons(lessons)); err != nil {
		return nil, planWriteError(err, "failed to replace lessons")
	}
	s.enqueueWarmup(ctx, id, lessons)
	return s.Get(ctx, id)
}

// ReplaceExclusions overwrites both exclusion lists.
func (s *PlanService) ReplaceExclusions(ctx context.Context, id string, req dto.ReplaceExclusionsRequest) (*models.TermPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exclusions payload")
	}
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, planLookupError(err)
	}
	if err := plan.SetExclusions(dto.ToDayExclusions(req.DayExclusions), dto.ToWeekExclusions(req.WeekExclusions)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode exclusions")
	}
	if err := s.repo.UpdateExclusions(ctx, plan); err != nil {
		return nil, planWriteError(err, "failed to update exclusions")
	}
	return plan, nil
}

// ExportExclusions serialises the plan's exclusions as YAML or JSON.
func (s *PlanService) ExportExclusions(ctx context.Context, id, format string) ([]byte, planfile.Format, error) {
	f, err := planfile.ParseFormat(format)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, err.Error())
	}
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, "", planLookupError(err)
	}
	days, weeks, err := plan.Exclusions()
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored exclusions are corrupt")
	}
	data, err := planfile.Encode(planfile.Exclusions{DayExclusions: days, WeekExclusions: weeks}, f)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode exclusions")
	}
	return data, f, nil
}

// ImportExclusions decodes a YAML or JSON blob and replaces the plan's
// exclusions with it. The decoded entries go through the same validation as
// ReplaceExclusions.
func (s *PlanService) ImportExclusions(ctx context.Context, id, format string, data []byte) (*models.TermPlan, error) {
	f, err := planfile.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, err.Error())
	}
	decoded, err := planfile.Decode(data, f)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "exclusions file could not be parsed")
	}
	req := dto.ReplaceExclusionsRequest{
		DayExclusions:  make([]dto.DayExclusionRequest, len(decoded.DayExclusions)),
		WeekExclusions: make([]dto.WeekExclusionRequest, len(decoded.WeekExclusions)),
	}
	for i, d := range decoded.DayExclusions {
		req.DayExclusions[i] = dto.DayExclusionRequest{Date: d.Date, Label: d.Label, Category: string(d.Category)}
	}
	for i, w := range decoded.WeekExclusions {
		req.WeekExclusions[i] = dto.WeekExclusionRequest{
			WeekNumber:       w.WeekNumber,
			Label:            w.Label,
			Category:         string(w.Category),
			ExcludeFromCount: w.ExcludeFromCount,
		}
	}
	return s.ReplaceExclusions(ctx, id, req)
}

// LessonDetails returns enrichment text for every lesson of a plan, falling
// back to placeholders when enrichment is unavailable.
func (s *PlanService) LessonDetails(ctx context.Context, id string) ([]models.LessonDetail, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, planLookupError(err)
	}
	lessons := make([]models.Lesson, len(plan.Lessons))
	for i, l := range plan.Lessons {
		lessons[i] = l.Lesson
	}
	if s.enrichment == nil {
		details := make([]models.LessonDetail, len(lessons))
		for i, l := range lessons {
			details[i] = placeholderDetail(l)
		}
		return details, nil
	}
	return s.enrichment.LessonDetails(ctx, lessons), nil
}

func (s *PlanService) enqueueWarmup(ctx context.Context, planID string, lessons []models.Lesson) {
	if s.warmup == nil || len(lessons) == 0 {
		return
	}
	payload := make([]models.Lesson, len(lessons))
	copy(payload, lessons)
	jobID, err := s.warmup.Enqueue(ctx, jobs.Job{Type: WarmupJobType, Payload: payload})
	if err != nil {
		s.logger.Warn("lesson detail warm-up not scheduled", zap.String("plan_id", planID), zap.Error(err))
		return
	}
	s.logger.Debug("lesson detail warm-up scheduled", zap.String("plan_id", planID), zap.String("job_id", jobID))
}

// parseRange validates a stored plan's range. Unlike previews, stored plans
// must not be inverted.
func (s *PlanService) parseRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, okStart := planner.ParseDate(startRaw)
	end, okEnd := planner.ParseDate(endRaw)
	if !okStart || !okEnd {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "startDate and endDate must be YYYY-MM-DD dates")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "endDate must be on or after startDate")
	}
	if days := planner.NewDateRange(startRaw, endRaw).Days(); days > s.maxRangeDays {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrRangeTooLong, fmt.Sprintf("date range spans %d days, limit is %d", days, s.maxRangeDays))
	}
	return start, end, nil
}

func toPlanLessons(lessons []models.Lesson) []models.PlanLesson {
	out := make([]models.PlanLesson, len(lessons))
	for i, l := range lessons {
		out[i] = models.PlanLesson{Lesson: l, Position: i + 1}
	}
	return out
}

func planLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "plan not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plan")
}

func planWriteError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "plan not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
