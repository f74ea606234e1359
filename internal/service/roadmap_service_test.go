package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roadmap-api/internal/dto"
	"github.com/noah-isme/sma-roadmap-api/internal/models"
	"github.com/noah-isme/sma-roadmap-api/internal/planner"
	appErrors "github.com/noah-isme/sma-roadmap-api/pkg/errors"
)

type planReaderStub struct {
	plan *models.TermPlan
	err  error
}

func (s *planReaderStub) FindByID(ctx context.Context, id string) (*models.TermPlan, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.plan == nil || s.plan.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.plan, nil
}

func storedPlan(t *testing.T) *models.TermPlan {
	plan := &models.TermPlan{
		ID:        "plan-1",
		Name:      "Grade 7 Math",
		StartDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 9, 19, 0, 0, 0, 0, time.UTC),
		Lessons: []models.PlanLesson{
			{Lesson: models.Lesson{ID: "l1", Name: "Numbers", Pacing: 3}, Position: 1},
			{Lesson: models.Lesson{ID: "l2", Name: "Shapes", Pacing: 4}, Position: 2},
		},
	}
	require.NoError(t, plan.SetExclusions(nil, []models.WeekExclusion{{WeekNumber: 2, Label: "Autumn Break", ExcludeFromCount: true}}))
	return plan
}

func newRoadmapService(reader roadmapPlanReader) *RoadmapService {
	return NewRoadmapService(planner.New(planner.DefaultPattern()), reader, nil, NewMetricsService(), nil, 0)
}

func TestRoadmapServicePreview(t *testing.T) {
	svc := newRoadmapService(nil)
	roadmap, err := svc.Preview(context.Background(), dto.RoadmapPreviewRequest{
		StartDate:     "2024-09-01",
		EndDate:       "2024-09-05",
		DayExclusions: []dto.PreviewDayExclusionRequest{{Date: "2024-09-03", Label: "Assembly", Category: "Event"}},
		Lessons:       []dto.LessonRequest{{Name: "Fractions", Pacing: 5}},
	})
	require.NoError(t, err)
	require.Len(t, roadmap.Weeks, 1)
	assert.Equal(t, 4, roadmap.Stats.TotalAvailableDays)
	require.Len(t, roadmap.Lessons, 1)
	assert.NotEmpty(t, roadmap.Lessons[0].LessonID)
	assert.Len(t, roadmap.Lessons[0].AssignedDays, 4)
	assert.False(t, roadmap.Lessons[0].Complete)
}

func TestRoadmapServicePreviewValidation(t *testing.T) {
	svc := newRoadmapService(nil)
	cases := []dto.RoadmapPreviewRequest{
		{StartDate: "09/01/2024", EndDate: "2024-09-05"},
		{StartDate: "2024-09-01", EndDate: "2024-09-05", DayExclusions: []dto.PreviewDayExclusionRequest{{Date: "2024-09-03", Category: "Party"}}},
		{StartDate: "2024-09-01", EndDate: "2024-09-05", WeekExclusions: []dto.WeekExclusionRequest{{WeekNumber: 0}}},
		{StartDate: "2024-09-01", EndDate: "2024-09-05", Lessons: []dto.LessonRequest{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}},
	}
	for _, req := range cases {
		_, err := svc.Preview(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	}
}

func TestRoadmapServicePreviewIgnoresMalformedDayExclusion(t *testing.T) {
	svc := newRoadmapService(nil)
	roadmap, err := svc.Preview(context.Background(), dto.RoadmapPreviewRequest{
		StartDate: "2024-09-01",
		EndDate:   "2024-09-05",
		DayExclusions: []dto.PreviewDayExclusionRequest{
			{Date: "2024-13-45", Label: "Typo"},
			{Date: "2024-09-03", Label: "Assembly"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, roadmap.Stats.TotalAvailableDays)

	stats, err := svc.Stats(context.Background(), dto.RoadmapStatsRequest{
		StartDate:     "2024-09-01",
		EndDate:       "2024-09-05",
		DayExclusions: []dto.PreviewDayExclusionRequest{{Date: "next tuesday"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalAvailableDays)
}

func TestRoadmapServiceInvertedRangeIsEmpty(t *testing.T) {
	svc := newRoadmapService(nil)
	roadmap, err := svc.Preview(context.Background(), dto.RoadmapPreviewRequest{StartDate: "2024-09-30", EndDate: "2024-09-01"})
	require.NoError(t, err)
	assert.Empty(t, roadmap.Weeks)
	assert.Equal(t, models.RoadmapStats{}, roadmap.Stats)
}

func TestRoadmapServiceRejectsLongRange(t *testing.T) {
	svc := NewRoadmapService(nil, nil, nil, nil, nil, 30)
	_, err := svc.Stats(context.Background(), dto.RoadmapStatsRequest{StartDate: "2024-09-01", EndDate: "2024-12-01"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRangeTooLong.Code, appErrors.FromError(err).Code)
}

func TestRoadmapServiceStatsAndWeeks(t *testing.T) {
	svc := newRoadmapService(nil)
	stats, err := svc.Stats(context.Background(), dto.RoadmapStatsRequest{
		StartDate:      "2024-09-01",
		EndDate:        "2024-09-19",
		WeekExclusions: []dto.WeekExclusionRequest{{WeekNumber: 2, ExcludeFromCount: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoadmapStats{TotalAvailableDays: 10, TotalAvailableWeeks: 2}, *stats)

	ranges, err := svc.WeekRanges(context.Background(), dto.WeekRangesQuery{Start: "2024-09-01", End: "2024-09-19"})
	require.NoError(t, err)
	assert.Len(t, ranges, 3)

	_, err = svc.WeekRanges(context.Background(), dto.WeekRangesQuery{Start: "x"})
	assert.Error(t, err)
}

func TestRoadmapServicePlanRoadmap(t *testing.T) {
	svc := newRoadmapService(&planReaderStub{plan: storedPlan(t)})
	roadmap, err := svc.PlanRoadmap(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Len(t, roadmap.Weeks, 3)
	assert.Equal(t, "Autumn Break", roadmap.Weeks[1].DisplayLabel)
	assert.Equal(t, "Week 2", roadmap.Weeks[2].DisplayLabel)
	assert.Equal(t, []string{"2024-09-04", "2024-09-05", "2024-09-15", "2024-09-16"}, roadmap.Lessons[1].AssignedDays)
}

func TestRoadmapServiceLessonDays(t *testing.T) {
	svc := newRoadmapService(&planReaderStub{plan: storedPlan(t)})
	resp, err := svc.LessonDays(context.Background(), "plan-1", "l1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-09-01", "2024-09-02", "2024-09-03"}, resp.AssignedDays)

	_, err = svc.LessonDays(context.Background(), "plan-1", "nope")
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestRoadmapServicePlanErrors(t *testing.T) {
	_, err := newRoadmapService(&planReaderStub{}).PlanRoadmap(context.Background(), "missing")
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	_, err = newRoadmapService(&planReaderStub{err: errors.New("db down")}).PlanRoadmap(context.Background(), "plan-1")
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
}
