package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roadmap-api/internal/models"
)

var planRowColumns = []string{"id", "name", "subject", "grade_level", "start_date", "end_date", "day_exclusions", "week_exclusions", "created_by", "created_at", "updated_at"}

func newPlanRepoMock(t *testing.T) (*PlanRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewPlanRepository(sqlxDB), mock, func() {
		sqlxDB.Close()
	}
}

func samplePlan(t *testing.T) *models.TermPlan {
	plan := &models.TermPlan{
		Name:      "Grade 7 Math",
		Subject:   "Math",
		StartDate: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 19, 0, 0, 0, 0, time.UTC),
		CreatedBy: strPtr("teacher-1"),
		Lessons: []models.PlanLesson{
			{Lesson: models.Lesson{ID: "l1", Name: "Numbers", Pacing: 3}},
			{Lesson: models.Lesson{Name: "Shapes", Pacing: 4}},
		},
	}
	require.NoError(t, plan.SetExclusions(
		[]models.DayExclusion{{Date: "2024-09-17", Label: "Trip"}},
		[]models.WeekExclusion{{WeekNumber: 6, Label: "Break", ExcludeFromCount: true}},
	))
	return plan
}

func TestPlanRepositoryCreate(t *testing.T) {
	repo, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO term_plans").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO plan_lessons").
		WithArgs("l1", sqlmock.AnyArg(), 1, "Numbers", "", 3).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO plan_lessons").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 2, "Shapes", "", 4).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	plan := samplePlan(t)
	require.NoError(t, repo.Create(context.Background(), plan))
	assert.NotEmpty(t, plan.ID)
	assert.NotEmpty(t, plan.Lessons[1].ID)
	assert.Equal(t, plan.ID, plan.Lessons[0].PlanID)
	assert.Equal(t, 2, plan.Lessons[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryCreateRollsBackOnLessonFailure(t *testing.T) {
	repo, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO term_plans").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO plan_lessons").WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), samplePlan(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert plan lesson")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryFindByID(t *testing.T) {
	repo, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM term_plans WHERE id = $1")).
		WithArgs("plan-1").
		WillReturnRows(sqlmock.NewRows(planRowColumns).AddRow(
			"plan-1", "Grade 7 Math", "Math", "7",
			time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 19, 0, 0, 0, 0, time.UTC),
			[]byte(`[{"date":"2024-09-17","label":"Trip","category":"Event"}]`), []byte(`[]`),
			"teacher-1", now, now,
		))
	mock.ExpectQuery(regexp.QuoteMeta("FROM plan_lessons WHERE plan_id = $1 ORDER BY position ASC")).
		WithArgs("plan-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_id", "position", "name", "standard_ref", "pacing"}).
			AddRow("l1", "plan-1", 1, "Numbers", "M.1", 3).
			AddRow("l2", "plan-1", 2, "Shapes", "M.2", 4))

	plan, err := repo.FindByID(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Len(t, plan.Lessons, 2)
	assert.Equal(t, "Shapes", plan.Lessons[1].Name)
	assert.Equal(t, "M.1", plan.Lessons[0].StandardRef)

	days, weeks, err := plan.Exclusions()
	require.NoError(t, err)
	assert.Equal(t, models.ExclusionCategoryEvent, days[0].Category)
	assert.Empty(t, weeks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryFindByIDNotFound(t *testing.T) {
	repo, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM term_plans").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestPlanRepositoryList(t *testing.T) {
	repo, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM term_plans WHERE 1=1 AND LOWER(subject) = $1 AND created_by = $2 ORDER BY updated_at DESC LIMIT 10 OFFSET 10")).
		WithArgs("math", "teacher-1").
		WillReturnRows(sqlmock.NewRows(planRowColumns).AddRow(
			"plan-1", "Grade 7 Math", "Math", "7", now, now, []byte(`[]`), []byte(`[]`), "teacher-1", now, now,
		))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM term_plans WHERE 1=1 AND LOWER(subject) = $1 AND created_by = $2")).
		WithArgs("math", "teacher-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	plans, total, err := repo.List(context.Background(), models.PlanFilter{Subject: "Math", CreatedBy: "teacher-1", Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, plans, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryUpdateExclusionsMissingPlan(t *testing.T) {
	repo, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()

	mock.ExpectExec("UPDATE term_plans SET day_exclusions").
		WithArgs("missing", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	plan := samplePlan(t)
	plan.ID = "missing"
	err := repo.UpdateExclusions(context.Background(), plan)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestPlanRepositoryReplaceLessons(t *testing.T) {
	repo, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE term_plans SET updated_at").WithArgs("plan-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM plan_lessons WHERE plan_id = $1")).WithArgs("plan-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO plan_lessons").
		WithArgs("l9", "plan-1", 1, "Review", "", 2).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	lessons := []models.PlanLesson{{Lesson: models.Lesson{ID: "l9", Name: "Review", Pacing: 2}}}
	require.NoError(t, repo.ReplaceLessons(context.Background(), "plan-1", lessons))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryReplaceLessonsMissingPlan(t *testing.T) {
	repo, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE term_plans SET updated_at").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ReplaceLessons(context.Background(), "missing", nil)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanRepositoryDelete(t *testing.T) {
	repo, mock, cleanup := newPlanRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM term_plans WHERE id = $1")).WithArgs("plan-1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "plan-1"))

	mock.ExpectExec("DELETE FROM term_plans").WithArgs("plan-1").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, errors.Is(repo.Delete(context.Background(), "plan-1"), sql.ErrNoRows))
}

func strPtr(value string) *string {
	return &value
}
