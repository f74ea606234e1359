package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-roadmap-api/internal/models"
)

const planColumns = `id, name, subject, grade_level, start_date, end_date, day_exclusions, week_exclusions, created_by, created_at, updated_at`

const insertLessonQuery = `INSERT INTO plan_lessons (id, plan_id, position, name, standard_ref, pacing)
VALUES (:id, :plan_id, :position, :name, :standard_ref, :pacing)`

// PlanRepository persists term plans and their ordered lessons.
type PlanRepository struct {
	db *sqlx.DB
}

// NewPlanRepository constructs the repository.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// Create inserts a plan and its lessons in one transaction.
func (r *PlanRepository) Create(ctx context.Context, plan *models.TermPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create plan tx: %w", err)
	}
	const query = `INSERT INTO term_plans (` + planColumns + `)
VALUES (:id, :name, :subject, :grade_level, :start_date, :end_date, :day_exclusions, :week_exclusions, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, plan); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create plan: %w", err)
	}
	if err := insertLessons(ctx, tx, plan.ID, plan.Lessons); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create plan tx: %w", err)
	}
	return nil
}

// FindByID returns a plan with its lessons ordered by position.
func (r *PlanRepository) FindByID(ctx context.Context, id string) (*models.TermPlan, error) {
	query := `SELECT ` + planColumns + ` FROM term_plans WHERE id = $1`
	var plan models.TermPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find plan: %w", err)
	}

	const lessonsQuery = `SELECT id, plan_id, position, name, standard_ref, pacing FROM plan_lessons WHERE plan_id = $1 ORDER BY position ASC`
	lessons := []models.PlanLesson{}
	if err := r.db.SelectContext(ctx, &lessons, lessonsQuery, id); err != nil {
		return nil, fmt.Errorf("list plan lessons: %w", err)
	}
	plan.Lessons = lessons
	return &plan, nil
}

// List returns plan headers without lessons, newest first, with the total count.
func (r *PlanRepository) List(ctx context.Context, filter models.PlanFilter) ([]models.TermPlan, int, error) {
	baseQuery := `FROM term_plans WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(subject) = $%d", len(args)+1))
		args = append(args, strings.ToLower(filter.Subject))
	}
	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY updated_at DESC LIMIT %d OFFSET %d", planColumns, baseQuery, pageSize, offset)
	plans := []models.TermPlan{}
	if err := r.db.SelectContext(ctx, &plans, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list plans: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count plans: %w", err)
	}
	return plans, total, nil
}

// Update changes plan metadata and range. Missing plans yield sql.ErrNoRows.
func (r *PlanRepository) Update(ctx context.Context, plan *models.TermPlan) error {
	plan.UpdatedAt = time.Now().UTC()
	const query = `UPDATE term_plans SET name = :name, subject = :subject, grade_level = :grade_level,
start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, plan)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	return requireAffected(res, "update plan")
}

// UpdateExclusions overwrites both JSONB exclusion columns.
func (r *PlanRepository) UpdateExclusions(ctx context.Context, plan *models.TermPlan) error {
	plan.UpdatedAt = time.Now().UTC()
	const query = `UPDATE term_plans SET day_exclusions = $2, week_exclusions = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, plan.ID, plan.DayExclusions, plan.WeekExclusions, plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update plan exclusions: %w", err)
	}
	return requireAffected(res, "update plan exclusions")
}

// ReplaceLessons swaps the whole lesson list in one transaction. Positions are
// rewritten from slice order.
func (r *PlanRepository) ReplaceLessons(ctx context.Context, planID string, lessons []models.PlanLesson) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace lessons tx: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE term_plans SET updated_at = $2 WHERE id = $1`, planID, time.Now().UTC())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("touch plan: %w", err)
	}
	if err := requireAffected(res, "touch plan"); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM plan_lessons WHERE plan_id = $1`, planID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear plan lessons: %w", err)
	}
	if err := insertLessons(ctx, tx, planID, lessons); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace lessons tx: %w", err)
	}
	return nil
}

// Delete removes a plan; lessons cascade.
func (r *PlanRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM term_plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return requireAffected(res, "delete plan")
}

func insertLessons(ctx context.Context, tx *sqlx.Tx, planID string, lessons []models.PlanLesson) error {
	for i := range lessons {
		if lessons[i].ID == "" {
			lessons[i].ID = uuid.NewString()
		}
		lessons[i].PlanID = planID
		lessons[i].Position = i + 1
		if _, err := tx.NamedExecContext(ctx, insertLessonQuery, lessons[i]); err != nil {
			return fmt.Errorf("insert plan lesson: %w", err)
		}
	}
	return nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
