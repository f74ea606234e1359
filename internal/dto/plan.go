package dto

import (
	"time"

	"github.com/noah-isme/sma-roadmap-api/internal/models"
)

// CreatePlanRequest creates a term plan with its initial inputs.
type CreatePlanRequest struct {
	Name           string                 `json:"name" validate:"required,max=200"`
	Subject        string                 `json:"subject" validate:"max=120"`
	GradeLevel     string                 `json:"gradeLevel" validate:"max=40"`
	StartDate      string                 `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate        string                 `json:"endDate" validate:"required,datetime=2006-01-02"`
	DayExclusions  []DayExclusionRequest  `json:"dayExclusions" validate:"omitempty,dive"`
	WeekExclusions []WeekExclusionRequest `json:"weekExclusions" validate:"omitempty,dive"`
	Lessons        []LessonRequest        `json:"lessons" validate:"omitempty,max=500,dive"`
}

// UpdatePlanRequest changes plan metadata and the date range.
type UpdatePlanRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Subject    string `json:"subject" validate:"max=120"`
	GradeLevel string `json:"gradeLevel" validate:"max=40"`
	StartDate  string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// ReplaceLessonsRequest replaces the ordered lesson list.
type ReplaceLessonsRequest struct {
	Lessons []LessonRequest `json:"lessons" validate:"max=500,dive"`
}

// ReplaceExclusionsRequest replaces both exclusion lists.
type ReplaceExclusionsRequest struct {
	DayExclusions  []DayExclusionRequest  `json:"dayExclusions" validate:"omitempty,dive"`
	WeekExclusions []WeekExclusionRequest `json:"weekExclusions" validate:"omitempty,dive"`
}

// PlanQuery filters plan listings.
type PlanQuery struct {
	Subject    string `form:"subject"`
	GradeLevel string `form:"gradeLevel"`
	Mine       bool   `form:"mine"`
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
}

// PlanResponse is the API view of a term plan.
type PlanResponse struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Subject        string                 `json:"subject"`
	GradeLevel     string                 `json:"gradeLevel"`
	StartDate      string                 `json:"startDate"`
	EndDate        string                 `json:"endDate"`
	DayExclusions  []models.DayExclusion  `json:"dayExclusions"`
	WeekExclusions []models.WeekExclusion `json:"weekExclusions"`
	Lessons        []models.PlanLesson    `json:"lessons"`
	CreatedBy      *string                `json:"createdBy,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// NewPlanResponse decodes the stored exclusions into the response shape.
func NewPlanResponse(plan *models.TermPlan) (*PlanResponse, error) {
	days, weeks, err := plan.Exclusions()
	if err != nil {
		return nil, err
	}
	lessons := plan.Lessons
	if lessons == nil {
		lessons = []models.PlanLesson{}
	}
	return &PlanResponse{
		ID:             plan.ID,
		Name:           plan.Name,
		Subject:        plan.Subject,
		GradeLevel:     plan.GradeLevel,
		StartDate:      plan.StartDate.Format("2006-01-02"),
		EndDate:        plan.EndDate.Format("2006-01-02"),
		DayExclusions:  days,
		WeekExclusions: weeks,
		Lessons:        lessons,
		CreatedBy:      plan.CreatedBy,
		CreatedAt:      plan.CreatedAt,
		UpdatedAt:      plan.UpdatedAt,
	}, nil
}

// LessonDaysResponse lists the dates assigned to one lesson.
type LessonDaysResponse struct {
	LessonID     string   `json:"lessonId"`
	AssignedDays []string `json:"assignedDays"`
}

// ExportRequest asks for a rendered roadmap file.
type ExportRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=csv pdf CSV PDF"`
	View   string `json:"view" validate:"omitempty,oneof=roadmap distribution"`
}

// ExportResponse returns the signed download link.
type ExportResponse struct {
	ExportID  string    `json:"exportId"`
	Filename  string    `json:"filename"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
