package dto

import "github.com/noah-isme/sma-roadmap-api/internal/models"

// DayExclusionRequest blocks a single date.
type DayExclusionRequest struct {
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Label    string `json:"label" validate:"max=120"`
	Category string `json:"category" validate:"omitempty,exclusion_category"`
}

// PreviewDayExclusionRequest is the lenient form accepted by previews and
// stats. A date that does not parse is kept and never matches a day.
type PreviewDayExclusionRequest struct {
	Date     string `json:"date" validate:"required,max=32"`
	Label    string `json:"label" validate:"max=120"`
	Category string `json:"category" validate:"omitempty,exclusion_category"`
}

// WeekExclusionRequest blocks a raw week.
type WeekExclusionRequest struct {
	WeekNumber       int    `json:"weekNumber" validate:"required,min=1"`
	Label            string `json:"label" validate:"max=120"`
	Category         string `json:"category" validate:"omitempty,exclusion_category"`
	ExcludeFromCount bool   `json:"excludeFromCount"`
}

// LessonRequest describes one lesson in plan order.
type LessonRequest struct {
	ID       string `json:"id" validate:"omitempty,max=64"`
	Name     string `json:"name" validate:"required,max=200"`
	Standard string `json:"standard" validate:"max=120"`
	Pacing   int    `json:"pacing" validate:"min=0,max=366"`
}

// RoadmapPreviewRequest builds a roadmap without persisting anything.
type RoadmapPreviewRequest struct {
	StartDate      string                       `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate        string                       `json:"endDate" validate:"required,datetime=2006-01-02"`
	DayExclusions  []PreviewDayExclusionRequest `json:"dayExclusions" validate:"omitempty,dive"`
	WeekExclusions []WeekExclusionRequest       `json:"weekExclusions" validate:"omitempty,dive"`
	Lessons        []LessonRequest              `json:"lessons" validate:"omitempty,max=500,dive"`
}

// RoadmapStatsRequest asks for capacity figures only.
type RoadmapStatsRequest struct {
	StartDate      string                       `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate        string                       `json:"endDate" validate:"required,datetime=2006-01-02"`
	DayExclusions  []PreviewDayExclusionRequest `json:"dayExclusions" validate:"omitempty,dive"`
	WeekExclusions []WeekExclusionRequest       `json:"weekExclusions" validate:"omitempty,dive"`
}

// WeekRangesQuery feeds the week picker.
type WeekRangesQuery struct {
	Start string `form:"start" validate:"required,datetime=2006-01-02"`
	End   string `form:"end" validate:"required,datetime=2006-01-02"`
}

// ToDayExclusions maps request items onto model values.
func ToDayExclusions(items []DayExclusionRequest) []models.DayExclusion {
	out := make([]models.DayExclusion, len(items))
	for i, item := range items {
		out[i] = models.DayExclusion{Date: item.Date, Label: item.Label, Category: models.ExclusionCategory(item.Category)}
	}
	return out
}

// PreviewDayExclusions maps lenient request items onto model values.
func PreviewDayExclusions(items []PreviewDayExclusionRequest) []models.DayExclusion {
	strict := make([]DayExclusionRequest, len(items))
	for i, item := range items {
		strict[i] = DayExclusionRequest(item)
	}
	return ToDayExclusions(strict)
}

// ToWeekExclusions maps request items onto model values.
func ToWeekExclusions(items []WeekExclusionRequest) []models.WeekExclusion {
	out := make([]models.WeekExclusion, len(items))
	for i, item := range items {
		out[i] = models.WeekExclusion{
			WeekNumber:       item.WeekNumber,
			Label:            item.Label,
			Category:         models.ExclusionCategory(item.Category),
			ExcludeFromCount: item.ExcludeFromCount,
		}
	}
	return out
}

// ToLessons maps request items onto model values. Missing IDs are left empty
// for the service to fill.
func ToLessons(items []LessonRequest) []models.Lesson {
	out := make([]models.Lesson, len(items))
	for i, item := range items {
		out[i] = models.Lesson{ID: item.ID, Name: item.Name, StandardRef: item.Standard, Pacing: item.Pacing}
	}
	return out
}
