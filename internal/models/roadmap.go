package models

// ExclusionCategory classifies a calendar exclusion. It is display metadata only.
type ExclusionCategory string

const (
	ExclusionCategoryExam     ExclusionCategory = "Exam"
	ExclusionCategoryRevision ExclusionCategory = "Revision"
	ExclusionCategoryEvent    ExclusionCategory = "Event"
	ExclusionCategoryHoliday  ExclusionCategory = "Holiday"
	ExclusionCategoryMeeting  ExclusionCategory = "Meeting"
)

// ExclusionCategories lists the accepted categories in display order.
var ExclusionCategories = []ExclusionCategory{
	ExclusionCategoryExam,
	ExclusionCategoryRevision,
	ExclusionCategoryEvent,
	ExclusionCategoryHoliday,
	ExclusionCategoryMeeting,
}

// Valid reports whether the category belongs to the closed category set.
func (c ExclusionCategory) Valid() bool {
	for _, known := range ExclusionCategories {
		if c == known {
			return true
		}
	}
	return false
}

// DayExclusion blocks one calendar date.
type DayExclusion struct {
	Date     string            `json:"date" yaml:"date"`
	Label    string            `json:"label" yaml:"label"`
	Category ExclusionCategory `json:"category" yaml:"category"`
}

// WeekExclusion blocks every instructional day of a raw week. WeekNumber is the
// 1-based raw week index, not the sequential display number.
type WeekExclusion struct {
	WeekNumber       int               `json:"weekNumber" yaml:"weekNumber"`
	Label            string            `json:"label" yaml:"label"`
	Category         ExclusionCategory `json:"category" yaml:"category"`
	ExcludeFromCount bool              `json:"excludeFromCount" yaml:"excludeFromCount"`
}

// Lesson is a unit of instruction consuming Pacing unblocked days.
type Lesson struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	StandardRef string `db:"standard_ref" json:"standard"`
	Pacing      int    `db:"pacing" json:"pacing"`
}

// DayPlan is one instructional day of the roadmap.
type DayPlan struct {
	Date       string `json:"date"`
	Weekday    string `json:"weekday"`
	IsBlocked  bool   `json:"isBlocked"`
	BlockLabel string `json:"blockLabel,omitempty"`
	LessonID   string `json:"lessonId,omitempty"`
	LessonName string `json:"lessonName,omitempty"`
}

// WeekPlan groups the instructional days of one raw week. WeekNumber is nil when
// the week is excluded from the sequential count.
type WeekPlan struct {
	RawWeekNumber int       `json:"rawWeekNumber"`
	WeekNumber    *int      `json:"weekNumber,omitempty"`
	DisplayLabel  string    `json:"displayLabel"`
	DateRange     string    `json:"dateRange"`
	Days          []DayPlan `json:"days"`
	IsBlocked     bool      `json:"isBlocked"`
	BlockLabel    string    `json:"blockLabel,omitempty"`
}

// RoadmapStats summarises calendar capacity.
type RoadmapStats struct {
	TotalAvailableDays  int `json:"totalAvailableDays"`
	TotalAvailableWeeks int `json:"totalAvailableWeeks"`
}

// WeekRange feeds week pickers with raw week numbers and their dates.
type WeekRange struct {
	RawWeekNumber int    `json:"rawWeekNumber"`
	Label         string `json:"label"`
}

// Capacity compares planned pacing against the available days.
type Capacity struct {
	PlannedDays   int  `json:"plannedDays"`
	AvailableDays int  `json:"availableDays"`
	RemainingDays int  `json:"remainingDays"`
	OverCapacity  bool `json:"overCapacity"`
}

// LessonSpan counts the days a lesson occupies inside one week.
type LessonSpan struct {
	LessonID   string `json:"lessonId"`
	LessonName string `json:"lessonName"`
	Days       int    `json:"days"`
}

// WeekDistribution is the week-level summary row of a roadmap.
type WeekDistribution struct {
	RawWeekNumber int          `json:"rawWeekNumber"`
	WeekNumber    *int         `json:"weekNumber,omitempty"`
	DisplayLabel  string       `json:"displayLabel"`
	DateRange     string       `json:"dateRange"`
	AvailableDays int          `json:"availableDays"`
	IsBlocked     bool         `json:"isBlocked"`
	BlockLabel    string       `json:"blockLabel,omitempty"`
	Lessons       []LessonSpan `json:"lessons"`
}

// LessonSchedule lists the dates a lesson was packed onto.
type LessonSchedule struct {
	LessonID     string   `json:"lessonId"`
	LessonName   string   `json:"lessonName"`
	Pacing       int      `json:"pacing"`
	AssignedDays []string `json:"assignedDays"`
	Complete     bool     `json:"complete"`
}

// RoadmapInput carries the raw planner inputs.
type RoadmapInput struct {
	StartDate      string
	EndDate        string
	DayExclusions  []DayExclusion
	WeekExclusions []WeekExclusion
	Lessons        []Lesson
}

// Roadmap is the full derived view of a term plan. It is recomputed on demand.
type Roadmap struct {
	Weeks        []WeekPlan         `json:"weeks"`
	Stats        RoadmapStats       `json:"stats"`
	Capacity     Capacity           `json:"capacity"`
	WeekRanges   []WeekRange        `json:"weekRanges"`
	Lessons      []LessonSchedule   `json:"lessons"`
	Distribution []WeekDistribution `json:"distribution"`
}

// LessonDetail holds descriptive text produced by the enrichment service.
type LessonDetail struct {
	LessonID    string `json:"lessonId"`
	Objectives  string `json:"objectives"`
	Activities  string `json:"activities"`
	Assessment  string `json:"assessment"`
	Placeholder bool   `json:"placeholder"`
}
