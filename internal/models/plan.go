package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TermPlan stores the inputs of a term roadmap. The derived schedule is rebuilt
// on every read and never persisted.
type TermPlan struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Subject        string         `db:"subject"`
	GradeLevel     string         `db:"grade_level"`
	StartDate      time.Time      `db:"start_date"`
	EndDate        time.Time      `db:"end_date"`
	DayExclusions  types.JSONText `db:"day_exclusions"`
	WeekExclusions types.JSONText `db:"week_exclusions"`
	CreatedBy      *string        `db:"created_by"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`

	Lessons []PlanLesson `db:"-"`
}

// PlanLesson is a lesson row owned by a term plan, ordered by Position.
type PlanLesson struct {
	Lesson
	PlanID   string `db:"plan_id" json:"-"`
	Position int    `db:"position" json:"position"`
}

// PlanFilter narrows plan listings.
type PlanFilter struct {
	Subject    string
	GradeLevel string
	CreatedBy  string
	Page       int
	PageSize   int
}

// SetExclusions encodes both exclusion lists into their JSONB columns.
func (p *TermPlan) SetExclusions(days []DayExclusion, weeks []WeekExclusion) error {
	if days == nil {
		days = []DayExclusion{}
	}
	if weeks == nil {
		weeks = []WeekExclusion{}
	}
	rawDays, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("encode day exclusions: %w", err)
	}
	rawWeeks, err := json.Marshal(weeks)
	if err != nil {
		return fmt.Errorf("encode week exclusions: %w", err)
	}
	p.DayExclusions = types.JSONText(rawDays)
	p.WeekExclusions = types.JSONText(rawWeeks)
	return nil
}

// Exclusions decodes the JSONB columns. NULL or empty columns decode to empty lists.
func (p *TermPlan) Exclusions() ([]DayExclusion, []WeekExclusion, error) {
	days := []DayExclusion{}
	weeks := []WeekExclusion{}
	if len(p.DayExclusions) > 0 && string(p.DayExclusions) != "null" {
		if err := p.DayExclusions.Unmarshal(&days); err != nil {
			return nil, nil, fmt.Errorf("decode day exclusions: %w", err)
		}
	}
	if len(p.WeekExclusions) > 0 && string(p.WeekExclusions) != "null" {
		if err := p.WeekExclusions.Unmarshal(&weeks); err != nil {
			return nil, nil, fmt.Errorf("decode week exclusions: %w", err)
		}
	}
	return days, weeks, nil
}

// RoadmapInput converts the stored plan into planner input.
func (p *TermPlan) RoadmapInput() (RoadmapInput, error) {
	days, weeks, err := p.Exclusions()
	if err != nil {
		return RoadmapInput{}, err
	}
	lessons := make([]Lesson, len(p.Lessons))
	for i, l := range p.Lessons {
		lessons[i] = l.Lesson
	}
	return RoadmapInput{
		StartDate:      p.StartDate.Format("2006-01-02"),
		EndDate:        p.EndDate.Format("2006-01-02"),
		DayExclusions:  days,
		WeekExclusions: weeks,
		Lessons:        lessons,
	}, nil
}
