package planner

import "github.com/noah-isme/sma-roadmap-api/internal/models"

// Planner runs the allocation pipeline for a fixed instructional day pattern.
type Planner struct {
	pattern Pattern
}

// New returns a planner. An empty pattern falls back to DefaultPattern.
func New(pattern Pattern) *Planner {
	if pattern.Len() == 0 {
		pattern = DefaultPattern()
	}
	return &Planner{pattern: pattern}
}

// Pattern returns the instructional day pattern.
func (p *Planner) Pattern() Pattern {
	return p.pattern
}

// Weeks runs enumerate, resolve and pack.
func (p *Planner) Weeks(input models.RoadmapInput) []models.WeekPlan {
	rng := NewDateRange(input.StartDate, input.EndDate)
	resolved := Resolve(Enumerate(rng, p.pattern), input.DayExclusions, input.WeekExclusions)
	return Pack(resolved, input.Lessons)
}

// Stats returns the aggregate capacity for the input range and exclusions.
func (p *Planner) Stats(input models.RoadmapInput) models.RoadmapStats {
	return Stats(NewDateRange(input.StartDate, input.EndDate), p.pattern, input.DayExclusions, input.WeekExclusions)
}

// WeekRanges returns the week picker entries for a range.
func (p *Planner) WeekRanges(start, end string) []models.WeekRange {
	return WeekRanges(NewDateRange(start, end), p.pattern)
}

// Build produces the complete roadmap with every derived view.
func (p *Planner) Build(input models.RoadmapInput) models.Roadmap {
	weeks := p.Weeks(input)
	stats := p.Stats(input)
	return models.Roadmap{
		Weeks:        weeks,
		Stats:        stats,
		Capacity:     PlanCapacity(input.Lessons, stats),
		WeekRanges:   p.WeekRanges(input.StartDate, input.EndDate),
		Lessons:      LessonSchedules(weeks, input.Lessons),
		Distribution: Distribution(weeks),
	}
}
