package planner

import "github.com/noah-isme/sma-roadmap-api/internal/models"

// Stats counts the unblocked instructional days in the range with a single walk
// over the calendar. Any week exclusion blocks its week, whatever its count flag.
func Stats(rng DateRange, pattern Pattern, dayExclusions []models.DayExclusion, weekExclusions []models.WeekExclusion) models.RoadmapStats {
	if !rng.Valid() || pattern.Len() == 0 {
		return models.RoadmapStats{}
	}
	blockedDays := indexDayExclusions(dayExclusions)
	blockedWeeks := indexWeekExclusions(weekExclusions)

	anchor := alignToAnchor(rng.Start, pattern.Anchor())
	lastBucket := -1
	rawNumber := 0
	available := 0
	for day := rng.Start; !day.After(rng.End); day = day.AddDate(0, 0, 1) {
		if !pattern.Contains(day.Weekday()) {
			continue
		}
		if bucket := daysBetween(anchor, day) / 7; bucket != lastBucket {
			lastBucket = bucket
			rawNumber++
		}
		if _, blocked := blockedWeeks[rawNumber]; blocked {
			continue
		}
		if _, blocked := blockedDays[day.Format(DateLayout)]; blocked {
			continue
		}
		available++
	}

	return models.RoadmapStats{
		TotalAvailableDays:  available,
		TotalAvailableWeeks: (available + pattern.Len() - 1) / pattern.Len(),
	}
}

// WeekRanges lists every non-empty raw week with its date label, ignoring exclusions.
func WeekRanges(rng DateRange, pattern Pattern) []models.WeekRange {
	ranges := make([]models.WeekRange, 0)
	rawNumber := 0
	for _, week := range Enumerate(rng, pattern) {
		if len(week.Days) == 0 {
			continue
		}
		rawNumber++
		ranges = append(ranges, models.WeekRange{
			RawWeekNumber: rawNumber,
			Label:         formatRangeLabel(week.Days[0], week.Days[len(week.Days)-1]),
		})
	}
	return ranges
}

// Distribution summarises, per week, how many days each lesson receives there.
func Distribution(weeks []models.WeekPlan) []models.WeekDistribution {
	rows := make([]models.WeekDistribution, 0, len(weeks))
	for _, week := range weeks {
		row := models.WeekDistribution{
			RawWeekNumber: week.RawWeekNumber,
			DisplayLabel:  week.DisplayLabel,
			DateRange:     week.DateRange,
			IsBlocked:     week.IsBlocked,
			BlockLabel:    week.BlockLabel,
			Lessons:       make([]models.LessonSpan, 0),
		}
		if week.WeekNumber != nil {
			n := *week.WeekNumber
			row.WeekNumber = &n
		}
		position := make(map[string]int)
		for _, day := range week.Days {
			if !day.IsBlocked {
				row.AvailableDays++
			}
			if day.LessonID == "" {
				continue
			}
			idx, seen := position[day.LessonID]
			if !seen {
				idx = len(row.Lessons)
				position[day.LessonID] = idx
				row.Lessons = append(row.Lessons, models.LessonSpan{LessonID: day.LessonID, LessonName: day.LessonName})
			}
			row.Lessons[idx].Days++
		}
		rows = append(rows, row)
	}
	return rows
}

// PlanCapacity compares the lessons' total pacing with the available days.
func PlanCapacity(lessons []models.Lesson, stats models.RoadmapStats) models.Capacity {
	planned := 0
	for _, lesson := range lessons {
		planned += EffectivePacing(lesson)
	}
	return models.Capacity{
		PlannedDays:   planned,
		AvailableDays: stats.TotalAvailableDays,
		RemainingDays: stats.TotalAvailableDays - planned,
		OverCapacity:  planned > stats.TotalAvailableDays,
	}
}
