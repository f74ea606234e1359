package planner

import "github.com/noah-isme/sma-roadmap-api/internal/models"

// EffectivePacing is the number of unblocked days a lesson consumes. Non-positive
// pacing counts as a single day.
func EffectivePacing(lesson models.Lesson) int {
	if lesson.Pacing < 1 {
		return 1
	}
	return lesson.Pacing
}

// Pack assigns unblocked days to lessons in order. It returns new week plans and
// leaves the input untouched.
func Pack(weeks []models.WeekPlan, lessons []models.Lesson) []models.WeekPlan {
	out := make([]models.WeekPlan, len(weeks))
	current := 0
	consumed := 0
	for i, week := range weeks {
		packed := week
		if week.WeekNumber != nil {
			n := *week.WeekNumber
			packed.WeekNumber = &n
		}
		packed.Days = make([]models.DayPlan, len(week.Days))
		for j, day := range week.Days {
			day.LessonID = ""
			day.LessonName = ""
			if !day.IsBlocked && current < len(lessons) {
				lesson := lessons[current]
				day.LessonID = lesson.ID
				day.LessonName = lesson.Name
				consumed++
				if consumed >= EffectivePacing(lesson) {
					current++
					consumed = 0
				}
			}
			packed.Days[j] = day
		}
		out[i] = packed
	}
	return out
}

// AssignedDays lists, in chronological order, the dates packed with the lesson.
func AssignedDays(weeks []models.WeekPlan, lessonID string) []string {
	days := make([]string, 0)
	if lessonID == "" {
		return days
	}
	for _, week := range weeks {
		for _, day := range week.Days {
			if day.LessonID == lessonID {
				days = append(days, day.Date)
			}
		}
	}
	return days
}

// LessonSchedules reports the assigned days of every lesson in input order.
func LessonSchedules(weeks []models.WeekPlan, lessons []models.Lesson) []models.LessonSchedule {
	byLesson := make(map[string][]string, len(lessons))
	for _, week := range weeks {
		for _, day := range week.Days {
			if day.LessonID != "" {
				byLesson[day.LessonID] = append(byLesson[day.LessonID], day.Date)
			}
		}
	}
	schedules := make([]models.LessonSchedule, 0, len(lessons))
	for _, lesson := range lessons {
		days := byLesson[lesson.ID]
		if days == nil {
			days = []string{}
		}
		schedules = append(schedules, models.LessonSchedule{
			LessonID:     lesson.ID,
			LessonName:   lesson.Name,
			Pacing:       EffectivePacing(lesson),
			AssignedDays: days,
			Complete:     len(days) == EffectivePacing(lesson),
		})
	}
	return schedules
}
