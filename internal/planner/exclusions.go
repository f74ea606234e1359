package planner

import (
	"fmt"
	"strings"

	"github.com/noah-isme/sma-roadmap-api/internal/models"
)

// HolidayBreakLabel names an excluded-from-count week whose exclusion has no label.
const HolidayBreakLabel = "Holiday Break"

// Resolve annotates enumerated weeks with exclusions and sequential week numbers.
// Week exclusions match on the raw index of non-empty weeks; records that cannot
// match (bad dates, week numbers below 1) are ignored.
func Resolve(raw []RawWeek, dayExclusions []models.DayExclusion, weekExclusions []models.WeekExclusion) []models.WeekPlan {
	blockedDays := indexDayExclusions(dayExclusions)
	blockedWeeks := indexWeekExclusions(weekExclusions)

	plans := make([]models.WeekPlan, 0, len(raw))
	rawNumber := 0
	counter := 0
	for _, week := range raw {
		if len(week.Days) == 0 {
			continue
		}
		rawNumber++
		exclusion, weekBlocked := blockedWeeks[rawNumber]

		plan := models.WeekPlan{
			RawWeekNumber: rawNumber,
			DateRange:     formatRangeLabel(week.Days[0], week.Days[len(week.Days)-1]),
			Days:          make([]models.DayPlan, 0, len(week.Days)),
		}

		allBlocked := true
		for _, day := range week.Days {
			key := day.Format(DateLayout)
			dayLabel, dayBlocked := blockedDays[key]
			dp := models.DayPlan{
				Date:      key,
				Weekday:   day.Weekday().String(),
				IsBlocked: dayBlocked || weekBlocked,
			}
			switch {
			case weekBlocked && exclusion.Label != "":
				dp.BlockLabel = exclusion.Label
			case dayBlocked:
				dp.BlockLabel = dayLabel
			case weekBlocked:
				dp.BlockLabel = HolidayBreakLabel
			}
			if !dp.IsBlocked {
				allBlocked = false
			}
			plan.Days = append(plan.Days, dp)
		}

		if weekBlocked && exclusion.ExcludeFromCount {
			plan.DisplayLabel = labelOr(exclusion.Label, HolidayBreakLabel)
		} else {
			counter++
			n := counter
			plan.WeekNumber = &n
			plan.DisplayLabel = fmt.Sprintf("Week %d", n)
		}

		switch {
		case weekBlocked:
			plan.IsBlocked = true
			plan.BlockLabel = labelOr(exclusion.Label, HolidayBreakLabel)
		case allBlocked:
			plan.IsBlocked = true
			plan.BlockLabel = plan.Days[0].BlockLabel
		}

		plans = append(plans, plan)
	}
	return plans
}

// indexDayExclusions maps normalised dates to the first matching label.
func indexDayExclusions(exclusions []models.DayExclusion) map[string]string {
	index := make(map[string]string, len(exclusions))
	for _, ex := range exclusions {
		day, ok := ParseDate(ex.Date)
		if !ok {
			continue
		}
		key := day.Format(DateLayout)
		if _, exists := index[key]; exists {
			continue
		}
		index[key] = strings.TrimSpace(ex.Label)
	}
	return index
}

// indexWeekExclusions keeps the first exclusion declared for each raw week.
func indexWeekExclusions(exclusions []models.WeekExclusion) map[int]models.WeekExclusion {
	index := make(map[int]models.WeekExclusion, len(exclusions))
	for _, ex := range exclusions {
		if ex.WeekNumber < 1 {
			continue
		}
		if _, exists := index[ex.WeekNumber]; exists {
			continue
		}
		ex.Label = strings.TrimSpace(ex.Label)
		index[ex.WeekNumber] = ex
	}
	return index
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
