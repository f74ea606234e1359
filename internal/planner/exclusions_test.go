package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roadmap-api/internal/models"
)

// threeWeeks spans Sun Sep 1 to Thu Sep 19, 2024.
func threeWeeks() []RawWeek {
	return Enumerate(NewDateRange("2024-09-01", "2024-09-19"), DefaultPattern())
}

func weekNumbers(plans []models.WeekPlan) []int {
	out := make([]int, len(plans))
	for i, p := range plans {
		if p.WeekNumber == nil {
			out[i] = 0
			continue
		}
		out[i] = *p.WeekNumber
	}
	return out
}

func TestResolveWithoutExclusions(t *testing.T) {
	plans := Resolve(threeWeeks(), nil, nil)
	require.Len(t, plans, 3)
	assert.Equal(t, []int{1, 2, 3}, weekNumbers(plans))
	assert.Equal(t, "Week 1", plans[0].DisplayLabel)
	assert.Equal(t, "Sep 1 - Sep 5", plans[0].DateRange)
	assert.Equal(t, "Sunday", plans[0].Days[0].Weekday)
	for _, p := range plans {
		assert.False(t, p.IsBlocked)
		for _, d := range p.Days {
			assert.False(t, d.IsBlocked)
		}
	}
}

func TestResolveDayExclusion(t *testing.T) {
	plans := Resolve(threeWeeks(), []models.DayExclusion{
		{Date: "2024-09-03", Label: "Staff Meeting", Category: models.ExclusionCategoryMeeting},
		{Date: "2024-09-03", Label: "Duplicate", Category: models.ExclusionCategoryEvent},
		{Date: "not-a-date", Label: "Ignored", Category: models.ExclusionCategoryEvent},
	}, nil)
	require.Len(t, plans, 3)
	day := plans[0].Days[2]
	assert.Equal(t, "2024-09-03", day.Date)
	assert.True(t, day.IsBlocked)
	assert.Equal(t, "Staff Meeting", day.BlockLabel)
	assert.False(t, plans[0].IsBlocked)
	assert.Equal(t, []int{1, 2, 3}, weekNumbers(plans))
}

func TestResolveExcludedFromCountWeek(t *testing.T) {
	plans := Resolve(threeWeeks(), nil, []models.WeekExclusion{
		{WeekNumber: 2, Label: "Mid-term Break", Category: models.ExclusionCategoryHoliday, ExcludeFromCount: true},
	})
	require.Len(t, plans, 3)
	assert.Equal(t, []int{1, 0, 2}, weekNumbers(plans))
	assert.Nil(t, plans[1].WeekNumber)
	assert.Equal(t, "Mid-term Break", plans[1].DisplayLabel)
	assert.Equal(t, "Week 2", plans[2].DisplayLabel)
	assert.True(t, plans[1].IsBlocked)
	assert.Equal(t, 2, plans[1].RawWeekNumber)
	for _, d := range plans[1].Days {
		assert.True(t, d.IsBlocked)
		assert.Equal(t, "Mid-term Break", d.BlockLabel)
	}
}

func TestResolveExcludedFromCountFallbackLabel(t *testing.T) {
	plans := Resolve(threeWeeks(), nil, []models.WeekExclusion{{WeekNumber: 1, ExcludeFromCount: true}})
	assert.Equal(t, HolidayBreakLabel, plans[0].DisplayLabel)
	assert.Equal(t, HolidayBreakLabel, plans[0].BlockLabel)
	assert.Equal(t, []int{0, 1, 2}, weekNumbers(plans))
}

func TestResolveCountedBlockedWeekKeepsNumber(t *testing.T) {
	plans := Resolve(threeWeeks(), []models.DayExclusion{
		{Date: "2024-09-10", Label: "Exam Day", Category: models.ExclusionCategoryExam},
	}, []models.WeekExclusion{
		{WeekNumber: 2, Label: "Exam Week", Category: models.ExclusionCategoryExam, ExcludeFromCount: false},
	})
	assert.Equal(t, []int{1, 2, 3}, weekNumbers(plans))
	assert.Equal(t, "Week 2", plans[1].DisplayLabel)
	assert.True(t, plans[1].IsBlocked)
	assert.Equal(t, "Exam Week", plans[1].BlockLabel)
	for _, d := range plans[1].Days {
		assert.True(t, d.IsBlocked)
		assert.Equal(t, "Exam Week", d.BlockLabel)
	}
}

func TestResolveIgnoresUnmatchableWeekExclusions(t *testing.T) {
	plans := Resolve(threeWeeks(), nil, []models.WeekExclusion{
		{WeekNumber: 0, Label: "Zero", ExcludeFromCount: true},
		{WeekNumber: -3, Label: "Negative", ExcludeFromCount: true},
		{WeekNumber: 40, Label: "Past the end", ExcludeFromCount: true},
	})
	assert.Equal(t, []int{1, 2, 3}, weekNumbers(plans))
	for _, p := range plans {
		assert.False(t, p.IsBlocked)
	}
}

func TestResolveFirstWeekExclusionWins(t *testing.T) {
	plans := Resolve(threeWeeks(), nil, []models.WeekExclusion{
		{WeekNumber: 3, Label: "Counted", ExcludeFromCount: false},
		{WeekNumber: 3, Label: "Dropped", ExcludeFromCount: true},
	})
	assert.Equal(t, []int{1, 2, 3}, weekNumbers(plans))
	assert.Equal(t, "Counted", plans[2].BlockLabel)
}

func TestResolveSkipsEmptyBucketsForRawNumbering(t *testing.T) {
	raw := Enumerate(NewDateRange("2024-09-06", "2024-09-19"), DefaultPattern())
	require.Len(t, raw, 3)
	plans := Resolve(raw, nil, []models.WeekExclusion{{WeekNumber: 1, Label: "First", ExcludeFromCount: true}})
	require.Len(t, plans, 2)
	assert.Equal(t, 1, plans[0].RawWeekNumber)
	assert.Equal(t, "First", plans[0].DisplayLabel)
	assert.Equal(t, "2024-09-08", plans[0].Days[0].Date)
	assert.Equal(t, []int{0, 1}, weekNumbers(plans))
}

func TestResolveWeekFullyBlockedByDays(t *testing.T) {
	raw := Enumerate(NewDateRange("2024-09-01", "2024-09-02"), DefaultPattern())
	plans := Resolve(raw, []models.DayExclusion{
		{Date: "2024-09-01", Label: "Opening Ceremony"},
		{Date: "2024-09-02", Label: "Orientation"},
	}, nil)
	require.Len(t, plans, 1)
	assert.True(t, plans[0].IsBlocked)
	assert.Equal(t, "Opening Ceremony", plans[0].BlockLabel)
	require.NotNil(t, plans[0].WeekNumber)
	assert.Equal(t, 1, *plans[0].WeekNumber)
}

func TestResolveSequentialNumbersAreGapless(t *testing.T) {
	raw := Enumerate(NewDateRange("2024-09-01", "2024-12-19"), DefaultPattern())
	plans := Resolve(raw, nil, []models.WeekExclusion{
		{WeekNumber: 2, ExcludeFromCount: true},
		{WeekNumber: 5, ExcludeFromCount: false},
		{WeekNumber: 6, ExcludeFromCount: true},
		{WeekNumber: 7, ExcludeFromCount: true},
		{WeekNumber: 12, ExcludeFromCount: true},
	})
	expected := 1
	counted := 0
	for i, p := range plans {
		assert.Equal(t, i+1, p.RawWeekNumber)
		if p.WeekNumber == nil {
			continue
		}
		assert.Equal(t, expected, *p.WeekNumber)
		expected++
		counted++
	}
	assert.Equal(t, len(plans)-4, counted)
}
