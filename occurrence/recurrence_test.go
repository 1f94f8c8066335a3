package occurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/careping/clock"
	"github.com/cppla/careping/models"
)

var shanghai = time.FixedZone("CST", 8*3600)

func recurring(rt models.RepeatType) *models.Task {
	return &models.Task{
		ID:         1,
		RepeatType: rt,
		RemindAt:   time.Date(2023, 6, 1, 10, 0, 0, 0, shanghai),
		Enabled:    true,
	}
}

func TestIsActive_WeekdaysAcrossLeapYear(t *testing.T) {
	weekdays := recurring(models.RepeatWeekdays)
	weekends := recurring(models.RepeatWeekends)
	daily := recurring(models.RepeatDaily)

	start := time.Date(2023, 6, 1, 0, 0, 0, 0, shanghai)
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, shanghai)
	var sawLeapDay bool
	for d := start; d.Before(end); d = clock.AddDays(d, 1) {
		wd := d.Weekday()
		isWeekday := wd >= time.Monday && wd <= time.Friday
		assert.Equal(t, isWeekday, IsActive(weekdays, d), d.Format(models.DateLayout))
		assert.Equal(t, !isWeekday, IsActive(weekends, d), d.Format(models.DateLayout))
		assert.True(t, IsActive(daily, d))
		if d.Month() == time.February && d.Day() == 29 {
			sawLeapDay = true
		}
	}
	assert.True(t, sawLeapDay)
}

func TestIsActive_OnceMatchesCalendarDayOnly(t *testing.T) {
	once := recurring(models.RepeatOnce)
	once.RemindAt = time.Date(2024, 2, 29, 23, 50, 0, 0, shanghai)

	assert.True(t, IsActive(once, time.Date(2024, 2, 29, 0, 0, 0, 0, shanghai)))
	assert.True(t, IsActive(once, time.Date(2024, 2, 29, 8, 0, 0, 0, shanghai)))
	assert.False(t, IsActive(once, time.Date(2024, 3, 1, 0, 0, 0, 0, shanghai)))
	assert.False(t, IsActive(once, time.Date(2025, 2, 28, 0, 0, 0, 0, shanghai)))
}

func TestIsActive_UnknownRepeatType(t *testing.T) {
	assert.False(t, IsActive(recurring("HOURLY"), time.Date(2024, 1, 1, 0, 0, 0, 0, shanghai)))
}

func TestTarget(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, shanghai)

	daily := recurring(models.RepeatDaily)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, shanghai), Target(daily, day))

	once := recurring(models.RepeatOnce)
	once.RemindAt = time.Date(2024, 3, 4, 21, 15, 0, 0, shanghai)
	assert.True(t, Target(once, day).Equal(once.RemindAt))
}

func TestTarget_ConvertsStoredInstantToLocalTimeOfDay(t *testing.T) {
	task := recurring(models.RepeatDaily)
	task.RemindAt = time.Date(2023, 6, 1, 2, 0, 0, 0, time.UTC) // 10:00 in UTC+8

	got := Target(task, time.Date(2024, 7, 9, 0, 0, 0, 0, shanghai))
	assert.Equal(t, time.Date(2024, 7, 9, 10, 0, 0, 0, shanghai), got)
}

func TestMaterialize_SkipsDisabledAndInactive(t *testing.T) {
	monday := time.Date(2024, 3, 4, 15, 0, 0, 0, shanghai)
	tasks := []models.Task{
		{ID: 1, RepeatType: models.RepeatDaily, RemindAt: monday, Enabled: true},
		{ID: 2, RepeatType: models.RepeatWeekends, RemindAt: monday, Enabled: true},
		{ID: 3, RepeatType: models.RepeatWeekdays, RemindAt: monday, Enabled: false},
		{ID: 4, RepeatType: models.RepeatWeekdays, RemindAt: monday, Enabled: true},
	}

	occs := Materialize(tasks, monday)
	require.Len(t, occs, 2)
	assert.Equal(t, uint(1), occs[0].Task.ID)
	assert.Equal(t, uint(4), occs[1].Task.ID)
	assert.Equal(t, "2024-03-04", occs[0].DateKey())
	assert.Equal(t, time.Date(2024, 3, 4, 15, 0, 0, 0, shanghai), occs[1].Target)
}
