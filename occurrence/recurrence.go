// Package occurrence materializes task occurrences and classifies their check-in lifecycle.
package occurrence

import (
	"time"

	"github.com/cppla/careping/clock"
	"github.com/cppla/careping/models"
)

// IsActive reports whether task has an occurrence on the calendar day of date.
func IsActive(task *models.Task, date time.Time) bool {
	switch task.RepeatType {
	case models.RepeatOnce:
		return clock.SameDay(task.RemindAt.In(date.Location()), date)
	case models.RepeatDaily:
		return true
	case models.RepeatWeekdays:
		wd := date.Weekday()
		return wd >= time.Monday && wd <= time.Friday
	case models.RepeatWeekends:
		wd := date.Weekday()
		return wd == time.Saturday || wd == time.Sunday
	}
	return false
}

// Occurrence is one calendar-day instance of a task. It is derived, never stored.
type Occurrence struct {
	Task   *models.Task
	Date   time.Time // midnight of the occurrence day
	Target time.Time
}

// DateKey formats the occurrence day for log and marker keys.
func (o Occurrence) DateKey() string {
	return o.Date.Format(models.DateLayout)
}

// Target resolves the due instant of task on date: the fixed instant for ONCE tasks,
// otherwise date combined with the task's time of day in date's location.
func Target(task *models.Task, date time.Time) time.Time {
	loc := date.Location()
	at := task.RemindAt.In(loc)
	if task.RepeatType == models.RepeatOnce {
		return at
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, at.Hour(), at.Minute(), at.Second(), 0, loc)
}

// Materialize returns the occurrences of tasks that fall on date. Disabled tasks are skipped.
func Materialize(tasks []models.Task, date time.Time) []Occurrence {
	day := clock.DayStart(date)
	out := make([]Occurrence, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if !t.Enabled || !IsActive(t, day) {
			continue
		}
		out = append(out, Occurrence{Task: t, Date: day, Target: Target(t, day)})
	}
	return out
}
