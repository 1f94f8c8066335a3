package attendance

import (
	"fmt"
	"time"
)

func userKey(userID uint, year int) string {
	return fmt.Sprintf("checkin:user:%d:%d", userID, year)
}

func userTaskKey(userID, taskID uint, year int) string {
	return fmt.Sprintf("checkin:user:%d:task:%d:%d", userID, taskID, year)
}

func taskKey(taskID uint, year int) string {
	return fmt.Sprintf("checkin:task:%d:%d", taskID, year)
}

// offset is the zero-based day of year, the bit index inside a yearly vector.
func offset(d time.Time) int64 {
	return int64(d.YearDay() - 1)
}

func daysInYear(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}
