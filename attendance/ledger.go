// Package attendance keeps one presence bit per user per day of year in Redis
// and answers range, streak and recent-history queries from those bitmaps.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/careping/clock"
)

const maxStreakDays = 365

// Ledger is the bitmap-backed attendance store.
type Ledger struct {
	rdb     redis.Cmdable
	clock   clock.Clock
	timeout time.Duration
}

// NewLedger builds a ledger. timeout bounds every Redis round trip.
func NewLedger(rdb redis.Cmdable, clk clock.Clock, timeout time.Duration) *Ledger {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Ledger{rdb: rdb, clock: clk, timeout: timeout}
}

// DailyStat is one day of the recent-history strip.
type DailyStat struct {
	Date      string `json:"date"`
	CheckedIn bool   `json:"checked_in"`
	Count     int    `json:"count"`
}

// Record marks userID present on date.
func (l *Ledger) Record(ctx context.Context, userID uint, date time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if err := l.rdb.SetBit(ctx, userKey(userID, date.Year()), offset(date), 1).Err(); err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}
	return nil
}

// RecordTask marks userID present on date overall, for taskID, and on the task's own vector.
func (l *Ledger) RecordTask(ctx context.Context, userID, taskID uint, date time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	year, off := date.Year(), offset(date)
	pipe := l.rdb.Pipeline()
	pipe.SetBit(ctx, userKey(userID, year), off, 1)
	pipe.SetBit(ctx, userTaskKey(userID, taskID, year), off, 1)
	pipe.SetBit(ctx, taskKey(taskID, year), off, 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record task attendance: %w", err)
	}
	return nil
}

// IsSet reports whether userID checked in on date.
func (l *Ledger) IsSet(ctx context.Context, userID uint, date time.Time) (bool, error) {
	return l.getBit(ctx, userKey(userID, date.Year()), offset(date))
}

// IsTaskSet reports whether userID checked in for taskID on date.
func (l *Ledger) IsTaskSet(ctx context.Context, userID, taskID uint, date time.Time) (bool, error) {
	return l.getBit(ctx, userTaskKey(userID, taskID, date.Year()), offset(date))
}

func (l *Ledger) getBit(ctx context.Context, key string, off int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	v, err := l.rdb.GetBit(ctx, key, off).Result()
	if err != nil {
		return false, fmt.Errorf("read attendance %s: %w", key, err)
	}
	return v == 1, nil
}

// fetch loads the bytes covering bits [from, to] of key in a single GETRANGE.
func (l *Ledger) fetch(ctx context.Context, key string, from, to int) (vector, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	first, last := from/8, to/8
	s, err := l.rdb.GetRange(ctx, key, int64(first), int64(last)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return vector{}, fmt.Errorf("load attendance %s: %w", key, err)
	}
	return vector{buf: []byte(s), base: first * 8}, nil
}

func (l *Ledger) fetchYear(ctx context.Context, userID uint, year int) (vector, error) {
	return l.fetch(ctx, userKey(userID, year), 0, daysInYear(year)-1)
}

// CountInRange counts the days in [start, end] on which userID checked in.
// Ranges crossing Dec 31 are split per year and summed.
func (l *Ledger) CountInRange(ctx context.Context, userID uint, start, end time.Time) (int, error) {
	start, end = clock.DayStart(start), clock.DayStart(end)
	if end.Before(start) {
		return 0, nil
	}
	total := 0
	for year := start.Year(); year <= end.Year(); year++ {
		from, to := 0, daysInYear(year)-1
		if year == start.Year() {
			from = int(offset(start))
		}
		if year == end.Year() {
			to = int(offset(end))
		}
		v, err := l.fetch(ctx, userKey(userID, year), from, to)
		if err != nil {
			return 0, err
		}
		total += v.count(from, to)
	}
	return total, nil
}

// CountYear counts check-in days in year.
func (l *Ledger) CountYear(ctx context.Context, userID uint, year int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	n, err := l.rdb.BitCount(ctx, userKey(userID, year), nil).Result()
	if err != nil {
		return 0, fmt.Errorf("count attendance: %w", err)
	}
	return int(n), nil
}

// CountMonth counts check-in days in the calendar month containing day.
func (l *Ledger) CountMonth(ctx context.Context, userID uint, day time.Time) (int, error) {
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	return l.CountInRange(ctx, userID, first, first.AddDate(0, 1, -1))
}

// CountWeek counts check-in days in the ISO week (Monday first) containing day.
func (l *Ledger) CountWeek(ctx context.Context, userID uint, day time.Time) (int, error) {
	back := (int(day.Weekday()) + 6) % 7
	monday := clock.AddDays(clock.DayStart(day), -back)
	return l.CountInRange(ctx, userID, monday, clock.AddDays(monday, 6))
}

// CurrentStreak counts consecutive check-in days ending today. It stops at the
// first gap or after a year, loading the previous year's vector at most once.
func (l *Ledger) CurrentStreak(ctx context.Context, userID uint) (int, error) {
	today := clock.Today(l.clock)
	v, err := l.fetchYear(ctx, userID, today.Year())
	if err != nil {
		return 0, err
	}
	year := today.Year()
	streak := 0
	for i := 0; i < maxStreakDays; i++ {
		d := clock.AddDays(today, -i)
		if d.Year() != year {
			year = d.Year()
			if v, err = l.fetchYear(ctx, userID, year); err != nil {
				return 0, err
			}
		}
		if !v.test(int(offset(d))) {
			break
		}
		streak++
	}
	return streak, nil
}

// LongestStreak returns the longest run of consecutive check-in days within year.
// For the current year the scan stops at today.
func (l *Ledger) LongestStreak(ctx context.Context, userID uint, year int) (int, error) {
	v, err := l.fetchYear(ctx, userID, year)
	if err != nil {
		return 0, err
	}
	last := daysInYear(year) - 1
	if today := clock.Today(l.clock); today.Year() == year {
		last = int(offset(today))
	}
	return v.longestRun(0, last), nil
}

// Records returns check-in presence per day in [start, end], keyed by YYYY-MM-DD.
func (l *Ledger) Records(ctx context.Context, userID uint, start, end time.Time) (map[string]bool, error) {
	start, end = clock.DayStart(start), clock.DayStart(end)
	out := make(map[string]bool)
	vectors := make(map[int]vector)
	for d := start; !d.After(end); d = clock.AddDays(d, 1) {
		v, ok := vectors[d.Year()]
		if !ok {
			var err error
			if v, err = l.fetchYear(ctx, userID, d.Year()); err != nil {
				return nil, err
			}
			vectors[d.Year()] = v
		}
		out[d.Format("2006-01-02")] = v.test(int(offset(d)))
	}
	return out, nil
}

// RecentDailyStats returns the last n days, oldest first, today last, labelled MM-DD.
func (l *Ledger) RecentDailyStats(ctx context.Context, userID uint, n int) ([]DailyStat, error) {
	if n <= 0 {
		return nil, nil
	}
	today := clock.Today(l.clock)
	start := clock.AddDays(today, -(n - 1))
	present, err := l.Records(ctx, userID, start, today)
	if err != nil {
		return nil, err
	}
	stats := make([]DailyStat, 0, n)
	for d := start; !d.After(today); d = clock.AddDays(d, 1) {
		ok := present[d.Format("2006-01-02")]
		s := DailyStat{Date: d.Format("01-02"), CheckedIn: ok}
		if ok {
			s.Count = 1
		}
		stats = append(stats, s)
	}
	return stats, nil
}
