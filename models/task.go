package models

import "time"

// Task is a recurring obligation set by CreatorID for UserID.
// RemindAt holds the full due instant for ONCE tasks; recurring tasks only use its time of day.
type Task struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	CreatorID  uint       `gorm:"index;not null" json:"creator_id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	Title      string     `gorm:"size:128;not null" json:"title"`
	RemindAt   time.Time  `gorm:"not null" json:"remind_at"`
	RepeatType RepeatType `gorm:"type:varchar(16);not null" json:"repeat_type"`
	Enabled    bool       `gorm:"index;not null" json:"enabled"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CheckInLog is an append-only record of an accepted check-in.
// At most one row exists per (user, task, occurrence date).
type CheckInLog struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `gorm:"not null;uniqueIndex:idx_checkin_occurrence,priority:1" json:"user_id"`
	TaskID         uint           `gorm:"not null;index;uniqueIndex:idx_checkin_occurrence,priority:2" json:"task_id"`
	OccurrenceDate string         `gorm:"size:10;not null;index;uniqueIndex:idx_checkin_occurrence,priority:3" json:"occurrence_date"`
	CheckTime      time.Time      `gorm:"not null" json:"check_time"`
	Outcome        CheckInOutcome `gorm:"type:varchar(16);not null" json:"outcome"`
	CreatedAt      time.Time      `json:"created_at"`
}
