package models

import "time"

// NotificationLog is the durable record of a dispatch attempt, the source of truth
// for deduplication when the fast marker store is lost.
type NotificationLog struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TaskID      uint       `gorm:"not null;uniqueIndex:idx_notify_triple,priority:1" json:"task_id"`
	NotifyDate  string     `gorm:"size:10;not null;uniqueIndex:idx_notify_triple,priority:2" json:"notify_date"`
	Kind        NotifyKind `gorm:"type:varchar(24);not null;uniqueIndex:idx_notify_triple,priority:3" json:"kind"`
	RecipientID uint       `gorm:"index" json:"recipient_id"`
	DispatchID  string     `gorm:"size:36" json:"dispatch_id"`
	Success     bool       `json:"success"`
	ErrorMsg    string     `gorm:"size:512" json:"error_msg"`
	CreatedAt   time.Time  `json:"created_at"`
}
