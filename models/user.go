package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a participant. PushChannel/PushHandle address the user on a push transport
// (a Telegram chat id, a Discord user id or an email address).
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Nickname    string         `gorm:"size:64" json:"nickname"`
	PushChannel string         `gorm:"size:16" json:"push_channel"`
	PushHandle  string         `gorm:"size:255" json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// DisplayName prefers the nickname and falls back to the username.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// All lists every model for migration.
func All() []interface{} {
	return []interface{}{&User{}, &Task{}, &CheckInLog{}, &UserRelation{}, &RelationHistory{}, &NotificationLog{}}
}
