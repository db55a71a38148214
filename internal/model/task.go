package model

import "time"

// Task is a single item of the weekly list.
type Task struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"index;not null"`
	Description string    `gorm:"not null"`
	DueAt       time.Time `gorm:"index"`
	Weekday     string    `gorm:"index"` // freeform label, not derived from DueAt
	Note        string
	Notified    bool `gorm:"default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsDue reports whether the due timestamp is at or before now.
func (t Task) IsDue(now time.Time) bool {
	return !t.DueAt.After(now)
}
