package model

import "time"

// Session is server-side login state referenced by the session cookie.
type Session struct {
	ID         string    `gorm:"primaryKey;size:36"`
	UserID     uint      `gorm:"index;not null"`
	OAuthState string    `gorm:"column:oauth_state"`
	ExpiresAt  time.Time `gorm:"index"`
	CreatedAt  time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
