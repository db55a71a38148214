package model

import "time"

// User is a registered account. Email is set only while a Google account is linked.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Email        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Tasks        []Task `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (u User) HasLinkedEmail() bool {
	return u.Email != ""
}
