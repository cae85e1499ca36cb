package models

import "time"

// User represents an authenticated account that owns interviews and answers.
type User struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Username       string      `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email          string      `gorm:"size:100;uniqueIndex;not null" json:"email"`
	HashedPassword string      `gorm:"size:255;not null" json:"-"`
	CreatedAt      time.Time   `json:"created_at"`
	Interviews     []Interview `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
