package models

import "time"

// Interview groups the questions generated for one practice session.
type Interview struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Role      string     `gorm:"size:100;not null" json:"role"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	Questions []Question `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"questions,omitempty"`
}
