package models

import "time"

// Answer is a candidate's response to one interview question. Immutable once created.
type Answer struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	QuestionID  uint        `gorm:"not null;index" json:"question_id"`
	UserID      uint        `gorm:"not null;index" json:"user_id"`
	AnswerText  string      `gorm:"type:text;not null" json:"answer_text"`
	SubmittedAt time.Time   `gorm:"autoCreateTime" json:"submitted_at"`
	Evaluation  *Evaluation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"evaluation,omitempty"`
}
