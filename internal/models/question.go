package models

// Question is a single interview question, ordered within its interview.
type Question struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	InterviewID   uint     `gorm:"not null;index" json:"interview_id"`
	QuestionText  string   `gorm:"type:text;not null" json:"question_text"`
	QuestionOrder int      `gorm:"not null" json:"question_order"`
	Answers       []Answer `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"answers,omitempty"`
}
