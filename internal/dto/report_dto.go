package dto

import "time"

// ReportResponse aggregates scored answers for one interview session.
type ReportResponse struct {
	InterviewID  uint                 `json:"interview_id"`
	Role         string               `json:"role"`
	CreatedAt    time.Time            `json:"created_at"`
	OverallScore *float64             `json:"overall_score"`
	Answers      []ReportAnswerDetail `json:"answers"`
}

// ReportAnswerDetail describes one answered question inside a report.
type ReportAnswerDetail struct {
	QuestionID    uint                `json:"question_id"`
	QuestionText  string              `json:"question_text"`
	QuestionOrder int                 `json:"question_order"`
	AnswerID      *uint               `json:"answer_id"`
	AnswerText    string              `json:"answer_text,omitempty"`
	Status        string              `json:"status"`
	Evaluation    *EvaluationResponse `json:"evaluation,omitempty"`
}
