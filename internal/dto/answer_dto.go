package dto

import (
	"time"

	"github.com/prepai/prepai-go-api/internal/models"
)

// SubmitAnswerRequest represents the payload for submitting an answer.
type SubmitAnswerRequest struct {
	InterviewID uint   `json:"interview_id" validate:"required,gt=0"`
	QuestionID  uint   `json:"question_id" validate:"required,gt=0"`
	AnswerText  string `json:"answer_text" validate:"required"`
}

// AnswerResponse acknowledges an accepted submission.
type AnswerResponse struct {
	ID               uint      `json:"id"`
	QuestionID       uint      `json:"question_id"`
	SubmittedAt      time.Time `json:"submitted_at"`
	EvaluationStatus string    `json:"evaluation_status"`
}

// EvaluationResponse represents a finished evaluation to API consumers.
type EvaluationResponse struct {
	Scores       map[string]float64 `json:"scores"`
	OverallScore float64            `json:"overall_score"`
	Feedback     string             `json:"feedback"`
	Suggestions  []string           `json:"suggestions"`
	EvaluatedAt  *time.Time         `json:"evaluated_at"`
}

// AnswerStatusResponse reports evaluation progress for an answer.
type AnswerStatusResponse struct {
	AnswerID   uint                `json:"answer_id"`
	Status     string              `json:"status"`
	Evaluation *EvaluationResponse `json:"evaluation,omitempty"`
}

// NewAnswerResponse builds an acknowledgement DTO from a model.
func NewAnswerResponse(answer models.Answer) AnswerResponse {
	return AnswerResponse{
		ID:               answer.ID,
		QuestionID:       answer.QuestionID,
		SubmittedAt:      answer.SubmittedAt,
		EvaluationStatus: models.EvaluationStatusPending,
	}
}

// NewAnswerStatusResponse builds the status DTO. The evaluation detail is
// attached only for completed records.
func NewAnswerStatusResponse(answerID uint, evaluation models.Evaluation) AnswerStatusResponse {
	response := AnswerStatusResponse{
		AnswerID: answerID,
		Status:   evaluation.Status,
	}
	if evaluation.Status == models.EvaluationStatusCompleted {
		scores := make(map[string]float64, len(evaluation.Scores))
		for key := range evaluation.Scores {
			scores[key] = evaluation.ScoreValue(key)
		}
		response.Evaluation = &EvaluationResponse{
			Scores:       scores,
			OverallScore: evaluation.MeanScore(),
			Feedback:     evaluation.Feedback,
			Suggestions:  evaluation.SuggestionsSlice(),
			EvaluatedAt:  evaluation.EvaluatedAt,
		}
	}
	return response
}
