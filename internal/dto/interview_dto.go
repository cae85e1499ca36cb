package dto

import (
	"time"

	"github.com/prepai/prepai-go-api/internal/models"
)

// CreateInterviewRequest represents the payload for starting an interview.
type CreateInterviewRequest struct {
	Role         string `json:"role" validate:"required,min=1,max=100"`
	NumQuestions int    `json:"num_questions" validate:"required,gte=1,lte=10"`
}

// InterviewResponse represents an interview session to API consumers.
type InterviewResponse struct {
	ID        uint               `json:"id"`
	Role      string             `json:"role"`
	CreatedAt time.Time          `json:"created_at"`
	Questions []QuestionResponse `json:"questions,omitempty"`
}

// QuestionResponse represents a generated question.
type QuestionResponse struct {
	ID            uint   `json:"id"`
	QuestionText  string `json:"question_text"`
	QuestionOrder int    `json:"question_order"`
}

// NewInterviewResponse builds a response DTO from a model.
func NewInterviewResponse(interview models.Interview) InterviewResponse {
	response := InterviewResponse{
		ID:        interview.ID,
		Role:      interview.Role,
		CreatedAt: interview.CreatedAt,
	}
	if len(interview.Questions) > 0 {
		questions := make([]QuestionResponse, 0, len(interview.Questions))
		for _, question := range interview.Questions {
			questions = append(questions, QuestionResponse{
				ID:            question.ID,
				QuestionText:  question.QuestionText,
				QuestionOrder: question.QuestionOrder,
			})
		}
		response.Questions = questions
	}
	return response
}
