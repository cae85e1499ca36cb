package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepai/prepai-go-api/internal/models"
)

// EvaluationContext carries everything the pipeline needs to assess one
// answer: the question text, the interview's role and the answer itself.
type EvaluationContext struct {
	QuestionText string
	Role         string
	AnswerText   string
}

// AnswerRepository defines data operations for submitted answers.
type AnswerRepository interface {
	// CreateWithEvaluation persists the answer and its pending evaluation
	// record in one transaction, so no reader ever observes an answer
	// without a record.
	CreateWithEvaluation(ctx context.Context, answer *models.Answer, evaluation *models.Evaluation) error
	GetByID(ctx context.Context, id uint) (models.Answer, error)
	GetEvaluationContext(ctx context.Context, answerID uint) (EvaluationContext, error)
}

type answerRepository struct {
	db *gorm.DB
}

// NewAnswerRepository instantiates the repository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) CreateWithEvaluation(ctx context.Context, answer *models.Answer, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(answer).Error; err != nil {
			return err
		}
		evaluation.AnswerID = answer.ID
		return tx.Create(evaluation).Error
	})
}

func (r *answerRepository) GetByID(ctx context.Context, id uint) (models.Answer, error) {
	var answer models.Answer
	if err := r.db.WithContext(ctx).First(&answer, id).Error; err != nil {
		return models.Answer{}, err
	}
	return answer, nil
}

func (r *answerRepository) GetEvaluationContext(ctx context.Context, answerID uint) (EvaluationContext, error) {
	var row EvaluationContext
	err := r.db.WithContext(ctx).
		Table("answers").
		Select("questions.question_text AS question_text, interviews.role AS role, answers.answer_text AS answer_text").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Joins("JOIN interviews ON interviews.id = questions.interview_id").
		Where("answers.id = ?", answerID).
		Take(&row).Error
	if err != nil {
		return EvaluationContext{}, err
	}
	return row, nil
}
