package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepai/prepai-go-api/internal/models"
)

// QuestionRepository exposes lookups for individual questions.
type QuestionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Question, error)
}

// NewQuestionRepository constructs a question repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

type questionRepository struct {
	db *gorm.DB
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return models.Question{}, err
	}
	return question, nil
}
