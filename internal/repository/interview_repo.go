package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepai/prepai-go-api/internal/models"
)

// InterviewRepository defines data operations for interviews and their questions.
type InterviewRepository interface {
	CreateWithQuestions(ctx context.Context, interview *models.Interview) error
	GetByID(ctx context.Context, id uint) (models.Interview, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Interview, error)
	GetReport(ctx context.Context, id uint) (models.Interview, error)
}

type interviewRepository struct {
	db *gorm.DB
}

// NewInterviewRepository instantiates the repository.
func NewInterviewRepository(db *gorm.DB) InterviewRepository {
	return &interviewRepository{db: db}
}

// CreateWithQuestions persists the interview and its ordered questions in one
// transaction via the gorm association.
func (r *interviewRepository) CreateWithQuestions(ctx context.Context, interview *models.Interview) error {
	return r.db.WithContext(ctx).Create(interview).Error
}

func (r *interviewRepository) GetByID(ctx context.Context, id uint) (models.Interview, error) {
	var interview models.Interview
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_order ASC")
		}).
		First(&interview, id).Error
	if err != nil {
		return models.Interview{}, err
	}
	return interview, nil
}

func (r *interviewRepository) ListByUser(ctx context.Context, userID uint) ([]models.Interview, error) {
	var interviews []models.Interview
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&interviews).Error
	if err != nil {
		return nil, err
	}
	return interviews, nil
}

// GetReport loads the interview with every question, answer and evaluation
// for report aggregation.
func (r *interviewRepository) GetReport(ctx context.Context, id uint) (models.Interview, error) {
	var interview models.Interview
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_order ASC")
		}).
		Preload("Questions.Answers").
		Preload("Questions.Answers.Evaluation").
		First(&interview, id).Error
	if err != nil {
		return models.Interview{}, err
	}
	return interview, nil
}
