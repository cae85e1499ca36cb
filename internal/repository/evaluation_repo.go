package repository

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/prepai/prepai-go-api/internal/models"
)

// EvaluationRepository defines data operations for evaluation records.
// Terminal transitions are guarded on the pending status so a record
// moves out of pending exactly once.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
	GetByAnswerID(ctx context.Context, answerID uint) (models.Evaluation, error)
	// MarkCompleted writes the completed outcome and returns the number of
	// rows updated. Zero means the record had already left pending.
	MarkCompleted(ctx context.Context, answerID uint, scores map[string]interface{}, feedback string, suggestions datatypes.JSON, at time.Time) (int64, error)
	// MarkFailed writes the failed outcome under the same pending guard.
	MarkFailed(ctx context.Context, answerID uint, errMsg string, at time.Time) (int64, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository instantiates the repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Create(evaluation).Error
}

func (r *evaluationRepository) GetByAnswerID(ctx context.Context, answerID uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	err := r.db.WithContext(ctx).
		Where("answer_id = ?", answerID).
		First(&evaluation).Error
	if err != nil {
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

func (r *evaluationRepository) MarkCompleted(ctx context.Context, answerID uint, scores map[string]interface{}, feedback string, suggestions datatypes.JSON, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("answer_id = ? AND status = ?", answerID, models.EvaluationStatusPending).
		Updates(map[string]interface{}{
			"status":       models.EvaluationStatusCompleted,
			"scores":       datatypes.JSONMap(scores),
			"feedback":     feedback,
			"suggestions":  suggestions,
			"evaluated_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *evaluationRepository) MarkFailed(ctx context.Context, answerID uint, errMsg string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("answer_id = ? AND status = ?", answerID, models.EvaluationStatusPending).
		Updates(map[string]interface{}{
			"status":        models.EvaluationStatusFailed,
			"error_message": errMsg,
			"evaluated_at":  at,
		})
	return result.RowsAffected, result.Error
}
