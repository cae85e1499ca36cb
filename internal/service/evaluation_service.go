package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/prepai/prepai-go-api/internal/dto"
	"github.com/prepai/prepai-go-api/internal/models"
	"github.com/prepai/prepai-go-api/internal/observability"
	"github.com/prepai/prepai-go-api/internal/repository"
	"github.com/prepai/prepai-go-api/internal/worker"
	"github.com/prepai/prepai-go-api/pkg/ai"
)

// EvaluationService runs the background assessment pipeline and answers
// status queries.
type EvaluationService interface {
	// Schedule hands an answer to the background pipeline. It never blocks
	// on the assessment itself; a scheduling failure is recorded on the
	// evaluation, not returned to the submitter.
	Schedule(answerID uint)
	GetStatus(ctx context.Context, userID uint, answerID uint) (dto.AnswerStatusResponse, error)
}

// ErrAnswerNotFound indicates the answer cannot be located.
var ErrAnswerNotFound = errors.New("answer not found")

// ErrAnswerForbidden indicates the caller does not own the answer.
var ErrAnswerForbidden = errors.New("forbidden")

// ErrAssessorUnavailable indicates no model client is configured.
var ErrAssessorUnavailable = errors.New("assessor unavailable")

// RetryPolicy bounds transient-failure retries for one evaluation.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy mirrors the pipeline defaults: three attempts with
// an exponential backoff starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

type evaluationService struct {
	evaluations repository.EvaluationRepository
	answers     repository.AnswerRepository
	assessor    ai.Assessor
	scheduler   worker.Scheduler
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	retry       RetryPolicy

	mu       sync.Mutex
	inflight map[uint]struct{}

	sleep func(time.Duration)
	now   func() time.Time
}

// NewEvaluationService constructs the pipeline service.
func NewEvaluationService(evaluationRepo repository.EvaluationRepository, answerRepo repository.AnswerRepository, assessor ai.Assessor, scheduler worker.Scheduler, logger zerolog.Logger, retry RetryPolicy) EvaluationService {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &evaluationService{
		evaluations: evaluationRepo,
		answers:     answerRepo,
		assessor:    assessor,
		scheduler:   scheduler,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		retry:       retry,
		inflight:    make(map[uint]struct{}),
		sleep:       time.Sleep,
		now:         time.Now,
	}
}

func (s *evaluationService) Schedule(answerID uint) {
	if !s.markInflight(answerID) {
		return
	}

	err := s.scheduler.Schedule(func(ctx context.Context) {
		defer s.clearInflight(answerID)
		s.process(ctx, answerID)
	})
	if err != nil {
		s.clearInflight(answerID)
		s.logger.Error().Err(err).Uint("answer_id", answerID).Msg("scheduling rejected")
		s.markFailed(context.Background(), answerID, "evaluation could not be scheduled")
	}
}

func (s *evaluationService) GetStatus(ctx context.Context, userID uint, answerID uint) (dto.AnswerStatusResponse, error) {
	answer, err := s.answers.GetByID(ctx, answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerStatusResponse{}, ErrAnswerNotFound
		}
		return dto.AnswerStatusResponse{}, err
	}
	if answer.UserID != userID {
		return dto.AnswerStatusResponse{}, ErrAnswerForbidden
	}

	evaluation, err := s.evaluations.GetByAnswerID(ctx, answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerStatusResponse{}, ErrAnswerNotFound
		}
		return dto.AnswerStatusResponse{}, err
	}

	return dto.NewAnswerStatusResponse(answerID, evaluation), nil
}

func (s *evaluationService) process(ctx context.Context, answerID uint) {
	started := s.now()
	observability.EvaluationQueue().Inc()
	defer observability.EvaluationQueue().Dec()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Uint("answer_id", answerID).Msg("evaluation panicked")
			s.markFailed(ctx, answerID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	evaluation, err := s.evaluations.GetByAnswerID(ctx, answerID)
	if err != nil {
		s.logger.Error().Err(err).Uint("answer_id", answerID).Msg("evaluation record missing")
		return
	}
	if evaluation.IsTerminal() {
		s.logger.Debug().Uint("answer_id", answerID).Str("status", evaluation.Status).Msg("already terminal, skipping")
		return
	}

	if s.assessor == nil {
		s.markFailed(ctx, answerID, ErrAssessorUnavailable.Error())
		return
	}

	evalCtx, err := s.answers.GetEvaluationContext(ctx, answerID)
	if err != nil {
		s.markFailed(ctx, answerID, "answer context unavailable")
		return
	}

	raw, err := s.assessWithRetry(ctx, evalCtx)
	if err != nil {
		s.markFailed(ctx, answerID, err.Error())
		observability.EvaluationDuration().Observe(s.now().Sub(started).Seconds())
		return
	}

	payload, err := ai.Parse(raw)
	if err != nil {
		s.logger.Warn().Err(err).Uint("answer_id", answerID).Msg("unparseable model output")
		s.markFailed(ctx, answerID, "model returned an unparseable evaluation")
		observability.EvaluationDuration().Observe(s.now().Sub(started).Seconds())
		return
	}

	s.markCompleted(ctx, answerID, payload)
	observability.EvaluationDuration().Observe(s.now().Sub(started).Seconds())
}

// assessWithRetry calls the model, retrying transient failures with
// exponential backoff. Fatal failures abort immediately.
func (s *evaluationService) assessWithRetry(ctx context.Context, evalCtx repository.EvaluationContext) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		raw, err := s.assessor.Evaluate(ctx, evalCtx.Role, evalCtx.QuestionText, evalCtx.AnswerText)
		if err == nil {
			observability.EvaluationAttempts().WithLabelValues("success").Inc()
			return raw, nil
		}
		lastErr = err
		if !ai.IsTransient(err) {
			observability.EvaluationAttempts().WithLabelValues("fatal").Inc()
			return "", fmt.Errorf("assessment failed: %w", err)
		}
		observability.EvaluationAttempts().WithLabelValues("transient").Inc()
		if attempt < s.retry.MaxAttempts {
			delay := s.retry.delay(attempt)
			s.logger.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("transient assessment failure, retrying")
			s.sleep(delay)
		}
	}
	return "", fmt.Errorf("assessment failed after %d attempts: %w", s.retry.MaxAttempts, lastErr)
}

func (s *evaluationService) markCompleted(ctx context.Context, answerID uint, payload ai.EvaluationPayload) {
	suggestions := make([]string, 0, len(payload.Suggestions))
	for _, suggestion := range payload.Suggestions {
		cleaned := strings.TrimSpace(s.sanitizer.Sanitize(suggestion))
		if cleaned != "" {
			suggestions = append(suggestions, cleaned)
		}
	}
	encoded, err := json.Marshal(suggestions)
	if err != nil {
		s.markFailed(ctx, answerID, "failed to encode suggestions")
		return
	}

	feedback := strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback))
	scores := make(map[string]interface{}, 4)
	for key, value := range payload.Scores.Map() {
		scores[key] = value
	}

	affected, err := s.evaluations.MarkCompleted(ctx, answerID, scores, feedback, datatypes.JSON(encoded), s.now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Uint("answer_id", answerID).Msg("failed to persist completed evaluation")
		return
	}
	if affected == 0 {
		s.logger.Debug().Uint("answer_id", answerID).Msg("record already terminal, completed result dropped")
		return
	}
	observability.EvaluationOutcomes().WithLabelValues(models.EvaluationStatusCompleted).Inc()
	s.logger.Info().Uint("answer_id", answerID).Float64("overall", payload.Scores.Mean()).Msg("evaluation completed")
}

func (s *evaluationService) markFailed(ctx context.Context, answerID uint, reason string) {
	affected, err := s.evaluations.MarkFailed(ctx, answerID, reason, s.now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Uint("answer_id", answerID).Msg("failed to persist failed evaluation")
		return
	}
	if affected == 0 {
		s.logger.Debug().Uint("answer_id", answerID).Msg("record already terminal, failure dropped")
		return
	}
	observability.EvaluationOutcomes().WithLabelValues(models.EvaluationStatusFailed).Inc()
	s.logger.Warn().Uint("answer_id", answerID).Str("reason", reason).Msg("evaluation failed")
}

func (s *evaluationService) markInflight(answerID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[answerID]; ok {
		return false
	}
	s.inflight[answerID] = struct{}{}
	return true
}

func (s *evaluationService) clearInflight(answerID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, answerID)
}
