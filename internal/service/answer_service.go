package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/prepai/prepai-go-api/internal/dto"
	"github.com/prepai/prepai-go-api/internal/models"
	"github.com/prepai/prepai-go-api/internal/repository"
)

// AnswerService exposes answer submission.
type AnswerService interface {
	Submit(ctx context.Context, userID uint, payload dto.SubmitAnswerRequest) (dto.AnswerResponse, error)
}

// ErrQuestionNotFound indicates the question cannot be located.
var ErrQuestionNotFound = errors.New("question not found")

// ErrQuestionMismatch indicates the question belongs to a different interview.
var ErrQuestionMismatch = errors.New("question does not belong to interview")

// ErrAnswerTooShort indicates the trimmed answer is below the minimum length.
var ErrAnswerTooShort = errors.New("answer too short")

// Pipeline schedules background evaluation for an accepted answer.
type Pipeline interface {
	Schedule(answerID uint)
}

// AnswerConfig carries submission knobs.
type AnswerConfig struct {
	MinLength int
}

type answerService struct {
	answers    repository.AnswerRepository
	interviews repository.InterviewRepository
	questions  repository.QuestionRepository
	pipeline   Pipeline
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	config     AnswerConfig
}

// NewAnswerService constructs a new answer service.
func NewAnswerService(answerRepo repository.AnswerRepository, interviewRepo repository.InterviewRepository, questionRepo repository.QuestionRepository, pipeline Pipeline, validate *validator.Validate, logger zerolog.Logger, cfg AnswerConfig) AnswerService {
	if cfg.MinLength <= 0 {
		cfg.MinLength = 10
	}
	return &answerService{
		answers:    answerRepo,
		interviews: interviewRepo,
		questions:  questionRepo,
		pipeline:   pipeline,
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "answer_service").Logger(),
		config:     cfg,
	}
}

func (s *answerService) Submit(ctx context.Context, userID uint, payload dto.SubmitAnswerRequest) (dto.AnswerResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnswerResponse{}, err
	}

	// Length is measured on a markup-stripped copy so tag padding cannot
	// satisfy the minimum, but the stored text is the candidate's own:
	// stripping would mangle legitimate content like "vector<int>".
	text := strings.TrimSpace(payload.AnswerText)
	stripped := strings.TrimSpace(s.sanitizer.Sanitize(payload.AnswerText))
	if utf8.RuneCountInString(stripped) < s.config.MinLength {
		return dto.AnswerResponse{}, ErrAnswerTooShort
	}

	interview, err := s.interviews.GetByID(ctx, payload.InterviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, ErrInterviewNotFound
		}
		return dto.AnswerResponse{}, err
	}
	if interview.UserID != userID {
		return dto.AnswerResponse{}, ErrInterviewForbidden
	}

	question, err := s.questions.GetByID(ctx, payload.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnswerResponse{}, ErrQuestionNotFound
		}
		return dto.AnswerResponse{}, err
	}
	if question.InterviewID != interview.ID {
		return dto.AnswerResponse{}, ErrQuestionMismatch
	}

	answer := models.Answer{
		QuestionID: question.ID,
		UserID:     userID,
		AnswerText: text,
	}
	evaluation := models.Evaluation{Status: models.EvaluationStatusPending}
	if err := s.answers.CreateWithEvaluation(ctx, &answer, &evaluation); err != nil {
		return dto.AnswerResponse{}, err
	}

	// Pickup happens off the request path. A scheduler rejection is
	// recorded on the evaluation and never fails the submission.
	s.pipeline.Schedule(answer.ID)

	s.logger.Info().Uint("answer_id", answer.ID).Uint("question_id", question.ID).Msg("answer accepted")
	return dto.NewAnswerResponse(answer), nil
}
