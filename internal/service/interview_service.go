package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/prepai/prepai-go-api/internal/dto"
	"github.com/prepai/prepai-go-api/internal/models"
	"github.com/prepai/prepai-go-api/internal/repository"
	"github.com/prepai/prepai-go-api/pkg/ai"
)

// InterviewService exposes interview session operations.
type InterviewService interface {
	Create(ctx context.Context, userID uint, payload dto.CreateInterviewRequest) (dto.InterviewResponse, error)
	Get(ctx context.Context, userID uint, interviewID uint) (dto.InterviewResponse, error)
	List(ctx context.Context, userID uint) ([]dto.InterviewResponse, error)
}

// ErrInterviewNotFound indicates the interview cannot be located.
var ErrInterviewNotFound = errors.New("interview not found")

// ErrInterviewForbidden indicates the caller does not own the interview.
var ErrInterviewForbidden = errors.New("forbidden")

// ErrGeneratorUnavailable indicates no question generator is configured.
var ErrGeneratorUnavailable = errors.New("question generator unavailable")

type interviewService struct {
	interviews repository.InterviewRepository
	generator  ai.Generator
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewInterviewService constructs a new interview service.
func NewInterviewService(interviewRepo repository.InterviewRepository, generator ai.Generator, validate *validator.Validate, logger zerolog.Logger) InterviewService {
	return &interviewService{
		interviews: interviewRepo,
		generator:  generator,
		validator:  validate,
		logger:     logger.With().Str("component", "interview_service").Logger(),
	}
}

func (s *interviewService) Create(ctx context.Context, userID uint, payload dto.CreateInterviewRequest) (dto.InterviewResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.InterviewResponse{}, err
	}
	if s.generator == nil {
		return dto.InterviewResponse{}, ErrGeneratorUnavailable
	}

	role := strings.TrimSpace(payload.Role)
	texts, err := s.generator.GenerateQuestions(ctx, role, payload.NumQuestions)
	if err != nil {
		s.logger.Error().Err(err).Str("role", role).Msg("question generation failed")
		return dto.InterviewResponse{}, err
	}

	interview := models.Interview{
		UserID: userID,
		Role:   role,
	}
	for i, text := range texts {
		interview.Questions = append(interview.Questions, models.Question{
			QuestionText:  text,
			QuestionOrder: i + 1,
		})
	}

	if err := s.interviews.CreateWithQuestions(ctx, &interview); err != nil {
		return dto.InterviewResponse{}, err
	}

	s.logger.Info().Uint("interview_id", interview.ID).Str("role", role).Int("questions", len(texts)).Msg("interview created")
	return dto.NewInterviewResponse(interview), nil
}

func (s *interviewService) Get(ctx context.Context, userID uint, interviewID uint) (dto.InterviewResponse, error) {
	interview, err := s.interviews.GetByID(ctx, interviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.InterviewResponse{}, ErrInterviewNotFound
		}
		return dto.InterviewResponse{}, err
	}
	if interview.UserID != userID {
		return dto.InterviewResponse{}, ErrInterviewForbidden
	}
	return dto.NewInterviewResponse(interview), nil
}

func (s *interviewService) List(ctx context.Context, userID uint) ([]dto.InterviewResponse, error) {
	interviews, err := s.interviews.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.InterviewResponse, 0, len(interviews))
	for _, interview := range interviews {
		responses = append(responses, dto.NewInterviewResponse(interview))
	}
	return responses, nil
}
