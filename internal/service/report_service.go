package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/prepai/prepai-go-api/internal/dto"
	"github.com/prepai/prepai-go-api/internal/models"
	"github.com/prepai/prepai-go-api/internal/repository"
)

// ReportService assembles per-interview performance reports.
type ReportService interface {
	Get(ctx context.Context, userID uint, interviewID uint) (dto.ReportResponse, error)
}

type reportService struct {
	interviews repository.InterviewRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

// NewReportService constructs a new report service. The cache client may
// be nil, in which case every read recomputes the report.
func NewReportService(interviewRepo repository.InterviewRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ReportService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &reportService{
		interviews: interviewRepo,
		cache:      cache,
		cacheTTL:   ttl,
		logger:     logger.With().Str("component", "report_service").Logger(),
	}
}

func (s *reportService) Get(ctx context.Context, userID uint, interviewID uint) (dto.ReportResponse, error) {
	interview, err := s.interviews.GetReport(ctx, interviewID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReportResponse{}, ErrInterviewNotFound
		}
		return dto.ReportResponse{}, err
	}
	if interview.UserID != userID {
		return dto.ReportResponse{}, ErrInterviewForbidden
	}

	cacheKey := fmt.Sprintf("report:interview:%d", interviewID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ReportResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("interview_id", interviewID).Msg("report cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read report cache")
		}
	}

	response := buildReport(interview)

	// Only settled reports are cached, so a pending evaluation never
	// serves a stale snapshot once it completes.
	if s.cache != nil && reportSettled(interview) {
		if payload, marshalErr := json.Marshal(response); marshalErr == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store report cache")
			}
		}
	}

	return response, nil
}

func buildReport(interview models.Interview) dto.ReportResponse {
	response := dto.ReportResponse{
		InterviewID: interview.ID,
		Role:        interview.Role,
		CreatedAt:   interview.CreatedAt,
		Answers:     make([]dto.ReportAnswerDetail, 0, len(interview.Questions)),
	}

	var sum float64
	var completed int
	for _, question := range interview.Questions {
		detail := dto.ReportAnswerDetail{
			QuestionID:    question.ID,
			QuestionText:  question.QuestionText,
			QuestionOrder: question.QuestionOrder,
			Status:        "unanswered",
		}

		if answer := latestAnswer(question.Answers); answer != nil {
			answerID := answer.ID
			detail.AnswerID = &answerID
			detail.AnswerText = answer.AnswerText
			detail.Status = models.EvaluationStatusPending
			if answer.Evaluation != nil {
				detail.Status = answer.Evaluation.Status
				if answer.Evaluation.Status == models.EvaluationStatusCompleted {
					status := dto.NewAnswerStatusResponse(answer.ID, *answer.Evaluation)
					detail.Evaluation = status.Evaluation
				}
			}
		}

		// The overall score averages every completed evaluation, not just
		// the one shown in the per-question detail.
		for i := range question.Answers {
			evaluation := question.Answers[i].Evaluation
			if evaluation != nil && evaluation.Status == models.EvaluationStatusCompleted {
				sum += evaluation.MeanScore()
				completed++
			}
		}

		response.Answers = append(response.Answers, detail)
	}

	if completed > 0 {
		overall := math.Round(sum/float64(completed)*100) / 100
		response.OverallScore = &overall
	}
	return response
}

// latestAnswer picks the most recent submission when a question was
// answered more than once.
func latestAnswer(answers []models.Answer) *models.Answer {
	var latest *models.Answer
	for i := range answers {
		if latest == nil || answers[i].ID > latest.ID {
			latest = &answers[i]
		}
	}
	return latest
}

func reportSettled(interview models.Interview) bool {
	for _, question := range interview.Questions {
		for i := range question.Answers {
			evaluation := question.Answers[i].Evaluation
			if evaluation == nil || evaluation.Status == models.EvaluationStatusPending {
				return false
			}
		}
	}
	return true
}
