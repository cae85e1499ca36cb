package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/prepai/prepai-go-api/internal/config"
	"github.com/prepai/prepai-go-api/internal/dto"
	"github.com/prepai/prepai-go-api/internal/handler"
	"github.com/prepai/prepai-go-api/internal/models"
	"github.com/prepai/prepai-go-api/internal/repository"
	"github.com/prepai/prepai-go-api/internal/router"
	"github.com/prepai/prepai-go-api/internal/service"
	"github.com/prepai/prepai-go-api/internal/worker"
)

const handlerAssessment = `{
  "scores": {"correctness": 8, "completeness": 6, "quality": 7, "communication": 7},
  "feedback": "Clear explanation with room for more depth.",
  "suggestions": ["Discuss trade-offs"]
}`

type handlerTestAssessor struct{}

func (handlerTestAssessor) Evaluate(context.Context, string, string, string) (string, error) {
	return handlerAssessment, nil
}

func setupAnswerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Interview{}, &models.Question{}, &models.Answer{}, &models.Evaluation{}))
	return db
}

// newAnswerApp wires the full submission stack over db, authenticating
// every request as authUserID.
func newAnswerApp(t *testing.T, db *gorm.DB, authUserID uint) *fiber.App {
	t.Helper()

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.Nop()

	interviewRepo := repository.NewInterviewRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)

	evaluationService := service.NewEvaluationService(evaluationRepo, answerRepo, handlerTestAssessor{}, worker.Synchronous{}, logger, service.DefaultRetryPolicy())
	answerService := service.NewAnswerService(answerRepo, interviewRepo, questionRepo, evaluationService, validate, logger, service.AnswerConfig{MinLength: 10})

	app := fiber.New()
	answerHandler := handler.NewAnswerHandler(answerService, evaluationService, logger)

	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		AnswerHandler: answerHandler,
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", authUserID)
			return c.Next()
		},
	})

	return app
}

func seedHandlerInterview(t *testing.T, db *gorm.DB) (models.Interview, models.Question, uint) {
	t.Helper()
	user := models.User{Username: "h-" + t.Name(), Email: t.Name() + "-h@example.com", HashedPassword: "x"}
	require.NoError(t, db.Create(&user).Error)
	interview := models.Interview{UserID: user.ID, Role: "Backend Engineer"}
	require.NoError(t, db.Create(&interview).Error)
	question := models.Question{InterviewID: interview.ID, QuestionText: "Explain connection pooling.", QuestionOrder: 1}
	require.NoError(t, db.Create(&question).Error)
	return interview, question, user.ID
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func answerPath(id uint) string {
	return "/api/v1/answers/" + strconv.FormatUint(uint64(id), 10) + "/status"
}

func TestAnswerHandlerSubmitAndStatus(t *testing.T) {
	db := setupAnswerDB(t)
	interview, question, userID := seedHandlerInterview(t, db)
	app := newAnswerApp(t, db, userID)

	resp := postJSON(t, app, "/api/v1/answers", dto.SubmitAnswerRequest{
		InterviewID: interview.ID,
		QuestionID:  question.ID,
		AnswerText:  "Connection pooling reuses open connections to avoid handshake overhead.",
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var submitPayload struct {
		Success bool               `json:"success"`
		Data    dto.AnswerResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitPayload))
	resp.Body.Close()
	require.True(t, submitPayload.Success)
	require.Equal(t, models.EvaluationStatusPending, submitPayload.Data.EvaluationStatus)

	// The synchronous scheduler finished the evaluation before Submit returned.
	req := httptest.NewRequest(http.MethodGet, answerPath(submitPayload.Data.ID), nil)
	statusResp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, statusResp.StatusCode)

	var statusPayload struct {
		Success bool                     `json:"success"`
		Data    dto.AnswerStatusResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&statusPayload))
	statusResp.Body.Close()
	require.Equal(t, models.EvaluationStatusCompleted, statusPayload.Data.Status)
	require.NotNil(t, statusPayload.Data.Evaluation)
	require.InDelta(t, 7.0, statusPayload.Data.Evaluation.OverallScore, 0.001)
}

func TestAnswerHandlerRejectsShortAnswer(t *testing.T) {
	db := setupAnswerDB(t)
	interview, question, userID := seedHandlerInterview(t, db)
	app := newAnswerApp(t, db, userID)

	resp := postJSON(t, app, "/api/v1/answers", dto.SubmitAnswerRequest{
		InterviewID: interview.ID,
		QuestionID:  question.ID,
		AnswerText:  "short",
	})
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestAnswerHandlerInvalidBody(t *testing.T) {
	db := setupAnswerDB(t)
	app := newAnswerApp(t, db, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/answers", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAnswerHandlerStatusForbiddenForOtherUser(t *testing.T) {
	db := setupAnswerDB(t)
	_, question, ownerID := seedHandlerInterview(t, db)

	answer := models.Answer{QuestionID: question.ID, UserID: ownerID, AnswerText: "An answer owned by somebody else entirely."}
	require.NoError(t, db.Create(&answer).Error)
	require.NoError(t, db.Create(&models.Evaluation{AnswerID: answer.ID, Status: models.EvaluationStatusPending}).Error)

	app := newAnswerApp(t, db, ownerID+1)

	req := httptest.NewRequest(http.MethodGet, answerPath(answer.ID), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestAnswerHandlerStatusInvalidID(t *testing.T) {
	db := setupAnswerDB(t)
	app := newAnswerApp(t, db, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/answers/abc/status", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
