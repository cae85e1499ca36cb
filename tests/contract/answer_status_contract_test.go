package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/prepai/prepai-go-api/internal/dto"
	"github.com/prepai/prepai-go-api/internal/handler"
	"github.com/prepai/prepai-go-api/internal/models"
)

type stubEvaluationService struct {
	response dto.AnswerStatusResponse
}

func (s stubEvaluationService) Schedule(uint) {}

func (s stubEvaluationService) GetStatus(context.Context, uint, uint) (dto.AnswerStatusResponse, error) {
	return s.response, nil
}

type stubAnswerService struct{}

func (s stubAnswerService) Submit(context.Context, uint, dto.SubmitAnswerRequest) (dto.AnswerResponse, error) {
	return dto.AnswerResponse{}, nil
}

func TestAnswerStatusContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "answer_status.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	now := time.Now().UTC()
	completed := dto.AnswerStatusResponse{
		AnswerID: 42,
		Status:   models.EvaluationStatusCompleted,
		Evaluation: &dto.EvaluationResponse{
			Scores: map[string]float64{
				models.ScoreCorrectness:   8,
				models.ScoreCompleteness:  6,
				models.ScoreQuality:       7,
				models.ScoreCommunication: 7,
			},
			OverallScore: 7,
			Feedback:     "Covered the fundamentals well.",
			Suggestions:  []string{"Add a concrete example"},
			EvaluatedAt:  &now,
		},
	}

	for name, response := range map[string]dto.AnswerStatusResponse{
		"completed": completed,
		"pending":   {AnswerID: 42, Status: models.EvaluationStatusPending},
		"failed":    {AnswerID: 42, Status: models.EvaluationStatusFailed},
	} {
		t.Run(name, func(t *testing.T) {
			h := handler.NewAnswerHandler(stubAnswerService{}, stubEvaluationService{response: response}, zerolog.Nop())

			app := fiber.New()
			group := app.Group("/api/v1/answers", func(c *fiber.Ctx) error {
				c.Locals("user_id", uint(1))
				return c.Next()
			})
			h.Register(group)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/answers/42/status", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			resp.Body.Close()

			var payload interface{}
			require.NoError(t, json.Unmarshal(body, &payload))
			require.NoError(t, schema.Validate(payload))
		})
	}
}
