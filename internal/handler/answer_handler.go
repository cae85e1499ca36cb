package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/prepai/prepai-go-api/internal/dto"
	"github.com/prepai/prepai-go-api/internal/service"
	"github.com/prepai/prepai-go-api/internal/utils"
)

// AnswerHandler exposes answer submission and status endpoints.
type AnswerHandler struct {
	answers     service.AnswerService
	evaluations service.EvaluationService
	logger      zerolog.Logger
}

// NewAnswerHandler constructs the handler.
func NewAnswerHandler(answers service.AnswerService, evaluations service.EvaluationService, logger zerolog.Logger) *AnswerHandler {
	return &AnswerHandler{
		answers:     answers,
		evaluations: evaluations,
		logger:      logger.With().Str("component", "answer_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *AnswerHandler) Register(router fiber.Router) {
	router.Post("", h.submit)
	router.Get("/:id/status", h.status)
}

func (h *AnswerHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitAnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.answers.Submit(c.Context(), userID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	requestLogger(h.logger, c).Info().Uint("answer_id", response.ID).Msg("answer submitted")
	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "answer accepted for evaluation", response)
}

func (h *AnswerHandler) status(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.evaluations.GetStatus(c.Context(), userID, id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation status retrieved", response)
}

func (h *AnswerHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAnswerTooShort):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "answer is too short")
	case errors.Is(err, service.ErrInterviewNotFound), errors.Is(err, service.ErrQuestionNotFound), errors.Is(err, service.ErrAnswerNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrQuestionMismatch):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInterviewForbidden), errors.Is(err, service.ErrAnswerForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("answer operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
