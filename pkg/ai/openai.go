package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	assessorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "prepai",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of model requests",
	}, []string{"model", "operation"})

	assessorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prepai",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of failed model requests",
	}, []string{"model", "operation"})
)

// OpenAIConfig defines configuration options for the OpenAI-backed client.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// OpenAIClient implements Assessor and Generator against the OpenAI chat
// completion API (or any compatible endpoint via BaseURL).
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIClient builds a new client using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/prepai/prepai-go-api/pkg/ai"),
		logger: logger,
	}, nil
}

// Evaluate sends the grading prompt and returns the model's raw response.
// Errors are classified for retry via IsTransient; a syntactically valid but
// low-quality response is not an error here.
func (c *OpenAIClient) Evaluate(parent context.Context, role, questionText, answerText string) (string, error) {
	ctx, span := c.tracer.Start(parent, "openai.evaluate", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	content, err := c.complete(ctx, "evaluate", evaluationPrompt(role, questionText, answerText), 0.2)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return content, nil
}

// GenerateQuestions asks the model for numQuestions interview questions and
// parses the returned JSON array.
func (c *OpenAIClient) GenerateQuestions(parent context.Context, role string, numQuestions int) ([]string, error) {
	if numQuestions < 1 || numQuestions > 10 {
		return nil, fatal(fmt.Errorf("numQuestions must be between 1 and 10, got %d", numQuestions))
	}

	ctx, span := c.tracer.Start(parent, "openai.generate_questions", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
		attribute.Int("num_questions", numQuestions),
	))
	defer span.End()

	content, err := c.complete(ctx, "generate", questionPrompt(role, numQuestions), 0.8)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	questions, err := parseQuestionList(content, role, numQuestions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return questions, nil
}

func (c *OpenAIClient) complete(ctx context.Context, operation, prompt string, temperature float32) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	assessorDuration.WithLabelValues(c.cfg.Model, operation).Observe(time.Since(start).Seconds())

	if err != nil {
		assessorFailures.WithLabelValues(c.cfg.Model, operation).Inc()
		c.logger.Warn().Err(err).Str("operation", operation).Msg("model request failed")
		return "", classify(err)
	}

	if len(resp.Choices) == 0 {
		assessorFailures.WithLabelValues(c.cfg.Model, operation).Inc()
		return "", transient(fmt.Errorf("no choices returned from model"))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		assessorFailures.WithLabelValues(c.cfg.Model, operation).Inc()
		return "", transient(fmt.Errorf("empty response from model"))
	}

	return content, nil
}

// evaluationPrompt builds a deterministic grading instruction from the three
// inputs so results are reproducible given the same model version.
func evaluationPrompt(role, questionText, answerText string) string {
	builder := strings.Builder{}
	builder.WriteString("Evaluate this ")
	builder.WriteString(role)
	builder.WriteString(" candidate's answer. Return ONLY valid JSON, no markdown.\n\n")
	builder.WriteString("Question: ")
	builder.WriteString(questionText)
	builder.WriteString("\nAnswer: ")
	builder.WriteString(answerText)
	builder.WriteString("\n\nReturn this exact JSON structure:\n")
	builder.WriteString(`{
  "scores": {
    "correctness": 8.5,
    "completeness": 7.0,
    "quality": 9.0,
    "communication": 8.0
  },
  "feedback": "Detailed feedback here",
  "suggestions": ["suggestion 1", "suggestion 2", "suggestion 3"]
}`)
	builder.WriteString("\n\nScores are 0-10. Provide at least 3 suggestions. Be specific and constructive.")
	return builder.String()
}

func questionPrompt(role string, numQuestions int) string {
	return fmt.Sprintf(`Generate %d technical interview questions for a %s position.

Requirements:
- Questions should be relevant to the %s role
- Include a mix of theoretical and practical questions
- Make questions clear, specific and concise (under 200 characters)
- Avoid yes/no questions

Return ONLY a JSON array of %d question strings. Do not include any markdown formatting or explanations.`,
		numQuestions, role, role, numQuestions)
}

// parseQuestionList decodes the model's question array, tolerating markdown
// fences and an off-by-a-few question count.
func parseQuestionList(content, role string, numQuestions int) ([]string, error) {
	text := stripMarkdownFence(strings.TrimSpace(content))

	var questions []string
	if err := json.Unmarshal([]byte(text), &questions); err != nil {
		return nil, fatal(fmt.Errorf("model returned invalid question JSON: %w", err))
	}

	if len(questions) > numQuestions {
		questions = questions[:numQuestions]
	}
	for len(questions) < numQuestions {
		questions = append(questions, fmt.Sprintf("Describe your experience with %s responsibilities.", role))
	}

	return questions, nil
}
