package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTTTL             time.Duration
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	AssessorTimeout    time.Duration
	EvalWorkers        int
	EvalMaxAttempts    int
	EvalRetryBaseDelay time.Duration
	ReportCacheTTL     time.Duration
	AnswerMinLength    int
	SubmitRateLimit    int
	SubmitRateWindow   time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PREPAI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "PrepAI API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("assessor.timeout", "30s")
	v.SetDefault("eval.workers", 4)
	v.SetDefault("eval.max_attempts", 3)
	v.SetDefault("eval.retry_base_delay", "1s")
	v.SetDefault("report.cache_ttl", "1m")
	v.SetDefault("answer.min_length", 10)
	v.SetDefault("submit.rate_limit", 30)
	v.SetDefault("submit.rate_window", "1m")

	parseDuration := func(key, fallback string) (time.Duration, error) {
		value := v.GetString(key)
		if value == "" {
			value = fallback
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", strings.ReplaceAll(key, ".", " "), err)
		}
		return d, nil
	}

	jwtTTL, err := parseDuration("jwt.ttl", "24h")
	if err != nil {
		return Config{}, err
	}
	assessorTimeout, err := parseDuration("assessor.timeout", "30s")
	if err != nil {
		return Config{}, err
	}
	retryBase, err := parseDuration("eval.retry_base_delay", "1s")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration("report.cache_ttl", "1m")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration("submit.rate_window", "1m")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		JWTSecret:          v.GetString("jwt.secret"),
		JWTTTL:             jwtTTL,
		OpenAIAPIKey:       v.GetString("openai_api_key"),
		OpenAIModel:        v.GetString("openai.model"),
		OpenAIBaseURL:      v.GetString("openai.base_url"),
		AssessorTimeout:    assessorTimeout,
		EvalWorkers:        v.GetInt("eval.workers"),
		EvalMaxAttempts:    v.GetInt("eval.max_attempts"),
		EvalRetryBaseDelay: retryBase,
		ReportCacheTTL:     cacheTTL,
		AnswerMinLength:    v.GetInt("answer.min_length"),
		SubmitRateLimit:    v.GetInt("submit.rate_limit"),
		SubmitRateWindow:   rateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.EvalWorkers <= 0 {
		cfg.EvalWorkers = 4
	}

	if cfg.EvalMaxAttempts <= 0 {
		cfg.EvalMaxAttempts = 3
	}

	return cfg, nil
}
