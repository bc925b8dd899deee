package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config collects every environment knob the binaries read. godotenv is
// loaded by main before Load is called.
type Config struct {
	Port        string
	DatabaseURL string
	RedisAddr   string

	QueueEnabled bool
	LLMEnabled   bool

	TrialMaxDurationMinutes int
	TaskPollIntervalSeconds int
	TaskTimeoutMinutes      int

	AutoTranscriptBaseURL      string
	AutoTranscriptAPIKey       string
	AutoTranscriptPollInterval time.Duration
	AutoTranscriptMaxPolls     int

	STTBaseURL       string
	STTAPIKey        string
	STTModel         string
	STTWebhookSecret string

	MetadataBaseURL string
	MetadataAPIKey  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string

	SubscriptionWebhookSecret string
	// PlanMinutes maps an invoice line-item price id to purchased minutes,
	// parsed from "price_a:100,price_b:300".
	PlanMinutes map[string]int
}

func Load() Config {
	return Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   getEnv("REDIS_ADDR", "127.0.0.1:6379"),

		QueueEnabled: getEnvBool("QUEUE_ENABLED", true),
		LLMEnabled:   getEnvBool("LLM_ENABLED", false),

		TrialMaxDurationMinutes: getEnvInt("TRIAL_MAX_DURATION_MINUTES", 30),
		TaskPollIntervalSeconds: getEnvInt("TASK_POLL_INTERVAL_SECONDS", 5),
		TaskTimeoutMinutes:      getEnvInt("TASK_TIMEOUT_MINUTES", 10),

		AutoTranscriptBaseURL:      getEnv("AUTO_TRANSCRIPT_BASE_URL", "https://api.supadata.ai"),
		AutoTranscriptAPIKey:       os.Getenv("AUTO_TRANSCRIPT_API_KEY"),
		AutoTranscriptPollInterval: time.Duration(getEnvInt("AUTO_TRANSCRIPT_POLL_INTERVAL_SECONDS", 5)) * time.Second,
		AutoTranscriptMaxPolls:     getEnvInt("AUTO_TRANSCRIPT_MAX_POLL_ATTEMPTS", 120),

		STTBaseURL:       getEnv("STT_BASE_URL", "https://api.deepgram.com"),
		STTAPIKey:        os.Getenv("STT_API_KEY"),
		STTModel:         getEnv("STT_MODEL", "nova-2"),
		STTWebhookSecret: os.Getenv("STT_WEBHOOK_SECRET"),

		MetadataBaseURL: getEnv("METADATA_BASE_URL", "https://api.supadata.ai"),
		MetadataAPIKey:  os.Getenv("METADATA_API_KEY"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET", "scribeline"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioPublicURL: os.Getenv("MINIO_PUBLIC_URL"),

		SubscriptionWebhookSecret: os.Getenv("SUBSCRIPTION_WEBHOOK_SECRET"),
		PlanMinutes:               parsePlanMinutes(os.Getenv("PLAN_MINUTES")),
	}
}

// TaskTimeout is the sweeper threshold.
func (c Config) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutMinutes) * time.Minute
}

// TrialMaxDuration is the trial duration cap.
func (c Config) TrialMaxDuration() time.Duration {
	return time.Duration(c.TrialMaxDurationMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func parsePlanMinutes(raw string) map[string]int {
	plans := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		minutes, err := strconv.Atoi(parts[1])
		if err != nil || minutes <= 0 {
			continue
		}
		plans[parts[0]] = minutes
	}
	return plans
}
