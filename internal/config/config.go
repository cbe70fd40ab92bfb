package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration. It is read once at process start
// and never mutated afterwards.
type Config struct {
	Port string

	// Provider credentials and generation defaults
	AnthropicAPIKey string
	GooseAIAPIKey   string
	DefaultModel    string
	MaxTokens       int
	Temperature     float64
	ProviderOrder   []string
	ProviderTimeout time.Duration

	// Conversation limits
	MaxConversationLength int
	ConversationTimeout   time.Duration

	// Auth
	JWTSecret            string
	OperatorEmail        string
	OperatorPasswordHash string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		GooseAIAPIKey:        os.Getenv("GOOSE_AI_API_KEY"),
		DefaultModel:         getEnv("DEFAULT_MODEL", "claude-3-5-sonnet-20241022"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		OperatorEmail:        getEnv("OPERATOR_EMAIL", "operator@localhost"),
		OperatorPasswordHash: os.Getenv("OPERATOR_PASSWORD_HASH"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	var err error
	if cfg.MaxTokens, err = getEnvInt("MAX_TOKENS", 4000); err != nil {
		return nil, err
	}
	if cfg.Temperature, err = getEnvFloat("TEMPERATURE", 0.7); err != nil {
		return nil, err
	}
	if cfg.MaxConversationLength, err = getEnvInt("MAX_CONVERSATION_LENGTH", 50); err != nil {
		return nil, err
	}

	timeoutSecs, err := getEnvInt("PROVIDER_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.ProviderTimeout = time.Duration(timeoutSecs) * time.Second

	convSecs, err := getEnvInt("CONVERSATION_TIMEOUT", 3600)
	if err != nil {
		return nil, err
	}
	cfg.ConversationTimeout = time.Duration(convSecs) * time.Second

	order := getEnv("PROVIDER_ORDER", "anthropic,goose_ai")
	for _, name := range strings.Split(order, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			cfg.ProviderOrder = append(cfg.ProviderOrder, name)
		}
	}
	if len(cfg.ProviderOrder) == 0 {
		return nil, fmt.Errorf("PROVIDER_ORDER must name at least one provider")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
