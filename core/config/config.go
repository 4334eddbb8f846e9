package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ValidatorMode controls when BFSOrchestrator schedules a Validator call.
type ValidatorMode string

const (
	ValidatorModeAction   ValidatorMode = "action"
	ValidatorModePeriodic ValidatorMode = "periodic"
	ValidatorModeBoth     ValidatorMode = "both"
)

// Config holds all application configuration, loaded once at process start.
type Config struct {
	// Env is the environment name (development, production).
	Env string

	// LogFormat selects the slog handler: "dev" (text + file) or "json".
	LogFormat string

	// LLM selects the backend and credentials for internal/llmclient.
	LLM LLMConfig

	// ToolBridgeURL points internal/tool's HTTP client at a running bridge.
	// Empty means the in-process StaticClient is expected to be used instead.
	ToolBridgeURL string

	// Search holds the BFSOrchestrator's tunable thresholds (§6).
	Search SearchConfig
}

// LLMConfig configures internal/llmclient's backend selection.
type LLMConfig struct {
	Provider string // "openai" or "anthropic"
	APIKey   string
	Model    string
	BaseURL  string
}

// SearchConfig is the enumerated configuration surface from spec §6.
type SearchConfig struct {
	MaxIterations     int
	BeamWidth         int
	ValidatorMode     ValidatorMode
	ValueTrigger      float64
	ValidationCooldown int
	ValidatorConf     float64
	HintBoost         float64
	SpecialHintBoost  float64
	LoopMaxDuplicates int
	LoopMaxValidations int
	TaskTTLMinutes    int
}

// Load loads configuration from the process environment. A .env file in the
// working directory is loaded first, if present, purely as a local-dev
// convenience; its absence is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:       getEnv("ENV", "development"),
		LogFormat: getEnv("LOG_FORMAT", "dev"),
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", "openai"),
			APIKey:   getEnv("LLM_API_KEY", ""),
			Model:    getEnv("LLM_MODEL", ""),
			BaseURL:  getEnv("LLM_BASE_URL", ""),
		},
		ToolBridgeURL: getEnv("TOOL_BRIDGE_URL", ""),
		Search: SearchConfig{
			MaxIterations:      getEnvInt("MAX_ITERATIONS", 40),
			BeamWidth:          getEnvInt("BEAM_WIDTH", 4),
			ValidatorMode:      parseValidatorMode(getEnv("VALIDATOR_MODE", string(ValidatorModeAction))),
			ValueTrigger:       getEnvFloat("VALUE_TRIGGER", 0.8),
			ValidationCooldown: getEnvInt("VALIDATION_COOLDOWN", 2),
			ValidatorConf:      getEnvFloat("VALIDATOR_CONF", 0.7),
			HintBoost:          getEnvFloat("HINT_BOOST", 0.35),
			SpecialHintBoost:   getEnvFloat("SPECIAL_HINT_BOOST", 0.10),
			LoopMaxDuplicates:  getEnvInt("LOOP_MAX_DUPLICATES", 3),
			LoopMaxValidations: getEnvInt("LOOP_MAX_VALIDATIONS", 5),
			TaskTTLMinutes:     getEnvInt("TASK_TTL_MINUTES", 60),
		},
	}
}

func parseValidatorMode(s string) ValidatorMode {
	switch ValidatorMode(strings.ToLower(strings.TrimSpace(s))) {
	case ValidatorModePeriodic:
		return ValidatorModePeriodic
	case ValidatorModeBoth:
		return ValidatorModeBoth
	default:
		return ValidatorModeAction
	}
}

// IsProduction returns true if running in production environment.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment returns true if running in development environment.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// String renders the config's non-secret fields, for startup logging.
func (c Config) String() string {
	return fmt.Sprintf(
		"env=%s llm_provider=%s tool_bridge=%q max_iterations=%d beam_width=%d validator_mode=%s",
		c.Env, c.LLM.Provider, c.ToolBridgeURL, c.Search.MaxIterations, c.Search.BeamWidth, c.Search.ValidatorMode,
	)
}
