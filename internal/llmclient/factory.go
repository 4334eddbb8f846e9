package llmclient

import "fmt"

// Config is the subset of core/config.LLMConfig the factory needs,
// duplicated here (rather than imported) to keep llmclient free of a
// dependency on the config package's env-var loading concerns.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// New builds the configured provider's backend and wraps it in the shared
// resilience layer.
func New(cfg Config) (LLM, error) {
	var backend LLM
	var err error

	switch cfg.Provider {
	case "anthropic":
		backend, err = NewAnthropic(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "openai", "":
		backend, err = NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return Wrap(backend, ResilienceConfig{BreakerName: "llmclient." + cfg.Provider}), nil
}
