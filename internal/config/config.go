package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

type Config struct {
	// Server
	Port string `env:"PORT" envDefault:"8080"`

	// Storage. Empty DATABASE_URL falls back to the in-memory session
	// store (demo / test mode).
	DatabaseURL   string `env:"DATABASE_URL"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"file://migrations"`

	// Startup artifacts
	KnowledgeBasePath string `env:"KNOWLEDGE_BASE_PATH" envDefault:"data/knowledge_base.json"`
	ArtifactPath      string `env:"CLASSIFIER_ARTIFACT_PATH" envDefault:"data/classifier_artifact.json"`

	// Triage tunables
	ConfidenceThreshold float64 `env:"CONFIDENCE_THRESHOLD" envDefault:"0.35"`
	AmbiguityMargin     float64 `env:"AMBIGUITY_MARGIN" envDefault:"0.05"`
	FollowupTopK        int     `env:"FOLLOWUP_TOP_K" envDefault:"5"`
	MaxTurns            int     `env:"MAX_TURNS" envDefault:"6"`
	InconclusiveTopN    int     `env:"INCONCLUSIVE_TOP_N" envDefault:"3"`

	// Report delivery (optional)
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	DoctorChatID     int64  `env:"DOCTOR_CHAT_ID"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if cfg.ConfidenceThreshold <= 0 || cfg.ConfidenceThreshold >= 1 {
		return nil, errors.Errorf("CONFIDENCE_THRESHOLD %v outside (0,1)", cfg.ConfidenceThreshold)
	}
	if cfg.AmbiguityMargin < 0 || cfg.AmbiguityMargin >= 1 {
		return nil, errors.Errorf("AMBIGUITY_MARGIN %v outside [0,1)", cfg.AmbiguityMargin)
	}
	if cfg.MaxTurns < 1 {
		return nil, errors.Errorf("MAX_TURNS must be at least 1, got %d", cfg.MaxTurns)
	}
	return cfg, nil
}
