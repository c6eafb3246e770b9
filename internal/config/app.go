package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/glance/pkg/log"
)

type AppConfig struct {
	// Producers
	ScreenInterval  time.Duration `env:"GLANCE_SCREEN_INTERVAL" envDefault:"2s"`
	ScreenMinChars  int           `env:"GLANCE_SCREEN_MIN_CHARS" envDefault:"10"`
	AudioChunk      time.Duration `env:"GLANCE_AUDIO_CHUNK" envDefault:"5s"`
	AudioPendingCap int           `env:"GLANCE_AUDIO_PENDING" envDefault:"4"`

	// Rolling context buffer
	Retention  time.Duration `env:"GLANCE_RETENTION" envDefault:"5m"`
	MaxEntries int           `env:"GLANCE_MAX_ENTRIES" envDefault:"256"`

	// Dispatcher
	MaxContextTokens int           `env:"GLANCE_MAX_CONTEXT_TOKENS" envDefault:"4096"`
	RetryAttempts    int           `env:"GLANCE_RETRY_ATTEMPTS" envDefault:"3"`
	BackoffBase      time.Duration `env:"GLANCE_BACKOFF_BASE" envDefault:"1s"`
	BackoffFactor    float64       `env:"GLANCE_BACKOFF_FACTOR" envDefault:"2.0"`
	AITimeout        time.Duration `env:"GLANCE_AI_TIMEOUT" envDefault:"30s"`

	// Lifecycle
	ShutdownGrace time.Duration `env:"GLANCE_SHUTDOWN_GRACE" envDefault:"5s"`

	// Hotkeys, registered only when a platform registrar is wired in
	AskHotkey    string `env:"GLANCE_ASK_HOTKEY" envDefault:"ctrl+alt+c"`
	ToggleHotkey string `env:"GLANCE_TOGGLE_HOTKEY" envDefault:"ctrl+alt+v"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}
