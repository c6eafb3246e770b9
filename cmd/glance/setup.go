package main

import (
	"context"
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/sandevgo/glance/internal/config"
	"github.com/sandevgo/glance/internal/core"
	"github.com/sandevgo/glance/internal/producer"
	"github.com/sandevgo/glance/internal/providers/capture"
	"github.com/sandevgo/glance/internal/providers/llm"
	"github.com/sandevgo/glance/internal/service/dispatcher"
	"github.com/sandevgo/glance/internal/store"
	"github.com/sandevgo/glance/internal/transport/console"
	"github.com/sandevgo/glance/pkg/log"
	"github.com/sandevgo/glance/pkg/retry"
	"github.com/sandevgo/glance/pkg/srv"
)

// hotkeys is set by a platform shell build that links a global-hotkey
// implementation; the plain CLI build leaves it nil and the console
// transport is the only trigger source.
var hotkeys core.HotkeyRegistrar

const pingTimeout = 10 * time.Second

func NewServices(ctx context.Context, stop func()) ([]srv.Service, time.Duration) {
	logger := log.FromCtx(ctx)

	// Optional .env next to the binary; real env always wins.
	if err := godotenv.Load(); err == nil {
		logger.Debug().Msg("loaded .env file")
	}

	// 1. Configuration. Parse failures (including the missing API
	// credential) exit before any producer starts.
	appCfg := config.NewAppConfig(ctx)
	geminiCfg := config.NewGeminiConfig(ctx)
	captureCfg := config.NewCaptureConfig(ctx)

	services := make([]srv.Service, 0)

	// 2. AI backend, probed once before anything else runs. Its idle
	// connections are released last on shutdown.
	backend := llm.NewGemini(geminiCfg)
	probeBackend(ctx, backend)
	services = append(services, srv.NewCleanup(backend.Close))

	// 3. The shared rolling context buffer.
	st := store.New(appCfg.MaxEntries, appCfg.Retention)

	// 4. Dispatcher.
	prompt, err := dispatcher.NewPromptBuilder(appCfg.MaxContextTokens)
	if err != nil {
		logger.Warn().Err(err).Msg("tokenizer unavailable, using byte estimate for context budget")
		prompt = dispatcher.NewPromptBuilderWithCounter(nil, appCfg.MaxContextTokens)
	}
	retrier := retry.NewRetrier(&retry.Config{
		MaxAttempts:   appCfg.RetryAttempts,
		BackoffFactor: appCfg.BackoffFactor,
		InitialDelay:  appCfg.BackoffBase,
		MaxDelay:      appCfg.AITimeout,
		Jitter:        50 * time.Millisecond,
	})
	sink := console.NewSink()
	disp := dispatcher.New(st, backend, sink, prompt, retrier, appCfg.AITimeout)

	// 5. Capture producers.
	screen := producer.NewScreen(
		capture.NewExecScreen(captureCfg.ScreenCmd),
		st,
		appCfg.ScreenInterval,
		appCfg.ScreenMinChars,
	)
	audio := producer.NewAudio(
		capture.NewExecAudioSource(captureCfg.AudioCmd, appCfg.AudioChunk),
		capture.NewExecTranscriber(captureCfg.TranscribeCmd),
		st,
		appCfg.AudioPendingCap,
	)

	// 6. Trigger sources.
	cons, err := console.New(disp, []console.Pauser{screen, audio}, stop)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize console")
	}
	registerHotkeys(ctx, appCfg, disp, []console.Pauser{screen, audio})

	services = append(services, disp, screen, audio, cons)
	return services, appCfg.ShutdownGrace
}

// probeBackend verifies credentials before the capture loops start.
// An auth rejection is a configuration error; a transient failure
// only logs, the dispatcher retries per query anyway.
func probeBackend(ctx context.Context, backend *llm.Gemini) {
	logger := log.FromCtx(ctx)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := backend.Ping(pctx)
	if err == nil {
		logger.Info().Msg("AI backend reachable")
		return
	}

	var be *core.BackendError
	if errors.As(err, &be) && be.Kind == core.KindAuth {
		logger.Fatal().Err(err).Msg("AI backend rejected credentials")
	}
	logger.Warn().Err(err).Msg("AI backend probe failed, continuing")
}

// registerHotkeys binds the global combos when a platform registrar
// is linked in.
func registerHotkeys(ctx context.Context, cfg *config.AppConfig, disp *dispatcher.Dispatcher, producers []console.Pauser) {
	if hotkeys == nil {
		return
	}
	logger := log.FromCtx(ctx)

	if err := hotkeys.Register(cfg.AskHotkey, func() {
		disp.Submit("What is happening on screen right now?")
	}); err != nil {
		logger.Error().Err(err).Str("combo", cfg.AskHotkey).Msg("failed to register ask hotkey")
	}

	paused := false
	if err := hotkeys.Register(cfg.ToggleHotkey, func() {
		paused = !paused
		for _, p := range producers {
			if paused {
				p.Pause()
			} else {
				p.Resume()
			}
		}
	}); err != nil {
		logger.Error().Err(err).Str("combo", cfg.ToggleHotkey).Msg("failed to register toggle hotkey")
	}
}
