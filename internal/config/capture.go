package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/glance/pkg/log"
)

// CaptureConfig names the external helper commands that do the actual
// OCR, recording and transcription. Each runs through `sh -c`.
type CaptureConfig struct {
	// ScreenCmd prints the current on-screen text to stdout.
	ScreenCmd string `env:"GLANCE_SCREEN_CMD,required,notEmpty"`
	// AudioCmd records one chunk and writes the raw audio to stdout;
	// the chunk duration in seconds is passed as GLANCE_CHUNK_SECONDS.
	AudioCmd string `env:"GLANCE_AUDIO_CMD,required,notEmpty"`
	// TranscribeCmd reads audio from stdin and prints the transcript.
	TranscribeCmd string `env:"GLANCE_TRANSCRIBE_CMD,required,notEmpty"`
}

func NewCaptureConfig(ctx context.Context) *CaptureConfig {
	c := &CaptureConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Capture config")
	}
	return c
}
