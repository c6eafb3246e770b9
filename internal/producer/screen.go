// Package producer contains the background capture loops feeding the
// context store.
package producer

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sandevgo/glance/internal/core"
	"github.com/sandevgo/glance/internal/store"
	"github.com/sandevgo/glance/pkg/log"
)

// Screen samples on-screen text at a fixed interval and appends it to
// the store. Captures shorter than minChars are treated as OCR noise;
// a capture identical to the previous one is skipped so static
// screens don't flood the buffer. Capture failures are logged and the
// loop continues.
type Screen struct {
	capture  core.ScreenCapturer
	store    *store.Store
	interval time.Duration
	minChars int

	paused   atomic.Bool
	lastText string

	now func() time.Time
}

func NewScreen(capture core.ScreenCapturer, st *store.Store, interval time.Duration, minChars int) *Screen {
	return &Screen{
		capture:  capture,
		store:    st,
		interval: interval,
		minChars: minChars,
		now:      time.Now,
	}
}

func (p *Screen) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Dur("interval", p.interval).Msg("starting screen producer")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Screen) Shutdown(ctx context.Context) error {
	return nil
}

func (p *Screen) tick(ctx context.Context) {
	if p.paused.Load() {
		return
	}

	text, err := p.capture.CaptureText(ctx)
	if err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("screen capture failed")
		return
	}

	text = CleanText(text)
	if len([]rune(text)) < p.minChars {
		return
	}
	if text == p.lastText {
		return
	}
	p.lastText = text

	p.store.Append(core.ContextEntry{
		Source:    core.SourceScreen,
		Text:      text,
		Timestamp: p.now(),
	})
}

func (p *Screen) Pause()  { p.paused.Store(true) }
func (p *Screen) Resume() { p.paused.Store(false) }

// CleanText normalizes raw OCR output: trims each line and drops
// blank ones.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
