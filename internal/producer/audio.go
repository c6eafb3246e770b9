package producer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sandevgo/glance/internal/core"
	"github.com/sandevgo/glance/internal/store"
	"github.com/sandevgo/glance/pkg/log"
)

type audioChunk struct {
	data       []byte
	capturedAt time.Time
}

// Audio records fixed-duration chunks and transcribes them strictly
// in order. Capture and transcription run on separate goroutines
// joined by a bounded queue: when transcription falls behind, the
// oldest pending chunk is dropped so capture never blocks for long.
// A failed transcription drops only that chunk.
type Audio struct {
	source      core.AudioSource
	transcriber core.Transcriber
	store       *store.Store
	pending     chan audioChunk

	paused atomic.Bool

	now func() time.Time
}

func NewAudio(source core.AudioSource, transcriber core.Transcriber, st *store.Store, pendingCap int) *Audio {
	return &Audio{
		source:      source,
		transcriber: transcriber,
		store:       st,
		pending:     make(chan audioChunk, pendingCap),
		now:         time.Now,
	}
}

func (p *Audio) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Int("pending_cap", cap(p.pending)).Msg("starting audio producer")

	go p.captureLoop(ctx)
	p.transcribeLoop(ctx)
	return nil
}

func (p *Audio) Shutdown(ctx context.Context) error {
	return nil
}

func (p *Audio) captureLoop(ctx context.Context) {
	logger := log.FromCtx(ctx)
	for {
		if ctx.Err() != nil {
			return
		}
		if p.paused.Load() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}

		data, err := p.source.NextChunk(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("audio capture failed")
			continue
		}
		if len(data) == 0 {
			continue
		}
		p.enqueue(ctx, audioChunk{data: data, capturedAt: p.now()})
	}
}

// enqueue adds a chunk to the pending queue, evicting the oldest
// pending chunk when full.
func (p *Audio) enqueue(ctx context.Context, c audioChunk) {
	select {
	case p.pending <- c:
		return
	default:
	}

	select {
	case dropped := <-p.pending:
		log.FromCtx(ctx).Warn().
			Time("captured_at", dropped.capturedAt).
			Msg("transcription backlog full, dropping oldest chunk")
	default:
	}

	select {
	case p.pending <- c:
	default:
	}
}

func (p *Audio) transcribeLoop(ctx context.Context) {
	logger := log.FromCtx(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-p.pending:
			text, err := p.transcriber.Transcribe(ctx, c.data)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error().Err(err).Msg("transcription failed, dropping chunk")
				continue
			}
			text = CleanText(text)
			if text == "" {
				continue
			}
			p.store.Append(core.ContextEntry{
				Source:    core.SourceAudio,
				Text:      text,
				Timestamp: c.capturedAt,
			})
		}
	}
}

func (p *Audio) Pause()  { p.paused.Store(true) }
func (p *Audio) Resume() { p.paused.Store(false) }
