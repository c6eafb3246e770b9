package core

import "context"

// ScreenCapturer extracts the visible on-screen text. Implemented by
// the platform OCR layer outside this module.
type ScreenCapturer interface {
	CaptureText(ctx context.Context) (string, error)
}

// AudioSource records and returns one fixed-duration audio chunk.
// Blocks for the chunk duration; must honor ctx cancellation.
type AudioSource interface {
	NextChunk(ctx context.Context) ([]byte, error)
}

// Transcriber turns a raw audio chunk into text.
type Transcriber interface {
	Transcribe(ctx context.Context, chunk []byte) (string, error)
}

// AIBackend answers a fully built prompt. The per-call timeout is
// carried on ctx.
type AIBackend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PresentationSink receives the terminal result of every
// non-cancelled submitted query, exactly once.
type PresentationSink interface {
	OnResult(res QueryResult)
}

// HotkeyRegistrar is implemented by the platform global-hotkey layer.
// The desktop shell registers the ask/toggle combos and routes their
// callbacks into the dispatcher and producers.
type HotkeyRegistrar interface {
	Register(combo string, fn func()) error
}
