// Package dispatcher turns a user query plus a context snapshot into
// one AI backend call with bounded retries.
package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/glance/internal/core"
	"github.com/sandevgo/glance/internal/store"
	"github.com/sandevgo/glance/pkg/log"
	"github.com/sandevgo/glance/pkg/retry"
)

// Dispatcher owns the single active-query slot. A Submit while a
// query is in flight cancels it (latest wins); the preempted query
// resolves as Cancelled and is never reported to the sink. An auth
// failure halts further submissions until the process is restarted
// with working credentials; the capture producers are unaffected.
type Dispatcher struct {
	store   *store.Store
	backend core.AIBackend
	sink    core.PresentationSink
	prompt  *PromptBuilder
	retrier *retry.Retrier
	timeout time.Duration

	mu           sync.Mutex
	baseCtx      context.Context
	cancelActive context.CancelFunc
	activeID     string

	authHalted atomic.Bool

	now func() time.Time
}

func New(st *store.Store, backend core.AIBackend, sink core.PresentationSink, prompt *PromptBuilder, retrier *retry.Retrier, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		store:   st,
		backend: backend,
		sink:    sink,
		prompt:  prompt,
		retrier: retrier,
		timeout: timeout,
		baseCtx: context.Background(),
		now:     time.Now,
	}
}

// Start pins the lifetime context; in-flight work is cancelled when
// it ends.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	d.baseCtx = ctx
	d.mu.Unlock()
	return nil
}

func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancelActive != nil {
		d.cancelActive()
		d.cancelActive = nil
		d.activeID = ""
	}
	return nil
}

// Submit snapshots the store and dispatches userText asynchronously.
// The returned channel delivers exactly one terminal result. The
// presentation sink is additionally notified for every non-cancelled
// outcome.
func (d *Dispatcher) Submit(userText string) <-chan core.QueryResult {
	req := core.QueryRequest{
		ID:           uuid.NewString(),
		UserText:     userText,
		SnapshotText: d.store.Snapshot(),
		SubmittedAt:  d.now(),
	}
	out := make(chan core.QueryResult, 1)

	d.mu.Lock()
	if d.cancelActive != nil {
		d.cancelActive()
	}
	ctx, cancel := context.WithCancel(d.baseCtx)
	d.cancelActive = cancel
	d.activeID = req.ID
	d.mu.Unlock()

	go d.run(ctx, req, out)
	return out
}

func (d *Dispatcher) run(ctx context.Context, req core.QueryRequest, out chan<- core.QueryResult) {
	defer d.release(req.ID)
	logger := log.FromCtx(ctx)

	if d.authHalted.Load() {
		d.deliver(out, core.QueryResult{
			RequestID: req.ID,
			Outcome:   core.OutcomeFailure,
			ErrKind:   core.KindAuth,
		})
		return
	}

	prompt := d.prompt.Build(req.SnapshotText, req.UserText)
	logger.Debug().Str("request_id", req.ID).Msg("dispatching query")

	var answer string
	attempts, err := d.retrier.Do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		a, err := d.backend.Generate(callCtx, prompt)
		if err == nil {
			answer = a
			return nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return retry.Permanent(err)
		}
		var be *core.BackendError
		if errors.As(err, &be) && !be.Transient() {
			return retry.Permanent(err)
		}
		logger.Warn().Err(err).Str("request_id", req.ID).Msg("backend call failed, will retry")
		return err
	})

	switch {
	case err == nil:
		logger.Info().Str("request_id", req.ID).Int("attempts", attempts).Msg("query answered")
		d.deliver(out, core.QueryResult{
			RequestID: req.ID,
			Outcome:   core.OutcomeSuccess,
			Answer:    answer,
			Attempts:  attempts,
		})

	case ctx.Err() != nil:
		// Preempted by a newer submit or by shutdown. Not an error
		// and never reported to the sink.
		logger.Debug().Str("request_id", req.ID).Msg("query cancelled")
		out <- core.QueryResult{
			RequestID: req.ID,
			Outcome:   core.OutcomeCancelled,
			Attempts:  attempts,
		}

	default:
		kind := core.ClassifyErr(err)
		if kind == core.KindAuth {
			d.authHalted.Store(true)
			logger.Error().Err(err).Msg("authentication failed, halting submissions")
		} else {
			logger.Error().Err(err).Str("request_id", req.ID).Int("attempts", attempts).Msg("query failed")
		}
		d.deliver(out, core.QueryResult{
			RequestID: req.ID,
			Outcome:   core.OutcomeFailure,
			ErrKind:   kind,
			Attempts:  attempts,
		})
	}
}

// deliver resolves the caller's channel and notifies the sink.
func (d *Dispatcher) deliver(out chan<- core.QueryResult, res core.QueryResult) {
	out <- res
	if d.sink != nil {
		d.sink.OnResult(res)
	}
}

// release frees the active slot if this request still owns it.
func (d *Dispatcher) release(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.activeID == id {
		d.cancelActive()
		d.cancelActive = nil
		d.activeID = ""
	}
}
