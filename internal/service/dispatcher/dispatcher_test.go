package dispatcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/glance/internal/core"
	"github.com/sandevgo/glance/internal/store"
	"github.com/sandevgo/glance/pkg/retry"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, call int, prompt string) (string, error)

	started chan struct{} // closed on the first call when non-nil
	once    sync.Once
}

func (f *fakeBackend) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	return f.fn(ctx, call, prompt)
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingSink struct {
	mu      sync.Mutex
	results []core.QueryResult
}

func (s *recordingSink) OnResult(res core.QueryResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
}

func (s *recordingSink) all() []core.QueryResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.QueryResult(nil), s.results...)
}

func fastRetrier(maxAttempts int, delay time.Duration) *retry.Retrier {
	return retry.NewRetrier(&retry.Config{
		MaxAttempts:   maxAttempts,
		BackoffFactor: 2.0,
		InitialDelay:  delay,
		MaxDelay:      time.Second,
		Jitter:        time.Millisecond,
	})
}

func newTestDispatcher(t *testing.T, st *store.Store, backend core.AIBackend, sink core.PresentationSink, retrier *retry.Retrier, timeout time.Duration) *Dispatcher {
	t.Helper()
	prompt := NewPromptBuilderWithCounter(wordCounter{}, 1000)
	d := New(st, backend, sink, prompt, retrier, timeout)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start dispatcher: %v", err)
	}
	return d
}

func TestSubmit_SuccessFirstAttempt(t *testing.T) {
	st := store.New(16, time.Hour)
	st.Append(core.ContextEntry{Source: core.SourceScreen, Text: "slide about revenue", Timestamp: time.Now()})

	var gotPrompt string
	backend := &fakeBackend{fn: func(ctx context.Context, call int, prompt string) (string, error) {
		gotPrompt = prompt
		return "the revenue is up", nil
	}}
	sink := &recordingSink{}
	d := newTestDispatcher(t, st, backend, sink, fastRetrier(3, time.Millisecond), time.Second)

	res := <-d.Submit("how is revenue?")

	if res.Outcome != core.OutcomeSuccess {
		t.Fatalf("outcome = %v, want success", res.Outcome)
	}
	if res.Answer != "the revenue is up" {
		t.Errorf("answer = %q", res.Answer)
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", res.Attempts)
	}
	if !strings.Contains(gotPrompt, "slide about revenue") {
		t.Errorf("prompt missing snapshot: %q", gotPrompt)
	}
	if !strings.Contains(gotPrompt, "USER QUESTION: how is revenue?") {
		t.Errorf("prompt missing question: %q", gotPrompt)
	}
	if got := sink.all(); len(got) != 1 || got[0].RequestID != res.RequestID {
		t.Errorf("sink must receive the result exactly once, got %v", got)
	}
}

func TestSubmit_EmptyStorePromptHasOnlyQuery(t *testing.T) {
	st := store.New(16, time.Hour)

	var gotPrompt string
	backend := &fakeBackend{fn: func(ctx context.Context, call int, prompt string) (string, error) {
		gotPrompt = prompt
		return "ok", nil
	}}
	d := newTestDispatcher(t, st, backend, &recordingSink{}, fastRetrier(3, time.Millisecond), time.Second)

	<-d.Submit("hello there")

	if strings.Contains(gotPrompt, "CAPTURED CONTEXT") {
		t.Errorf("empty store must not add a context section: %q", gotPrompt)
	}
	if !strings.Contains(gotPrompt, "USER QUESTION: hello there") {
		t.Errorf("prompt missing question: %q", gotPrompt)
	}
}

func TestSubmit_TransientFailureThenSuccess(t *testing.T) {
	st := store.New(16, time.Hour)
	backend := &fakeBackend{fn: func(ctx context.Context, call int, prompt string) (string, error) {
		if call == 1 {
			return "", &core.BackendError{Kind: core.KindNetwork, Err: errors.New("connection reset")}
		}
		return "recovered", nil
	}}
	d := newTestDispatcher(t, st, backend, &recordingSink{}, fastRetrier(3, time.Millisecond), time.Second)

	res := <-d.Submit("q")

	if res.Outcome != core.OutcomeSuccess {
		t.Fatalf("outcome = %v, want success", res.Outcome)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
}

func TestSubmit_TimeoutsExhaustAttempts(t *testing.T) {
	st := store.New(16, time.Hour)
	backend := &fakeBackend{fn: func(ctx context.Context, call int, prompt string) (string, error) {
		<-ctx.Done()
		// The per-call deadline fired; a real provider reports this
		// as a transient backend error.
		return "", &core.BackendError{Kind: core.KindNetwork, Err: ctx.Err()}
	}}

	const attempts = 3
	const baseDelay = 20 * time.Millisecond
	d := newTestDispatcher(t, st, backend, &recordingSink{}, fastRetrier(attempts, baseDelay), 10*time.Millisecond)

	start := time.Now()
	res := <-d.Submit("q")
	elapsed := time.Since(start)

	if res.Outcome != core.OutcomeFailure {
		t.Fatalf("outcome = %v, want failure", res.Outcome)
	}
	if res.ErrKind != core.KindNetwork {
		t.Errorf("kind = %v, want network", res.ErrKind)
	}
	if res.Attempts != attempts {
		t.Errorf("attempts = %d, want %d", res.Attempts, attempts)
	}
	// Two backoff sleeps: baseDelay then 2*baseDelay.
	if minElapsed := 3 * baseDelay; elapsed < minElapsed {
		t.Errorf("elapsed %v, want at least %v of backoff", elapsed, minElapsed)
	}
}

func TestSubmit_LatestWinsPreemption(t *testing.T) {
	st := store.New(16, time.Hour)
	started := make(chan struct{})
	backend := &fakeBackend{
		started: started,
		fn: func(ctx context.Context, call int, prompt string) (string, error) {
			if call == 1 {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "second answer", nil
		},
	}
	sink := &recordingSink{}
	d := newTestDispatcher(t, st, backend, sink, fastRetrier(3, time.Millisecond), time.Second)

	first := d.Submit("first question")
	<-started
	second := d.Submit("second question")

	res1 := <-first
	if res1.Outcome != core.OutcomeCancelled {
		t.Fatalf("preempted query outcome = %v, want cancelled", res1.Outcome)
	}

	res2 := <-second
	if res2.Outcome != core.OutcomeSuccess {
		t.Fatalf("second query outcome = %v, want success", res2.Outcome)
	}
	if res2.Answer != "second answer" {
		t.Errorf("answer = %q", res2.Answer)
	}

	for _, r := range sink.all() {
		if r.RequestID == res1.RequestID {
			t.Errorf("cancelled query must not reach the sink")
		}
	}
}

func TestSubmit_AuthFailureHaltsSubmissions(t *testing.T) {
	st := store.New(16, time.Hour)
	backend := &fakeBackend{fn: func(ctx context.Context, call int, prompt string) (string, error) {
		return "", &core.BackendError{Kind: core.KindAuth, Status: 401, Err: errors.New("bad key")}
	}}
	d := newTestDispatcher(t, st, backend, &recordingSink{}, fastRetrier(3, time.Millisecond), time.Second)

	res := <-d.Submit("q")
	if res.Outcome != core.OutcomeFailure || res.ErrKind != core.KindAuth {
		t.Fatalf("got %v/%v, want auth failure", res.Outcome, res.ErrKind)
	}
	if res.Attempts != 1 {
		t.Errorf("auth errors must not be retried, attempts = %d", res.Attempts)
	}

	res2 := <-d.Submit("q again")
	if res2.Outcome != core.OutcomeFailure || res2.ErrKind != core.KindAuth {
		t.Fatalf("halted dispatcher must fail with auth, got %v/%v", res2.Outcome, res2.ErrKind)
	}
	if backend.callCount() != 1 {
		t.Errorf("halted dispatcher must not call the backend, calls = %d", backend.callCount())
	}
}

func TestShutdown_CancelsInFlight(t *testing.T) {
	st := store.New(16, time.Hour)
	started := make(chan struct{})
	backend := &fakeBackend{
		started: started,
		fn: func(ctx context.Context, call int, prompt string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	d := newTestDispatcher(t, st, backend, &recordingSink{}, fastRetrier(3, time.Millisecond), time.Second)

	out := d.Submit("q")
	<-started
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	res := <-out
	if res.Outcome != core.OutcomeCancelled {
		t.Errorf("in-flight query on shutdown = %v, want cancelled", res.Outcome)
	}
}
