package core

import "time"

const (
	GlanceName    = "Glance"
	GlanceVersion = "0.1.0"
)

// Source identifies which capture path produced a context entry.
// The ordinal is also the tie-break priority for entries sharing a
// timestamp: screen text sorts before audio transcripts.
type Source int

const (
	SourceScreen Source = iota
	SourceAudio
)

func (s Source) String() string {
	switch s {
	case SourceScreen:
		return "screen"
	case SourceAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// ContextEntry is one timestamped unit of captured text. Immutable
// once created.
type ContextEntry struct {
	Source    Source
	Text      string
	Timestamp time.Time
}

// QueryRequest carries one user query together with the store
// snapshot taken at submit time.
type QueryRequest struct {
	ID           string
	UserText     string
	SnapshotText string
	SubmittedAt  time.Time
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// QueryResult is the terminal outcome of one submitted query.
// Answer is set on success, ErrKind on failure. Attempts counts the
// backend calls actually made, including a successful one.
type QueryResult struct {
	RequestID string
	Outcome   Outcome
	Answer    string
	ErrKind   ErrorKind
	Attempts  int
}
