package dispatcher

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const promptPreamble = "You are Glance, an assistant that helps the user during meetings and presentations. " +
	"You can see recent on-screen text and hear the meeting audio. " +
	"Provide helpful, concise, and contextually relevant answers.\n\n"

// tokenCounter abstracts the tokenizer so tests don't need the BPE
// data files.
type tokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// PromptBuilder merges a store snapshot with the user query. The
// snapshot is trimmed oldest-first to stay within the token budget
// before it is templated.
type PromptBuilder struct {
	counter   tokenCounter
	maxTokens int
}

func NewPromptBuilder(maxTokens int) (*PromptBuilder, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &PromptBuilder{counter: &tiktokenCounter{enc: enc}, maxTokens: maxTokens}, nil
}

// NewPromptBuilderWithCounter is used by tests and by the fallback
// path when the tokenizer data is unavailable.
func NewPromptBuilderWithCounter(counter tokenCounter, maxTokens int) *PromptBuilder {
	return &PromptBuilder{counter: counter, maxTokens: maxTokens}
}

// Build renders the final prompt. An empty snapshot produces a prompt
// with only the preamble and the user question, no context section.
func (b *PromptBuilder) Build(snapshot, userQuery string) string {
	var sb strings.Builder
	sb.WriteString(promptPreamble)

	if snapshot = b.trim(snapshot); snapshot != "" {
		sb.WriteString("CAPTURED CONTEXT (oldest first):\n")
		sb.WriteString(snapshot)
		sb.WriteString("\n\n")
	}

	sb.WriteString("USER QUESTION: ")
	sb.WriteString(userQuery)
	sb.WriteString("\n\nASSISTANT:")
	return sb.String()
}

// trim drops snapshot lines oldest-first until the remainder fits the
// token budget.
func (b *PromptBuilder) trim(snapshot string) string {
	if snapshot == "" || b.count(snapshot) <= b.maxTokens {
		return snapshot
	}
	lines := strings.Split(snapshot, "\n")
	for len(lines) > 0 {
		lines = lines[1:]
		rest := strings.Join(lines, "\n")
		if b.count(rest) <= b.maxTokens {
			return rest
		}
	}
	return ""
}

// count falls back to a rough bytes-per-token estimate when no
// tokenizer is wired in.
func (b *PromptBuilder) count(text string) int {
	if b.counter == nil {
		return len(text) / 4
	}
	return b.counter.Count(text)
}
