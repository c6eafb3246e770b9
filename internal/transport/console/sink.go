package console

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/sandevgo/glance/internal/core"
)

var (
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Sink prints query results to the terminal. It is the default
// presentation layer when no overlay shell is attached.
type Sink struct {
	out io.Writer
}

func NewSink() *Sink {
	return &Sink{out: os.Stdout}
}

func (s *Sink) OnResult(res core.QueryResult) {
	switch res.Outcome {
	case core.OutcomeSuccess:
		fmt.Fprintln(s.out, answerStyle.Render(res.Answer))
	case core.OutcomeFailure:
		fmt.Fprintln(s.out, errorStyle.Render(failureMessage(res.ErrKind)))
		// A halted dispatcher refuses without calling the backend;
		// there is no attempt count worth showing then.
		if res.Attempts > 0 {
			fmt.Fprintln(s.out, faintStyle.Render(fmt.Sprintf("(%d attempts)", res.Attempts)))
		}
	case core.OutcomeCancelled:
		// Preempted queries are silent.
	}
}

func failureMessage(kind core.ErrorKind) string {
	switch kind {
	case core.KindAuth:
		return "Authentication failed. Check GEMINI_API_KEY and restart."
	case core.KindRateLimit:
		return "The AI backend is rate-limiting requests. Try again shortly."
	default:
		return "Could not reach the AI backend. Try again."
	}
}
