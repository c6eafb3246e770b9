package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sandevgo/glance/internal/config"
	"github.com/sandevgo/glance/internal/core"
)

// Gemini talks to the generateContent REST endpoint. Failures are
// classified into the core taxonomy so the dispatcher can decide what
// to retry: 401/403 are fatal, 429 is rate-limited, everything else
// (including transport errors and timeouts) is transient.
type Gemini struct {
	baseProvider
}

func NewGemini(cfg *config.GeminiConfig) *Gemini {
	return &Gemini{
		baseProvider: newBaseProvider(cfg.BaseURL, cfg.APIKey, cfg.Model),
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}

	path := fmt.Sprintf("/v1beta/models/%s:generateContent", g.model)
	headers := map[string]string{
		"x-goog-api-key": g.apiKey,
		"User-Agent":     core.GlanceName + "/" + core.GlanceVersion,
	}

	resp, err := g.doRequest(ctx, http.MethodPost, path, payload, headers)
	if err != nil {
		// Let pure cancellation through so preemption stays
		// distinguishable from a backend fault.
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", &core.BackendError{Kind: core.KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	return parseGeminiResponse(resp)
}

// Ping issues a minimal generate call to verify credentials and
// connectivity before the capture loops start.
func (g *Gemini) Ping(ctx context.Context) error {
	_, err := g.Generate(ctx, "ping")
	return err
}

// Close releases idle backend connections.
func (g *Gemini) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

func parseGeminiResponse(resp *http.Response) (string, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &core.BackendError{Kind: core.KindNetwork, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &core.BackendError{
			Kind:   classifyStatus(resp.StatusCode),
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(string(data))),
		}
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []geminiPart `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", &core.BackendError{Kind: core.KindNetwork, Err: fmt.Errorf("decode: %w", err)}
	}
	if len(result.Candidates) == 0 {
		return "", &core.BackendError{Kind: core.KindNetwork, Err: fmt.Errorf("empty candidates: %s", string(data))}
	}

	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	answer := strings.TrimSpace(b.String())
	if answer == "" {
		return "", &core.BackendError{Kind: core.KindNetwork, Err: errors.New("empty answer")}
	}
	return answer, nil
}

func classifyStatus(status int) core.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return core.KindAuth
	case status == http.StatusTooManyRequests:
		return core.KindRateLimit
	default:
		return core.KindNetwork
	}
}
