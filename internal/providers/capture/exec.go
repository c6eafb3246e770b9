// Package capture adapts external helper processes to the capture
// interfaces. The actual OCR and speech-to-text engines live outside
// this module; these adapters only shuttle bytes to and from them.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// ExecScreen runs a command that prints the visible screen text.
type ExecScreen struct {
	command string
}

func NewExecScreen(command string) *ExecScreen {
	return &ExecScreen{command: command}
}

func (e *ExecScreen) CaptureText(ctx context.Context) (string, error) {
	out, err := runCommand(ctx, e.command, nil, nil)
	if err != nil {
		return "", fmt.Errorf("screen capture command: %w", err)
	}
	return string(out), nil
}

// ExecAudioSource runs a command that records one chunk of the
// configured duration and writes the raw audio to stdout. The
// duration is exported to the child as GLANCE_CHUNK_SECONDS.
type ExecAudioSource struct {
	command string
	chunk   time.Duration
}

func NewExecAudioSource(command string, chunk time.Duration) *ExecAudioSource {
	return &ExecAudioSource{command: command, chunk: chunk}
}

func (e *ExecAudioSource) NextChunk(ctx context.Context) ([]byte, error) {
	env := []string{fmt.Sprintf("GLANCE_CHUNK_SECONDS=%d", int(e.chunk.Seconds()))}
	out, err := runCommand(ctx, e.command, nil, env)
	if err != nil {
		return nil, fmt.Errorf("audio capture command: %w", err)
	}
	return out, nil
}

// ExecTranscriber pipes an audio chunk to a command's stdin and reads
// the transcript from its stdout.
type ExecTranscriber struct {
	command string
}

func NewExecTranscriber(command string) *ExecTranscriber {
	return &ExecTranscriber{command: command}
}

func (e *ExecTranscriber) Transcribe(ctx context.Context, chunk []byte) (string, error) {
	out, err := runCommand(ctx, e.command, chunk, nil)
	if err != nil {
		return "", fmt.Errorf("transcription command: %w", err)
	}
	return string(out), nil
}

func runCommand(ctx context.Context, command string, stdin []byte, extraEnv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Env = append(os.Environ(), extraEnv...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
