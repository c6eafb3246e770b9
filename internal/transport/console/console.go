// Package console is the interactive terminal transport: it reads
// queries from stdin and routes them into the dispatcher, standing in
// for the desktop overlay and its global hotkeys.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/glance/internal/service/dispatcher"
	"github.com/sandevgo/glance/pkg/log"
)

// Pauser is implemented by the capture producers.
type Pauser interface {
	Pause()
	Resume()
}

type Console struct {
	dispatcher *dispatcher.Dispatcher
	producers  []Pauser
	stop       func()
	rl         *readline.Instance
	paused     bool
}

// New builds the console transport. stop initiates process shutdown
// when the user types exit.
func New(d *dispatcher.Dispatcher, producers []Pauser, stop func()) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return &Console{
		dispatcher: d,
		producers:  producers,
		stop:       stop,
		rl:         rl,
	}, nil
}

func (c *Console) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("console ready; type a question, /pause, /resume or exit")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					c.stop()
					return nil
				}
				continue
			}
			if err == io.EOF {
				c.stop()
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit":
			c.stop()
			return nil
		case line == "/pause":
			c.setPaused(true)
		case line == "/resume":
			c.setPaused(false)
		default:
			// Fire and forget; the sink prints the outcome. A new
			// question while one is pending preempts it.
			c.dispatcher.Submit(line)
		}
	}
}

func (c *Console) Shutdown(ctx context.Context) error {
	if c.rl != nil {
		return c.rl.Close()
	}
	return nil
}

func (c *Console) setPaused(paused bool) {
	if c.paused == paused {
		return
	}
	c.paused = paused
	for _, p := range c.producers {
		if paused {
			p.Pause()
		} else {
			p.Resume()
		}
	}
	state := "resumed"
	if paused {
		state = "paused"
	}
	fmt.Fprintf(c.rl.Stdout(), "capture %s\n", state)
}
