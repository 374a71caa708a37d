package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/leapmetrics/internal/engine"
	"github.com/spf13/cobra"
)

// errPromptAborted is returned when the operator interrupts a prompt.
var errPromptAborted = errors.New("prompt aborted")

// Prompter asks the operator a question and returns the answer.
type Prompter interface {
	Prompt(ctx context.Context, question string) (string, error)
}

// readlinePrompter reads answers with readline on the command's streams.
// One readline instance serves every prompt of a command, since it buffers
// input ahead of the current line.
type readlinePrompter struct {
	in  io.Reader
	out io.Writer
	rl  *readline.Instance
}

// newReadlinePrompter creates a prompter reading cmd's input. Questions go to
// the error output so standard output stays machine-readable.
func newReadlinePrompter(cmd *cobra.Command) Prompter {
	return &readlinePrompter{in: cmd.InOrStdin(), out: cmd.ErrOrStderr()}
}

func (p *readlinePrompter) instance(question string) (*readline.Instance, error) {
	if p.rl != nil {
		p.rl.SetPrompt(question)
		return p.rl, nil
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 question,
		Stdin:                  io.NopCloser(p.in),
		Stdout:                 p.out,
		InterruptPrompt:        "^C",
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt: %w", err)
	}
	p.rl = rl
	return rl, nil
}

func (p *readlinePrompter) Prompt(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rl, err := p.instance(question)
	if err != nil {
		return "", err
	}

	line, err := rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", errPromptAborted
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Close releases the readline instance, if one was created.
func (p *readlinePrompter) Close() error {
	if p.rl == nil {
		return nil
	}
	err := p.rl.Close()
	p.rl = nil
	return err
}

// confirmWith turns a prompter into a reset confirmation. Only "y" approves.
func confirmWith(p Prompter) engine.Confirmer {
	return engine.ConfirmFunc(func(ctx context.Context, msg string) (bool, error) {
		answer, err := p.Prompt(ctx, msg+" (y/n): ")
		if err != nil {
			return false, err
		}
		return strings.EqualFold(answer, "y"), nil
	})
}
