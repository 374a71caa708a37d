package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrompter(t *testing.T, input string) (*readlinePrompter, *bytes.Buffer) {
	t.Helper()
	var errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader(input))
	cmd.SetErr(&errOut)

	p, ok := newReadlinePrompter(cmd).(*readlinePrompter)
	require.True(t, ok)
	t.Cleanup(func() { _ = p.Close() })
	return p, &errOut
}

func TestReadlinePrompter_SuccessivePrompts(t *testing.T) {
	p, errOut := newTestPrompter(t, "2\n y \n")
	ctx := context.Background()

	answer, err := p.Prompt(ctx, "Enter choice (1 or 2): ")
	require.NoError(t, err)
	assert.Equal(t, "2", answer)

	answer, err = p.Prompt(ctx, "Proceed? (y/n): ")
	require.NoError(t, err)
	assert.Equal(t, "y", answer)

	_, err = p.Prompt(ctx, "Again? ")
	assert.ErrorIs(t, err, errPromptAborted)

	assert.Contains(t, errOut.String(), "Enter choice (1 or 2): ")
}

func TestReadlinePrompter_Close(t *testing.T) {
	p, _ := newTestPrompter(t, "1\n")
	require.NoError(t, p.Close(), "closing an unused prompter is a no-op")

	_, err := p.Prompt(context.Background(), "Choice: ")
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.Nil(t, p.rl)
}

func TestReadlinePrompter_CancelledContext(t *testing.T) {
	p, _ := newTestPrompter(t, "1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Prompt(ctx, "Choice: ")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, p.rl)
}

func TestConfirmWith(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", false},
		{"n\n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			p, _ := newTestPrompter(t, tt.input)
			ok, err := confirmWith(p).Confirm(context.Background(), "Drop every table?")
			if tt.input == "" {
				require.ErrorIs(t, err, errPromptAborted)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestCleanCommand_InteractiveReset(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantCancelled bool
		wantRemaining int
	}{
		{name: "reset confirmed", input: "2\ny\n", wantRemaining: 0},
		{name: "reset declined", input: "2\nn\n", wantCancelled: true, wantRemaining: 5},
		{name: "metrics only", input: "1\n", wantRemaining: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupProject(t)
			loadProject(t, dir, "json")

			cmd := NewCleanCommand()
			cmd.SetIn(strings.NewReader(tt.input))
			out, err := execute(t, cmd)
			require.NoError(t, err)
			res := decode[output.CleanOutput](t, out)
			assert.Equal(t, tt.wantCancelled, res.Cancelled)

			out, err = execute(t, NewListCommand(), "--all")
			require.NoError(t, err)
			list := decode[output.ListOutput](t, out)
			assert.Equal(t, tt.wantRemaining, list.Summary.Total)
		})
	}
}
