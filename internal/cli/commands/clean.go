package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/engine"
	"github.com/spf13/cobra"
)

// Clean modes.
const (
	cleanModeMetrics = "metrics"
	cleanModeAll     = "all"
)

// cleanState is a step of the clean command.
type cleanState int

const (
	stateAwaitingChoice cleanState = iota
	stateRunningCleanup
	stateAwaitingConfirmation
	stateRunningReset
	stateDone
	stateCancelled
	stateFailed
)

func (s cleanState) String() string {
	switch s {
	case stateAwaitingChoice:
		return "awaiting_choice"
	case stateRunningCleanup:
		return "running_cleanup"
	case stateAwaitingConfirmation:
		return "awaiting_confirmation"
	case stateRunningReset:
		return "running_reset"
	case stateDone:
		return "done"
	case stateCancelled:
		return "cancelled"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s cleanState) terminal() bool {
	return s == stateDone || s == stateCancelled || s == stateFailed
}

// CleanOptions holds options for the clean command.
type CleanOptions struct {
	Mode string
}

// NewCleanCommand creates the clean command.
func NewCleanCommand() *cobra.Command {
	return newCleanCommand(newReadlinePrompter)
}

func newCleanCommand(newPrompter func(*cobra.Command) Prompter) *cobra.Command {
	opts := &CleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Drop metric tables or reset the database",
		Long: `Remove tables from the database. Choose from the menu, or pass --mode:

  metrics  Drop every metric table and keep the base tables
  all      Drop every table, base tables included

A full reset always asks for confirmation; answer "y" to proceed.`,
		Example: `  # Choose interactively
  leapmetrics clean

  # Drop metric tables only
  leapmetrics clean --mode metrics

  # Reset the database (still asks for confirmation)
  leapmetrics clean --mode all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClean(cmd, opts, newPrompter(cmd))
		},
	}

	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", "", "What to drop: metrics or all")
	_ = cmd.RegisterFlagCompletionFunc("mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{cleanModeMetrics, cleanModeAll}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runClean(cmd *cobra.Command, opts *CleanOptions, prompter Prompter) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	if closer, ok := prompter.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	m := &cleanMachine{
		eng:      cmdCtx.Engine,
		r:        cmdCtx.Renderer,
		prompter: prompter,
		mode:     strings.ToLower(strings.TrimSpace(opts.Mode)),
	}
	m.run(cmd.Context())
	cmdCtx.Logger.Debug("clean finished", "state", m.state.String(), "mode", m.mode)

	if err := m.render(); err != nil {
		return err
	}
	return m.err
}

// cleanMachine drives the clean command:
// AwaitingChoice -> RunningCleanup -> Done
// AwaitingChoice -> AwaitingConfirmation -> RunningReset -> Done, or Cancelled.
// Any step may end in Failed.
type cleanMachine struct {
	eng      *engine.Engine
	r        *output.Renderer
	prompter Prompter

	state  cleanState
	mode   string
	report *engine.CleanupReport
	err    error
}

func (m *cleanMachine) run(ctx context.Context) {
	for !m.state.terminal() {
		m.step(ctx)
	}
}

func (m *cleanMachine) step(ctx context.Context) {
	switch m.state {
	case stateAwaitingChoice:
		m.choose(ctx)

	case stateRunningCleanup:
		m.report, m.err = m.eng.CleanupMetrics(ctx)
		m.finish()

	case stateAwaitingConfirmation:
		confirm := confirmWith(m.prompter)
		m.report, m.err = m.eng.Reset(ctx, engine.ConfirmFunc(func(ctx context.Context, msg string) (bool, error) {
			ok, err := confirm.Confirm(ctx, msg)
			if ok && err == nil {
				m.state = stateRunningReset
			}
			return ok, err
		}))
		m.finish()

	default:
		m.fail(fmt.Errorf("unexpected clean state %s", m.state))
	}
}

func (m *cleanMachine) choose(ctx context.Context) {
	if m.mode == "" {
		w := m.r.ErrWriter()
		_, _ = fmt.Fprintln(w, "Choose cleanup option:")
		_, _ = fmt.Fprintln(w, "1 - Remove only metric tables (keep source data)")
		_, _ = fmt.Fprintln(w, "2 - Remove all tables (full reset)")

		answer, err := m.prompter.Prompt(ctx, "Enter choice (1 or 2): ")
		if err != nil {
			m.fail(err)
			return
		}
		switch answer {
		case "1":
			m.mode = cleanModeMetrics
		case "2":
			m.mode = cleanModeAll
		default:
			m.fail(fmt.Errorf("invalid choice %q", answer))
			return
		}
	}

	switch m.mode {
	case cleanModeMetrics:
		m.state = stateRunningCleanup
	case cleanModeAll:
		m.state = stateAwaitingConfirmation
	default:
		m.fail(fmt.Errorf("invalid mode %q (expected %s or %s)", m.mode, cleanModeMetrics, cleanModeAll))
	}
}

func (m *cleanMachine) finish() {
	switch {
	case m.err != nil:
		m.state = stateFailed
	case m.report.Cancelled:
		m.state = stateCancelled
	case !m.report.OK():
		m.err = errors.Join(m.report.Errors...)
		m.state = stateFailed
	default:
		m.state = stateDone
	}
}

func (m *cleanMachine) fail(err error) {
	m.err = err
	m.state = stateFailed
}

func (m *cleanMachine) render() error {
	r := m.r

	if r.EffectiveMode() == output.ModeJSON {
		out := output.CleanOutput{Mode: m.mode, Dropped: []string{}, Remaining: []string{}}
		if m.report != nil {
			out.Cancelled = m.report.Cancelled
			out.Dropped = append(out.Dropped, m.report.Dropped...)
			out.Remaining = append(out.Remaining, m.report.Remaining...)
			for _, err := range m.report.Errors {
				out.Errors = append(out.Errors, err.Error())
			}
		}
		return r.JSON(out)
	}

	if m.report == nil {
		return nil
	}

	if m.state == stateCancelled {
		r.Warning("Cleanup cancelled")
		return nil
	}

	title := "Metric Cleanup"
	if m.mode == cleanModeAll {
		title = "Database Reset"
	}
	r.Header(1, title)

	if len(m.report.Dropped) == 0 && len(m.report.Errors) == 0 {
		r.Muted("No tables found to remove")
	}
	for _, name := range m.report.Dropped {
		r.StatusLine(name, "dropped", "")
	}
	for _, err := range m.report.Errors {
		r.Error(err.Error())
	}

	r.Println()
	r.Header(2, "Remaining tables")
	if len(m.report.Remaining) == 0 {
		r.Muted("None")
	}
	for _, name := range m.report.Remaining {
		r.Println("- " + name)
	}

	if m.state == stateDone {
		r.Println()
		if m.mode == cleanModeAll {
			r.Success("Database reset completed")
		} else {
			r.Success("Database cleanup completed")
		}
	}
	return nil
}
