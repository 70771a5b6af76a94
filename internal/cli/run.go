package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
	"github.com/AdamBeresnev/bracket-sim/internal/sim"
	"github.com/spf13/cobra"
)

type RunOptions struct {
	*RootOptions
	Tick     time.Duration
	MaxTicks int
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Simulate a bracket to completion",
		Long: `Build the bracket described by a YAML or JSON config and play it out.

Manual-mode configs and configs with reference sets are completed in one step.
Automatic-mode configs run on a virtual clock that advances by --tick.

Example:
  bracketsim run ./weekly.yaml
  bracketsim run ./weekly.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Tick, "tick", time.Minute, "virtual clock step in automatic mode")
	cmd.Flags().IntVar(&opts.MaxTicks, "max-ticks", 100000, "give up after this many clock steps")

	return cmd
}

func runSimulation(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	cfg, err := LoadConfig(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	engine, err := sim.New(cfg, 0)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build bracket", err)
	}

	var snap *sim.Snapshot
	if cfg.Simulation.ManualMode || engine.HasReferenceSets() {
		snap, err = engine.CompleteBracket(0)
	} else {
		snap, err = runClock(engine, opts.Tick, opts.MaxTicks)
	}
	if err != nil {
		_ = formatter.Error(err.Error())
		return WrapExitError(ExitFailure, "simulation failed", err)
	}

	return formatter.Success(newRunSummary(snap))
}

// runClock advances automatic mode until every set is settled.
func runClock(engine *sim.Engine, tick time.Duration, maxTicks int) (*sim.Snapshot, error) {
	step := tick.Milliseconds()
	if step <= 0 {
		return nil, fmt.Errorf("tick must be at least 1ms, got %s", tick)
	}

	for i := 0; i <= maxTicks; i++ {
		now := int64(i) * step
		snap, err := engine.State(now)
		if err != nil {
			return nil, err
		}
		if settled(snap) {
			slog.Debug("bracket settled", "ticks", i, "virtual_ms", now)
			return snap, nil
		}
	}
	return nil, fmt.Errorf("bracket not settled after %d ticks: %w", maxTicks, bracket.ErrSafetyLimitExceeded)
}

func settled(snap *sim.Snapshot) bool {
	for _, s := range snap.Sets {
		if !s.State.Terminal() {
			return false
		}
	}
	return true
}

type runSummary struct {
	Event    bracket.EventInfo `json:"event"`
	Champion *string           `json:"champion"`
	Snapshot *sim.Snapshot     `json:"snapshot"`
}

func newRunSummary(snap *sim.Snapshot) runSummary {
	summary := runSummary{Event: snap.Event, Snapshot: snap}
	for i := len(snap.Sets) - 1; i >= 0; i-- {
		s := snap.Sets[i]
		if s.State != bracket.SetCompleted || s.WinnerID == nil {
			continue
		}
		for _, slot := range s.Slots {
			if slot.EntrantID != nil && *slot.EntrantID == *s.WinnerID {
				summary.Champion = slot.EntrantName
			}
		}
		break
	}
	return summary
}

func (r runSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.Event.Name)
	for _, s := range r.Snapshot.Sets {
		fmt.Fprintf(&b, "%-6d %-20s %-10s %s vs %s\n", s.ID, s.RoundLabel, s.State, slotText(s.Slots[0]), slotText(s.Slots[1]))
	}
	if r.Champion != nil {
		fmt.Fprintf(&b, "Champion: %s", *r.Champion)
	} else {
		b.WriteString("Champion: none")
	}
	return b.String()
}

func slotText(slot sim.SlotView) string {
	if slot.EntrantName == nil {
		return "-"
	}
	text := *slot.EntrantName
	if slot.Result != nil && *slot.Result == bracket.ResultDisqualified {
		return text + " (DQ)"
	}
	if slot.Score != nil {
		text = fmt.Sprintf("%s [%d]", text, *slot.Score)
	}
	return text
}
