package cli

import (
	"fmt"
	"strings"

	"github.com/AdamBeresnev/bracket-sim/internal/store"
	"github.com/spf13/cobra"
)

func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DatabaseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "events",
		Short:         "List stored fixtures",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			svc, closeDB, err := opts.openService()
			if err != nil {
				return err
			}
			defer closeDB()

			events, err := svc.ListEvents(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list events", err)
			}
			if opts.Format == "json" {
				return formatter.Success(events)
			}
			return formatter.Success(eventList(events))
		},
	}
	opts.bindFlags(cmd)

	return cmd
}

type eventList []store.EventSummary

func (l eventList) String() string {
	if len(l) == 0 {
		return "No events stored."
	}
	lines := make([]string, len(l))
	for i, e := range l {
		lines[i] = fmt.Sprintf("%-24s %s (%s)", e.ID, e.Name, e.Slug)
	}
	return strings.Join(lines, "\n")
}
