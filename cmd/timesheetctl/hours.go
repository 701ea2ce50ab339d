package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garnizeh/timesheet/internal/hours"
)

func newHoursCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "hours START END",
		Short:   "Print the hours worked between two HH:MM times",
		Example: "  timesheetctl hours 09:10 17:05",
		Args:    cobra.ExactArgs(2),
		// no configuration needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := hours.ParseClock(args[0])
			if err != nil {
				return fmt.Errorf("start: %w", err)
			}
			end, err := hours.ParseClock(args[1])
			if err != nil {
				return fmt.Errorf("end: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hours.Between(start, end))
			return nil
		},
	}
}
