package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newWarmCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Extract descriptors for every reference image",
		Long:  "Runs the configured extractor over the whole database and reports images it cannot describe.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := ctx.recognition(cmd.Context(), false)
			if err != nil {
				return err
			}

			start := time.Now()
			stats, err := stack.recognizer.Warm(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "References: %d\n", stats.References)
			fmt.Fprintf(out, "Described:  %d\n", stats.Cached)
			fmt.Fprintf(out, "Failed:     %d\n", stats.Failed)
			fmt.Fprintf(out, "Elapsed:    %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
