package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var databaseFlag string
	var verboseFlag bool

	ctx := newCommandContext(&databaseFlag, &verboseFlag)

	rootCmd := &cobra.Command{
		Use:           "facectl",
		Short:         "Manage the facecam face database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&databaseFlag, "database", "d", "", "Face database directory (overrides FACE_DATABASE)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newRegisterCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newIdentifyCommand(ctx))
	rootCmd.AddCommand(newWarmCommand(ctx))

	return rootCmd
}
