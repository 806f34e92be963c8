package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newRootCmd(logger *zerolog.Logger) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "agentctl",
		Short: "Exercise the agent turn scheduler from a terminal",
		Long: `agentctl drives pkg/turn.Scheduler, pkg/toolcall.Manager and
pkg/convo.Session directly against a live Anthropic model, prompting for
tool-call approval in the terminal instead of auto-confirming the way the
pkg/agent facade does.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				*logger = logger.Level(zerolog.DebugLevel)
			} else {
				*logger = logger.Level(zerolog.InfoLevel)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging of turn/tool-call state transitions")
	cmd.AddCommand(newRunCmd(logger))
	return cmd
}
