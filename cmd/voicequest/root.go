package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the voicequest CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voicequest",
		Short: "voicequest - voice-driven interactive fiction",
		Long: `voicequest plays narrative games written in Lua. The story is a
graph of scenes that speak, listen and move on according to what the
player says. Typed input stands in for speech.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewPlayCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewGraphCmd())

	return cmd
}
