package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nathoo/voicequest/config"
	"github.com/nathoo/voicequest/engine/graph"
	"github.com/nathoo/voicequest/loader"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [game-dir]",
		Short: "Check a game without playing it",
		Long: `Loads a game directory, validates its content and builds its
narrative graph. Prints every warning and error found.
Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch authoring errors early:
  voicequest validate games/detective`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := gameDir(args)
			if err != nil {
				return err
			}
			return runValidate(cmd.OutOrStdout(), dir)
		},
	}
}

// gameDir is the argument if given, else the game the config names.
func gameDir(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if configFile == "" {
		return config.Default().Game, nil
	}
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg.Game, nil
}

func runValidate(out io.Writer, dir string) error {
	content, err := loader.Load(dir)
	if err != nil {
		var problems []string
		var ve *loader.ValidationError
		var be *graph.BuildError
		switch {
		case errors.As(err, &ve):
			problems = ve.Errors
		case errors.As(err, &be):
			for _, w := range be.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			problems = be.Errors
		default:
			problems = []string{err.Error()}
		}
		for _, p := range problems {
			fmt.Fprintf(out, "error: %s\n", p)
		}
		return fmt.Errorf("validation failed: %s has %d error(s)", dir, len(problems))
	}

	for _, w := range content.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	fmt.Fprintf(out, "ok: %s (%d nodes, %d warning(s))\n",
		content.Game.Title, len(content.Graph.Nodes()), len(content.Warnings))
	return nil
}
