package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nathoo/voicequest/engine/graph"
	"github.com/nathoo/voicequest/loader"
	"github.com/nathoo/voicequest/types"
)

// NewGraphCmd creates the graph subcommand.
func NewGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph [game-dir]",
		Short: "Print a game's narrative graph",
		Long: `Loads a game and prints its node tree: each node's entry actions
and transitions, with the initial child of each composite marked "*".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := gameDir(args)
			if err != nil {
				return err
			}
			content, err := loader.Load(dir)
			if err != nil {
				return err
			}
			writeTree(cmd.OutOrStdout(), content.Graph.Root)
			return nil
		},
	}
}

// writeTree prints n and its descendants, one indent level per depth.
func writeTree(w io.Writer, n *graph.Node) {
	indent := strings.Repeat("  ", n.Depth())
	mark := " "
	if n.Parent != nil && n.Parent.Initial == n {
		mark = "*"
	}
	fmt.Fprintf(w, "%s%s %s\n", indent, mark, n.ID)

	if len(n.Entry) > 0 {
		kinds := make([]string, len(n.Entry))
		for i, a := range n.Entry {
			kinds[i] = string(a.Kind)
		}
		fmt.Fprintf(w, "%s    entry: %s\n", indent, strings.Join(kinds, ", "))
	}
	for _, ev := range sortedEvents(n.Internal) {
		fmt.Fprintf(w, "%s    %s: internal\n", indent, ev)
	}
	for _, ev := range sortedEvents(n.On) {
		for _, t := range n.On[ev] {
			guard := ""
			if t.Guard != nil {
				guard = " if " + describeGuard(*t.Guard)
			}
			fmt.Fprintf(w, "%s    %s -> %s%s\n", indent, ev, t.Target.Path(), guard)
		}
	}

	for _, c := range n.Children {
		writeTree(w, c)
	}
}

func sortedEvents[V any](m map[types.EventType]V) []types.EventType {
	evs := make([]types.EventType, 0, len(m))
	for ev := range m {
		evs = append(evs, ev)
	}
	slices.Sort(evs)
	return evs
}

// describeGuard renders a guard compactly, e.g. all(intent_is, not(has_item)).
func describeGuard(c types.Condition) string {
	switch c.Type {
	case "not":
		if c.Inner == nil {
			return "not()"
		}
		return "not(" + describeGuard(*c.Inner) + ")"
	case "all", "any":
		terms := make([]string, len(c.Terms))
		for i, t := range c.Terms {
			terms[i] = describeGuard(t)
		}
		return c.Type + "(" + strings.Join(terms, ", ") + ")"
	default:
		return c.Type
	}
}
