package graph

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/nathoo/voicequest/types"
)

// BuildError collects every problem found while building a graph.
// A graph with errors must not be used to start a session.
type BuildError struct {
	Errors   []string
	Warnings []string
}

func (e *BuildError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "graph invalid: %d error(s)", len(e.Errors))
	for _, msg := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(msg)
	}
	return b.String()
}

// HasErrors reports whether any errors were collected.
func (e *BuildError) HasErrors() bool { return len(e.Errors) > 0 }

func (e *BuildError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *BuildError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Build constructs the graph rooted at game.Root and resolves every
// transition target. It returns the warnings even on success.
func Build(game *types.GameDef) (*Graph, []string, error) {
	be := &BuildError{}
	g := &Graph{nodes: map[string]*Node{}}

	if game.Root.ID == "" {
		be.errorf("root node has no id")
		return nil, nil, be
	}
	g.Root = g.create(game.Root, nil, be)
	g.resolve(game.Root, g.Root, be)
	g.check(game, be)

	if be.HasErrors() {
		return nil, be.Warnings, be
	}
	return g, be.Warnings, nil
}

// create allocates nodes depth-first in declaration order.
func (g *Graph) create(def types.NodeDef, parent *Node, be *BuildError) *Node {
	n := &Node{
		ID:       def.ID,
		Parent:   parent,
		Entry:    def.Entry,
		Internal: def.Internal,
		On:       map[types.EventType][]Transition{},
		byID:     map[string]*Node{},
	}
	if parent == nil {
		n.path = def.ID
	} else {
		n.path = parent.path + "." + def.ID
		n.depth = parent.depth + 1
	}
	if strings.Contains(def.ID, ".") || strings.HasPrefix(def.ID, "#") {
		be.errorf("%s: node id %q must not contain '.' or start with '#'", n.path, def.ID)
	}
	g.nodes[n.path] = n
	g.order = append(g.order, n)

	for _, cd := range def.Children {
		if _, dup := n.byID[cd.ID]; dup {
			be.errorf("%s: duplicate child id %q", n.path, cd.ID)
			continue
		}
		c := g.create(cd, n, be)
		n.byID[cd.ID] = c
		n.Children = append(n.Children, c)
	}

	switch {
	case len(def.Children) == 0 && def.Initial != "":
		be.errorf("%s: leaf node declares initial child %q", n.path, def.Initial)
	case len(def.Children) > 0 && def.Initial == "":
		be.errorf("%s: composite node has no initial child", n.path)
	case len(def.Children) > 0:
		init, ok := n.byID[def.Initial]
		if !ok {
			be.errorf("%s: initial child %q does not exist", n.path, def.Initial)
		}
		n.Initial = init
	}
	return n
}

// resolve binds every authored target reference to a node handle.
func (g *Graph) resolve(def types.NodeDef, n *Node, be *BuildError) {
	for _, ev := range slices.Sorted(maps.Keys(def.On)) {
		list := def.On[ev]
		resolved := make([]Transition, 0, len(list))
		for _, td := range list {
			target, err := g.target(n, td.Target)
			if err != nil {
				be.errorf("%s: on %s: %v", n.path, ev, err)
				continue
			}
			resolved = append(resolved, Transition{Guard: td.Guard, Target: target, Ref: td.Target})
		}
		n.On[ev] = resolved
	}
	for i, cd := range def.Children {
		if i < len(n.Children) && n.Children[i].ID == cd.ID {
			g.resolve(cd, n.Children[i], be)
		}
	}
}

func (g *Graph) target(from *Node, ref types.TargetRef) (*Node, error) {
	var anchor *Node
	switch ref.Kind {
	case types.TargetAbsolute:
		anchor = g.Root
	case types.TargetChild:
		anchor = from
	case types.TargetSibling:
		anchor = from.Parent
		if anchor == nil {
			return nil, fmt.Errorf("target %q: root node has no siblings", ref.Raw)
		}
	default:
		return nil, fmt.Errorf("target %q: unknown kind %d", ref.Raw, ref.Kind)
	}
	if len(ref.Path) == 0 {
		return nil, fmt.Errorf("target %q: empty path", ref.Raw)
	}
	n, ok := walk(anchor, ref.Path)
	if !ok {
		return nil, fmt.Errorf("target %q: no node %s.%s", ref.Raw, anchor.path, strings.Join(ref.Path, "."))
	}
	return n, nil
}

// check applies the structural rules a playable graph must satisfy.
func (g *Graph) check(game *types.GameDef, be *BuildError) {
	intents, categories := vocabulary(game.Lexicon)

	for _, n := range g.order {
		if list, ok := n.On[types.EventListenComplete]; ok && len(list) > 0 {
			if list[len(list)-1].Guard != nil {
				be.errorf("%s: %s handler has no unguarded fallback as its last entry", n.path, types.EventListenComplete)
			}
		}
		for _, ev := range slices.Sorted(maps.Keys(n.On)) {
			list := n.On[ev]
			for i, t := range list {
				if t.Target != nil && suspendingAlong(Transit(n, n, t.Target).Entered) > 1 {
					be.errorf("%s: on %s: entering %s runs more than one speak or listen action", n.path, ev, t.Target.path)
				}
				if t.Guard == nil && i < len(list)-1 {
					be.warnf("%s: on %s: unguarded entry %d shadows %d later entries", n.path, ev, i, len(list)-1-i)
				}
				if t.Guard != nil {
					checkVocabulary(*t.Guard, n.path, intents, categories, be)
				}
			}
		}

		if suspending(n.Entry) > 1 {
			be.errorf("%s: entry has more than one speak or listen action", n.path)
		} else if (n.Parent == nil || n.Parent.Initial != n) && suspendingAlong(Descend(n)) > 1 {
			be.errorf("%s: entry and initial children run more than one speak or listen action", n.path)
		}

		if n.IsLeaf() && suspending(n.Entry) == 0 && !handles(n, types.EventClick) {
			be.warnf("%s: leaf waits for nothing and has no %s handler", n.path, types.EventClick)
		}
	}
}

func suspending(actions []types.Action) int {
	count := 0
	for _, a := range actions {
		switch a.Kind {
		case types.ActionSpeak, types.ActionSpeakMarkup, types.ActionListen:
			count++
		}
	}
	return count
}

// suspendingAlong counts the suspending entry actions of nodes entered
// together.
func suspendingAlong(nodes []*Node) int {
	count := 0
	for _, n := range nodes {
		count += suspending(n.Entry)
	}
	return count
}

func handles(n *Node, ev types.EventType) bool {
	for _, c := range n.Chain() {
		if len(c.On[ev]) > 0 {
			return true
		}
	}
	return false
}

func vocabulary(lex types.Lexicon) (map[string]bool, map[string]bool) {
	var intents, categories map[string]bool
	if len(lex.Intents) > 0 {
		intents = map[string]bool{}
		for _, d := range lex.Intents {
			intents[d.Name] = true
		}
	}
	if len(lex.Entities) > 0 {
		categories = map[string]bool{}
		for _, d := range lex.Entities {
			categories[d.Category] = true
		}
	}
	return intents, categories
}

func checkVocabulary(c types.Condition, path string, intents, categories map[string]bool, be *BuildError) {
	switch c.Type {
	case "intent_is":
		name, _ := c.Params["intent"].(string)
		if intents != nil && !intents[name] {
			be.errorf("%s: guard references undeclared intent %q", path, name)
		}
	case "entity_is":
		cat, _ := c.Params["category"].(string)
		if categories != nil && !categories[cat] {
			be.errorf("%s: guard references undeclared entity category %q", path, cat)
		}
	case "not":
		if c.Inner != nil {
			checkVocabulary(*c.Inner, path, intents, categories, be)
		}
	case "all", "any":
		for _, t := range c.Terms {
			checkVocabulary(t, path, intents, categories, be)
		}
	}
}
