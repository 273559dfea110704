// Package graph holds the narrative topology: composite and leaf nodes,
// their entry actions and guarded transitions, with every target resolved
// to a node handle when the graph is built.
package graph

import (
	"strings"

	"github.com/nathoo/voicequest/types"
)

// Node is a built narrative node.
type Node struct {
	ID       string
	Parent   *Node
	Children []*Node
	Initial  *Node
	Entry    []types.Action
	Internal map[types.EventType][]types.Action
	On       map[types.EventType][]Transition

	path  string
	byID  map[string]*Node
	depth int
}

// Transition is one guarded entry of a handler list.
type Transition struct {
	Guard  *types.Condition
	Target *Node
	Ref    types.TargetRef
}

// Path returns the full dotted path from the root, e.g. "detective.FirstEntrance.Ask".
func (n *Node) Path() string { return n.path }

// Depth is 0 for the root.
func (n *Node) Depth() int { return n.depth }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Child returns the direct child with the given id.
func (n *Node) Child(id string) (*Node, bool) {
	c, ok := n.byID[id]
	return c, ok
}

// Chain returns the node and its ancestors, innermost first.
func (n *Node) Chain() []*Node {
	var out []*Node
	for c := n; c != nil; c = c.Parent {
		out = append(out, c)
	}
	return out
}

// Contains reports whether n is a proper ancestor of other.
func (n *Node) Contains(other *Node) bool {
	for c := other.Parent; c != nil; c = c.Parent {
		if c == n {
			return true
		}
	}
	return false
}

// Graph is an immutable, fully resolved narrative graph.
type Graph struct {
	Root  *Node
	nodes map[string]*Node
	order []*Node
}

// Lookup finds a node by its full dotted path.
func (g *Graph) Lookup(path string) (*Node, bool) {
	n, ok := g.nodes[path]
	return n, ok
}

// Find resolves a path relative to the root, e.g. "FirstEntrance.NoInput".
func (g *Graph) Find(rel string) (*Node, bool) {
	if rel == "" {
		return g.Root, true
	}
	return walk(g.Root, strings.Split(rel, "."))
}

// Nodes returns every node in depth-first declaration order.
func (g *Graph) Nodes() []*Node { return g.order }

// Descend follows initial children from n down to a leaf.
func Descend(n *Node) []*Node {
	out := []*Node{n}
	for n.Initial != nil {
		n = n.Initial
		out = append(out, n)
	}
	return out
}

func walk(from *Node, path []string) (*Node, bool) {
	n := from
	for _, id := range path {
		next, ok := n.Child(id)
		if !ok {
			return nil, false
		}
		n = next
	}
	return n, true
}
