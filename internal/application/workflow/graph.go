package workflow

import (
	"context"
	"fmt"
)

// NodeFunc runs one node against a read-only snapshot of the state.
// A nil patch is an empty patch. A non-nil error aborts the run.
type NodeFunc func(ctx context.Context, state State) (*Patch, error)

// Node is a named task of the graph
type Node struct {
	Name string
	// Owns is the mask of replace fields the node may set
	Owns Field
	Run  NodeFunc
}

type edge struct {
	from, to string
}

// Builder declares a graph
type Builder struct {
	nodes    []Node
	edges    []edge
	entry    string
	terminal string
}

// NewBuilder creates an empty graph builder
func NewBuilder() *Builder {
	return &Builder{}
}

// AddNode declares a node. Declaration order is the merge order of siblings.
func (b *Builder) AddNode(name string, owns Field, fn NodeFunc) *Builder {
	b.nodes = append(b.nodes, Node{Name: name, Owns: owns, Run: fn})
	return b
}

// AddEdge declares that to runs after from
func (b *Builder) AddEdge(from, to string) *Builder {
	b.edges = append(b.edges, edge{from: from, to: to})
	return b
}

// FanOut declares edges from one node to several
func (b *Builder) FanOut(from string, to ...string) *Builder {
	for _, t := range to {
		b.AddEdge(from, t)
	}
	return b
}

// FanIn declares edges from several nodes to one
func (b *Builder) FanIn(to string, from ...string) *Builder {
	for _, f := range from {
		b.AddEdge(f, to)
	}
	return b
}

// SetEntry sets the node that runs first
func (b *Builder) SetEntry(name string) *Builder {
	b.entry = name
	return b
}

// SetTerminal sets the node that runs last
func (b *Builder) SetTerminal(name string) *Builder {
	b.terminal = name
	return b
}

// Graph is a validated task graph
type Graph struct {
	nodes    map[string]Node
	preds    map[string][]string
	succs    map[string][]string
	phases   [][]string
	entry    string
	terminal string
}

// Build validates the declaration and computes the execution phases
func (b *Builder) Build() (*Graph, error) {
	if len(b.nodes) == 0 {
		return nil, fmt.Errorf("%w: graph has no nodes", ErrInvalidGraph)
	}

	g := &Graph{
		nodes:    make(map[string]Node, len(b.nodes)),
		preds:    make(map[string][]string),
		succs:    make(map[string][]string),
		entry:    b.entry,
		terminal: b.terminal,
	}

	var owned Field
	for i, n := range b.nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("%w: node %d has no name", ErrInvalidGraph, i)
		}
		if n.Run == nil {
			return nil, fmt.Errorf("%w: node %s has no function", ErrInvalidGraph, n.Name)
		}
		if _, exists := g.nodes[n.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate node %s", ErrInvalidGraph, n.Name)
		}
		if shared := owned & n.Owns; shared != 0 {
			return nil, fmt.Errorf("%w: node %s owns fields already owned by another node: %s",
				ErrInvalidGraph, n.Name, shared)
		}
		owned |= n.Owns
		g.nodes[n.Name] = n
	}

	for _, e := range b.edges {
		if _, ok := g.nodes[e.from]; !ok {
			return nil, fmt.Errorf("%w: edge references unknown node %s", ErrInvalidGraph, e.from)
		}
		if _, ok := g.nodes[e.to]; !ok {
			return nil, fmt.Errorf("%w: edge references unknown node %s", ErrInvalidGraph, e.to)
		}
		g.succs[e.from] = append(g.succs[e.from], e.to)
		g.preds[e.to] = append(g.preds[e.to], e.from)
	}

	if err := g.validateEnds(b.nodes); err != nil {
		return nil, err
	}

	phases, err := g.computePhases(b.nodes)
	if err != nil {
		return nil, err
	}
	g.phases = phases

	if err := g.validateReachability(); err != nil {
		return nil, err
	}

	return g, nil
}

// validateEnds checks the single entry and that every sink is the terminal
func (g *Graph) validateEnds(nodes []Node) error {
	if _, ok := g.nodes[g.entry]; !ok {
		return fmt.Errorf("%w: entry node %q not found", ErrInvalidGraph, g.entry)
	}
	if _, ok := g.nodes[g.terminal]; !ok {
		return fmt.Errorf("%w: terminal node %q not found", ErrInvalidGraph, g.terminal)
	}

	for _, n := range nodes {
		if len(g.preds[n.Name]) == 0 && n.Name != g.entry {
			return fmt.Errorf("%w: node %s has no predecessors but is not the entry", ErrInvalidGraph, n.Name)
		}
		if len(g.succs[n.Name]) == 0 && n.Name != g.terminal {
			return fmt.Errorf("%w: node %s has no successors but is not the terminal", ErrInvalidGraph, n.Name)
		}
	}
	if len(g.preds[g.entry]) > 0 {
		return fmt.Errorf("%w: entry node %s has predecessors", ErrInvalidGraph, g.entry)
	}
	if len(g.succs[g.terminal]) > 0 {
		return fmt.Errorf("%w: terminal node %s has successors", ErrInvalidGraph, g.terminal)
	}
	return nil
}

// computePhases levels the graph by longest path from the entry. Nodes left
// unvisited belong to a cycle.
func (g *Graph) computePhases(nodes []Node) ([][]string, error) {
	indegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		indegree[n.Name] = len(g.preds[n.Name])
	}

	level := make(map[string]int, len(nodes))
	queue := []string{g.entry}
	visited := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		visited++

		for _, next := range g.succs[name] {
			if level[name]+1 > level[next] {
				level[next] = level[name] + 1
			}
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if visited != len(nodes) {
		return nil, fmt.Errorf("%w: graph contains a cycle", ErrInvalidGraph)
	}

	depth := 0
	for _, l := range level {
		if l > depth {
			depth = l
		}
	}
	phases := make([][]string, depth+1)
	for _, n := range nodes {
		l := level[n.Name]
		phases[l] = append(phases[l], n.Name)
	}
	return phases, nil
}

// validateReachability checks that the terminal is reachable from every node
func (g *Graph) validateReachability() error {
	reaches := map[string]bool{g.terminal: true}
	stack := []string{g.terminal}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range g.preds[name] {
			if !reaches[p] {
				reaches[p] = true
				stack = append(stack, p)
			}
		}
	}

	for name := range g.nodes {
		if !reaches[name] {
			return fmt.Errorf("%w: terminal %s is not reachable from %s", ErrInvalidGraph, g.terminal, name)
		}
	}
	return nil
}

// Phases returns the node names of each phase in execution order
func (g *Graph) Phases() [][]string {
	out := make([][]string, len(g.phases))
	for i, p := range g.phases {
		out[i] = append([]string(nil), p...)
	}
	return out
}

// Predecessors returns the nodes that must complete before name runs
func (g *Graph) Predecessors(name string) []string {
	return append([]string(nil), g.preds[name]...)
}

// Node returns the declared node
func (g *Graph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Entry returns the entry node name
func (g *Graph) Entry() string { return g.entry }

// Terminal returns the terminal node name
func (g *Graph) Terminal() string { return g.terminal }
