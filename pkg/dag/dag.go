package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrGraphHasCycle is matched by the [*CycleError] returned from
	// [DAG.TopologicalOrder].
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to nodes or the graph.
// Metadata maps are never nil once a node or edge is added.
type Metadata map[string]any

// Node is a vertex of the dependency graph.
type Node struct {
	ID   string   // Unique identifier
	Meta Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// Edge is a directed "must come before" relation: From is resolved before To.
type Edge struct {
	From string
	To   string
	Meta Metadata
}

// CycleError reports the strongly connected components that prevent a
// topological order. Each component lists node IDs in sorted order.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycles))
	for i, c := range e.Cycles {
		parts[i] = strings.Join(c, " -> ")
	}
	return fmt.Sprintf("%v: %s", ErrGraphHasCycle, strings.Join(parts, "; "))
}

// Unwrap makes errors.Is(err, ErrGraphHasCycle) hold.
func (e *CycleError) Unwrap() error { return ErrGraphHasCycle }

// DAG is a directed graph of string-keyed nodes.
//
// The zero value is not usable - use New to create a valid DAG instance.
// DAG is not safe for concurrent use without external synchronization.
type DAG struct {
	nodes    map[string]*Node
	order    []string // insertion order
	edges    []Edge
	outgoing map[string][]string // nodeID -> children IDs
	incoming map[string][]string // nodeID -> parent IDs
	meta     Metadata
}

// New creates an empty DAG with optional graph-level metadata.
func New(meta Metadata) *DAG {
	if meta == nil {
		meta = Metadata{}
	}
	return &DAG{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		meta:     meta,
	}
}

// Meta returns the graph-level metadata map.
func (d *DAG) Meta() Metadata { return d.meta }

// AddNode adds a node to the graph. Returns ErrInvalidNodeID if the node ID
// is empty, or ErrDuplicateNodeID if the ID is already in use.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	d.nodes[n.ID] = &n
	d.order = append(d.order, n.ID)
	return nil
}

// AddEdge adds a directed edge between two existing nodes. Adding an edge
// that already exists is a no-op, so callers may add the same dependency
// from several sources.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.Contains(d.outgoing[e.From], e.To) {
		return nil
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	return nil
}

// Nodes returns all nodes in insertion order. The returned slice contains
// pointers to the actual node structs.
func (d *DAG) Nodes() []*Node {
	nodes := make([]*Node, len(d.order))
	for i, id := range d.order {
		nodes[i] = d.nodes[id]
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Sources returns nodes with no incoming edges, in insertion order. In a
// position graph these are the elements placed without reference to any
// other element.
func (d *DAG) Sources() []*Node {
	var sources []*Node
	for _, id := range d.order {
		if len(d.incoming[id]) == 0 {
			sources = append(sources, d.nodes[id])
		}
	}
	return sources
}

// Sinks returns nodes with no outgoing edges, in insertion order: elements
// no other position depends on.
func (d *DAG) Sinks() []*Node {
	var sinks []*Node
	for _, id := range d.order {
		if len(d.outgoing[id]) == 0 {
			sinks = append(sinks, d.nodes[id])
		}
	}
	return sinks
}

// TopologicalOrder returns every node ID such that each edge's From precedes
// its To. Among nodes with no ordering constraint between them IDs are
// taken in lexical order, so the result does not depend on insertion order.
//
// If no order exists a [*CycleError] naming the offending components is
// returned along with a nil slice.
func (d *DAG) TopologicalOrder() ([]string, error) {
	var selfLoops [][]string
	for _, e := range d.edges {
		if e.From == e.To {
			selfLoops = append(selfLoops, []string{e.From})
		}
	}
	if len(selfLoops) > 0 {
		return nil, &CycleError{Cycles: selfLoops}
	}

	g, ids := d.gonum()
	sorted, err := topo.SortStabilized(g, func(nodes []graph.Node) {
		slices.SortFunc(nodes, func(a, b graph.Node) int {
			return strings.Compare(ids[a.ID()], ids[b.ID()])
		})
	})

	var unorderable topo.Unorderable
	if errors.As(err, &unorderable) {
		cycles := make([][]string, 0, len(unorderable))
		for _, component := range unorderable {
			c := make([]string, len(component))
			for i, n := range component {
				c[i] = ids[n.ID()]
			}
			slices.Sort(c)
			cycles = append(cycles, c)
		}
		slices.SortFunc(cycles, func(a, b []string) int { return strings.Compare(a[0], b[0]) })
		return nil, &CycleError{Cycles: cycles}
	}
	if err != nil {
		return nil, err
	}

	order := make([]string, len(sorted))
	for i, n := range sorted {
		order[i] = ids[n.ID()]
	}
	return order, nil
}

// Depths returns the longest-path distance of every node from a source.
// Sources are at depth 0 and each node sits one below its deepest parent.
// The graph must be acyclic.
func (d *DAG) Depths() (map[string]int, error) {
	order, err := d.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	depths := make(map[string]int, len(order))
	for _, id := range order {
		for _, child := range d.outgoing[id] {
			if depth := depths[id] + 1; depth > depths[child] {
				depths[child] = depth
			}
		}
		if _, ok := depths[id]; !ok {
			depths[id] = 0
		}
	}
	return depths, nil
}

// gonum mirrors the graph as a gonum directed graph keyed by insertion index.
func (d *DAG) gonum() (*simple.DirectedGraph, map[int64]string) {
	g := simple.NewDirectedGraph()
	index := make(map[string]int64, len(d.order))
	ids := make(map[int64]string, len(d.order))
	for i, id := range d.order {
		index[id] = int64(i)
		ids[int64(i)] = id
		g.AddNode(simple.Node(i))
	}
	for _, e := range d.edges {
		g.SetEdge(g.NewEdge(g.Node(index[e.From]), g.Node(index[e.To])))
	}
	return g, ids
}
