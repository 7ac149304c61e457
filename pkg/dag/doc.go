// Package dag provides the directed graph used to order position
// resolution in a CellDL diagram.
//
// # Overview
//
// Every positioned element is a node. An edge From→To means From must be
// resolved before To: To's position refers to From, or To lives inside the
// compartment From and needs its coordinate frame.
//
// # Basic Usage
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "q1"})
//	g.AddNode(dag.Node{ID: "p1"})
//	g.AddEdge(dag.Edge{From: "q1", To: "p1"})
//	order, err := g.TopologicalOrder()
//
// # Ordering
//
// [DAG.TopologicalOrder] is computed with gonum's stabilized topological
// sort. Nodes that are not ordered relative to each other come out in
// lexical ID order, so two graphs with the same nodes and edges always give
// the same order whatever order they were built in.
//
// A graph with a cycle has no order. The returned [*CycleError] lists the
// strongly connected components involved and matches [ErrGraphHasCycle]
// with errors.Is.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use.
package dag
