// Package depgraph renders the position dependency graph of a diagram.
//
// # Overview
//
// The resolver orders elements by a dependency graph: containment edges run
// from a compartment to what it contains, position edges from a referenced
// element to the element placed against it. This package draws that graph
// with Graphviz, which is the quickest way to see why a document has a
// cycle or resolves in a surprising order.
//
// # Usage
//
//	g, err := resolve.Graph(d)
//	dot := depgraph.ToDOT(g, depgraph.Options{})
//	svg, err := depgraph.RenderSVG(ctx, dot)
//
// Node shapes follow the element kind. Containment edges are dashed.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package depgraph
