// Package render groups the output formats of a laid-out CellDL diagram.
//
// # Overview
//
// Rendering happens after the resolver has placed every element and the
// router has drawn the flux lines. Each subpackage turns a
// [resolve.Layout] (and optionally [route.Routes]) into bytes:
//
//   - [svg]: the drawing itself, with compartments, node glyphs, labels and
//     flux paths ending in arrow markers
//   - [jsonout]: resolved coordinates, compartment sizes, resolution order
//     and line points, for tooling and tests
//   - [depgraph]: the position dependency graph as Graphviz DOT, or as SVG
//     laid out by Graphviz, for debugging references and cycles
//
// # Usage
//
//	l, _ := resolve.Resolve(d, resolve.Options{})
//	routes, _ := route.Route(d, l, route.Options{})
//	out := svg.RenderSVG(d, l, svg.WithRoutes(routes))
//
//	g, _ := resolve.Graph(d)
//	dot := depgraph.ToDOT(g, depgraph.Options{Detailed: true})
//	img, err := depgraph.RenderSVG(ctx, dot)
//
// [svg]: github.com/matzehuels/celldl/pkg/render/svg
// [jsonout]: github.com/matzehuels/celldl/pkg/render/jsonout
// [depgraph]: github.com/matzehuels/celldl/pkg/render/depgraph
// [resolve.Layout]: github.com/matzehuels/celldl/pkg/resolve#Layout
// [route.Routes]: github.com/matzehuels/celldl/pkg/route#Routes
package render
