// Package svg serializes a resolved and routed diagram as SVG.
//
// # Usage
//
//	layout, err := resolve.Resolve(d, resolve.Options{})
//	routes, err := route.Route(d, layout, route.Options{})
//	out := svg.RenderSVG(d, layout, svg.WithRoutes(routes))
//
// Compartments are drawn as rounded rectangles at their resolved origin and
// size, transporters as bars along the side they sit on, quantities as
// small boxes and potentials and flows as circles. Each flux line becomes a
// <path> ending in an arrow marker.
//
// The fill and stroke of an element come from its style declarations when
// present, otherwise from a per-kind default. A `class` declaration is
// appended to the element's kind in its class attribute.
package svg
