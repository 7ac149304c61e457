// Package diagram models the elements of a CellDL diagram.
//
// A [Diagram] owns a flat list of [Element] values addressed by [Handle].
// Each element carries a [Kind] tag and only the link fields meaningful for
// that kind. Compartments and quantities form the container tree; the bond
// graph adds potentials (one per quantity), flows (optionally bound to a
// transporter) and fluxes (owned by a flow, running from one potential to
// one or more others).
//
// Diagrams are assembled with a [Builder]. [Builder.Add] parses the `pos`,
// `size`, `line-start` and `line-end` text of an element straight away so
// syntax and structure errors surface with the offending element.
// [Builder.Build] then binds every `#id` reference to a handle, failing on
// dangling references, and fills in implied positions:
//
//   - a potential without `pos` sits left of its quantity
//   - a quantity without `pos` sits right of an explicitly placed potential
//   - a flow bound to a transporter sits outside the transporter's boundary
//   - an unbound flow sits at the centre of its fluxes' potentials
//
// Clauses without an offset are resolved with per-kind defaults by package
// resolve.
package diagram
