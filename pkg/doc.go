// Package pkg provides the core libraries for CellDL diagram layout.
//
// # Overview
//
// CellDL describes cell physiology diagrams: compartments containing
// quantities, transporters sitting on compartment boundaries, and a bond
// graph of potentials and flows connecting them. Positions are written
// relative to other elements ("60 right #q_Na", "top 30% #NaK"), so a
// drawing can be laid out only once every reference has been resolved in
// dependency order.
//
// # Architecture
//
// The typical data flow through CellDL:
//
//	CellDL XML document
//	         ↓
//	    [document] package (elements, inline styles)
//	         ↓
//	    [diagram] package (tagged elements bound by handle)
//	         ↓
//	    [resolve] package (dependency DAG, topological order, coordinates)
//	         ↓
//	    [route] package (transporter fan-out, flux polylines)
//	         ↓
//	    [render] packages (SVG, JSON, Graphviz)
//
// # Quick Start
//
//	d, err := document.ReadFile("sodium.celldl", document.Options{})
//	if err != nil {
//	    return err
//	}
//	l, err := resolve.Resolve(d, resolve.Options{})
//	if err != nil {
//	    return err
//	}
//	routes, err := route.Route(d, l, route.Options{})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("sodium.svg", svg.RenderSVG(d, l, svg.WithRoutes(routes)), 0o644)
//
// Or let [pipeline.Runner] run every stage with caching and logging:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	result, err := runner.Execute(ctx, doc, pipeline.Options{Formats: []string{"svg"}})
//
// # Main Packages
//
// ## Layout Engine
//
// [units] - Lengths in pixels, local percentages and diagram percentages,
// and the per-compartment converter that turns them into pixels.
//
// [constraint] - Tokenizer and parsers for the position, boundary, size and
// routed-line languages.
//
// [diagram] - The element variants, their containment and bond-graph links,
// and positions bound to element handles.
//
// [dag] - Dependency graph with a deterministic topological order and
// cycle reporting.
//
// [geom] - Point helpers on gonum's r2 vectors: centroids, bearings,
// clipping and parallel offsets.
//
// [resolve] - Resolves every position in dependency order into a layout.
//
// [route] - Spreads lines across transporters and draws each flux.
//
// ## Adapters
//
// [document] - CellDL XML reader.
//
// [render] - SVG, JSON and dependency graph output.
//
// ## Infrastructure
//
// [pipeline] - Orchestration (parse → resolve → route → render) with
// cached artifacts.
//
// [cache] - Artifact cache with file, Redis and null backends.
//
// [config] - TOML configuration file.
//
// [observability] - Hooks for pipeline, cache and HTTP events.
//
// [errors] - Structured errors with machine-readable codes.
//
// [units]: github.com/matzehuels/celldl/pkg/units
// [constraint]: github.com/matzehuels/celldl/pkg/constraint
// [diagram]: github.com/matzehuels/celldl/pkg/diagram
// [dag]: github.com/matzehuels/celldl/pkg/dag
// [geom]: github.com/matzehuels/celldl/pkg/geom
// [resolve]: github.com/matzehuels/celldl/pkg/resolve
// [route]: github.com/matzehuels/celldl/pkg/route
// [document]: github.com/matzehuels/celldl/pkg/document
// [render]: github.com/matzehuels/celldl/pkg/render
// [pipeline]: github.com/matzehuels/celldl/pkg/pipeline
// [pipeline.Runner]: github.com/matzehuels/celldl/pkg/pipeline#Runner
// [cache]: github.com/matzehuels/celldl/pkg/cache
// [config]: github.com/matzehuels/celldl/pkg/config
// [observability]: github.com/matzehuels/celldl/pkg/observability
// [errors]: github.com/matzehuels/celldl/pkg/errors
package pkg
