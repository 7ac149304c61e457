package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/celldl/pkg/diagram"
	"github.com/matzehuels/celldl/pkg/render/depgraph"
	"github.com/matzehuels/celldl/pkg/render/jsonout"
	"github.com/matzehuels/celldl/pkg/render/svg"
	"github.com/matzehuels/celldl/pkg/resolve"
	"github.com/matzehuels/celldl/pkg/route"
)

// Render generates output artifacts in the requested formats.
func Render(d *diagram.Diagram, l *resolve.Layout, routes *route.Routes, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = svg.RenderSVG(d, l, svgOptions(routes, opts)...)
		case FormatJSON:
			var jsonOpts []jsonout.Option
			if routes != nil {
				jsonOpts = append(jsonOpts, jsonout.WithRoutes(routes))
			}
			data, err = jsonout.RenderJSON(d, l, jsonOpts...)
		case FormatDOT:
			data, err = RenderGraph(context.Background(), d, FormatDOT, false)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

// RenderGraph renders the position dependency graph of d as DOT, or as SVG
// laid out by Graphviz when format is [FormatSVG].
func RenderGraph(ctx context.Context, d *diagram.Diagram, format string, detailed bool) ([]byte, error) {
	g, err := resolve.Graph(d)
	if err != nil {
		return nil, err
	}
	dot := depgraph.ToDOT(g, depgraph.Options{Detailed: detailed})

	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return depgraph.RenderSVG(ctx, dot)
	default:
		return nil, fmt.Errorf("unsupported graph format: %s", format)
	}
}

// svgOptions builds SVG rendering options.
func svgOptions(routes *route.Routes, opts Options) []svg.Option {
	var svgOpts []svg.Option
	if opts.NodeRadius > 0 {
		svgOpts = append(svgOpts, svg.WithNodeRadius(opts.NodeRadius))
	}
	if opts.TransporterWidth > 0 {
		svgOpts = append(svgOpts, svg.WithTransporterWidth(opts.TransporterWidth))
	}
	if routes != nil {
		svgOpts = append(svgOpts, svg.WithRoutes(routes))
	}
	if opts.NoLabels {
		svgOpts = append(svgOpts, svg.WithoutLabels())
	}
	return svgOpts
}
