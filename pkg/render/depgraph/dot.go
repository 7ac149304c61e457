package depgraph

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/celldl/pkg/dag"
)

// Options configures dependency graph rendering.
type Options struct {
	// Detailed includes node metadata and resolution depth in labels.
	// When false, only the element key is shown.
	Detailed bool
}

var shapes = map[string]string{
	"compartment": "box",
	"quantity":    "box",
	"transporter": "hexagon",
	"potential":   "ellipse",
	"flow":        "diamond",
}

var fills = map[string]string{
	"compartment": "\"#f4f8fb\"",
	"transporter": "\"#ffd27f\"",
	"potential":   "\"#cfe8cf\"",
	"flow":        "\"#f5c6c6\"",
}

// ToDOT converts a dependency graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
func ToDOT(g *dag.DAG, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n")
	if opts.Detailed && len(g.Meta()) > 0 {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", metaLines(g.Meta(), ", "))
	}
	buf.WriteString("\n")

	// Depth is the length of the longest reference chain to a node. A
	// cyclic graph has none and is drawn without it.
	var depths map[string]int
	if opts.Detailed {
		depths, _ = g.Depths()
	}
	for _, n := range g.Nodes() {
		label := fmtLabel(*n, opts.Detailed)
		if depth, ok := depths[n.ID]; ok {
			label += fmt.Sprintf("\ndepth: %d", depth)
		}
		attrs := fmtAttrs(*n, label)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if kind, _ := e.Meta["kind"].(string); kind == "container" {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, color=grey];\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n dag.Node, detailed bool) string {
	if !detailed || len(n.Meta) == 0 {
		return n.ID
	}

	return n.ID + "\n" + metaLines(n.Meta, "\n")
}

func metaLines(meta dag.Metadata, sep string) string {
	parts := make([]string, 0, len(meta))
	for _, k := range slices.Sorted(maps.Keys(meta)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, meta[k]))
	}
	return strings.Join(parts, sep)
}

func fmtAttrs(n dag.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	kind, _ := n.Meta["kind"].(string)
	if shape, ok := shapes[kind]; ok && shape != "box" {
		attrs = append(attrs, "shape="+shape, "style=filled")
	}
	if fill, ok := fills[kind]; ok {
		attrs = append(attrs, "fillcolor="+fill)
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
