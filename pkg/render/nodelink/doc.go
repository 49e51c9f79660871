// Package nodelink renders variant graphs as node-link diagrams.
//
// # Usage
//
// Convert a graph to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(res.Graph, res.Ranking, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//
// # DOT Format
//
// Every vertex becomes a rounded box labelled with its contents; Start and
// End are grey circles labelled "#". Every edge carries the comma-joined
// sigils of its witnesses, so the edge from "the" to "black" taken by A and
// B reads "A, B". The layout runs left to right by default, which is how
// variant graphs are usually read.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
