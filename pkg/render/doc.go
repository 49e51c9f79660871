// Package render turns collation results into pictures.
//
// The [nodelink] subpackage draws the variant graph itself: one box per
// reading, one arrow per edge, each arrow labelled with the witnesses that
// take it. Vertices of equal rank share a Graphviz rank so that parallel
// readings line up.
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg):
//
//	svg, err := nodelink.RenderSVG(dot)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// [nodelink]: github.com/matzehuels/stemma/pkg/render/nodelink
package render
