package collate

import (
	"fmt"

	"github.com/matzehuels/stemma/pkg/match"
	"github.com/matzehuels/stemma/pkg/transposition"
	"github.com/matzehuels/stemma/pkg/vgraph"
	"github.com/matzehuels/stemma/pkg/witness"
)

// Kind tags how a segment of witness tokens enters the graph.
type Kind int

const (
	// KindExact tokens join the vertices they matched exactly.
	KindExact Kind = iota
	// KindNear tokens join the vertices they matched within the threshold.
	KindNear
	// KindGap tokens had no match; they get a vertex of their own unless an
	// existing reading fits between their neighbours.
	KindGap
	// KindTransposed tokens matched a phrase that is out of order; they
	// always get new vertices.
	KindTransposed
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindNear:
		return "near"
	case KindGap:
		return "gap"
	case KindTransposed:
		return "transposed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Segment is a run of consecutive witness tokens sharing a [Kind].
// Vertices is parallel to Tokens for exact and near segments and nil
// otherwise.
type Segment struct {
	Kind     Kind
	Tokens   []witness.Token
	Vertices []vgraph.VertexID
}

// Plan interleaves the phrases and gaps of an alignment into segments in
// witness order. Displaced phrases become [KindTransposed] segments;
// consecutive gap tokens form one [KindGap] segment.
func Plan(a *match.Alignment, rep *transposition.Report) []Segment {
	var segs []Segment
	gaps := a.Gaps

	flushGaps := func(before int) {
		n := 0
		for n < len(gaps) && gaps[n].Index < before {
			n++
		}
		if n > 0 {
			segs = append(segs, Segment{Kind: KindGap, Tokens: gaps[:n:n]})
			gaps = gaps[n:]
		}
	}

	for i, p := range a.Phrases {
		flushGaps(p.Tokens[0].Token.Index)

		seg := Segment{Kind: KindExact}
		switch {
		case rep != nil && rep.IsDisplaced(i):
			seg.Kind = KindTransposed
		case p.Mode() == match.Near:
			seg.Kind = KindNear
		}
		for _, tm := range p.Tokens {
			seg.Tokens = append(seg.Tokens, tm.Token)
			if seg.Kind != KindTransposed {
				seg.Vertices = append(seg.Vertices, tm.Vertex)
			}
		}
		segs = append(segs, seg)
	}
	if len(gaps) > 0 {
		segs = append(segs, Segment{Kind: KindGap, Tokens: gaps})
	}
	return segs
}
