// Package transposition flags phrase matches whose order in a witness
// contradicts their order in the variant graph.
//
// # Algorithm
//
// [Detect] takes the rank of each phrase's anchor vertex in witness order
// (the actual ranks) and the same ranks sorted ascending (the expected
// ranks). A phrase whose expected and actual ranks differ is displaced.
//
// A simple swap of two phrases shows up as two consecutive displaced
// positions with mirrored pairs: the previous (expected, actual) equals the
// current (actual, expected). Only one side of a mirrored pair is reported,
// the one with more tokens, or the earlier one on a tie. Other displaced
// phrases are reported in detection order. Cyclic permutations of three or
// more phrases are not collapsed.
//
// Detection is informational and never mutates the graph. The collation
// builder uses [Report.Displaced] to keep every displaced phrase out of the
// shared readings.
package transposition

import (
	"errors"
	"slices"

	errs "github.com/matzehuels/stemma/pkg/errors"
	"github.com/matzehuels/stemma/pkg/match"
	"github.com/matzehuels/stemma/pkg/vgraph/ranking"
)

// ErrUnrankedAnchor is wrapped by the CONSISTENCY error [Detect] returns when
// a phrase anchor has no rank.
var ErrUnrankedAnchor = errors.New("phrase anchor has no rank")

// Transposition is a phrase match reported as moved.
type Transposition struct {
	Phrase   match.PhraseMatch
	Index    int // Position of the phrase in the alignment
	Expected int // Rank the phrase would have in graph order
	Actual   int // Rank of the phrase anchor
}

// Report is the outcome of [Detect].
type Report struct {
	// Transpositions after mirror resolution, in detection order.
	Transpositions []Transposition
	// Displaced lists the indices of every phrase whose expected rank
	// differs from its actual rank, ascending.
	Displaced []int
}

// IsDisplaced reports whether phrase i is displaced.
func (r *Report) IsDisplaced(i int) bool {
	_, ok := slices.BinarySearch(r.Displaced, i)
	return ok
}

// Detect examines the phrases of one witness, given in witness order,
// against the ranking of the graph they were matched in.
func Detect(phrases []match.PhraseMatch, r *ranking.Ranking) (*Report, error) {
	actual := make([]int, len(phrases))
	for i, p := range phrases {
		rank, ok := r.RankOf(p.Anchor())
		if !ok {
			return nil, errs.Consistency(ErrUnrankedAnchor, "detect transpositions: anchor %d of phrase %d", p.Anchor(), i)
		}
		actual[i] = rank
	}
	expected := slices.Clone(actual)
	slices.Sort(expected)

	rep := &Report{}
	var prevExpected, prevActual int
	for i, p := range phrases {
		e, a := expected[i], actual[i]
		if e != a {
			rep.Displaced = append(rep.Displaced, i)
			t := Transposition{Phrase: p, Index: i, Expected: e, Actual: a}
			mirrored := i > 0 && prevExpected == a && prevActual == e
			rep.add(t, mirrored)
		}
		prevExpected, prevActual = e, a
	}
	return rep, nil
}

func (r *Report) add(t Transposition, mirrored bool) {
	n := len(r.Transpositions)
	if !mirrored || n == 0 {
		r.Transpositions = append(r.Transpositions, t)
		return
	}
	if t.Phrase.Len() > r.Transpositions[n-1].Phrase.Len() {
		r.Transpositions[n-1] = t
	}
}
