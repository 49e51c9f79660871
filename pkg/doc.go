// Package pkg provides the core libraries for stemma text collation.
//
// # Overview
//
// Stemma aligns several witnesses (versions) of a text and merges them into a
// variant graph: a directed acyclic graph whose paths from Start to End spell
// out each witness. The pkg directory is organized into three areas:
//
//  1. Core: [witness], [vgraph], [vgraph/ranking], [match], [transposition]
//     and [collate] build the graph one witness at a time.
//  2. Projections: [apparatus] (alignment table), [render] (DOT, SVG, PNG,
//     PDF) and [io] (JSON, TEI and graph export).
//  3. Infrastructure: [config], [cache], [pipeline], [observability],
//     [errors] and [buildinfo].
//
// # Architecture
//
// The data flow through stemma:
//
//	text / TEI / CollateX JSON
//	         ↓
//	    [io], [config] (load and tokenize witnesses)
//	         ↓
//	    [collate] (match, detect transpositions, merge)
//	         ↓
//	    [apparatus], [render] (table and graph output)
//
// [pipeline] runs these stages with a [cache] in front of rendering.
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/stemma/pkg/apparatus"
//	    "github.com/matzehuels/stemma/pkg/collate"
//	    "github.com/matzehuels/stemma/pkg/witness"
//	)
//
//	res, err := collate.Collate(context.Background(), []*witness.Witness{
//	    witness.Tokenize("A", "the black cat"),
//	    witness.Tokenize("B", "the white cat"),
//	}, collate.Options{})
//	if err != nil {
//	    return err
//	}
//	tbl := apparatus.FromResult(res)
//
// Core packages do not touch the file system and log only through a logger
// passed in their options; loading, caching and rendering live in the outer
// packages.
package pkg
