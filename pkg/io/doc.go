// Package io reads witnesses from files and writes collation results.
//
// # Input
//
// [ReadJSON] decodes the CollateX JSON input layout. Witnesses either carry
// plain content, which is split by a [witness.Tokenizer], or arrive already
// tokenized:
//
//	{
//	  "witnesses": [
//	    {"id": "A", "content": "the black cat"},
//	    {"id": "B", "tokens": [{"t": "the "}, {"t": "white ", "n": "white"}]}
//	  ],
//	  "algorithm": "near",
//	  "threshold": 0.4
//	}
//
// The optional algorithm and threshold fields let a request pick its own
// matching settings; see [Input.MatchOptions].
//
// [ReadTEI] reads one witness from a TEI document. By default every tei:w
// element becomes a token, with its norm attribute as the normalized form.
// Any other XPath may be configured; the "tei" prefix is always bound to the
// TEI namespace. [ReadText] reads a plain-text file as one witness named
// after the file.
//
// # Graph Export
//
// [WriteGraph] dumps a variant graph for external projectors and viewers:
//
//	{
//	  "vertices": [
//	    {"id": 0, "kind": "start", "rank": 0},
//	    {"id": 2, "rank": 1, "reading": "the", "witnesses": ["A", "B"],
//	     "tokens": [{"witness": "A", "index": 0, "t": "the ", "n": "the"}, ...]},
//	    ...
//	  ],
//	  "edges": [{"from": 0, "to": 2, "witnesses": ["A", "B"]}, ...]
//	}
//
// The alignment table has its own JSON form; see the apparatus package.
package io
