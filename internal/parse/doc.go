// Package parse turns pasted text, CSV and JSON documents into candidate
// records.
//
// Parsers are tolerant: they extract what they can and report every
// group or row they could not use in Result.Unparsed, together with the
// raw input and the reasons. They never validate beyond what extraction
// needs; that is the job of package validate.
package parse
