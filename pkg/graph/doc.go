// Package graph provides the serialization formats for family trees and
// their layouts.
//
// This package defines the canonical wire format for LegacyLink data, used
// for import/export files, backups, API payloads, and cache entries.
//
// # Roster Documents
//
// A [Document] wraps the member list of one tree with a format version:
//
//	{
//	  "version": 1,
//	  "tree": "smith",
//	  "members": [
//	    {"id": "alice", "name": "Alice", "gender": "female",
//	     "relationships": {"parents": [], "children": ["bob"], "siblings": [], "spouses": []}}
//	  ]
//	}
//
// Documents can be stored as JSON, YAML, or zstd-compressed JSON; the file
// helpers pick one from the extension (.json, .yaml/.yml, .llz) and reject
// anything else:
//
//	doc, err := graph.ReadRosterFile("smith.yaml")
//	err = graph.WriteRosterFile("smith.llz", doc)
//
// Documents written by a newer version are rejected with an UNSUPPORTED
// error rather than silently losing fields.
//
// # Layouts
//
// [MarshalLayout] and [UnmarshalLayout] convert a computed layout.Result to
// and from JSON. Decoding checks that every connection references a node in
// the layout.
package graph
