// Package polyedit answers editor questions about HTML documents that use
// custom elements: what can be typed at a cursor, and where else the thing
// under the cursor is used.
//
// # Pipeline
//
// Every document goes through two steps when it changes:
//
//  1. Analyze: the document is parsed with tree-sitter, its imports are
//     followed and the elements and behaviors they declare (Polymer 1 calls,
//     Polymer 2 classes through Risor extension scripts, and vanilla
//     customElements.define classes) are collected into a feature graph.
//
//  2. Index: every open tag and databinding identifier of the document is
//     written to a SQLite occurrence index, together with the documents the
//     graph was built from. Documents that import the changed one are marked
//     for re-analysis on their next read.
//
// The last good graph of a document is kept when a later analysis fails, so
// completions keep working while a script is half typed.
//
// # Usage
//
//	svc, err := polyedit.New(polyedit.WithRoot("path/to/package"))
//	if err != nil { ... }
//	defer svc.Close()
//
//	ctx := context.Background()
//	svc.FileChanged(ctx, "index.html", text)
//
//	res := svc.TypeaheadCompletionsAt(ctx, "index.html", polyedit.Position{Line: 7, Column: 3})
//	refs := svc.ReferencesAt(ctx, "index.html", polyedit.Position{Line: 7, Column: 3})
//
// URLs are slash-separated and relative to the package root. Positions are
// zero-based lines and UTF-16 columns.
//
// # Completions
//
// [Service.TypeaheadCompletionsAt] classifies the cursor and returns one of
// four result kinds:
//
//   - element-tags: every known element, with an expansion snippet that fills
//     in its named slots.
//   - attributes: the attributes and on-* events of the element being edited,
//     including those inherited from behaviors.
//   - attribute-values: properties of the enclosing element whose type fits
//     the attribute, wrapped in the databinding delimiters already typed.
//   - properties-in-polymer-databinding: every property of the enclosing
//     element, private ones included.
//
// # Scripts
//
// Additional declaration forms are recognized by Risor scripts under
// scripts/extract. They are embedded in the binary by default; see
// [WithScriptsDir] to load them from disk and the internal/runtime package
// for the globals a script receives.
package polyedit
