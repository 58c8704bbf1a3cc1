package polyedit

import (
	"github.com/jward/polyedit/internal/features"
	"github.com/jward/polyedit/internal/textpos"
)

// Public aliases for the internal types that appear in the Service API.

type Position = textpos.Position
type Element = features.Element
type Behavior = features.Behavior
type Property = features.Property
type Slot = features.Slot
type Warning = features.Warning
type Graph = features.Graph

// SourceRange is a span of a document. End is exclusive.
type SourceRange struct {
	URL   string   `json:"url"`
	Start Position `json:"start"`
	End   Position `json:"end"`
}
