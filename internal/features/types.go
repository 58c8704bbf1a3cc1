package features

import "strings"

// Feature kinds as reported by Graph.Kinds and the CLI.
const (
	KindElement  = "element"
	KindBehavior = "behavior"
	KindProperty = "property"
	KindEvent    = "event"
	KindSlot     = "slot"
)

// Element is a custom element declared by some document. Behaviors are
// referenced by name and resolved through the owning Graph.
type Element struct {
	TagName     string
	ClassName   string
	Description string
	URL         string
	Properties  []*Property
	Attributes  []*Attribute
	Events      []*Event
	Slots       []*Slot
	Behaviors   []string
}

// Behavior is a reusable bundle of capabilities an element (or another
// behavior) composes.
type Behavior struct {
	Name        string
	Description string
	URL         string
	Properties  []*Property
	Attributes  []*Attribute
	Events      []*Event
	Behaviors   []string
}

// Property is a declared JavaScript property.
type Property struct {
	Name        string
	Type        string
	Description string
	Notify      bool
	ReadOnly    bool
}

// Private reports whether the property is internal by naming convention.
func (p *Property) Private() bool {
	return strings.HasPrefix(p.Name, "_")
}

// Attribute is an explicitly observed attribute (vanilla elements).
type Attribute struct {
	Name        string
	Type        string
	Description string
}

// Event is an event a feature documents as fired.
type Event struct {
	Name        string
	Description string
}

// Slot is a content distribution point. An empty Name is the default slot.
type Slot struct {
	Name string
}

// Warning is a non-fatal problem found while building a Graph, typically a
// failure isolated to an imported document.
type Warning struct {
	URL     string
	Message string
}

func (w Warning) String() string {
	if w.URL == "" {
		return w.Message
	}
	return w.URL + ": " + w.Message
}

// Graph is the analyzed feature set of one document: its own features followed
// by those of every document it transitively imports.
type Graph struct {
	URL          string
	Elements     []*Element
	Behaviors    []*Behavior
	Imports      []string
	Dependencies []string
	Warnings     []Warning
}

// Element returns the first element declared with tag, or nil.
func (g *Graph) Element(tag string) *Element {
	if g == nil {
		return nil
	}
	for _, el := range g.Elements {
		if el.TagName == tag {
			return el
		}
	}
	return nil
}

// Behavior returns the first behavior declared with name, or nil.
func (g *Graph) Behavior(name string) *Behavior {
	if g == nil {
		return nil
	}
	for _, b := range g.Behaviors {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// DependsOn reports whether the graph was built from url, directly or
// through an import.
func (g *Graph) DependsOn(url string) bool {
	if g == nil {
		return false
	}
	if g.URL == url {
		return true
	}
	for _, dep := range g.Dependencies {
		if dep == url {
			return true
		}
	}
	return false
}

// DashCase converts a JavaScript property name to its attribute form:
// "notifyingProperty" -> "notifying-property".
func DashCase(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteByte(c + ('a' - 'A'))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

var polymerTypes = map[string]string{
	"String":  "string",
	"Number":  "number",
	"Boolean": "boolean",
	"Array":   "Array",
	"Object":  "Object",
	"Date":    "Date",
}

// PolymerType maps a Polymer property type constructor such as Number to
// the type name reported for it. Unknown constructors pass through.
func PolymerType(ctor string) string {
	if t, ok := polymerTypes[ctor]; ok {
		return t
	}
	return ctor
}
