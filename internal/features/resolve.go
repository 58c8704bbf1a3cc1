package features

import "sort"

// Capability kinds.
const (
	CapabilityAttribute = "attribute"
	CapabilityEvent     = "event"
	CapabilityProperty  = "property"
)

// Sort key group prefixes. Local capabilities sort before inherited ones and
// both sort before events.
const (
	localPrefix     = "aaa-"
	inheritedPrefix = "ddd-"
	eventPrefix     = "eee-"
)

// Capability is one flattened, provenance-annotated entry of an element's
// attribute, event or property list.
type Capability struct {
	Name          string
	Description   string
	Type          string
	SortKey       string
	InheritedFrom string
	Kind          string
}

// Resolver flattens elements against the behaviors of a Graph.
type Resolver struct {
	graph *Graph
}

// NewResolver returns a Resolver that looks behaviors up in g. A nil graph
// resolves every element to its local capabilities only.
func NewResolver(g *Graph) *Resolver {
	return &Resolver{graph: g}
}

// source is one contributor to an element's capabilities: the element itself
// (owner "") or a behavior.
type source struct {
	owner      string
	properties []*Property
	attributes []*Attribute
	events     []*Event
}

func (s source) prefix() string {
	if s.owner == "" {
		return localPrefix
	}
	return inheritedPrefix
}

// sources walks el's behavior references depth first in declaration order.
// Each behavior contributes once; an edge back to a visited behavior (a
// cycle or a diamond) is dropped. Unknown behaviors are skipped.
func (r *Resolver) sources(el *Element) []source {
	out := []source{{
		properties: el.Properties,
		attributes: el.Attributes,
		events:     el.Events,
	}}
	visited := make(map[string]bool)
	var walk func(names []string)
	walk = func(names []string) {
		for _, name := range names {
			if visited[name] {
				continue
			}
			visited[name] = true
			b := r.graph.Behavior(name)
			if b == nil {
				continue
			}
			out = append(out, source{
				owner:      b.Name,
				properties: b.Properties,
				attributes: b.Attributes,
				events:     b.Events,
			})
			walk(b.Behaviors)
		}
	}
	walk(el.Behaviors)
	return out
}

// Attributes returns everything that can be written as an attribute on el:
// public writable properties in dash-case, explicitly observed attributes,
// declared events as on-<event>, and an on-<property>-changed event for each
// notifying property. The result is sorted by SortKey.
func (r *Resolver) Attributes(el *Element) []Capability {
	if el == nil {
		return []Capability{}
	}
	seen := make(map[string]bool)
	out := []Capability{}
	add := func(c Capability) {
		if seen[c.Name] {
			return
		}
		seen[c.Name] = true
		out = append(out, c)
	}

	for _, src := range r.sources(el) {
		prefix := src.prefix()
		for _, p := range src.properties {
			if p.Private() {
				continue
			}
			name := DashCase(p.Name)
			if !p.ReadOnly {
				add(Capability{
					Name:          name,
					Description:   p.Description,
					Type:          p.Type,
					SortKey:       prefix + name,
					InheritedFrom: src.owner,
					Kind:          CapabilityAttribute,
				})
			}
			if p.Notify {
				ev := "on-" + name + "-changed"
				add(Capability{
					Name:          ev,
					Description:   "Fired when the `" + p.Name + "` property changes.",
					Type:          "CustomEvent",
					SortKey:       eventPrefix + prefix + ev,
					InheritedFrom: src.owner,
					Kind:          CapabilityEvent,
				})
			}
		}
		for _, a := range src.attributes {
			add(Capability{
				Name:          a.Name,
				Description:   a.Description,
				Type:          a.Type,
				SortKey:       prefix + a.Name,
				InheritedFrom: src.owner,
				Kind:          CapabilityAttribute,
			})
		}
		for _, e := range src.events {
			name := "on-" + e.Name
			add(Capability{
				Name:          name,
				Description:   e.Description,
				Type:          "CustomEvent",
				SortKey:       eventPrefix + prefix + name,
				InheritedFrom: src.owner,
				Kind:          CapabilityEvent,
			})
		}
	}
	sortCapabilities(out)
	return out
}

// Properties returns el's properties under their JavaScript names, local and
// inherited, sorted by SortKey. Private properties are included only when
// includePrivate is set.
func (r *Resolver) Properties(el *Element, includePrivate bool) []Capability {
	if el == nil {
		return []Capability{}
	}
	seen := make(map[string]bool)
	out := []Capability{}
	for _, src := range r.sources(el) {
		prefix := src.prefix()
		for _, p := range src.properties {
			if seen[p.Name] || (p.Private() && !includePrivate) {
				continue
			}
			seen[p.Name] = true
			out = append(out, Capability{
				Name:          p.Name,
				Description:   p.Description,
				Type:          p.Type,
				SortKey:       prefix + p.Name,
				InheritedFrom: src.owner,
				Kind:          CapabilityProperty,
			})
		}
	}
	sortCapabilities(out)
	return out
}

// Property finds the nearest declaration of the property named name (its
// JavaScript name) on el or its behaviors.
func (r *Resolver) Property(el *Element, name string) (*Property, bool) {
	if el == nil {
		return nil, false
	}
	for _, src := range r.sources(el) {
		for _, p := range src.properties {
			if p.Name == name {
				return p, true
			}
		}
	}
	return nil, false
}

// PropertyForAttribute finds the property an attribute name maps to.
func (r *Resolver) PropertyForAttribute(el *Element, attr string) (*Property, bool) {
	if el == nil {
		return nil, false
	}
	for _, src := range r.sources(el) {
		for _, p := range src.properties {
			if DashCase(p.Name) == attr {
				return p, true
			}
		}
	}
	return nil, false
}

// HasAttributes reports whether anything can be written as an attribute on el.
func (r *Resolver) HasAttributes(el *Element) bool {
	return len(r.Attributes(el)) > 0
}

func sortCapabilities(cs []Capability) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].SortKey != cs[j].SortKey {
			return cs[i].SortKey < cs[j].SortKey
		}
		return cs[i].Name < cs[j].Name
	})
}
