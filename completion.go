package polyedit

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/jward/polyedit/internal/features"
	"github.com/jward/polyedit/internal/markup"
)

// CompletionKind names the shape of a CompletionResult.
type CompletionKind string

const (
	CompletionElementTags     CompletionKind = "element-tags"
	CompletionAttributes      CompletionKind = "attributes"
	CompletionAttributeValues CompletionKind = "attribute-values"
	CompletionDatabinding     CompletionKind = "properties-in-polymer-databinding"
)

// CompletionResult is the answer to a typeahead request. Exactly one of the
// lists is meaningful, selected by Kind.
type CompletionResult struct {
	Kind       CompletionKind
	Elements   []ElementCompletion
	Attributes []AttributeCompletion
	Values     []AttributeValueCompletion
	Properties []AttributeCompletion
}

// MarshalJSON renders the kind and its list only, under the list's wire
// name. Lists are never null.
func (r CompletionResult) MarshalJSON() ([]byte, error) {
	out := map[string]any{"kind": r.Kind}
	switch r.Kind {
	case CompletionElementTags:
		out["elements"] = nonNil(r.Elements)
	case CompletionAttributes:
		out["attributes"] = nonNil(r.Attributes)
	case CompletionAttributeValues:
		out["attributes"] = nonNil(r.Values)
	case CompletionDatabinding:
		out["properties"] = nonNil(r.Properties)
	}
	return json.Marshal(out)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ElementCompletion offers one element tag.
type ElementCompletion struct {
	TagName         string `json:"tagname"`
	Description     string `json:"description"`
	ExpandTo        string `json:"expandTo"`
	ExpandToSnippet string `json:"expandToSnippet"`
}

// AttributeCompletion offers an attribute, event or property.
type AttributeCompletion struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Type          string `json:"type"`
	SortKey       string `json:"sortKey"`
	InheritedFrom string `json:"inheritedFrom,omitempty"`
}

// AttributeValueCompletion offers a property as a databinding for an
// attribute value.
type AttributeValueCompletion struct {
	AttributeCompletion
	Autocompletion string `json:"autocompletion"`
}

func toCompletion(c features.Capability) AttributeCompletion {
	return AttributeCompletion{
		Name:          c.Name,
		Description:   c.Description,
		Type:          c.Type,
		SortKey:       c.SortKey,
		InheritedFrom: c.InheritedFrom,
	}
}

// completer answers one typeahead request against a document snapshot.
type completer struct {
	graph   *features.Graph
	catalog func() []catalogEntry
}

// lookup finds the element for tag, preferring the document's own graph.
func (c *completer) lookup(tag string) (catalogEntry, bool) {
	if tag == "" {
		return catalogEntry{}, false
	}
	if el := c.graph.Element(tag); el != nil {
		return catalogEntry{element: el, resolver: features.NewResolver(c.graph)}, true
	}
	for _, e := range c.catalog() {
		if e.element.TagName == tag {
			return e, true
		}
	}
	return catalogEntry{}, false
}

func (c *completer) complete(ctx markup.Context) *CompletionResult {
	switch ctx.Kind {
	case markup.KindTagName:
		return c.elementTags()
	case markup.KindAttributeName:
		return c.attributes(ctx)
	case markup.KindAttributeValue:
		return c.attributeValues(ctx)
	case markup.KindDatabinding:
		return c.databinding(ctx)
	}
	return nil
}

func (c *completer) elementTags() *CompletionResult {
	entries := c.catalog()
	out := make([]ElementCompletion, 0, len(entries))
	for _, e := range entries {
		out = append(out, elementCompletion(e.element, e.resolver.HasAttributes(e.element)))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TagName < out[j].TagName })
	return &CompletionResult{Kind: CompletionElementTags, Elements: out}
}

// elementCompletion renders the expansions of el. Snippet tab stops are
// numbered in order: the attribute placeholder when el has attributes, then
// a tag name and a content stop per slot, and $0 after the close tag.
func elementCompletion(el *features.Element, hasAttributes bool) ElementCompletion {
	tag := el.TagName
	space := ""
	if hasAttributes {
		space = " "
	}

	var b strings.Builder
	b.WriteString("<" + tag)
	stop := 1
	if hasAttributes {
		b.WriteString(" $1")
		stop = 2
	}
	b.WriteString(">")
	switch {
	case len(el.Slots) == 1 && el.Slots[0].Name == "":
		b.WriteString("$" + strconv.Itoa(stop))
	case len(el.Slots) > 0:
		for _, s := range el.Slots {
			name, content := strconv.Itoa(stop), "$"+strconv.Itoa(stop+1)
			b.WriteString("\n\t<${" + name + ":div}")
			if s.Name != "" {
				b.WriteString(` slot="` + s.Name + `"`)
			}
			b.WriteString(">" + content + "</${" + name + ":div}>")
			stop += 2
		}
		b.WriteString("\n")
	}
	b.WriteString("</" + tag + ">$0")

	return ElementCompletion{
		TagName:         tag,
		Description:     el.Description,
		ExpandTo:        "<" + tag + space + "></" + tag + ">",
		ExpandToSnippet: b.String(),
	}
}

func (c *completer) attributes(ctx markup.Context) *CompletionResult {
	out := []AttributeCompletion{}
	e, ok := c.lookup(ctx.Element)
	if !ok {
		return &CompletionResult{Kind: CompletionAttributes, Attributes: out}
	}
	existing := make(map[string]bool, len(ctx.Existing))
	for _, name := range ctx.Existing {
		existing[name] = true
	}
	for _, capability := range e.resolver.Attributes(e.element) {
		if !existing[capability.Name] {
			out = append(out, toCompletion(capability))
		}
	}
	return &CompletionResult{Kind: CompletionAttributes, Attributes: out}
}

// attributeValues offers the properties of the enclosing element whose type
// fits the attribute being edited. An attribute with no known property is
// treated as a string.
func (c *completer) attributeValues(ctx markup.Context) *CompletionResult {
	out := []AttributeValueCompletion{}
	scope, ok := c.lookup(ctx.Scope)
	if !ok {
		return &CompletionResult{Kind: CompletionAttributeValues, Values: out}
	}
	target := "string"
	if e, ok := c.lookup(ctx.Element); ok {
		if p, ok := e.resolver.PropertyForAttribute(e.element, ctx.Attribute); ok {
			target = p.Type
		}
	}
	for _, capability := range scope.resolver.Properties(scope.element, false) {
		if !typesCompatible(capability.Type, target) {
			continue
		}
		out = append(out, AttributeValueCompletion{
			AttributeCompletion: toCompletion(capability),
			Autocompletion:      ctx.Binding.Wrap(capability.Name),
		})
	}
	return &CompletionResult{Kind: CompletionAttributeValues, Values: out}
}

// typesCompatible reports whether a property of type t can be bound to a
// target of type target. An unknown type on either side is compatible.
func typesCompatible(t, target string) bool {
	return t == "" || target == "" || strings.EqualFold(t, target)
}

func (c *completer) databinding(ctx markup.Context) *CompletionResult {
	out := []AttributeCompletion{}
	if scope, ok := c.lookup(ctx.Scope); ok {
		for _, capability := range scope.resolver.Properties(scope.element, true) {
			out = append(out, toCompletion(capability))
		}
	}
	return &CompletionResult{Kind: CompletionDatabinding, Properties: out}
}
