package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/jward/polyedit/internal/features"
)

// scriptResult is what one JavaScript source unit declares.
type scriptResult struct {
	elements  []*features.Element
	behaviors []*features.Behavior
}

// errSyntax marks a script that tree-sitter could not parse cleanly.
var errSyntax = errors.New("syntax error")

// parseJS parses src with the JavaScript grammar.
func parseJS(ctx context.Context, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, errors.Wrap(err, "tree-sitter parse failed")
	}
	return tree, nil
}

// extractScript recognizes Polymer elements, Polymer behaviors and vanilla
// custom elements in one JavaScript source unit.
func extractScript(ctx context.Context, url string, src []byte) (*scriptResult, error) {
	tree, err := parseJS(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, errors.WithDetailf(errSyntax, "at %s", firstErrorPoint(root))
	}

	x := &jsExtractor{url: url, src: src, classes: make(map[string]*sitter.Node)}
	x.collectClasses(root)
	x.walk(root)
	return &scriptResult{elements: x.elements, behaviors: x.behaviors}, nil
}

// firstErrorPoint locates the first ERROR or missing node, for messages.
func firstErrorPoint(n *sitter.Node) string {
	var found *sitter.Node
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if found != nil || n == nil || !n.HasError() && !n.IsMissing() {
			return
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(n)
	if found == nil {
		found = n
	}
	return pointString(found.StartPoint())
}

func pointString(p sitter.Point) string {
	return fmt.Sprintf("%d:%d", p.Row+1, p.Column+1)
}

type jsExtractor struct {
	url       string
	src       []byte
	classes   map[string]*sitter.Node
	elements  []*features.Element
	behaviors []*features.Behavior
}

func (x *jsExtractor) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(x.src)
}

func (x *jsExtractor) collectClasses(n *sitter.Node) {
	switch n.Type() {
	case jsNodeClassDeclaration:
		x.addClass(n.ChildByFieldName("name"), n)
	case jsNodeVariableDeclarator:
		// const Name = class extends ... {}
		if value := n.ChildByFieldName("value"); value != nil && value.Type() == jsNodeClass {
			x.addClass(n.ChildByFieldName("name"), value)
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		x.collectClasses(n.NamedChild(i))
	}
}

// addClass records the first class bound to name.
func (x *jsExtractor) addClass(name, class *sitter.Node) {
	if name == nil || name.Type() != jsNodeIdentifier {
		return
	}
	if _, dup := x.classes[x.text(name)]; !dup {
		x.classes[x.text(name)] = class
	}
}

func (x *jsExtractor) walk(n *sitter.Node) {
	switch n.Type() {
	case jsNodeCallExpression:
		callee := x.text(n.ChildByFieldName("function"))
		switch callee {
		case "Polymer":
			x.polymerCall(n)
		case "customElements.define", "window.customElements.define":
			x.defineCall(n)
		}
	case jsNodeAssignmentExpression:
		x.maybeBehavior(n, n.ChildByFieldName("left"), n.ChildByFieldName("right"))
	case jsNodeVariableDeclarator:
		x.maybeBehavior(n, n.ChildByFieldName("name"), n.ChildByFieldName("value"))
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		x.walk(n.NamedChild(i))
	}
}

// arguments returns the named argument nodes of a call.
func arguments(call *sitter.Node) []*sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(args.NamedChildCount()); i++ {
		if a := args.NamedChild(i); a.Type() != jsNodeComment {
			out = append(out, a)
		}
	}
	return out
}

// pairs iterates the key/value members of an object literal.
func (x *jsExtractor) pairs(obj *sitter.Node, fn func(key string, pair, value *sitter.Node)) {
	if obj == nil || obj.Type() != jsNodeObject {
		return
	}
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		p := obj.NamedChild(i)
		if p.Type() != jsNodePair {
			continue
		}
		fn(x.stringValue(p.ChildByFieldName("key")), p, p.ChildByFieldName("value"))
	}
}

// stringValue returns identifier text, or string literal content without
// its quotes.
func (x *jsExtractor) stringValue(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	s := x.text(n)
	switch n.Type() {
	case jsNodeString, jsNodeTemplateString:
		if len(s) >= 2 {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func (x *jsExtractor) polymerCall(call *sitter.Node) {
	args := arguments(call)
	if len(args) == 0 || args[0].Type() != jsNodeObject {
		return
	}
	obj := args[0]
	doc := leadingDoc(call, x.src)
	el := &features.Element{URL: x.url, Description: doc.Description}
	x.pairs(obj, func(key string, pair, value *sitter.Node) {
		switch key {
		case "is":
			el.TagName = x.stringValue(value)
		case "properties":
			el.Properties = x.properties(value)
		case "behaviors":
			el.Behaviors = x.behaviorNames(value)
		}
	})
	if el.TagName == "" {
		return
	}
	el.Events = x.events(doc, obj)
	x.elements = append(x.elements, el)
}

// properties reads a Polymer properties block. Each member is either a type
// constructor (foo: String) or a descriptor object.
func (x *jsExtractor) properties(obj *sitter.Node) []*features.Property {
	var out []*features.Property
	x.pairs(obj, func(key string, pair, value *sitter.Node) {
		if key == "" || value == nil {
			return
		}
		p := &features.Property{Name: key, Description: leadingDoc(pair, x.src).Description}
		switch value.Type() {
		case jsNodeIdentifier:
			p.Type = features.PolymerType(x.text(value))
		case jsNodeObject:
			x.pairs(value, func(k string, _, v *sitter.Node) {
				switch k {
				case "type":
					p.Type = features.PolymerType(x.text(v))
				case "notify":
					p.Notify = v != nil && v.Type() == jsNodeTrue
				case "readOnly":
					p.ReadOnly = v != nil && v.Type() == jsNodeTrue
				}
			})
		}
		out = append(out, p)
	})
	return out
}

// behaviorNames reads an array of behavior references.
func (x *jsExtractor) behaviorNames(arr *sitter.Node) []string {
	if arr == nil || arr.Type() != jsNodeArray {
		return nil
	}
	var out []string
	for i := 0; i < int(arr.NamedChildCount()); i++ {
		switch c := arr.NamedChild(i); c.Type() {
		case jsNodeIdentifier, jsNodeMemberExpression:
			out = append(out, x.text(c))
		}
	}
	return out
}

// events collects @event tags from the element's doc and from any doc
// comment inside its definition.
func (x *jsExtractor) events(doc jsDoc, within *sitter.Node) []*features.Event {
	var out []*features.Event
	seen := make(map[string]bool)
	add := func(d jsDoc) {
		for _, t := range d.Tags {
			if t.Name != "event" {
				continue
			}
			name, _, _ := strings.Cut(t.Value, " ")
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, &features.Event{Name: name, Description: d.Description})
		}
	}
	add(doc)
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Type() == jsNodeComment {
			add(parseJSDoc(x.text(n)))
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	if within != nil {
		visit(within)
	}
	return out
}

// maybeBehavior records a @polymerBehavior declaration: an object literal,
// or an array composing other behaviors with inline objects.
func (x *jsExtractor) maybeBehavior(decl, left, right *sitter.Node) {
	if left == nil || right == nil {
		return
	}
	doc := leadingDoc(decl, x.src)
	tagged, ok := doc.tag("polymerBehavior")
	if !ok {
		return
	}
	name := strings.TrimSpace(tagged)
	if name == "" {
		name = x.text(left)
	}
	b := &features.Behavior{Name: name, URL: x.url, Description: doc.Description}
	switch right.Type() {
	case jsNodeObject:
		x.behaviorObject(b, right)
	case jsNodeArray:
		for i := 0; i < int(right.NamedChildCount()); i++ {
			switch c := right.NamedChild(i); c.Type() {
			case jsNodeIdentifier, jsNodeMemberExpression:
				b.Behaviors = append(b.Behaviors, x.text(c))
			case jsNodeObject:
				x.behaviorObject(b, c)
			}
		}
	default:
		return
	}
	b.Events = append(b.Events, x.events(doc, right)...)
	x.behaviors = append(x.behaviors, b)
}

func (x *jsExtractor) behaviorObject(b *features.Behavior, obj *sitter.Node) {
	x.pairs(obj, func(key string, _, value *sitter.Node) {
		switch key {
		case "properties":
			b.Properties = append(b.Properties, x.properties(value)...)
		case "behaviors":
			b.Behaviors = append(b.Behaviors, x.behaviorNames(value)...)
		}
	})
}

// defineCall records customElements.define('tag', Class).
func (x *jsExtractor) defineCall(call *sitter.Node) {
	args := arguments(call)
	if len(args) < 2 || args[0].Type() != jsNodeString {
		return
	}
	el := &features.Element{URL: x.url, TagName: x.stringValue(args[0])}
	var class *sitter.Node
	switch args[1].Type() {
	case jsNodeIdentifier:
		el.ClassName = x.text(args[1])
		class = x.classes[el.ClassName]
	case jsNodeClass:
		class = args[1]
		if name := class.ChildByFieldName("name"); name != nil {
			el.ClassName = x.text(name)
		}
	}
	var doc jsDoc
	if class != nil && class.Type() == jsNodeClassDeclaration {
		doc = leadingDoc(class, x.src)
	} else {
		doc = leadingDoc(call, x.src)
	}
	el.Description = doc.Description
	if class != nil {
		for _, name := range x.observedAttributes(class.ChildByFieldName("body")) {
			el.Attributes = append(el.Attributes, &features.Attribute{Name: name})
		}
	}
	el.Events = x.events(doc, class)
	x.elements = append(x.elements, el)
}

// observedAttributes reads the attribute list from either
// "static get observedAttributes() { return [...] }" or
// "static observedAttributes = [...]".
func (x *jsExtractor) observedAttributes(body *sitter.Node) []string {
	if body == nil || body.Type() != jsNodeClassBody {
		return nil
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		switch m.Type() {
		case jsNodeMethodDefinition:
			if x.text(m.ChildByFieldName("name")) != "observedAttributes" || !hasChild(m, jsNodeStatic) {
				continue
			}
			if arr := returnedArray(m.ChildByFieldName("body")); arr != nil {
				return x.stringList(arr)
			}
		case jsNodeFieldDefinition:
			if x.text(m.ChildByFieldName("property")) != "observedAttributes" || !hasChild(m, jsNodeStatic) {
				continue
			}
			if v := m.ChildByFieldName("value"); v != nil && v.Type() == jsNodeArray {
				return x.stringList(v)
			}
		}
	}
	return nil
}

// hasChild reports whether n has a direct child (named or not) of type t.
func hasChild(n *sitter.Node, t string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == t {
			return true
		}
	}
	return false
}

// returnedArray finds the array literal returned directly by a method body.
func returnedArray(body *sitter.Node) *sitter.Node {
	if body == nil {
		return nil
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		s := body.NamedChild(i)
		if s.Type() != jsNodeReturnStatement || s.NamedChildCount() == 0 {
			continue
		}
		if v := s.NamedChild(0); v.Type() == jsNodeArray {
			return v
		}
	}
	return nil
}

func (x *jsExtractor) stringList(arr *sitter.Node) []string {
	var out []string
	for i := 0; i < int(arr.NamedChildCount()); i++ {
		if c := arr.NamedChild(i); c.Type() == jsNodeString {
			out = append(out, x.stringValue(c))
		}
	}
	return out
}
