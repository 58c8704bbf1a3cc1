package analyzer

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"

	"github.com/jward/polyedit/internal/features"
)

// htmlDocument is what the markup of one document declares, before its
// scripts are analyzed.
type htmlDocument struct {
	imports  []string
	scripts  []string
	slots    map[string][]*features.Slot
	warnings []features.Warning
}

func parseHTML(ctx context.Context, url string, src []byte) (*htmlDocument, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(html.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, errors.Wrap(err, "tree-sitter parse failed")
	}
	defer tree.Close()

	h := &htmlWalker{url: url, src: src, doc: &htmlDocument{slots: make(map[string][]*features.Slot)}}
	h.walk(tree.RootNode())
	return h.doc, nil
}

type htmlWalker struct {
	url string
	src []byte
	doc *htmlDocument
}

func (h *htmlWalker) addImport(href string) {
	u, ok := ResolveURL(h.url, href)
	if !ok {
		h.doc.warnings = append(h.doc.warnings, features.Warning{
			URL:     h.url,
			Message: "cannot follow import " + href,
		})
		return
	}
	for _, existing := range h.doc.imports {
		if existing == u {
			return
		}
	}
	h.doc.imports = append(h.doc.imports, u)
}

func (h *htmlWalker) walk(n *sitter.Node) {
	switch n.Type() {
	case htmlNodeElement:
		tag, attrs := h.tagInfo(n)
		switch tag {
		case "link":
			if hasToken(attrs["rel"], "import") && attrs["href"] != "" {
				h.addImport(attrs["href"])
			}
		case "dom-module":
			if id := attrs["id"]; id != "" {
				h.doc.slots[id] = h.slots(n)
			}
		}
	case htmlNodeScriptElement:
		h.script(n)
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		h.walk(n.NamedChild(i))
	}
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(strings.ToLower(list)) {
		if f == token {
			return true
		}
	}
	return false
}

// tagInfo returns the lowercased tag name and attributes of an element.
func (h *htmlWalker) tagInfo(n *sitter.Node) (string, map[string]string) {
	attrs := make(map[string]string)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		tag := n.NamedChild(i)
		if tag.Type() != htmlNodeStartTag && tag.Type() != htmlNodeSelfClosing {
			continue
		}
		var name string
		for j := 0; j < int(tag.NamedChildCount()); j++ {
			c := tag.NamedChild(j)
			switch c.Type() {
			case htmlNodeTagName:
				name = strings.ToLower(c.Content(h.src))
			case htmlNodeAttribute:
				k, v := h.attribute(c)
				if _, dup := attrs[k]; !dup {
					attrs[k] = v
				}
			}
		}
		return name, attrs
	}
	return "", attrs
}

func (h *htmlWalker) attribute(n *sitter.Node) (name, value string) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case htmlNodeAttributeName:
			name = strings.ToLower(c.Content(h.src))
		case htmlNodeQuotedAttributeValue:
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if gc := c.NamedChild(j); gc.Type() == htmlNodeAttributeValue {
					value = gc.Content(h.src)
				}
			}
		case htmlNodeAttributeValue:
			value = c.Content(h.src)
		}
	}
	return name, value
}

// slots lists the distinct <slot> declarations inside a dom-module.
func (h *htmlWalker) slots(module *sitter.Node) []*features.Slot {
	var out []*features.Slot
	seen := make(map[string]bool)
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Type() == htmlNodeElement {
			if tag, attrs := h.tagInfo(n); tag == "slot" && !seen[attrs["name"]] {
				seen[attrs["name"]] = true
				out = append(out, &features.Slot{Name: attrs["name"]})
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(module)
	return out
}

// script records an external script as an import, or queues inline source
// for JavaScript analysis.
func (h *htmlWalker) script(n *sitter.Node) {
	var src string
	var raw *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case htmlNodeStartTag:
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if a := c.NamedChild(j); a.Type() == htmlNodeAttribute {
					if k, v := h.attribute(a); k == "src" {
						src = v
					}
				}
			}
		case htmlNodeRawText:
			raw = c
		}
	}
	if src != "" {
		h.addImport(src)
		return
	}
	if raw != nil {
		if code := raw.Content(h.src); strings.TrimSpace(code) != "" {
			h.doc.scripts = append(h.doc.scripts, code)
		}
	}
}
