package analyzer

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// docTag is one "@name value" line of a JSDoc comment.
type docTag struct {
	Name  string
	Value string
}

// jsDoc is a parsed /** ... */ comment.
type jsDoc struct {
	Description string
	Tags        []docTag
}

func (d jsDoc) has(tag string) bool {
	_, ok := d.tag(tag)
	return ok
}

func (d jsDoc) tag(tag string) (string, bool) {
	for _, t := range d.Tags {
		if t.Name == tag {
			return t.Value, true
		}
	}
	return "", false
}

// parseJSDoc parses a block comment. Anything that is not a /** comment
// yields the zero jsDoc. The description is the text before the first tag.
func parseJSDoc(comment string) jsDoc {
	var d jsDoc
	if !strings.HasPrefix(comment, "/**") {
		return d
	}
	body := strings.TrimSuffix(strings.TrimPrefix(comment, "/**"), "*/")
	var desc []string
	var cur *docTag
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		if strings.HasPrefix(line, "@") {
			name, value, _ := strings.Cut(line[1:], " ")
			d.Tags = append(d.Tags, docTag{Name: name, Value: strings.TrimSpace(value)})
			cur = &d.Tags[len(d.Tags)-1]
			continue
		}
		if cur != nil {
			if line != "" {
				cur.Value = strings.TrimSpace(cur.Value + " " + line)
			}
			continue
		}
		desc = append(desc, line)
	}
	d.Description = strings.TrimSpace(strings.Join(desc, "\n"))
	return d
}

func isContainer(nodeType string) bool {
	switch nodeType {
	case jsNodeProgram, jsNodeStatementBlock, jsNodeObject, jsNodeClassBody:
		return true
	}
	return false
}

// leadingComment returns the comment directly preceding n or the statement
// (or object member) n belongs to.
func leadingComment(n *sitter.Node, src []byte) string {
	for ; n != nil; n = n.Parent() {
		if prev := n.PrevNamedSibling(); prev != nil && prev.Type() == jsNodeComment {
			return prev.Content(src)
		}
		p := n.Parent()
		if p == nil || isContainer(p.Type()) {
			return ""
		}
	}
	return ""
}

func leadingDoc(n *sitter.Node, src []byte) jsDoc {
	return parseJSDoc(leadingComment(n, src))
}
