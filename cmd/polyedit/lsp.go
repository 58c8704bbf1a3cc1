package main

import (
	"path/filepath"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/polyedit"
)

// completionList renders a completion result as an LSP CompletionList.
func completionList(res *polyedit.CompletionResult) protocol.CompletionList {
	list := protocol.CompletionList{Items: []protocol.CompletionItem{}}
	if res == nil {
		return list
	}
	switch res.Kind {
	case polyedit.CompletionElementTags:
		snippet := protocol.InsertTextFormatSnippet
		for _, e := range res.Elements {
			list.Items = append(list.Items, protocol.CompletionItem{
				Label:            e.TagName,
				Kind:             completionKind(protocol.CompletionItemKindClass),
				Documentation:    documentation(e.Description),
				InsertText:       stringPtrOrNil(e.ExpandToSnippet),
				InsertTextFormat: &snippet,
			})
		}
	case polyedit.CompletionAttributes:
		for _, c := range res.Attributes {
			list.Items = append(list.Items, attributeItem(c, nil))
		}
	case polyedit.CompletionAttributeValues:
		for _, c := range res.Values {
			list.Items = append(list.Items, attributeItem(c.AttributeCompletion, stringPtrOrNil(c.Autocompletion)))
		}
	case polyedit.CompletionDatabinding:
		for _, c := range res.Properties {
			list.Items = append(list.Items, attributeItem(c, nil))
		}
	}
	return list
}

func attributeItem(c polyedit.AttributeCompletion, insert *string) protocol.CompletionItem {
	kind := protocol.CompletionItemKindProperty
	if strings.HasPrefix(c.Name, "on-") {
		kind = protocol.CompletionItemKindEvent
	}
	detail := c.Type
	if c.InheritedFrom != "" {
		detail += " (from " + c.InheritedFrom + ")"
	}
	return protocol.CompletionItem{
		Label:         c.Name,
		Kind:          completionKind(kind),
		Detail:        stringPtrOrNil(detail),
		Documentation: documentation(c.Description),
		SortText:      stringPtrOrNil(c.SortKey),
		InsertText:    insert,
	}
}

// locations renders source ranges as LSP locations with file URIs under
// root.
func locations(root string, refs []polyedit.SourceRange) []protocol.Location {
	out := make([]protocol.Location, 0, len(refs))
	for _, r := range refs {
		out = append(out, protocol.Location{
			URI: protocol.DocumentUri(fileURI(root, r.URL)),
			Range: protocol.Range{
				Start: protocol.Position{
					Line:      uint32(r.Start.Line),
					Character: uint32(r.Start.Column),
				},
				End: protocol.Position{
					Line:      uint32(r.End.Line),
					Character: uint32(r.End.Column),
				},
			},
		})
	}
	return out
}

func fileURI(root, url string) string {
	p := filepath.ToSlash(filepath.Join(root, filepath.FromSlash(url)))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "file://" + p
}

func completionKind(k protocol.CompletionItemKind) *protocol.CompletionItemKind {
	return &k
}

// documentation returns s as a CompletionItem documentation value, or nil
// so the field is omitted.
func documentation(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func stringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
