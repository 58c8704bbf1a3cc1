package markup

import "strings"

// OccurrenceKind distinguishes tag occurrences from binding identifiers.
type OccurrenceKind string

const (
	OccurrenceTag     OccurrenceKind = "tag"
	OccurrenceBinding OccurrenceKind = "binding"
)

// Occurrence is a referenceable span [Start, End) of a document. For tags the
// span is the whole open tag and Name the tag name; for bindings it is the
// identifier itself.
type Occurrence struct {
	Kind  OccurrenceKind
	Name  string
	Scope string
	Start int
	End   int
}

// Contains reports whether the cursor offset o touches the occurrence.
func (oc Occurrence) Contains(o int) bool {
	return oc.Start <= o && o <= oc.End
}

// Scan lists every open tag and every binding identifier that roots a
// property path, in document order.
func Scan(text string) []Occurrence {
	var out []Occurrence
	var stack scopeStack
	for _, tok := range Tokenize(text) {
		switch tok.Kind {
		case TokenTag:
			scope := stack.scope()
			if tok.Name != "" {
				out = append(out, Occurrence{
					Kind:  OccurrenceTag,
					Name:  tok.Name,
					Scope: scope,
					Start: tok.Start,
					End:   tok.End,
				})
			}
			for _, a := range tok.Attrs {
				if a.HasValue {
					out = append(out, bindingIdentifiers(text, a.ValueStart, a.ValueEnd, scope)...)
				}
			}
		case TokenText:
			out = append(out, bindingIdentifiers(text, tok.Start, tok.End, stack.scope())...)
		}
		stack.apply(text, tok)
	}
	return out
}

// bindingIdentifiers finds binding expressions in text[start:end] and returns
// their root identifiers. An unclosed binding runs to end.
func bindingIdentifiers(text string, start, end int, scope string) []Occurrence {
	var out []Occurrence
	i := start
	for i < end {
		open, closer := -1, ""
		if j := strings.Index(text[i:end], "{{"); j >= 0 {
			open, closer = i+j, "}}"
		}
		if j := strings.Index(text[i:end], "[["); j >= 0 && (open < 0 || i+j < open) {
			open, closer = i+j, "]]"
		}
		if open < 0 {
			break
		}
		exprStart := open + 2
		exprEnd := end
		if j := strings.Index(text[exprStart:end], closer); j >= 0 {
			exprEnd = exprStart + j
		}
		for _, id := range rootIdentifiers(text[exprStart:exprEnd]) {
			out = append(out, Occurrence{
				Kind:  OccurrenceBinding,
				Name:  id.name,
				Scope: scope,
				Start: exprStart + id.start,
				End:   exprStart + id.end,
			})
		}
		i = exprEnd + len(closer)
	}
	return out
}

type ident struct {
	name       string
	start, end int
}

func isIdentStart(c byte) bool {
	return isLetter(c) || c == '_' || c == '$'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// rootIdentifiers returns identifiers in a binding expression that are not
// member accesses (".x"), string or numeric literals, or the event name of a
// "prop::event" binding.
func rootIdentifiers(expr string) []ident {
	var out []ident
	n := len(expr)
	for i := 0; i < n; {
		c := expr[i]
		switch {
		case c == '\'' || c == '"':
			j := i + 1
			for j < n && expr[j] != c {
				if expr[j] == '\\' {
					j++
				}
				j++
			}
			i = j + 1
		case c >= '0' && c <= '9':
			for i < n && (isIdentPart(expr[i]) || expr[i] == '.') {
				i++
			}
		case c == ':' && i+1 < n && expr[i+1] == ':':
			// Event name of a two-way binding; nothing after it is a root.
			return out
		case isIdentStart(c):
			j := i
			for j < n && isIdentPart(expr[j]) {
				j++
			}
			if i == 0 || expr[i-1] != '.' {
				out = append(out, ident{name: expr[i:j], start: i, end: j})
			}
			i = j
		default:
			i++
		}
	}
	return out
}
