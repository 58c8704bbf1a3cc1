package markup

import "strings"

// Kind is the markup construct a cursor sits in.
type Kind int

const (
	KindNone Kind = iota
	KindTagName
	KindAttributeName
	KindAttributeValue
	KindDatabinding
	KindSuppressed
	KindEndTagName
)

func (k Kind) String() string {
	switch k {
	case KindTagName:
		return "tag-name"
	case KindAttributeName:
		return "attribute-name"
	case KindAttributeValue:
		return "attribute-value"
	case KindDatabinding:
		return "databinding"
	case KindSuppressed:
		return "suppressed"
	case KindEndTagName:
		return "end-tag-name"
	}
	return "none"
}

// Binding is the data-binding syntax open at the cursor.
type Binding int

const (
	BindingNone   Binding = iota
	BindingOneWay         // [[ ]]
	BindingTwoWay         // {{ }}
)

// Wrap renders name in the binding's delimiters.
func (b Binding) Wrap(name string) string {
	switch b {
	case BindingOneWay:
		return "[[" + name + "]]"
	case BindingTwoWay:
		return "{{" + name + "}}"
	}
	return name
}

// Context describes the cursor position. Which fields are set depends on
// Kind:
//
//	TagName         Element, Partial, ReplaceStart/End, NeedsOpenBracket
//	AttributeName   Element, Partial, Existing
//	AttributeValue  Element, Attribute, Binding
//	Databinding     Expression
//	EndTagName      Element
//
// Scope is the id of the enclosing dom-module, when there is one.
type Context struct {
	Kind             Kind
	Offset           int
	Scope            string
	Element          string
	Partial          string
	ReplaceStart     int
	ReplaceEnd       int
	NeedsOpenBracket bool
	Existing         []string
	Attribute        string
	Binding          Binding
	Expression       string
}

// scopeStack tracks open elements to answer which dom-module encloses a
// position.
type scopeStack struct {
	open []scopeEntry
}

type scopeEntry struct {
	name string
	id   string
}

func (s *scopeStack) apply(text string, tok Token) {
	switch tok.Kind {
	case TokenTag:
		if tok.Name == "" || tok.SelfClosing || IsVoid(tok.Name) {
			return
		}
		e := scopeEntry{name: tok.Name}
		if tok.Name == "dom-module" {
			if id, ok := tok.Attr("id"); ok {
				e.id = id.Value(text)
			}
		}
		s.open = append(s.open, e)
	case TokenEndTag:
		for i := len(s.open) - 1; i >= 0; i-- {
			if s.open[i].name == tok.Name {
				s.open = s.open[:i]
				return
			}
		}
	}
}

func (s *scopeStack) scope() string {
	for i := len(s.open) - 1; i >= 0; i-- {
		if s.open[i].name == "dom-module" {
			return s.open[i].id
		}
	}
	return ""
}

// contains reports whether a cursor at offset o is inside tok. A cursor
// sits between bytes, so it belongs to a tag only after its '<' and, for a
// closed tag, before its '>'.
func contains(tok Token, o int) bool {
	switch tok.Kind {
	case TokenText, TokenRawText:
		return tok.Start <= o && o <= tok.End
	}
	if o <= tok.Start {
		return false
	}
	if o < tok.End {
		return true
	}
	return o == tok.End && !tok.Closed
}

// Classify reports what the cursor at byte offset o sits in.
func Classify(text string, o int) Context {
	ctx := Context{Offset: o}
	if o < 0 || o > len(text) {
		return ctx
	}
	var stack scopeStack
	for _, tok := range Tokenize(text) {
		if contains(tok, o) {
			ctx.Scope = stack.scope()
			return classifyIn(text, tok, o, ctx)
		}
		if tok.Start >= o {
			break
		}
		stack.apply(text, tok)
	}
	// Cursor between two tags, or at the end right after a closed tag.
	ctx.Scope = stack.scope()
	return classifyText(text, Token{Kind: TokenText, Start: o, End: o}, o, ctx)
}

func classifyIn(text string, tok Token, o int, ctx Context) Context {
	switch tok.Kind {
	case TokenText:
		return classifyText(text, tok, o, ctx)
	case TokenRawText:
		ctx.Kind = KindSuppressed
		return ctx
	case TokenEndTag:
		ctx.Kind = KindEndTagName
		ctx.Element = tok.Name
		return ctx
	case TokenTag:
		return classifyTag(text, tok, o, ctx)
	}
	return ctx
}

func classifyTag(text string, tok Token, o int, ctx Context) Context {
	ctx.Element = tok.Name
	if o <= tok.NameEnd {
		ctx.Kind = KindTagName
		ctx.Partial = strings.ToLower(text[tok.NameStart:o])
		ctx.ReplaceStart = tok.NameStart
		ctx.ReplaceEnd = tok.NameEnd
		return ctx
	}
	for _, a := range tok.Attrs {
		if a.HasValue && a.EqPos < o && o <= a.ValueEnd {
			ctx.Kind = KindAttributeValue
			ctx.Attribute = a.Name
			if o > a.ValueStart {
				ctx.Binding, _ = openBinding(text[a.ValueStart:o])
			}
			return ctx
		}
	}
	ctx.Kind = KindAttributeName
	ctx.Existing = []string{}
	for _, a := range tok.Attrs {
		// A cursor before the first character is not editing the name.
		if a.NameStart < o && o <= a.NameEnd {
			ctx.Partial = strings.ToLower(text[a.NameStart:o])
			continue
		}
		ctx.Existing = append(ctx.Existing, a.Name)
	}
	return ctx
}

func classifyText(text string, tok Token, o int, ctx Context) Context {
	seg := text[tok.Start:o]
	if b, at := openBinding(seg); b != BindingNone {
		ctx.Kind = KindDatabinding
		ctx.Binding = b
		ctx.Expression = seg[at+2:]
		return ctx
	}
	line := seg
	if nl := strings.LastIndexByte(seg, '\n'); nl >= 0 {
		line = seg[nl+1:]
	}
	if strings.TrimSpace(line) != "" {
		return ctx
	}
	ctx.Kind = KindTagName
	ctx.NeedsOpenBracket = true
	ctx.ReplaceStart = o
	ctx.ReplaceEnd = o
	return ctx
}

// openBinding finds the last binding opener in s that is not closed before
// the end of s, and its index.
func openBinding(s string) (Binding, int) {
	two := strings.LastIndex(s, "{{")
	one := strings.LastIndex(s, "[[")
	if two >= 0 && strings.Contains(s[two+2:], "}}") {
		two = -1
	}
	if one >= 0 && strings.Contains(s[one+2:], "]]") {
		one = -1
	}
	switch {
	case two < 0 && one < 0:
		return BindingNone, -1
	case two > one:
		return BindingTwoWay, two
	default:
		return BindingOneWay, one
	}
}
