// Package markup classifies cursor positions in HTML text and scans it for
// referenceable occurrences. It works on raw, possibly malformed text with a
// forward boundary lexer rather than a full parse, so it answers while the
// user is mid-edit.
package markup

import "strings"

// TokenKind identifies a lexical span.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenTag
	TokenEndTag
	TokenComment
	TokenDoctype
	TokenRawText
)

func (k TokenKind) String() string {
	switch k {
	case TokenText:
		return "text"
	case TokenTag:
		return "tag"
	case TokenEndTag:
		return "end-tag"
	case TokenComment:
		return "comment"
	case TokenDoctype:
		return "doctype"
	case TokenRawText:
		return "raw-text"
	}
	return "unknown"
}

// Attr is one attribute of an open tag. Offsets are byte offsets into the
// lexed text. ValueStart/ValueEnd exclude the quotes.
type Attr struct {
	Name       string
	NameStart  int
	NameEnd    int
	HasValue   bool
	EqPos      int
	ValueStart int
	ValueEnd   int
	Quote      byte
}

// Value returns the attribute value as written.
func (a Attr) Value(text string) string {
	if !a.HasValue {
		return ""
	}
	return text[a.ValueStart:a.ValueEnd]
}

// Token is a lexical span [Start, End). For tags, Name is lowercased and
// Closed reports whether the tag was terminated by '>'.
type Token struct {
	Kind        TokenKind
	Start       int
	End         int
	Name        string
	NameStart   int
	NameEnd     int
	Attrs       []Attr
	Closed      bool
	SelfClosing bool
}

// Attr returns the named attribute of an open tag.
func (t Token) Attr(name string) (Attr, bool) {
	for _, a := range t.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// IsVoid reports whether name is an HTML element that never has content.
func IsVoid(name string) bool {
	return voidElements[name]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_' || c == ':' || c == '.'
}

// tagStart reports whether the '<' at i opens markup rather than being a
// literal character of text. A bare '<' at the end of the text or before
// whitespace counts, since that is what a user typing a new tag leaves.
func tagStart(text string, i int) bool {
	if i+1 >= len(text) {
		return true
	}
	c := text[i+1]
	return isLetter(c) || isSpace(c) || c == '/' || c == '!' || c == '?' || c == '>'
}

// Tokenize splits text into tokens covering it from start to end.
func Tokenize(text string) []Token {
	var toks []Token
	n := len(text)
	i := 0
	for i < n {
		if text[i] != '<' || !tagStart(text, i) {
			j := i + 1
			for j < n && !(text[j] == '<' && tagStart(text, j)) {
				j++
			}
			toks = append(toks, Token{Kind: TokenText, Start: i, End: j})
			i = j
			continue
		}

		rest := text[i:]
		switch {
		case strings.HasPrefix(rest, "<!--"):
			end := strings.Index(text[i+4:], "-->")
			tok := Token{Kind: TokenComment, Start: i, End: n}
			if end >= 0 {
				tok.End = i + 4 + end + 3
				tok.Closed = true
			}
			toks = append(toks, tok)
			i = tok.End
		case strings.HasPrefix(rest, "<!") || strings.HasPrefix(rest, "<?"):
			tok := Token{Kind: TokenDoctype, Start: i, End: n}
			if end := strings.IndexByte(rest, '>'); end >= 0 {
				tok.End = i + end + 1
				tok.Closed = true
			}
			toks = append(toks, tok)
			i = tok.End
		case strings.HasPrefix(rest, "</"):
			tok := lexEndTag(text, i)
			toks = append(toks, tok)
			i = tok.End
		default:
			tok := lexOpenTag(text, i)
			toks = append(toks, tok)
			i = tok.End
			if tok.Closed && !tok.SelfClosing && (tok.Name == "script" || tok.Name == "style") {
				end := indexFold(text, i, "</"+tok.Name)
				if end < 0 {
					end = n
				}
				toks = append(toks, Token{Kind: TokenRawText, Start: i, End: end, Name: tok.Name})
				i = end
			}
		}
	}
	return toks
}

// indexFold finds needle (lowercase) in text at or after from, ignoring case.
func indexFold(text string, from int, needle string) int {
	for i := from; i+len(needle) <= len(text); i++ {
		if strings.EqualFold(text[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func lexEndTag(text string, start int) Token {
	n := len(text)
	j := start + 2
	nameStart := j
	for j < n && isNameChar(text[j]) {
		j++
	}
	tok := Token{
		Kind:      TokenEndTag,
		Start:     start,
		Name:      strings.ToLower(text[nameStart:j]),
		NameStart: nameStart,
		NameEnd:   j,
	}
	for j < n && text[j] != '>' && text[j] != '<' {
		j++
	}
	if j < n && text[j] == '>' {
		tok.Closed = true
		j++
	}
	tok.End = j
	return tok
}

func lexOpenTag(text string, start int) Token {
	n := len(text)
	j := start + 1
	for j < n && isNameChar(text[j]) {
		j++
	}
	tok := Token{
		Kind:      TokenTag,
		Start:     start,
		Name:      strings.ToLower(text[start+1 : j]),
		NameStart: start + 1,
		NameEnd:   j,
	}
	for {
		for j < n && isSpace(text[j]) {
			j++
		}
		if j >= n {
			tok.End = n
			return tok
		}
		switch c := text[j]; {
		case c == '>':
			tok.Closed = true
			tok.End = j + 1
			return tok
		case c == '/' && j+1 < n && text[j+1] == '>':
			tok.Closed = true
			tok.SelfClosing = true
			tok.End = j + 2
			return tok
		case c == '<':
			tok.End = j
			return tok
		case c == '/' || c == '=' || c == '"' || c == '\'':
			j++
			continue
		}
		var a Attr
		a, j = lexAttr(text, j)
		tok.Attrs = append(tok.Attrs, a)
	}
}

func lexAttr(text string, j int) (Attr, int) {
	n := len(text)
	a := Attr{NameStart: j}
	for j < n && !isSpace(text[j]) && text[j] != '=' && text[j] != '>' && text[j] != '<' && text[j] != '/' {
		j++
	}
	a.NameEnd = j
	a.Name = strings.ToLower(text[a.NameStart:a.NameEnd])

	k := j
	for k < n && isSpace(text[k]) {
		k++
	}
	if k >= n || text[k] != '=' {
		return a, j
	}
	a.HasValue = true
	a.EqPos = k
	k++
	for k < n && isSpace(text[k]) {
		k++
	}
	if k < n && (text[k] == '"' || text[k] == '\'') {
		a.Quote = text[k]
		a.ValueStart = k + 1
		end := strings.IndexByte(text[a.ValueStart:], a.Quote)
		if brk := lineBreakBeforeTag(text, a.ValueStart); brk >= 0 && (end < 0 || a.ValueStart+end > brk) {
			// Unterminated: the value stops where the next line opens a tag.
			a.ValueEnd = brk
			return a, brk
		}
		if end < 0 {
			a.ValueEnd = n
			return a, n
		}
		a.ValueEnd = a.ValueStart + end
		return a, a.ValueEnd + 1
	}
	a.ValueStart = k
	for k < n && !isSpace(text[k]) && text[k] != '>' && text[k] != '<' {
		k++
	}
	a.ValueEnd = k
	return a, k
}

// lineBreakBeforeTag returns the offset of the first line break at or after
// from whose next line starts, after indentation, with a tag. It returns -1
// when there is none.
func lineBreakBeforeTag(text string, from int) int {
	for i := from; i < len(text); i++ {
		if text[i] != '\n' {
			continue
		}
		k := i + 1
		for k < len(text) && (text[k] == ' ' || text[k] == '\t' || text[k] == '\r') {
			k++
		}
		if k < len(text) && text[k] == '<' && tagStart(text, k) {
			return i
		}
	}
	return -1
}
