// Package analyzer builds feature graphs from HTML and JavaScript documents.
//
// HTML is parsed with tree-sitter to find imports, inline scripts and
// dom-module templates; JavaScript is parsed with tree-sitter to recognize
// Polymer elements and behaviors and customElements.define registrations.
// Extensions can contribute further features per script.
package analyzer

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jward/polyedit/internal/features"
)

// Contribution is what an Extension found in one script.
type Contribution struct {
	Elements  []*features.Element
	Behaviors []*features.Behavior
	Warnings  []features.Warning
}

// Extension recognizes additional declarations in a JavaScript source unit.
type Extension interface {
	Extract(ctx context.Context, url, source string) *Contribution
}

// Analyzer builds feature graphs. It is safe for concurrent use.
type Analyzer struct {
	loader     Loader
	extensions []Extension
	logger     *zap.SugaredLogger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithExtension adds an Extension run on every script.
func WithExtension(ext Extension) Option {
	return func(a *Analyzer) {
		a.extensions = append(a.extensions, ext)
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// New returns an Analyzer that follows imports through loader. A nil loader
// turns every import into a warning.
func New(loader Loader, opts ...Option) *Analyzer {
	a := &Analyzer{loader: loader, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// documentResult is the analysis of a single document, imports not followed.
type documentResult struct {
	elements  []*features.Element
	behaviors []*features.Behavior
	imports   []string
	warnings  []features.Warning
}

// Analyze builds the graph for the document at url whose current text is
// text. It fails with *AnalysisError when the document's own scripts cannot
// be parsed; problems in imported documents become warnings.
func (a *Analyzer) Analyze(ctx context.Context, url, text string) (*features.Graph, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, &AnalysisError{URL: url, Message: "canceled", Err: err}
	}
	own, err := a.analyzeDocument(ctx, url, text)
	if err != nil {
		return nil, err
	}

	g := &features.Graph{URL: url, Imports: own.imports}
	merge(g, own)

	visited := map[string]bool{url: true}
	var follow func(imports []string) error
	follow = func(imports []string) error {
		for _, imp := range imports {
			if visited[imp] {
				continue
			}
			visited[imp] = true
			if err := ctx.Err(); err != nil {
				return err
			}
			if a.loader == nil {
				g.Warnings = append(g.Warnings, features.Warning{URL: imp, Message: "no loader for import"})
				continue
			}
			src, err := a.loader.Load(ctx, imp)
			if err != nil {
				g.Warnings = append(g.Warnings, features.Warning{URL: imp, Message: "load failed: " + err.Error()})
				continue
			}
			g.Dependencies = append(g.Dependencies, imp)
			doc, err := a.analyzeDocument(ctx, imp, src)
			if err != nil {
				g.Warnings = append(g.Warnings, features.Warning{URL: imp, Message: err.Error()})
				continue
			}
			merge(g, doc)
			if err := follow(doc.imports); err != nil {
				return err
			}
		}
		return nil
	}
	if err := follow(own.imports); err != nil {
		return nil, &AnalysisError{URL: url, Message: "canceled", Err: err}
	}

	a.logger.Debugw("analyzed document",
		"url", url,
		"elements", len(g.Elements),
		"behaviors", len(g.Behaviors),
		"dependencies", len(g.Dependencies),
		"warnings", len(g.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return g, nil
}

func merge(g *features.Graph, doc *documentResult) {
	g.Elements = append(g.Elements, doc.elements...)
	g.Behaviors = append(g.Behaviors, doc.behaviors...)
	g.Warnings = append(g.Warnings, doc.warnings...)
}

func isScriptURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasSuffix(lower, ".js") || strings.HasSuffix(lower, ".mjs")
}

// analyzeDocument analyzes one document without following its imports.
func (a *Analyzer) analyzeDocument(ctx context.Context, url, text string) (*documentResult, error) {
	res := &documentResult{}
	if isScriptURL(url) {
		if err := a.analyzeScript(ctx, url, text, res); err != nil {
			return nil, &AnalysisError{URL: url, Message: "script does not parse", Err: err}
		}
		return res, nil
	}

	doc, err := parseHTML(ctx, url, []byte(text))
	if err != nil {
		return nil, &AnalysisError{URL: url, Message: "markup does not parse", Err: err}
	}
	res.imports = doc.imports
	res.warnings = append(res.warnings, doc.warnings...)
	for i, code := range doc.scripts {
		if err := a.analyzeScript(ctx, url, code, res); err != nil {
			return nil, &AnalysisError{URL: url, Message: "inline script " + strconv.Itoa(i+1) + " does not parse", Err: err}
		}
	}
	for _, el := range res.elements {
		if len(el.Slots) == 0 {
			el.Slots = doc.slots[el.TagName]
		}
	}
	return res, nil
}

func (a *Analyzer) analyzeScript(ctx context.Context, url, code string, res *documentResult) error {
	sr, err := extractScript(ctx, url, []byte(code))
	if err != nil {
		return err
	}
	for _, ext := range a.extensions {
		c := ext.Extract(ctx, url, code)
		if c == nil {
			continue
		}
		for _, el := range c.Elements {
			if !absorb(sr.elements, el) {
				sr.elements = append(sr.elements, el)
			}
		}
		sr.behaviors = append(sr.behaviors, c.Behaviors...)
		res.warnings = append(res.warnings, c.Warnings...)
	}
	res.elements = append(res.elements, sr.elements...)
	res.behaviors = append(res.behaviors, sr.behaviors...)
	return nil
}

// absorb fills the gaps of the element in els sharing ext's tag name with
// what ext declares. It reports false when no such element exists.
func absorb(els []*features.Element, ext *features.Element) bool {
	for _, el := range els {
		if el.TagName != ext.TagName {
			continue
		}
		if el.ClassName == "" {
			el.ClassName = ext.ClassName
		}
		if el.Description == "" {
			el.Description = ext.Description
		}
		if len(el.Properties) == 0 {
			el.Properties = ext.Properties
		}
		if len(el.Attributes) == 0 {
			el.Attributes = ext.Attributes
		}
		if len(el.Events) == 0 {
			el.Events = ext.Events
		}
		if len(el.Slots) == 0 {
			el.Slots = ext.Slots
		}
		el.Behaviors = append(el.Behaviors, ext.Behaviors...)
		return true
	}
	return false
}
