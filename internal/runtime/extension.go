package runtime

import (
	"context"

	"github.com/jward/polyedit/internal/analyzer"
	"github.com/jward/polyedit/internal/features"
)

// Extension runs every extraction script over each JavaScript source unit
// the analyzer visits. It implements analyzer.Extension.
type Extension struct {
	rt      *Runtime
	scripts []string
}

// NewExtension lists the Runtime's extraction scripts.
func NewExtension(rt *Runtime) (*Extension, error) {
	scripts, err := rt.Scripts(ExtractDir)
	if err != nil {
		return nil, err
	}
	return &Extension{rt: rt, scripts: scripts}, nil
}

// Scripts returns the extraction scripts in run order.
func (e *Extension) Scripts() []string {
	return e.scripts
}

// Extract runs each script with the globals source, document_url,
// document_language, declare_element and declare_behavior. For inline
// scripts document_language is "html". A failing script contributes a
// warning and none of its declarations.
func (e *Extension) Extract(ctx context.Context, url, source string) *analyzer.Contribution {
	c := &analyzer.Contribution{}
	lang, _ := LanguageForFile(url)
	for _, script := range e.scripts {
		d := &declarations{url: url}
		err := e.rt.RunScript(ctx, script, map[string]any{
			"source":            source,
			"document_url":      url,
			"document_language": lang,
			"declare_element":   d.declareElementFn(),
			"declare_behavior":  d.declareBehaviorFn(),
		})
		if err != nil {
			e.rt.logger.Warnw("extraction script failed", "script", script, "url", url, "error", err)
			c.Warnings = append(c.Warnings, features.Warning{URL: url, Message: err.Error()})
			continue
		}
		c.Elements = append(c.Elements, d.elements...)
		c.Behaviors = append(c.Behaviors, d.behaviors...)
	}
	return c
}
