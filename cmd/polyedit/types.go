package main

import "github.com/jward/polyedit"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIElement is a JSON-friendly element summary.
type CLIElement struct {
	TagName     string   `json:"tagname"`
	ClassName   string   `json:"class,omitempty"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Properties  []string `json:"properties"`
	Behaviors   []string `json:"behaviors"`
	Slots       []string `json:"slots"`
}

// CLIDiagnostic is the analysis state of one document.
type CLIDiagnostic struct {
	URL      string   `json:"url"`
	Error    string   `json:"error,omitempty"`
	Stale    bool     `json:"stale,omitempty"`
	Warnings []string `json:"warnings"`
}

func toCLIElement(el *polyedit.Element) CLIElement {
	out := CLIElement{
		TagName:     el.TagName,
		ClassName:   el.ClassName,
		Description: el.Description,
		URL:         el.URL,
		Properties:  []string{},
		Behaviors:   append([]string{}, el.Behaviors...),
		Slots:       []string{},
	}
	for _, p := range el.Properties {
		out.Properties = append(out.Properties, p.Name)
	}
	for _, s := range el.Slots {
		name := s.Name
		if name == "" {
			name = "(default)"
		}
		out.Slots = append(out.Slots, name)
	}
	return out
}

func toCLIDiagnostic(d polyedit.Diagnostics) CLIDiagnostic {
	out := CLIDiagnostic{URL: d.URL, Stale: d.Stale, Warnings: []string{}}
	if d.Err != nil {
		out.Error = d.Err.Error()
	}
	for _, w := range d.Warnings {
		out.Warnings = append(out.Warnings, w.String())
	}
	return out
}
