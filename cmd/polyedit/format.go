package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"

	"github.com/jward/polyedit"
)

// formatCompletionsText formats a completion result as aligned columns,
// headed by its kind.
func formatCompletionsText(w io.Writer, res *polyedit.CompletionResult) {
	fmt.Fprintf(w, "# %s\n", res.Kind)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	switch res.Kind {
	case polyedit.CompletionElementTags:
		for _, e := range res.Elements {
			fmt.Fprintf(tw, "%s\t%s\n", e.TagName, oneLine(e.Description))
		}
	case polyedit.CompletionAttributes:
		formatAttributesText(tw, res.Attributes)
	case polyedit.CompletionAttributeValues:
		for _, v := range res.Values {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Autocompletion, v.Type, oneLine(v.Description))
		}
	case polyedit.CompletionDatabinding:
		formatAttributesText(tw, res.Properties)
	}
	tw.Flush()
}

func formatAttributesText(w io.Writer, attrs []polyedit.AttributeCompletion) {
	for _, a := range attrs {
		from := ""
		if a.InheritedFrom != "" {
			from = "(" + a.InheritedFrom + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Name, a.Type, from, oneLine(a.Description))
	}
}

// formatReferencesText formats source ranges as "url:line:col" lines.
func formatReferencesText(w io.Writer, refs []polyedit.SourceRange) {
	for _, r := range refs {
		fmt.Fprintf(w, "%s:%d:%d\n", r.URL, r.Start.Line, r.Start.Column)
	}
}

// formatElementsText formats CLIElement results as aligned columns.
func formatElementsText(w io.Writer, els []CLIElement) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tURL\tDESCRIPTION")
	for _, el := range els {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", el.TagName, el.URL, oneLine(el.Description))
	}
	tw.Flush()
}

// formatDiagnosticsText prints one line per problem, or "ok" for a clean
// document.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		switch {
		case d.Error != "":
			fmt.Fprintf(w, "%s: error: %s\n", d.URL, d.Error)
		case len(d.Warnings) == 0:
			fmt.Fprintf(w, "%s: ok\n", d.URL)
		}
		for _, warning := range d.Warnings {
			fmt.Fprintf(w, "%s: warning: %s\n", d.URL, warning)
		}
	}
}

// oneLine returns the first line of a description.
func oneLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (a *app) outputResultText(result CLIResult) error {
	switch v := result.Results.(type) {
	case *polyedit.CompletionResult:
		formatCompletionsText(a.stdout, v)
	case []polyedit.SourceRange:
		formatReferencesText(a.stdout, v)
	case []CLIElement:
		formatElementsText(a.stdout, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(a.stdout, v)
	case nil:
		// No output for nil results (no completions at the position).
	default:
		return errors.Newf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputResultLSP renders completions and references as LSP structures.
// Other results have no LSP counterpart and are written as JSON.
func (a *app) outputResultLSP(result CLIResult) error {
	switch v := result.Results.(type) {
	case *polyedit.CompletionResult:
		return a.writeJSON(completionList(v))
	case nil:
		if result.Command == "complete" {
			return a.writeJSON(completionList(nil))
		}
	case []polyedit.SourceRange:
		return a.writeJSON(locations(a.cfg.Root, v))
	}
	return a.writeJSON(result)
}

// outputResult writes a result in the configured format.
func (a *app) outputResult(result CLIResult) error {
	switch a.cfg.Format {
	case "text":
		return a.outputResultText(result)
	case "lsp":
		return a.outputResultLSP(result)
	default:
		return a.writeJSON(result)
	}
}

// outputError reports err in the configured format. The JSON formats
// write an envelope to stdout so callers parsing the output see the
// failure. The returned error still makes the process exit non-zero.
func (a *app) outputError(command string, err error) error {
	a.errorHandled = true
	if a.cfg == nil || a.cfg.Format == "text" {
		fmt.Fprintf(a.stderr, "Error: %s\n", err)
		return err
	}
	if jerr := a.writeJSON(CLIResult{Command: command, Error: err.Error()}); jerr != nil {
		return jerr
	}
	return err
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encoding output")
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text", "lsp"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return errors.Newf("invalid format %q: must be %s", format, strings.Join(validFormats, ", "))
}
