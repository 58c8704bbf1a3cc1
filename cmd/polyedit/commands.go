package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jward/polyedit"
)

func (a *app) completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <file> <line> <col>",
		Short: "List typeahead completions at a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.atPosition(cmd.Context(), args, func(svc *polyedit.Service, url string, pos polyedit.Position) any {
				if res := svc.TypeaheadCompletionsAt(cmd.Context(), url, pos); res != nil {
					return res
				}
				// An untyped nil, so JSON renders null and text prints nothing.
				return nil
			})
			if err != nil {
				return a.outputError("complete", err)
			}
			return a.outputResult(CLIResult{Command: "complete", Results: res})
		},
	}
}

func (a *app) referencesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "references <file> <line> <col>",
		Short: "List the uses of the element or databinding property at a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.atPosition(cmd.Context(), args, func(svc *polyedit.Service, url string, pos polyedit.Position) any {
				refs := svc.ReferencesAt(cmd.Context(), url, pos)
				if refs == nil {
					refs = []polyedit.SourceRange{}
				}
				return refs
			})
			if err != nil {
				return a.outputError("references", err)
			}
			return a.outputResult(CLIResult{Command: "references", Results: res})
		},
	}
}

func (a *app) elementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "elements [file...]",
		Short: "List the elements declared by files and their imports",
		Long:  "Analyzes the given files, or every .html file under the root when none are given, and lists the elements they know.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, urls, err := a.openDocuments(cmd.Context(), args)
			if err != nil {
				return a.outputError("elements", err)
			}
			defer svc.Close()

			els := svc.Elements(cmd.Context())
			out := make([]CLIElement, 0, len(els))
			for _, el := range els {
				out = append(out, toCLIElement(el))
			}
			a.logger.Debugw("listed elements", "documents", len(urls), "elements", len(out))
			return a.outputResult(CLIResult{Command: "elements", Results: out})
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file...]",
		Short: "Report analysis errors and warnings",
		Long:  "Analyzes the given files, or every .html file under the root when none are given. Exits non-zero when a document cannot be analyzed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, urls, err := a.openDocuments(cmd.Context(), args)
			if err != nil {
				return a.outputError("check", err)
			}
			defer svc.Close()

			out := make([]CLIDiagnostic, 0, len(urls))
			failed := 0
			for _, url := range urls {
				d, ok := svc.Diagnostics(cmd.Context(), url)
				if !ok {
					continue
				}
				cd := toCLIDiagnostic(d)
				if cd.Error != "" {
					failed++
				}
				out = append(out, cd)
			}
			if err := a.outputResult(CLIResult{Command: "check", Results: out}); err != nil {
				return err
			}
			if failed > 0 {
				return errors.Newf("%d of %d documents failed analysis", failed, len(urls))
			}
			return nil
		},
	}
}

// atPosition opens the file named by args[0] and runs query at the
// position given by args[1] and args[2].
func (a *app) atPosition(ctx context.Context, args []string, query func(*polyedit.Service, string, polyedit.Position) any) (any, error) {
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return nil, err
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return nil, err
	}
	svc, urls, err := a.openDocuments(ctx, args[:1])
	if err != nil {
		return nil, err
	}
	defer svc.Close()
	return query(svc, urls[0], polyedit.Position{Line: line, Column: col}), nil
}

// openDocuments creates a service and feeds it the named files, or every
// .html file under the root when files is empty. It returns the document
// URLs in the order given.
func (a *app) openDocuments(ctx context.Context, files []string) (*polyedit.Service, []string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var urls []string
	if len(files) == 0 {
		found, err := discoverDocuments(a.cfg.Root)
		if err != nil {
			return nil, nil, err
		}
		urls = found
	}
	for _, f := range files {
		url, err := toURL(a.cfg.Root, f)
		if err != nil {
			return nil, nil, err
		}
		urls = append(urls, url)
	}

	svc, err := a.newService()
	if err != nil {
		return nil, nil, err
	}
	for _, url := range urls {
		data, err := os.ReadFile(filepath.Join(a.cfg.Root, filepath.FromSlash(url)))
		if err != nil {
			svc.Close()
			return nil, nil, errors.Wrapf(err, "reading %s", url)
		}
		svc.FileChanged(ctx, url, string(data))
	}
	return svc, urls, nil
}

// toURL converts a file path, absolute or relative to the working
// directory, to a document URL relative to root.
func toURL(root, file string) (string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", errors.Wrapf(err, "resolving file path %q", file)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", errors.Wrapf(err, "resolving file path %q", file)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Newf("file %s is outside the root %s", abs, root)
	}
	return filepath.ToSlash(rel), nil
}

// discoverDocuments lists the .html files under root as URLs, skipping
// hidden directories and node_modules.
func discoverDocuments(root string) ([]string, error) {
	var urls []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		urls = append(urls, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", root)
	}
	return urls, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Newf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, errors.Newf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}
