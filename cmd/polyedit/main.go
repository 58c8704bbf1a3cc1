package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	a := newApp(os.Stdout, os.Stderr)
	if err := a.root.Execute(); err != nil {
		if !a.errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

// app is one invocation of the CLI.
type app struct {
	root   *cobra.Command
	v      *viper.Viper
	cfg    *config
	logger *zap.SugaredLogger
	stdout io.Writer
	stderr io.Writer

	// errorHandled is set by outputError so main() doesn't double-print.
	errorHandled bool
}

func newApp(stdout, stderr io.Writer) *app {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}
	a.root = &cobra.Command{
		Use:   "polyedit",
		Short: "Completions and references for HTML custom elements",
		Long: "Polyedit analyzes HTML documents that declare and use custom elements " +
			"and answers the questions an editor asks: what can be typed at a position " +
			"and where an element or databinding property is used. Lines and columns are 0-based.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			if err := validateFormat(cfg.Format); err != nil {
				return err
			}
			a.logger, err = a.newLogger()
			return err
		},
		// No Run: prints help by default.
	}

	pf := a.root.PersistentFlags()
	pf.String("root", ".", "package root document URLs are relative to")
	pf.String("index", "", "SQLite occurrence index path (default: in memory)")
	pf.String("scripts-dir", "", "load extension scripts from disk path instead of embedded")
	pf.String("format", "json", "output format: json|text|lsp")
	pf.String("log-level", "warn", "log level: debug|info|warn|error")
	a.bindFlags()

	a.root.AddCommand(a.completeCmd())
	a.root.AddCommand(a.referencesCmd())
	a.root.AddCommand(a.elementsCmd())
	a.root.AddCommand(a.checkCmd())
	return a
}
