package polyedit

import (
	"context"
	"io/fs"
	"sort"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jward/polyedit/internal/analyzer"
	"github.com/jward/polyedit/internal/markup"
	"github.com/jward/polyedit/internal/runtime"
	"github.com/jward/polyedit/internal/store"
	"github.com/jward/polyedit/internal/textpos"
	"github.com/jward/polyedit/scripts"
)

// Service answers completion and reference requests for a set of documents.
// It is safe for concurrent use.
type Service struct {
	root       string
	loader     analyzer.Loader
	analyzer   Analyzer
	logger     *zap.SugaredLogger
	indexPath  string
	scriptsDir string
	scriptsFS  fs.FS
	noScripts  bool

	index *store.Store
	cache *documentCache
}

// Option configures a Service.
type Option func(*Service)

// WithRoot reads documents that were never opened from dir.
func WithRoot(dir string) Option {
	return func(s *Service) {
		s.root = dir
	}
}

// WithLoader replaces the loader used for documents that were never opened.
// It takes precedence over WithRoot.
func WithLoader(l analyzer.Loader) Option {
	return func(s *Service) {
		s.loader = l
	}
}

// WithAnalyzer replaces the default analyzer. Scripts are not run unless a
// replacement runs them itself.
func WithAnalyzer(a Analyzer) Option {
	return func(s *Service) {
		s.analyzer = a
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithIndexPath stores the occurrence index in the SQLite database at path.
// The default keeps it in memory.
func WithIndexPath(path string) Option {
	return func(s *Service) {
		s.indexPath = path
	}
}

// WithScriptsFS loads extension scripts from fsys instead of the scripts
// embedded in the binary.
func WithScriptsFS(fsys fs.FS) Option {
	return func(s *Service) {
		s.scriptsFS = fsys
		s.scriptsDir = ""
	}
}

// WithScriptsDir loads extension scripts from dir on disk.
func WithScriptsDir(dir string) Option {
	return func(s *Service) {
		s.scriptsDir = dir
		s.scriptsFS = nil
	}
}

// WithoutScripts disables extension scripts.
func WithoutScripts() Option {
	return func(s *Service) {
		s.noScripts = true
	}
}

// New creates a Service with an empty document cache. Extension scripts come
// from the last of WithScriptsDir and WithScriptsFS given, or from the
// scripts embedded in the binary.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		logger:    zap.NewNop().Sugar(),
		indexPath: store.MemoryPath,
		scriptsFS: scripts.FS,
	}
	for _, opt := range opts {
		opt(s)
	}

	idx, err := store.NewStore(s.indexPath)
	if err != nil {
		return nil, errors.Wrap(err, "polyedit: create index")
	}
	if err := idx.Migrate(); err != nil {
		idx.Close()
		return nil, errors.Wrap(err, "polyedit: migrate index")
	}
	s.index = idx

	if s.loader == nil && s.root != "" {
		s.loader = analyzer.FSLoader{Root: s.root}
	}

	adapter := &graphAdapter{analyzer: s.analyzer, logger: s.logger}
	s.cache = newDocumentCache(adapter, idx, s.loader, s.logger)

	if s.analyzer == nil {
		aopts := []analyzer.Option{analyzer.WithLogger(s.logger)}
		if !s.noScripts {
			ext, err := s.extension()
			if err != nil {
				idx.Close()
				return nil, err
			}
			aopts = append(aopts, analyzer.WithExtension(ext))
		}
		adapter.analyzer = analyzer.New(analyzer.OverlayLoader{Overlay: s.cache.text, Base: s.loader}, aopts...)
	}
	return s, nil
}

func (s *Service) extension() (*runtime.Extension, error) {
	rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(s.logger)}
	if s.scriptsDir == "" && s.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(s.scriptsFS))
	}
	ext, err := runtime.NewExtension(runtime.NewRuntime(s.scriptsDir, rtOpts...))
	if err != nil {
		return nil, errors.Wrap(err, "polyedit: load scripts")
	}
	s.logger.Debugw("extension scripts loaded", "scripts", ext.Scripts())
	return ext, nil
}

// Close releases the occurrence index.
func (s *Service) Close() error {
	return s.index.Close()
}

// FileChanged records text as the current content of url and analyzes it.
// It never fails: an analysis error keeps the previous graph of the
// document and is reported by Diagnostics. Cancelling ctx does not
// interrupt the call.
func (s *Service) FileChanged(ctx context.Context, url, text string) {
	s.cache.fileChanged(ctx, url, text)
}

// FileClosed forgets url. Later requests for it read it through the loader.
func (s *Service) FileClosed(url string) {
	s.cache.remove(url)
}

// TypeaheadCompletionsAt returns what can be typed at pos in url, or nil when
// nothing applies or pos is not in the document.
func (s *Service) TypeaheadCompletionsAt(ctx context.Context, url string, pos Position) *CompletionResult {
	snap, ok := s.cache.read(ctx, url)
	if !ok {
		return nil
	}
	o, err := textpos.ToOffset(snap.text, pos)
	if err != nil {
		return nil
	}
	c := &completer{graph: snap.graph, catalog: s.catalogFunc(ctx, url)}
	return c.complete(markup.Classify(snap.text, o))
}

// ReferencesAt returns the uses of the element or databinding property at
// pos in url, or nil when there is nothing resolvable there.
func (s *Service) ReferencesAt(ctx context.Context, url string, pos Position) []SourceRange {
	snap, ok := s.cache.read(ctx, url)
	if !ok {
		return nil
	}
	o, err := textpos.ToOffset(snap.text, pos)
	if err != nil {
		return nil
	}
	mctx := markup.Classify(snap.text, o)
	switch mctx.Kind {
	case markup.KindTagName, markup.KindEndTagName:
		return s.tagReferences(ctx, snap, mctx.Element)
	case markup.KindSuppressed:
		return nil
	}
	return s.bindingReferences(ctx, snap, o)
}

// Elements lists every element known to any cached document, sorted by tag.
func (s *Service) Elements(ctx context.Context) []*Element {
	entries := s.cache.catalog(ctx, "")
	out := make([]*Element, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.element)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TagName < out[j].TagName })
	return out
}

// Diagnostics is the analysis state of one document.
type Diagnostics struct {
	URL      string
	Warnings []Warning
	// Err is the error of the latest analysis, nil when it succeeded.
	Err error
	// Stale is set when Err is not nil and an older graph is still served.
	Stale bool
}

// Diagnostics reports the state of url, loading it if needed. It reports
// false for documents that are unknown and cannot be loaded.
func (s *Service) Diagnostics(ctx context.Context, url string) (Diagnostics, bool) {
	snap, ok := s.cache.read(ctx, url)
	if !ok {
		return Diagnostics{}, false
	}
	d := Diagnostics{URL: url, Err: snap.err, Stale: snap.err != nil && snap.graph != nil}
	if snap.graph != nil {
		d.Warnings = snap.graph.Warnings
	}
	return d, true
}

// Graph returns the last good feature graph of url, or nil.
func (s *Service) Graph(ctx context.Context, url string) *Graph {
	snap, ok := s.cache.read(ctx, url)
	if !ok {
		return nil
	}
	return snap.graph
}

func (s *Service) catalogFunc(ctx context.Context, url string) func() []catalogEntry {
	var entries []catalogEntry
	var done bool
	return func() []catalogEntry {
		if !done {
			entries = s.cache.catalog(ctx, url)
			done = true
		}
		return entries
	}
}
