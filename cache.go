package polyedit

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jward/polyedit/internal/analyzer"
	"github.com/jward/polyedit/internal/features"
	"github.com/jward/polyedit/internal/markup"
	"github.com/jward/polyedit/internal/store"
	"github.com/jward/polyedit/internal/textpos"
)

// slot is the cached state of one document.
type slot struct {
	// writeMu serializes updates of the document. It is held across
	// analysis; mu is never held across analysis.
	writeMu sync.Mutex

	mu      sync.RWMutex
	hasText bool
	text    string
	graph   *features.Graph
	lastErr error
	dirty   bool

	// removed is set under writeMu when the slot is dropped from the cache.
	// A writer that acquires writeMu on a removed slot must not touch the
	// index.
	removed bool
}

// snapshot is a consistent view of a slot.
type snapshot struct {
	url   string
	text  string
	graph *features.Graph
	err   error
}

func (s *slot) snapshot(url string) snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{url: url, text: s.text, graph: s.graph, err: s.lastErr}
}

// documentCache holds the text and last good graph of every document the
// service has seen, and keeps the occurrence index in step with the texts.
type documentCache struct {
	mu    sync.RWMutex
	slots map[string]*slot

	graphs *graphAdapter
	index  *store.Store
	loader analyzer.Loader
	logger *zap.SugaredLogger
}

func newDocumentCache(graphs *graphAdapter, index *store.Store, loader analyzer.Loader, logger *zap.SugaredLogger) *documentCache {
	return &documentCache{
		slots:  make(map[string]*slot),
		graphs: graphs,
		index:  index,
		loader: loader,
		logger: logger,
	}
}

func (c *documentCache) lookup(url string) *slot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slots[url]
}

func (c *documentCache) getOrCreate(url string) *slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[url]
	if !ok {
		s = &slot{}
		c.slots[url] = s
	}
	return s
}

// text returns the cached text of url. It backs the analyzer's overlay
// loader, so open documents shadow what the loader would read.
func (c *documentCache) text(url string) (string, bool) {
	s := c.lookup(url)
	if s == nil {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text, s.hasText
}

// fileChanged records text as the content of url and re-analyzes it. The
// call runs to completion even if ctx is canceled.
func (c *documentCache) fileChanged(ctx context.Context, url, text string) {
	s := c.lockSlot(url)
	defer s.writeMu.Unlock()
	c.update(ctx, url, s, text)
}

// lockSlot returns the live slot of url with its writeMu held, retrying
// when a concurrent remove retired the slot first.
func (c *documentCache) lockSlot(url string) *slot {
	for {
		s := c.getOrCreate(url)
		s.writeMu.Lock()
		if !s.removed {
			return s
		}
		s.writeMu.Unlock()
	}
}

// update analyzes text and stores the outcome. The caller holds s.writeMu.
// A failed analysis keeps the previous graph.
func (c *documentCache) update(ctx context.Context, url string, s *slot, text string) {
	s.mu.Lock()
	s.text = text
	s.hasText = true
	s.dirty = false
	s.mu.Unlock()

	g, err := c.graphs.build(context.WithoutCancel(ctx), url, text)

	s.mu.Lock()
	if err != nil {
		s.lastErr = err
	} else {
		s.graph = g
		s.lastErr = nil
	}
	graph := s.graph
	s.mu.Unlock()

	if c.reindex(url, text, graph) {
		c.invalidateDependents(url)
	}
}

// reindex rewrites the occurrence index for url and reports whether the
// text differs from what was indexed before.
func (c *documentCache) reindex(url, text string, g *features.Graph) bool {
	hash := store.ContentHash(text)
	changed := true
	prev, err := c.index.DocumentByURL(url)
	if err != nil {
		c.logger.Warnw("index lookup failed", "url", url, "error", err)
	} else if prev != nil {
		changed = prev.Hash != hash
	}

	var deps []string
	if g != nil {
		deps = g.Dependencies
	}
	doc := &store.Document{URL: url, Hash: hash, LastIndexed: time.Now()}
	if err := c.index.ReplaceDocument(doc, occurrences(text), deps); err != nil {
		c.logger.Warnw("index update failed", "url", url, "error", err)
	}
	return changed
}

// invalidateDependents marks every cached document whose graph was built
// from url for re-analysis on its next read.
func (c *documentCache) invalidateDependents(url string) {
	dependents, err := c.index.Dependents(url)
	if err != nil {
		c.logger.Warnw("dependents lookup failed", "url", url, "error", err)
		return
	}
	for _, dep := range dependents {
		if dep == url {
			continue
		}
		if s := c.lookup(dep); s != nil {
			s.mu.Lock()
			s.dirty = true
			s.mu.Unlock()
		}
	}
}

// read returns a current snapshot of url, loading the document through the
// loader when it was never seen and re-analyzing it when one of its
// dependencies changed. It reports false when the document is unknown and
// cannot be loaded.
func (c *documentCache) read(ctx context.Context, url string) (snapshot, bool) {
	s := c.lookup(url)
	if s == nil {
		if s = c.load(ctx, url); s == nil {
			return snapshot{}, false
		}
	}
	c.refresh(ctx, url, s)
	return s.snapshot(url), true
}

func (c *documentCache) load(ctx context.Context, url string) *slot {
	if c.loader == nil {
		return nil
	}
	text, err := c.loader.Load(ctx, url)
	if err != nil {
		c.logger.Debugw("lazy load failed", "url", url, "error", err)
		return nil
	}
	s := c.lockSlot(url)
	defer s.writeMu.Unlock()
	if _, ok := c.text(url); !ok {
		c.update(ctx, url, s, text)
	}
	return s
}

func (c *documentCache) refresh(ctx context.Context, url string, s *slot) {
	s.mu.RLock()
	dirty := s.dirty
	s.mu.RUnlock()
	if !dirty {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.removed {
		return
	}
	s.mu.RLock()
	dirty, text := s.dirty, s.text
	s.mu.RUnlock()
	if dirty {
		c.update(ctx, url, s, text)
	}
}

// remove forgets url. Documents that depended on it are re-analyzed on
// their next read, against whatever the loader now returns for it.
func (c *documentCache) remove(url string) {
	s := c.lookup(url)
	if s != nil {
		// Waits for an in-flight update so its reindex lands before the
		// delete. New writers block here too and retry on a fresh slot.
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		s.removed = true
	}
	if err := c.index.DeleteDocument(url); err != nil {
		c.logger.Warnw("index delete failed", "url", url, "error", err)
	}
	if s != nil {
		c.mu.Lock()
		if c.slots[url] == s {
			delete(c.slots, url)
		}
		c.mu.Unlock()
	}
	c.invalidateDependents(url)
}

// urls lists the cached documents in order.
func (c *documentCache) urls() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.slots))
	for url := range c.slots {
		out = append(out, url)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}

// catalogEntry is an element together with the graph it resolves against.
type catalogEntry struct {
	element  *features.Element
	resolver *features.Resolver
}

// catalog lists every element known to any cached graph, first definition
// of a tag winning. The graph of first (when not empty) is consulted before
// the other documents, which follow in URL order.
func (c *documentCache) catalog(ctx context.Context, first string) []catalogEntry {
	order := c.urls()
	if first != "" {
		rest := order[:0:0]
		for _, u := range order {
			if u != first {
				rest = append(rest, u)
			}
		}
		order = append([]string{first}, rest...)
	}

	var out []catalogEntry
	seen := make(map[string]bool)
	for _, u := range order {
		snap, ok := c.read(ctx, u)
		if !ok || snap.graph == nil {
			continue
		}
		res := features.NewResolver(snap.graph)
		for _, el := range snap.graph.Elements {
			if seen[el.TagName] {
				continue
			}
			seen[el.TagName] = true
			out = append(out, catalogEntry{element: el, resolver: res})
		}
	}
	return out
}

// occurrences converts the scanned occurrences of text to index rows.
func occurrences(text string) []*store.Occurrence {
	scanned := markup.Scan(text)
	out := make([]*store.Occurrence, 0, len(scanned))
	for _, oc := range scanned {
		start, err := textpos.ToPosition(text, oc.Start)
		if err != nil {
			continue
		}
		end, err := textpos.ToPosition(text, oc.End)
		if err != nil {
			continue
		}
		out = append(out, &store.Occurrence{
			Kind:        string(oc.Kind),
			Name:        oc.Name,
			Scope:       oc.Scope,
			StartOffset: oc.Start,
			EndOffset:   oc.End,
			StartLine:   start.Line,
			StartCol:    start.Column,
			EndLine:     end.Line,
			EndCol:      end.Column,
		})
	}
	return out
}
