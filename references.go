package polyedit

import (
	"context"

	"github.com/jward/polyedit/internal/markup"
	"github.com/jward/polyedit/internal/store"
	"github.com/jward/polyedit/internal/textpos"
)

// tagReferences returns every open tag of the element tag in the current
// document and in each cached document whose graph knows the element.
func (s *Service) tagReferences(ctx context.Context, snap snapshot, tag string) []SourceRange {
	if tag == "" {
		return nil
	}
	if _, ok := (&completer{graph: snap.graph, catalog: s.catalogFunc(ctx, snap.url)}).lookup(tag); !ok {
		return nil
	}
	urls := []string{snap.url}
	for _, u := range s.cache.urls() {
		if u == snap.url {
			continue
		}
		if other, ok := s.cache.read(ctx, u); ok && other.graph.Element(tag) != nil {
			urls = append(urls, u)
		}
	}
	occs, err := s.index.OccurrencesByName(store.KindTag, tag, urls...)
	if err != nil {
		s.logger.Warnw("tag occurrence lookup failed", "tag", tag, "error", err)
		return nil
	}
	return toRanges(snap.url, occs)
}

// bindingReferences returns every databinding use of the identifier under
// offset o, provided it names a property of the enclosing element.
func (s *Service) bindingReferences(ctx context.Context, snap snapshot, o int) []SourceRange {
	var under *markup.Occurrence
	for _, oc := range markup.Scan(snap.text) {
		if oc.Kind == markup.OccurrenceBinding && oc.Contains(o) {
			under = &oc
			break
		}
	}
	if under == nil || under.Scope == "" {
		return nil
	}
	c := &completer{graph: snap.graph, catalog: s.catalogFunc(ctx, snap.url)}
	scope, ok := c.lookup(under.Scope)
	if !ok {
		return nil
	}
	if _, ok := scope.resolver.Property(scope.element, under.Name); !ok {
		return nil
	}
	occs, err := s.index.OccurrencesInScope(store.KindBinding, under.Name, under.Scope)
	if err != nil {
		s.logger.Warnw("binding occurrence lookup failed", "name", under.Name, "error", err)
		return nil
	}
	return toRanges(snap.url, occs)
}

// toRanges orders occurrences with those of current first, keeping the
// index order otherwise, and drops duplicates.
func toRanges(current string, occs []*store.Occurrence) []SourceRange {
	var out []SourceRange
	seen := make(map[SourceRange]bool)
	add := func(o *store.Occurrence) {
		r := SourceRange{
			URL:   o.URL,
			Start: textpos.Position{Line: o.StartLine, Column: o.StartCol},
			End:   textpos.Position{Line: o.EndLine, Column: o.EndCol},
		}
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, o := range occs {
		if o.URL == current {
			add(o)
		}
	}
	for _, o := range occs {
		if o.URL != current {
			add(o)
		}
	}
	return out
}
