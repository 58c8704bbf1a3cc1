package polyedit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jward/polyedit/internal/analyzer"
	"github.com/jward/polyedit/internal/features"
	"github.com/jward/polyedit/internal/store"
)

// analyzerFunc adapts a function to Analyzer.
type analyzerFunc func(ctx context.Context, url, text string) (*features.Graph, error)

func (f analyzerFunc) Analyze(ctx context.Context, url, text string) (*features.Graph, error) {
	return f(ctx, url, text)
}

func TestGraphAdapter_NormalizesErrors(t *testing.T) {
	ctx := context.Background()
	a := &graphAdapter{
		analyzer: analyzerFunc(func(context.Context, string, string) (*features.Graph, error) {
			return nil, errors.New("boom")
		}),
		logger: zap.NewNop().Sugar(),
	}
	g, err := a.build(ctx, "x.html", "")
	assert.Nil(t, g)
	require.Error(t, err)
	assert.True(t, analyzer.IsAnalysisError(err))
	assert.Contains(t, err.Error(), "boom")

	a.analyzer = analyzerFunc(func(context.Context, string, string) (*features.Graph, error) {
		return nil, nil
	})
	_, err = a.build(ctx, "x.html", "")
	assert.True(t, analyzer.IsAnalysisError(err))

	a.analyzer = analyzerFunc(func(context.Context, string, string) (*features.Graph, error) {
		return &features.Graph{}, nil
	})
	g, err = a.build(ctx, "x.html", "")
	require.NoError(t, err)
	assert.Equal(t, "x.html", g.URL)
}

func TestCache_CustomAnalyzerCalledPerChange(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	svc := newTestService(t, WithAnalyzer(analyzerFunc(func(_ context.Context, url, _ string) (*features.Graph, error) {
		calls.Add(1)
		return &features.Graph{URL: url, Elements: []*features.Element{{TagName: "x-custom"}}}, nil
	})))

	svc.FileChanged(ctx, "a.html", "<x-custom></x-custom>")
	svc.FileChanged(ctx, "a.html", "<x-custom></x-custom>\n")
	assert.Equal(t, int32(2), calls.Load())

	// Reads of a clean document do not re-analyze.
	svc.Graph(ctx, "a.html")
	svc.TypeaheadCompletionsAt(ctx, "a.html", Position{Line: 1, Column: 0})
	assert.Equal(t, int32(2), calls.Load())

	els := svc.Elements(ctx)
	require.Len(t, els, 1)
	assert.Equal(t, "x-custom", els[0].TagName)
}

func TestCache_UnchangedTextDoesNotInvalidateDependents(t *testing.T) {
	ctx := context.Background()
	loader := analyzer.MapLoader{
		"a.html": `<link rel="import" href="b.html">`,
		"b.html": `<link rel="import" href="a.html">`,
	}
	svc := newTestService(t, WithLoader(loader))
	svc.FileChanged(ctx, "a.html", loader["a.html"])
	svc.FileChanged(ctx, "b.html", loader["b.html"])

	s := svc.cache.lookup("a.html")
	require.NotNil(t, s)
	s.mu.RLock()
	dirty := s.dirty
	s.mu.RUnlock()
	assert.True(t, dirty)

	svc.Graph(ctx, "a.html")
	b := svc.cache.lookup("b.html")
	b.mu.RLock()
	dirty = b.dirty
	b.mu.RUnlock()
	assert.False(t, dirty, "re-analysis of identical text must not ping-pong")
}

func TestCache_Occurrences(t *testing.T) {
	text := "<dom-module id=\"x-el\">\n  <template>{{foo.bar}}</template>\n</dom-module>\n"
	occs := occurrences(text)

	var tags, bindings []*store.Occurrence
	for _, o := range occs {
		switch o.Kind {
		case store.KindTag:
			tags = append(tags, o)
		case store.KindBinding:
			bindings = append(bindings, o)
		}
	}
	require.Len(t, tags, 2)
	assert.Equal(t, "dom-module", tags[0].Name)
	assert.Equal(t, "template", tags[1].Name)
	assert.Equal(t, 1, tags[1].StartLine)
	assert.Equal(t, 2, tags[1].StartCol)

	require.Len(t, bindings, 1)
	b := bindings[0]
	assert.Equal(t, "foo", b.Name)
	assert.Equal(t, "x-el", b.Scope)
	assert.Equal(t, 1, b.StartLine)
	assert.Equal(t, 14, b.StartCol)
	assert.Equal(t, 17, b.EndCol)
}

func TestCache_RemoveForgetsDocument(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, WithLoader(analyzer.MapLoader{}))
	svc.FileChanged(ctx, "a.html", "<p></p>")
	require.Equal(t, []string{"a.html"}, svc.cache.urls())

	svc.FileClosed("a.html")
	assert.Empty(t, svc.cache.urls())
	doc, err := svc.index.DocumentByURL("a.html")
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.Nil(t, svc.Graph(ctx, "a.html"))
}

func TestCache_RemoveWaitsForInFlightUpdate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, WithLoader(analyzer.MapLoader{}))
	svc.FileChanged(ctx, "a.html", "<p></p>")

	s := svc.cache.lookup("a.html")
	require.NotNil(t, s)

	// Hold the slot as an in-flight change would, then close the file.
	s.writeMu.Lock()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.FileClosed("a.html")
	}()
	svc.cache.update(ctx, "a.html", s, "<p>edited</p>")
	s.writeMu.Unlock()
	wg.Wait()

	doc, err := svc.index.DocumentByURL("a.html")
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.Empty(t, svc.cache.urls())

	// A stale reader of the retired slot leaves the index alone.
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
	svc.cache.refresh(ctx, "a.html", s)
	doc, err = svc.index.DocumentByURL("a.html")
	require.NoError(t, err)
	assert.Nil(t, doc)

	// Reopening after the close starts from a fresh slot.
	svc.FileChanged(ctx, "a.html", "<p></p>")
	require.Equal(t, []string{"a.html"}, svc.cache.urls())
	assert.NotSame(t, s, svc.cache.lookup("a.html"))
}
