package polyedit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jward/polyedit/internal/analyzer"
	"github.com/jward/polyedit/internal/features"
)

// Analyzer builds the feature graph of a document. The default is an
// *analyzer.Analyzer reading imports through the document cache.
type Analyzer interface {
	Analyze(ctx context.Context, url, text string) (*features.Graph, error)
}

// graphAdapter runs the Analyzer and normalizes what it returns: every
// failure comes back as an *analyzer.AnalysisError and a success always
// carries a graph.
type graphAdapter struct {
	analyzer Analyzer
	logger   *zap.SugaredLogger
}

func (a *graphAdapter) build(ctx context.Context, url, text string) (*features.Graph, error) {
	start := time.Now()
	g, err := a.analyzer.Analyze(ctx, url, text)
	if err == nil && g == nil {
		err = &analyzer.AnalysisError{URL: url, Message: "no graph produced"}
	}
	if err != nil {
		if !analyzer.IsAnalysisError(err) {
			err = &analyzer.AnalysisError{URL: url, Message: "analysis failed", Err: err}
		}
		a.logger.Warnw("analysis failed",
			"url", url,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	if g.URL == "" {
		g.URL = url
	}
	if len(g.Warnings) > 0 {
		a.logger.Infow("analysis finished with warnings",
			"url", url,
			"warnings", len(g.Warnings),
		)
	}
	return g, nil
}
