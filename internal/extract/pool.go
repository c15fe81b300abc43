// Package extract fans page extraction out over a bounded worker pool.
// Results are delivered in completion order, not page order; a page whose
// LLM call ultimately fails contributes zero claims and never fails the job.
package extract

import (
	"context"
	"log/slog"
	"sync"

	"github.com/papertrail/papertrail/internal/model"
	"github.com/papertrail/papertrail/internal/pdftext"
)

// DefaultConcurrency bounds in-flight page extractions when the
// configuration does not say otherwise.
const DefaultConcurrency = 4

// PageExtractor is the LLM boundary: one call per page.
type PageExtractor interface {
	ExtractClaims(ctx context.Context, apiKey string, pageNumber int, pageText string) ([]model.Claim, error)
}

// PageResult is one completed page. Err is informational; callers treat a
// failed page as an empty one.
type PageResult struct {
	Page   pdftext.Page
	Claims []model.Claim
	Err    error
}

// Pool runs page extractions with bounded concurrency.
type Pool struct {
	extractor   PageExtractor
	concurrency int
	logger      *slog.Logger
}

// NewPool creates a pool around the given extractor.
func NewPool(extractor PageExtractor, concurrency int, logger *slog.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{extractor: extractor, concurrency: concurrency, logger: logger.With("component", "extract")}
}

// Run starts extraction for every page and returns a channel of results in
// completion order. The channel closes once all pages are done or the
// context is cancelled.
func (p *Pool) Run(ctx context.Context, apiKey string, pages []pdftext.Page) <-chan PageResult {
	results := make(chan PageResult)
	sem := make(chan struct{}, p.concurrency)

	var wg sync.WaitGroup
	wg.Add(len(pages))
	for _, page := range pages {
		go func(page pdftext.Page) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			claims, err := p.extractor.ExtractClaims(ctx, apiKey, page.Number, page.Text)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.logger.Warn("page extraction failed", "page", page.Number, "error", err)
				claims = nil
			}

			select {
			case results <- PageResult{Page: page, Claims: claims, Err: err}:
			case <-ctx.Done():
			}
		}(page)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}
