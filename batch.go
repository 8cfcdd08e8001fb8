package webpager

import (
	"context"
	"fmt"
	"runtime"

	"github.com/happyhackingspace/webpager/internal/htmlutil"
	"golang.org/x/sync/errgroup"
)

// BatchItem is one page to score in a batch.
type BatchItem struct {
	// HTML is the raw page body.
	HTML []byte
	// URL is the page URL, used as the base for link resolution.
	URL string
	// Encoding optionally forces a character encoding. Empty means
	// detection from content.
	Encoding string
}

// BatchResult is the outcome for one batch item. Err is set when the
// item's page could not be processed; other items are unaffected.
type BatchResult struct {
	URL        string
	Candidates []Candidate
	Err        error
}

// PaginateBatch scores many pages concurrently and returns one result
// per item, in input order. At most concurrency pages are processed at
// once; zero or negative means GOMAXPROCS. Per-page failures land in the
// item's Err; the batch itself only fails when ctx is canceled.
func (p *Pager) PaginateBatch(ctx context.Context, items []BatchItem, concurrency int) ([]BatchResult, error) {
	if p.model == nil {
		return nil, fmt.Errorf("webpager: pager not initialized")
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	results := make([]BatchResult, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = p.paginateItem(item)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("webpager: %w", err)
	}
	return results, nil
}

func (p *Pager) paginateItem(item BatchItem) BatchResult {
	result := BatchResult{URL: item.URL}

	html, err := htmlutil.DecodeHTML(item.HTML, item.Encoding)
	if err != nil {
		result.Err = err
		return result
	}
	candidates, err := p.Paginate(html, item.URL)
	if err != nil {
		result.Err = err
		return result
	}
	result.Candidates = candidates
	return result
}
