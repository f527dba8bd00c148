// Package scheduler drains the producer's channel through the VLM caller,
// either concurrently (bounded by ConversionConfig.Concurrency, result order
// not preserved) or sequentially (one page at a time, each successful page's
// post-processed Markdown threaded into the next as maintain-format context). Firing
// OnPageStart / OnPageComplete / OnPageError is the scheduler's job, not the
// VLM caller's — a caller retrying internally would otherwise fire the event
// once per attempt instead of once per page.
package scheduler

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/local/pdf2md/internal/llmcall"
	"github.com/local/pdf2md/internal/model"
	"github.com/local/pdf2md/internal/obsmetrics"
	"github.com/local/pdf2md/internal/postprocess"
)

// RunStream drains in, sending one PageResult to the returned channel per
// page as soon as that page's VLM call (including retries) finishes. The
// channel is closed once in is drained and every in-flight call has
// returned. selectedCount is the number of pages the caller selected for
// conversion (ToIndices length); it is reported to the progress sink as the
// denominator for every event and does not shrink when the producer
// silently skips a page.
//
// cfg.MaintainFormat selects the scheduling mode: true runs pages one at a
// time so each VLM call can see the previous page's output (results arrive
// in page order); false runs up to cfg.Concurrency pages at once with no
// cross-page context (results arrive in completion order).
func RunStream(ctx context.Context, in <-chan model.EncodedPage, cfg *model.ConversionConfig, selectedCount int) <-chan model.PageResult {
	if cfg.MaintainFormat {
		return runSequential(ctx, in, cfg, selectedCount)
	}
	return runConcurrent(ctx, in, cfg, selectedCount)
}

// Run is RunStream collected into a slice, for callers that want the whole
// document's results at once.
func Run(ctx context.Context, in <-chan model.EncodedPage, cfg *model.ConversionConfig, selectedCount int) []model.PageResult {
	results := make([]model.PageResult, 0, selectedCount)
	for r := range RunStream(ctx, in, cfg, selectedCount) {
		results = append(results, r)
	}
	return results
}

func runSequential(ctx context.Context, in <-chan model.EncodedPage, cfg *model.ConversionConfig, selectedCount int) <-chan model.PageResult {
	out := make(chan model.PageResult, selectedCount)

	go func() {
		defer close(out)
		var prior *string

		for page := range in {
			pageNum := page.PageIndex + 1
			cfg.Progress.OnPageStart(pageNum, selectedCount)

			result := llmcall.ProcessPage(ctx, cfg.Provider, pageNum, page.Image, prior, cfg)
			reportOne(cfg, pageNum, selectedCount, result)

			if result.Err == nil {
				md := postprocess.Clean(result.Markdown)
				prior = &md
			}

			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func runConcurrent(ctx context.Context, in <-chan model.EncodedPage, cfg *model.ConversionConfig, selectedCount int) <-chan model.PageResult {
	out := make(chan model.PageResult, selectedCount)

	go func() {
		defer close(out)

		sem := semaphore.NewWeighted(int64(cfg.Concurrency))
		var wg sync.WaitGroup

		for page := range in {
			if err := sem.Acquire(ctx, 1); err != nil {
				// ctx was cancelled while waiting for a slot; drain the rest
				// of in without processing so the producer goroutine exits.
				continue
			}

			page := page
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)

				pageNum := page.PageIndex + 1
				cfg.Progress.OnPageStart(pageNum, selectedCount)

				result := llmcall.ProcessPage(ctx, cfg.Provider, pageNum, page.Image, nil, cfg)
				reportOne(cfg, pageNum, selectedCount, result)

				select {
				case out <- result:
				case <-ctx.Done():
				}
			}()
		}

		wg.Wait()
	}()

	return out
}

func reportOne(cfg *model.ConversionConfig, pageNum, selectedCount int, result model.PageResult) {
	if result.Err == nil {
		obsmetrics.IncPageResult("success")
		cfg.Progress.OnPageComplete(pageNum, selectedCount, len(result.Markdown))
		return
	}
	obsmetrics.IncPageResult("failed")
	cfg.Progress.OnPageError(pageNum, selectedCount, result.Err.Error())
}
