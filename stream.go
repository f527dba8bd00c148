package pdf2md

import (
	"context"

	"github.com/local/pdf2md/internal/fetch"
	"github.com/local/pdf2md/internal/model"
	"github.com/local/pdf2md/internal/obslog"
	"github.com/local/pdf2md/internal/postprocess"
	"github.com/local/pdf2md/internal/producer"
	"github.com/local/pdf2md/internal/rasterize"
	"github.com/local/pdf2md/internal/scheduler"
)

// StreamItem is one element of the channel ConvertStream returns, carrying a
// single page's result in Page. ConvertStream does not set Fatal: every fatal
// error it detects is returned before the channel is created.
type StreamItem struct {
	Page  *PageResult
	Fatal error
}

// ConvertStream mirrors Convert but emits each page's post-processed result
// as soon as it is ready rather than waiting for the whole document,
// letting a caller display progress incrementally. The returned channel is
// closed once the scheduler has emitted a result for every page the producer
// rendered (pages the producer skips get no item), or when ctx is cancelled.
func ConvertStream(ctx context.Context, input string, cfg *ConversionConfig) (<-chan StreamItem, error) {
	provider, err := resolveProvider(cfg)
	if err != nil {
		return nil, err
	}

	resolved, err := fetch.Resolve(ctx, input, cfg.Password, cfg.DownloadTimeoutSecs)
	if err != nil {
		return nil, err
	}

	doc, err := rasterize.Open(resolved.Path, cfg.Password)
	if err != nil {
		resolved.Cleanup()
		return nil, err
	}

	meta := doc.Metadata()
	indices := cfg.Pages.ToIndices(meta.PageCount)
	if len(indices) == 0 {
		doc.Close()
		resolved.Cleanup()
		return nil, &model.PageOutOfRangeError{Requested: describeSelection(cfg.Pages), PageCount: meta.PageCount}
	}

	selectedCount := len(indices)
	cfg.Progress.OnConversionStart(selectedCount)

	log := obslog.WithCorrelationID(cfg.Logger, cfg.CorrelationID)

	cfgForWorkers := *cfg
	cfgForWorkers.Provider = provider

	out := make(chan StreamItem, cfg.ChannelCapacity)

	go func() {
		defer close(out)
		defer resolved.Cleanup()

		pages := producer.Spawn(ctx, log, doc, cfg.DPI, cfg.MaxRenderedPixels, indices, cfg.ChannelCapacity)

		successCount := 0
		for result := range scheduler.RunStream(ctx, pages, &cfgForWorkers, selectedCount) {
			if result.Err == nil {
				result.Markdown = postprocess.Clean(result.Markdown)
				successCount++
			}
			select {
			case out <- StreamItem{Page: &result}:
			case <-ctx.Done():
				return
			}
		}

		cfg.Progress.OnConversionComplete(selectedCount, successCount)
	}()

	return out, nil
}
