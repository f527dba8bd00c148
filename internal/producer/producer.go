// Package producer implements the lazy, bounded page producer: the one
// component responsible for keeping peak memory independent of document
// length. It is grounded directly on the pack's own (unwired)
// spawn_lazy_render_encode helper rather than the eager render-everything
// path its public entry points actually use — see DESIGN.md.
package producer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/local/pdf2md/internal/imageenc"
	"github.com/local/pdf2md/internal/model"
	"github.com/local/pdf2md/internal/obsmetrics"
	"github.com/local/pdf2md/internal/rasterize"
)

// Document is the subset of rasterize.Document the producer drives.
type Document = rasterize.Document

// Spawn starts a single goroutine that renders and encodes each page in
// indices (in order), sending each EncodedPage on the returned channel. The
// bitmap is dropped immediately after encoding — only the base64 payload
// survives past each iteration. doc is closed when the goroutine exits,
// whichever way it exits.
//
// Per page: an out-of-range index, a render failure, or an encode failure
// is logged and the page is skipped (not emitted, no error surfaced) — the
// caller computes skipped-page counts by diffing the selected count against
// how many EncodedPages actually arrive. Cancelling ctx, or the consumer
// simply stopping its receive loop, stops the producer at its next
// blocking send.
func Spawn(ctx context.Context, log zerolog.Logger, doc Document, dpi, maxPixels int, indices []int, channelCapacity int) <-chan model.EncodedPage {
	if channelCapacity < 1 {
		channelCapacity = 1
	}
	out := make(chan model.EncodedPage, channelCapacity)

	go func() {
		defer close(out)
		defer doc.Close()

		total := doc.PageCount()
		for _, idx := range indices {
			if idx < 0 || idx >= total {
				log.Warn().Int("page_index", idx).Int("page_count", total).Msg("skipping out-of-range page")
				continue
			}

			start := time.Now()
			img, err := doc.RenderPage(idx, maxPixels, dpi)
			if err != nil {
				log.Warn().Err(err).Int("page_index", idx).Msg("skipping page: render failed")
				continue
			}

			payload, err := imageenc.Encode(img)
			if err != nil {
				log.Warn().Err(err).Int("page_index", idx).Msg("skipping page: encode failed")
				continue
			}
			elapsed := time.Since(start)
			obsmetrics.ObserveRenderEncode(elapsed)

			page := model.EncodedPage{
				PageIndex:      idx,
				Image:          payload,
				RenderEncodeMS: elapsed.Milliseconds(),
			}

			select {
			case out <- page:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
