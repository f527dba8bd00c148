package pdf2md

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/local/pdf2md/internal/assemble"
	"github.com/local/pdf2md/internal/fetch"
	"github.com/local/pdf2md/internal/model"
	"github.com/local/pdf2md/internal/obslog"
	"github.com/local/pdf2md/internal/postprocess"
	"github.com/local/pdf2md/internal/producer"
	"github.com/local/pdf2md/internal/rasterize"
	"github.com/local/pdf2md/internal/scheduler"
)

// Convert runs the full pipeline — resolve, open, select pages, render,
// encode, transcribe, post-process, assemble — and returns the assembled
// document along with every page's result and aggregate stats. input may be
// a local filesystem path, an http(s):// URL, or an s3://bucket/key object;
// see internal/fetch for what each of those supports.
func Convert(ctx context.Context, input string, cfg *ConversionConfig) (*ConversionOutput, error) {
	pipelineStart := time.Now()

	provider, err := resolveProvider(cfg)
	if err != nil {
		return nil, err
	}

	resolved, err := fetch.Resolve(ctx, input, cfg.Password, cfg.DownloadTimeoutSecs)
	if err != nil {
		return nil, err
	}
	defer resolved.Cleanup()

	doc, err := rasterize.Open(resolved.Path, cfg.Password)
	if err != nil {
		return nil, err
	}

	meta := doc.Metadata()
	indices := cfg.Pages.ToIndices(meta.PageCount)
	if len(indices) == 0 {
		doc.Close()
		return nil, &model.PageOutOfRangeError{Requested: describeSelection(cfg.Pages), PageCount: meta.PageCount}
	}

	selectedCount := len(indices)
	cfg.Progress.OnConversionStart(selectedCount)

	log := obslog.WithCorrelationID(cfg.Logger, cfg.CorrelationID)

	cfgForWorkers := *cfg
	cfgForWorkers.Provider = provider

	renderStart := time.Now()
	pages := producer.Spawn(ctx, log, doc, cfg.DPI, cfg.MaxRenderedPixels, indices, cfg.ChannelCapacity)

	results := scheduler.Run(ctx, pages, &cfgForWorkers, selectedCount)
	cumulativeRenderMS := time.Since(renderStart).Milliseconds()

	successCount, failedCount := 0, 0
	var totalInputTokens, totalOutputTokens int
	var totalMS int64
	var firstErr model.PageError

	for i := range results {
		if results[i].Err == nil {
			results[i].Markdown = postprocess.Clean(results[i].Markdown)
			successCount++
		} else {
			failedCount++
			if firstErr == nil {
				firstErr = results[i].Err
			}
		}
		totalInputTokens += results[i].InputTokens
		totalOutputTokens += results[i].OutputTokens
		totalMS += results[i].DurationMS
	}

	skippedCount := selectedCount - len(results)

	cfg.Progress.OnConversionComplete(selectedCount, successCount)

	if successCount == 0 {
		firstErrStr := "Unknown error"
		if firstErr != nil {
			firstErrStr = firstErr.Error()
		}
		return nil, &model.AllPagesFailedError{Total: len(results), Retries: cfg.MaxRetries, FirstError: firstErrStr}
	}

	markdown := assemble.Document(results, cfg.PageSeparator, cfg.IncludeMetadata, meta)

	return &ConversionOutput{
		Markdown: markdown,
		Pages:    results,
		Metadata: meta,
		Stats: ConversionStats{
			TotalPages:         meta.PageCount,
			ProcessedPages:     successCount,
			FailedPages:        failedCount,
			SkippedPages:       skippedCount,
			TotalInputTokens:   totalInputTokens,
			TotalOutputTokens:  totalOutputTokens,
			TotalMS:            totalMS,
			CumulativeRenderMS: cumulativeRenderMS,
			PipelineMS:         time.Since(pipelineStart).Milliseconds(),
			CorrelationID:      cfg.CorrelationID,
		},
	}, nil
}

// ConvertToFile runs Convert and writes the assembled Markdown to
// outputPath, via a sibling ".tmp" file renamed into place so a reader
// never observes a partially written document.
func ConvertToFile(ctx context.Context, input, outputPath string, cfg *ConversionConfig) (*ConversionStats, error) {
	out, err := Convert(ctx, input, cfg)
	if err != nil {
		return nil, err
	}

	tmpPath := outputPath + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(out.Markdown), 0o644); err != nil {
		return nil, &model.OutputWriteFailedError{Path: outputPath, Detail: err.Error()}
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return nil, &model.OutputWriteFailedError{Path: outputPath, Detail: err.Error()}
	}

	return &out.Stats, nil
}

// ConvertFromBytes materializes data as a temp file and runs Convert
// against it, for callers that already have the PDF in memory.
func ConvertFromBytes(ctx context.Context, data []byte, cfg *ConversionConfig) (*ConversionOutput, error) {
	tmp, err := os.CreateTemp("", "pdf2md-bytes-*.pdf")
	if err != nil {
		return nil, &model.InternalError{Detail: err.Error()}
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, &model.InternalError{Detail: err.Error()}
	}
	if err := tmp.Close(); err != nil {
		return nil, &model.InternalError{Detail: err.Error()}
	}

	return Convert(ctx, path, cfg)
}

// Inspect opens input just far enough to report its metadata, without
// rendering or transcribing any page.
func Inspect(ctx context.Context, input string) (*DocumentMetadata, error) {
	resolved, err := fetch.Resolve(ctx, input, nil, 120)
	if err != nil {
		return nil, err
	}
	defer resolved.Cleanup()

	doc, err := rasterize.Open(resolved.Path, nil)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	meta := doc.Metadata()
	return &meta, nil
}

// resolveProvider requires an already-constructed Provider handle.
// ProviderName/Model are accepted by the builder for callers that only want
// to label metrics and logs; actually instantiating a vendor client (API
// keys, base URLs, optional circuit-breaker wrapping) is cmd/pdf2md's job,
// not this library's — see internal/providers.
func resolveProvider(cfg *ConversionConfig) (model.Provider, error) {
	if cfg.Provider == nil {
		return nil, &model.ProviderNotConfiguredError{}
	}
	return cfg.Provider, nil
}

func describeSelection(sel PageSelection) string {
	switch sel.Kind {
	case model.SelectSingle:
		return fmt.Sprintf("page %d", sel.Single)
	case model.SelectRange:
		return fmt.Sprintf("pages %d-%d", sel.RangeLo, sel.RangeHi)
	case model.SelectSet:
		return fmt.Sprintf("page set %v", sel.Set)
	default:
		return "all pages"
	}
}
