// Package llmcall drives one page's VLM request: message construction,
// per-attempt timeout, and exponential-backoff retry. It never returns an
// error to its caller — every outcome, success or exhaustion, is folded
// into a PageResult so a single bad page cannot abort a conversion.
package llmcall

import (
	"context"
	"errors"
	"time"

	"github.com/local/pdf2md/internal/model"
	"github.com/local/pdf2md/internal/obsmetrics"
	"github.com/local/pdf2md/internal/prompts"
)

// ProcessPage builds the [system, optional format-context, user-with-image]
// message triple and calls provider, retrying with exponential backoff
// (initial_backoff_ms * 2^(attempt-1)) up to cfg.MaxRetries times.
func ProcessPage(ctx context.Context, provider model.Provider, pageNum int, image model.ImagePayload, priorMarkdown *string, cfg *model.ConversionConfig) model.PageResult {
	start := time.Now()

	sysPrompt := prompts.DefaultSystemPrompt(cfg.Fidelity)
	if cfg.SystemPrompt != nil && *cfg.SystemPrompt != "" {
		sysPrompt = *cfg.SystemPrompt
	}

	messages := []model.Message{{Role: model.RoleSystem, Text: sysPrompt}}

	if cfg.MaintainFormat && priorMarkdown != nil && *priorMarkdown != "" {
		messages = append(messages, model.Message{
			Role: model.RoleSystem,
			Text: prompts.MaintainFormatContext(*priorMarkdown),
		})
	}

	messages = append(messages, model.Message{
		Role:   model.RoleUser,
		Text:   "",
		Images: []model.ImagePayload{image},
	})

	opts := model.CompletionOptions{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}

	var lastErr error
	lastWasTimeout := false

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			obsmetrics.IncPageRetry()
			backoff := time.Duration(cfg.RetryBackoffMS) * time.Millisecond * time.Duration(uint64(1)<<uint(attempt-1))
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				lastErr = ctx.Err()
				goto exhausted
			}
		}

		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		attemptStart := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.APITimeoutSecs)*time.Second)
		resp, err := provider.Chat(attemptCtx, messages, opts)
		cancel()
		attemptDur := time.Since(attemptStart)

		if err == nil {
			obsmetrics.ObserveProvider(provider.Name(), cfg.Model, "success", attemptDur)
			return model.PageResult{
				PageNum:      pageNum,
				Markdown:     resp.Content,
				InputTokens:  resp.PromptTokens,
				OutputTokens: resp.CompletionTokens,
				DurationMS:   time.Since(start).Milliseconds(),
				Retries:      attempt,
			}
		}

		obsmetrics.ObserveProvider(provider.Name(), cfg.Model, "error", attemptDur)
		lastErr = err
		lastWasTimeout = errors.Is(err, context.DeadlineExceeded)
	}

exhausted:
	duration := time.Since(start).Milliseconds()
	errMsg := "unknown error"
	if lastErr != nil {
		errMsg = lastErr.Error()
	}

	var pageErr model.PageError
	if lastWasTimeout {
		pageErr = &model.TimeoutError{Page: pageNum, Secs: cfg.APITimeoutSecs}
	} else {
		pageErr = &model.LlmFailedError{Page: pageNum, Retries: cfg.MaxRetries, Detail: errMsg}
	}

	return model.PageResult{
		PageNum:    pageNum,
		Markdown:   "",
		DurationMS: duration,
		Retries:    cfg.MaxRetries,
		Err:        pageErr,
	}
}
