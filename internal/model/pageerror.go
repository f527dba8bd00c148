package model

import "fmt"

// PageError is the closed set of non-fatal, per-page failure kinds. Unlike
// FatalError it never aborts the conversion; it is stored inside the
// offending page's PageResult.
type PageError interface {
	error
	Kind() string
}

// RenderFailedError records that the rasterizer could not produce a bitmap
// for a page. Nothing in the pipeline currently produces it: the lazy
// producer skips render failures silently (they surface as skipped pages,
// not as this error) per the resolved open question in DESIGN.md.
type RenderFailedError struct {
	Page   int
	Detail string
}

func (e *RenderFailedError) Error() string {
	return fmt.Sprintf("page %d: render failed: %s", e.Page, e.Detail)
}
func (e *RenderFailedError) Kind() string { return "render_failed" }

// LlmFailedError records that every retry attempt against the VLM provider
// failed for a page.
type LlmFailedError struct {
	Page    int
	Retries int
	Detail  string
}

func (e *LlmFailedError) Error() string {
	return fmt.Sprintf("page %d: LLM call failed after %d retries: %s", e.Page, e.Retries, e.Detail)
}
func (e *LlmFailedError) Kind() string { return "llm_failed" }

// TimeoutError records that a page's VLM attempt exceeded the per-attempt
// wall-clock cap.
type TimeoutError struct {
	Page int
	Secs int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("page %d: timed out after %ds", e.Page, e.Secs)
}
func (e *TimeoutError) Kind() string { return "timeout" }
