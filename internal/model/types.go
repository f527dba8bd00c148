package model

import "context"

// ImagePayload is a provider-neutral rendering of one page image, ready to
// be attached to a chat message.
type ImagePayload struct {
	Base64Data string
	MIMEType   string
	Detail     string // tile-budget hint, e.g. "high"
}

// MessageRole distinguishes system instructions from user turns.
type MessageRole string

const (
	RoleSystem MessageRole = "system"
	RoleUser   MessageRole = "user"
)

// Message is one turn in the chat-style request sent to a Provider. Text may
// be empty when the turn's content is entirely carried by Images (the VLM
// caller always sends an empty-text user turn with the page image attached).
type Message struct {
	Role   MessageRole
	Text   string
	Images []ImagePayload
}

// CompletionOptions carries the subset of config needed by a provider call.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// CompletionResponse is a provider's reply, normalized across vendors.
type CompletionResponse struct {
	Content           string
	PromptTokens      int
	CompletionTokens  int
}

// Provider is the minimal capability the pipeline needs from a VLM backend.
// Concrete vendors (OpenAI-family, Anthropic-family, local endpoints) live
// outside this package; callers may also supply their own implementation.
type Provider interface {
	Name() string
	Chat(ctx context.Context, messages []Message, opts CompletionOptions) (CompletionResponse, error)
}

// DocumentMetadata is extracted once, before any page is rendered.
type DocumentMetadata struct {
	Title            string
	Author           string
	Subject          string
	Creator          string
	Producer         string
	CreationDate     string
	ModificationDate string
	PageCount        int
	PDFVersion       string
	Encrypted        bool
}

// EncodedPage is what the lazy producer emits on its bounded channel: a
// rendered-and-encoded page, with the bitmap already dropped.
type EncodedPage struct {
	PageIndex      int // 0-indexed
	Image          ImagePayload
	RenderEncodeMS int64
}

// PageResult is produced exactly once per attempted page.
type PageResult struct {
	PageNum       int // 1-indexed
	Markdown      string
	InputTokens   int
	OutputTokens  int
	DurationMS    int64
	Retries       int
	Err           PageError
}

// ConversionStats is computed once, at the end of a conversion.
type ConversionStats struct {
	TotalPages        int
	ProcessedPages    int
	FailedPages       int
	SkippedPages      int
	TotalInputTokens  int
	TotalOutputTokens int
	TotalMS           int64
	CumulativeRenderMS int64
	PipelineMS        int64
	CorrelationID     string
}

// ConversionOutput is the single-shot return value of a full conversion.
type ConversionOutput struct {
	Markdown string
	Pages    []PageResult
	Metadata DocumentMetadata
	Stats    ConversionStats
}
