// Package pdf2md converts PDF documents to Markdown by rendering each page
// to an image and asking a vision-language-model Provider to transcribe it.
// See Convert, ConvertToFile, ConvertFromBytes, ConvertStream, and Inspect.
package pdf2md

import "github.com/local/pdf2md/internal/model"

// Re-exported domain types. These are thin aliases over internal/model so
// every pipeline stage can share one definition without the root package
// importing back down into the stages that need it (which would cycle) and
// without callers ever needing to import internal/model directly.

type (
	ConversionConfig        = model.ConversionConfig
	ConversionConfigBuilder = model.ConversionConfigBuilder
	PageSelection           = model.PageSelection
	PageSelectionKind       = model.PageSelectionKind
	PageSeparator           = model.PageSeparator
	PageSeparatorKind       = model.PageSeparatorKind
	FidelityTier            = model.FidelityTier

	ProgressSink     = model.ProgressSink
	NoopProgressSink = model.NoopProgressSink

	Provider           = model.Provider
	Message             = model.Message
	MessageRole         = model.MessageRole
	ImagePayload        = model.ImagePayload
	CompletionOptions   = model.CompletionOptions
	CompletionResponse  = model.CompletionResponse

	DocumentMetadata = model.DocumentMetadata
	PageResult       = model.PageResult
	ConversionStats  = model.ConversionStats
	ConversionOutput = model.ConversionOutput

	PageError = model.PageError
)

const (
	SelectAll    = model.SelectAll
	SelectSingle = model.SelectSingle
	SelectRange  = model.SelectRange
	SelectSet    = model.SelectSet

	SeparatorNone           = model.SeparatorNone
	SeparatorHorizontalRule = model.SeparatorHorizontalRule
	SeparatorComment        = model.SeparatorComment
	SeparatorCustom         = model.SeparatorCustom

	FidelityT1 = model.FidelityT1
	FidelityT2 = model.FidelityT2
	FidelityT3 = model.FidelityT3

	RoleSystem = model.RoleSystem
	RoleUser   = model.RoleUser
)

var (
	NewConversionConfigBuilder = model.NewConversionConfigBuilder
	AllPages                   = model.AllPages
	SinglePage                 = model.SinglePage
	PageRangeSel               = model.PageRangeSel
	PageSet                    = model.PageSet
)

// Pdf2MdError is implemented by every fatal error this package returns from
// Convert/ConvertToFile/ConvertFromBytes/ConvertStream/Inspect — i.e. one
// that aborted the whole call rather than being scoped to a single page.
// Use errors.As to recover the concrete variant (e.g. *pdf2md.NotAPdfError).
type Pdf2MdError = model.FatalError

type (
	FileNotFoundError           = model.FileNotFoundError
	PermissionDeniedError       = model.PermissionDeniedError
	InvalidInputError           = model.InvalidInputError
	DownloadFailedError         = model.DownloadFailedError
	DownloadTimeoutError        = model.DownloadTimeoutError
	NotAPdfError                = model.NotAPdfError
	CorruptPdfError             = model.CorruptPdfError
	PasswordRequiredError       = model.PasswordRequiredError
	WrongPasswordError          = model.WrongPasswordError
	PageOutOfRangeError         = model.PageOutOfRangeError
	ProviderNotConfiguredError  = model.ProviderNotConfiguredError
	LlmApiErrorError            = model.LlmApiErrorError
	AuthErrorError              = model.AuthErrorError
	RateLimitExceededError      = model.RateLimitExceededError
	ApiTimeoutError             = model.ApiTimeoutError
	AllPagesFailedError         = model.AllPagesFailedError
	PartialFailureError         = model.PartialFailureError
	OutputWriteFailedError      = model.OutputWriteFailedError
	InvalidConfigError          = model.InvalidConfigError
	InternalError               = model.InternalError
)
