// Package model holds the domain types shared across the conversion
// pipeline's internal packages and re-exported by the root pdf2md package.
// It imports nothing else under internal/ so every pipeline stage can depend
// on it without creating an import cycle back through the public API.
package model

import "fmt"

// FatalError is implemented by every error that short-circuits a whole
// conversion, as opposed to a PageError which is scoped to one page.
type FatalError interface {
	error
	Fatal()
}

type fatalBase struct{}

func (fatalBase) Fatal() {}

// FileNotFoundError is returned when the resolved input path does not exist.
type FileNotFoundError struct {
	fatalBase
	Path string
}

func (e *FileNotFoundError) Error() string { return fmt.Sprintf("file not found: %s", e.Path) }

// PermissionDeniedError is returned when the resolved input path exists but
// cannot be opened for reading.
type PermissionDeniedError struct {
	fatalBase
	Path string
}

func (e *PermissionDeniedError) Error() string { return fmt.Sprintf("permission denied: %s", e.Path) }

// InvalidInputError covers malformed input arguments that are not PDF or
// filesystem problems (e.g. an empty input string).
type InvalidInputError struct {
	fatalBase
	Reason string
}

func (e *InvalidInputError) Error() string { return fmt.Sprintf("invalid input: %s", e.Reason) }

// DownloadFailedError is returned when a remote input could not be fetched.
type DownloadFailedError struct {
	fatalBase
	URL    string
	Reason string
}

func (e *DownloadFailedError) Error() string {
	return fmt.Sprintf("download failed for %s: %s", e.URL, e.Reason)
}

// DownloadTimeoutError is returned when fetching a remote input exceeded the
// configured download timeout.
type DownloadTimeoutError struct {
	fatalBase
	URL  string
	Secs int
}

func (e *DownloadTimeoutError) Error() string {
	return fmt.Sprintf("download of %s timed out after %ds", e.URL, e.Secs)
}

// NotAPdfError is returned when the resolved input's first four bytes are
// not the PDF magic "%PDF".
type NotAPdfError struct {
	fatalBase
	Path  string
	Magic [4]byte
}

func (e *NotAPdfError) Error() string {
	return fmt.Sprintf("not a PDF file: %s (magic bytes %q)", e.Path, e.Magic[:])
}

// CorruptPdfError is returned when the PDF backend could not parse the
// document and no password-related cause was detected.
type CorruptPdfError struct {
	fatalBase
	Path   string
	Detail string
}

func (e *CorruptPdfError) Error() string {
	return fmt.Sprintf("corrupt or unsupported PDF %s: %s", e.Path, e.Detail)
}

// PasswordRequiredError is returned when the PDF is encrypted and no
// password was supplied.
type PasswordRequiredError struct {
	fatalBase
	Path string
}

func (e *PasswordRequiredError) Error() string {
	return fmt.Sprintf("PDF %s requires a password", e.Path)
}

// WrongPasswordError is returned when the PDF is encrypted and the supplied
// password was rejected.
type WrongPasswordError struct {
	fatalBase
	Path string
}

func (e *WrongPasswordError) Error() string {
	return fmt.Sprintf("wrong password for PDF %s", e.Path)
}

// PageOutOfRangeError is returned when a page selection expands to an empty
// index list against the document's page count.
type PageOutOfRangeError struct {
	fatalBase
	Requested  string
	PageCount  int
}

func (e *PageOutOfRangeError) Error() string {
	return fmt.Sprintf("page selection %s is out of range for a %d-page document", e.Requested, e.PageCount)
}

// ProviderNotConfiguredError is returned when no Provider could be resolved
// from the config.
type ProviderNotConfiguredError struct {
	fatalBase
}

func (e *ProviderNotConfiguredError) Error() string { return "no VLM provider configured" }

// LlmApiErrorError is returned for a fatal, non-retryable provider failure
// surfaced outside the per-page retry loop (e.g. during Inspect-adjacent
// calls). Named with the doubled suffix to keep the exported identifier
// distinct from the model.LlmFailedError per-page variant.
type LlmApiErrorError struct {
	fatalBase
	Provider string
	Detail   string
}

func (e *LlmApiErrorError) Error() string {
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Detail)
}

// AuthErrorError is returned when the provider rejected credentials.
type AuthErrorError struct {
	fatalBase
	Provider string
}

func (e *AuthErrorError) Error() string { return fmt.Sprintf("%s authentication failed", e.Provider) }

// RateLimitExceededError is returned when a provider signalled a rate limit
// that the retry loop could not absorb.
type RateLimitExceededError struct {
	fatalBase
	Provider   string
	RetryAfter *int // seconds; nil if the provider did not say
}

func (e *RateLimitExceededError) Error() string {
	if e.RetryAfter != nil {
		return fmt.Sprintf("%s rate limit exceeded, retry after %ds", e.Provider, *e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Provider)
}

// ApiTimeoutError is returned when a provider call exceeded the configured
// API timeout outside the normal per-page retry accounting.
type ApiTimeoutError struct {
	fatalBase
	Provider string
	Secs     int
}

func (e *ApiTimeoutError) Error() string {
	return fmt.Sprintf("%s API timed out after %ds", e.Provider, e.Secs)
}

// AllPagesFailedError is returned when every attempted page ended in error.
type AllPagesFailedError struct {
	fatalBase
	Total      int
	Retries    int
	FirstError string
}

func (e *AllPagesFailedError) Error() string {
	return fmt.Sprintf("all %d pages failed (first error after %d retries: %s)", e.Total, e.Retries, e.FirstError)
}

// PartialFailureError is produced only when a caller explicitly converts a
// successful-but-partial ConversionOutput into an error.
type PartialFailureError struct {
	fatalBase
	Success int
	Failed  int
	Total   int
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial failure: %d/%d pages succeeded, %d failed", e.Success, e.Total, e.Failed)
}

// OutputWriteFailedError is returned when ConvertToFile could not persist
// the assembled document.
type OutputWriteFailedError struct {
	fatalBase
	Path   string
	Detail string
}

func (e *OutputWriteFailedError) Error() string {
	return fmt.Sprintf("failed to write output %s: %s", e.Path, e.Detail)
}

// InvalidConfigError is returned by the config builder's final validation
// pass when a combination of values cannot be made sane by clamping alone.
type InvalidConfigError struct {
	fatalBase
	Reason string
}

func (e *InvalidConfigError) Error() string { return fmt.Sprintf("invalid config: %s", e.Reason) }

// InternalError is the fallback variant for conditions that should not
// normally occur (e.g. a temp file that vanished between creation and use).
type InternalError struct {
	fatalBase
	Detail string
}

func (e *InternalError) Error() string { return fmt.Sprintf("internal error: %s", e.Detail) }
