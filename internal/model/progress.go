package model

// ProgressSink receives conversion lifecycle events. All methods must be
// safe to call concurrently: in concurrent scheduling mode, on_page_start /
// on_page_complete / on_page_error may arrive on different goroutines at
// once. Embed NoopProgressSink to only override the events you care about.
type ProgressSink interface {
	OnConversionStart(selectedCount int)
	OnPageStart(pageNum, selectedCount int)
	OnPageComplete(pageNum, selectedCount, markdownBytes int)
	OnPageError(pageNum, selectedCount int, errDescription string)
	OnConversionComplete(selectedCount, successCount int)
}

// NoopProgressSink implements ProgressSink with no-op methods. Embed it by
// value in a caller's struct to get a ProgressSink that only reacts to the
// events it explicitly overrides.
type NoopProgressSink struct{}

func (NoopProgressSink) OnConversionStart(int)                   {}
func (NoopProgressSink) OnPageStart(int, int)                    {}
func (NoopProgressSink) OnPageComplete(int, int, int)             {}
func (NoopProgressSink) OnPageError(int, int, string)             {}
func (NoopProgressSink) OnConversionComplete(int, int)            {}
