package model

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PageSelectionKind discriminates the PageSelection tagged union.
type PageSelectionKind int

const (
	SelectAll PageSelectionKind = iota
	SelectSingle
	SelectRange
	SelectSet
)

// PageSelection names which 1-indexed pages of a document participate in a
// conversion. Call ToIndices to expand it against a concrete page count.
type PageSelection struct {
	Kind     PageSelectionKind
	Single   int
	RangeLo  int
	RangeHi  int
	Set      []int
}

// AllPages selects every page of the document.
func AllPages() PageSelection { return PageSelection{Kind: SelectAll} }

// SinglePage selects the 1-indexed page n.
func SinglePage(n int) PageSelection { return PageSelection{Kind: SelectSingle, Single: n} }

// PageRangeSel selects the inclusive 1-indexed range [lo, hi].
func PageRangeSel(lo, hi int) PageSelection {
	return PageSelection{Kind: SelectRange, RangeLo: lo, RangeHi: hi}
}

// PageSet selects an explicit, possibly unsorted, possibly duplicated list
// of 1-indexed page numbers.
func PageSet(pages []int) PageSelection { return PageSelection{Kind: SelectSet, Set: pages} }

// ToIndices expands the selection into a sorted, deduplicated list of
// 0-indexed page positions, each strictly less than total.
func (s PageSelection) ToIndices(total int) []int {
	switch s.Kind {
	case SelectAll:
		out := make([]int, 0, total)
		for i := 0; i < total; i++ {
			out = append(out, i)
		}
		return out

	case SelectSingle:
		if s.Single >= 1 && s.Single <= total {
			return []int{s.Single - 1}
		}
		return []int{}

	case SelectRange:
		lo := s.RangeLo
		if lo < 1 {
			lo = 1
		}
		start := lo - 1
		end := s.RangeHi
		if end > total {
			end = total
		}
		if start >= end {
			return []int{}
		}
		out := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			out = append(out, i)
		}
		return out

	case SelectSet:
		seen := make(map[int]struct{}, len(s.Set))
		out := make([]int, 0, len(s.Set))
		for _, n := range s.Set {
			idx := n - 1
			if idx < 0 || idx >= total {
				continue
			}
			if _, ok := seen[idx]; ok {
				continue
			}
			seen[idx] = struct{}{}
			out = append(out, idx)
		}
		sort.Ints(out)
		return out

	default:
		return []int{}
	}
}

// PageSeparatorKind discriminates the PageSeparator tagged union.
type PageSeparatorKind int

const (
	SeparatorNone PageSeparatorKind = iota
	SeparatorHorizontalRule
	SeparatorComment
	SeparatorCustom
)

// PageSeparator controls what is interposed between adjacent pages at
// assembly time.
type PageSeparator struct {
	Kind   PageSeparatorKind
	Custom string
}

// Render returns the separator text for the page numbered pageNum (the
// later page of the adjacent pair, per the assembler's contract).
func (p PageSeparator) Render(pageNum int) string {
	switch p.Kind {
	case SeparatorHorizontalRule:
		return "\n\n---\n\n"
	case SeparatorComment:
		return fmt.Sprintf("\n\n<!-- page %d -->\n\n", pageNum)
	case SeparatorCustom:
		return fmt.Sprintf("\n\n%s\n\n", p.Custom)
	default:
		return "\n\n"
	}
}

// FidelityTier selects which Markdown constructs the VLM is instructed to
// produce.
type FidelityTier int

const (
	FidelityT1 FidelityTier = iota + 1 // text, headings, lists only
	FidelityT2                         // + tables, footnotes (default)
	FidelityT3                         // + math, HTML-table fallback, captions
)

// ConversionConfig is immutable once built and shared by reference across
// every per-page task of a conversion.
type ConversionConfig struct {
	DPI                  int
	MaxRenderedPixels    int
	Concurrency          int
	Temperature          float64
	MaxTokens            int
	MaxRetries           int
	RetryBackoffMS       int64
	Fidelity             FidelityTier
	Pages                PageSelection
	PageSeparator        PageSeparator
	MaintainFormat       bool
	IncludeMetadata      bool
	Password             *string
	SystemPrompt         *string
	DownloadTimeoutSecs  int
	APITimeoutSecs       int
	ChannelCapacity      int
	Progress             ProgressSink
	Provider             Provider
	ProviderName         string
	Model                string
	CorrelationID        string
	Logger               zerolog.Logger
}

// ConversionConfigBuilder incrementally builds a ConversionConfig, clamping
// every field to a sane range as it is set so a caller cannot construct an
// invalid config through the fluent API alone.
type ConversionConfigBuilder struct {
	cfg ConversionConfig
}

// NewConversionConfigBuilder returns a builder pre-populated with the
// documented defaults: dpi=150, max_rendered_pixels=2000, concurrency=10,
// temperature=0.1, max_tokens=4096, max_retries=3, retry_backoff_ms=500,
// maintain_format=false, fidelity=T2, pages=All, separator=None,
// include_metadata=false, download_timeout_secs=120, api_timeout_secs=60.
func NewConversionConfigBuilder() *ConversionConfigBuilder {
	return &ConversionConfigBuilder{cfg: ConversionConfig{
		DPI:                 150,
		MaxRenderedPixels:   2000,
		Concurrency:         10,
		Temperature:         0.1,
		MaxTokens:           4096,
		MaxRetries:          3,
		RetryBackoffMS:      500,
		Fidelity:            FidelityT2,
		Pages:               AllPages(),
		PageSeparator:       PageSeparator{Kind: SeparatorNone},
		DownloadTimeoutSecs: 120,
		APITimeoutSecs:      60,
		Progress:            NoopProgressSink{},
		Logger:              zerolog.Nop(),
	}}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

// DPI clamps into [72,400]; it sets the render resolution, and
// MaxRenderedPixels then caps the longest edge of the rendered page.
func (b *ConversionConfigBuilder) DPI(v int) *ConversionConfigBuilder {
	b.cfg.DPI = clampInt(v, 72, 400)
	return b
}

// MaxRenderedPixels floors the longest-edge pixel cap at 100.
func (b *ConversionConfigBuilder) MaxRenderedPixels(v int) *ConversionConfigBuilder {
	if v < 100 {
		v = 100
	}
	b.cfg.MaxRenderedPixels = v
	return b
}

// Concurrency floors at 1.
func (b *ConversionConfigBuilder) Concurrency(v int) *ConversionConfigBuilder {
	if v < 1 {
		v = 1
	}
	b.cfg.Concurrency = v
	return b
}

// ChannelCapacity sets the producer's bounded-channel capacity. Defaults to
// Concurrency when left at zero (see Build).
func (b *ConversionConfigBuilder) ChannelCapacity(v int) *ConversionConfigBuilder {
	if v < 1 {
		v = 1
	}
	b.cfg.ChannelCapacity = v
	return b
}

// Temperature clamps into [0.0, 2.0].
func (b *ConversionConfigBuilder) Temperature(v float64) *ConversionConfigBuilder {
	if v < 0 {
		v = 0
	}
	if v > 2 {
		v = 2
	}
	b.cfg.Temperature = v
	return b
}

func (b *ConversionConfigBuilder) MaxTokens(v int) *ConversionConfigBuilder {
	if v < 1 {
		v = 1
	}
	b.cfg.MaxTokens = v
	return b
}

func (b *ConversionConfigBuilder) MaxRetries(v int) *ConversionConfigBuilder {
	if v < 0 {
		v = 0
	}
	b.cfg.MaxRetries = v
	return b
}

func (b *ConversionConfigBuilder) RetryBackoffMS(v int64) *ConversionConfigBuilder {
	if v < 0 {
		v = 0
	}
	b.cfg.RetryBackoffMS = v
	return b
}

func (b *ConversionConfigBuilder) Fidelity(v FidelityTier) *ConversionConfigBuilder {
	if v < FidelityT1 || v > FidelityT3 {
		v = FidelityT2
	}
	b.cfg.Fidelity = v
	return b
}

func (b *ConversionConfigBuilder) Pages(v PageSelection) *ConversionConfigBuilder {
	b.cfg.Pages = v
	return b
}

func (b *ConversionConfigBuilder) Separator(v PageSeparator) *ConversionConfigBuilder {
	b.cfg.PageSeparator = v
	return b
}

func (b *ConversionConfigBuilder) MaintainFormat(v bool) *ConversionConfigBuilder {
	b.cfg.MaintainFormat = v
	return b
}

func (b *ConversionConfigBuilder) IncludeMetadata(v bool) *ConversionConfigBuilder {
	b.cfg.IncludeMetadata = v
	return b
}

func (b *ConversionConfigBuilder) Password(v string) *ConversionConfigBuilder {
	b.cfg.Password = &v
	return b
}

func (b *ConversionConfigBuilder) SystemPrompt(v string) *ConversionConfigBuilder {
	b.cfg.SystemPrompt = &v
	return b
}

func (b *ConversionConfigBuilder) DownloadTimeoutSecs(v int) *ConversionConfigBuilder {
	if v < 1 {
		v = 1
	}
	b.cfg.DownloadTimeoutSecs = v
	return b
}

func (b *ConversionConfigBuilder) APITimeoutSecs(v int) *ConversionConfigBuilder {
	if v < 1 {
		v = 1
	}
	b.cfg.APITimeoutSecs = v
	return b
}

func (b *ConversionConfigBuilder) ProgressSink(v ProgressSink) *ConversionConfigBuilder {
	if v != nil {
		b.cfg.Progress = v
	}
	return b
}

func (b *ConversionConfigBuilder) ProviderHandle(v Provider) *ConversionConfigBuilder {
	b.cfg.Provider = v
	return b
}

func (b *ConversionConfigBuilder) ProviderName(name, model string) *ConversionConfigBuilder {
	b.cfg.ProviderName = name
	b.cfg.Model = model
	return b
}

func (b *ConversionConfigBuilder) CorrelationID(v string) *ConversionConfigBuilder {
	b.cfg.CorrelationID = v
	return b
}

// Logger sets the base logger every pipeline stage derives its
// correlation-scoped child logger from. Defaults to a no-op logger.
func (b *ConversionConfigBuilder) Logger(v zerolog.Logger) *ConversionConfigBuilder {
	b.cfg.Logger = v
	return b
}

// Build performs a final defensive validation pass (beyond the clamping
// already applied by each setter) and returns the immutable config.
func (b *ConversionConfigBuilder) Build() (*ConversionConfig, error) {
	cfg := b.cfg
	if cfg.ChannelCapacity == 0 {
		cfg.ChannelCapacity = cfg.Concurrency
	}
	if cfg.Progress == nil {
		cfg.Progress = NoopProgressSink{}
	}
	if cfg.CorrelationID == "" {
		cfg.CorrelationID = uuid.NewString()
	}
	if cfg.DPI < 72 || cfg.DPI > 400 {
		return nil, &InvalidConfigError{Reason: "dpi out of range [72,400]"}
	}
	if cfg.Concurrency < 1 {
		return nil, &InvalidConfigError{Reason: "concurrency must be >= 1"}
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, &InvalidConfigError{Reason: "temperature out of range [0,2]"}
	}
	if cfg.Provider == nil && cfg.ProviderName == "" {
		return nil, &InvalidConfigError{Reason: "either a provider handle or a provider name must be set"}
	}
	return &cfg, nil
}
