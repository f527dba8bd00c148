package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageSelectionAllExpandsToEveryIndex(t *testing.T) {
	got := AllPages().ToIndices(5)
	require.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestPageSelectionAllOnEmptyDocument(t *testing.T) {
	require.Empty(t, AllPages().ToIndices(0))
}

func TestPageSelectionSingleInRange(t *testing.T) {
	require.Equal(t, []int{2}, SinglePage(3).ToIndices(5))
}

func TestPageSelectionSingleOutOfRange(t *testing.T) {
	require.Empty(t, SinglePage(10).ToIndices(5))
	require.Empty(t, SinglePage(0).ToIndices(5))
}

func TestPageSelectionRangeClampsToDocument(t *testing.T) {
	require.Equal(t, []int{3, 4}, PageRangeSel(4, 100).ToIndices(5))
}

func TestPageSelectionRangeEmptyWhenInverted(t *testing.T) {
	require.Empty(t, PageRangeSel(5, 2).ToIndices(10))
}

func TestPageSelectionSetDedupsSortsAndDropsOutOfRange(t *testing.T) {
	got := PageSet([]int{3, 1, 3, 99, 2}).ToIndices(5)
	require.Equal(t, []int{0, 1, 2}, got)
}

func TestBuilderClampsOutOfRangeValues(t *testing.T) {
	cfg, err := NewConversionConfigBuilder().
		ProviderHandle(fakeProvider{}).
		DPI(1000).
		MaxRenderedPixels(1).
		Concurrency(0).
		Temperature(5).
		Build()
	require.NoError(t, err)
	require.Equal(t, 400, cfg.DPI)
	require.Equal(t, 100, cfg.MaxRenderedPixels)
	require.Equal(t, 1, cfg.Concurrency)
	require.Equal(t, 2.0, cfg.Temperature)
}

func TestBuilderDefaultsChannelCapacityToConcurrency(t *testing.T) {
	cfg, err := NewConversionConfigBuilder().
		ProviderHandle(fakeProvider{}).
		Concurrency(7).
		Build()
	require.NoError(t, err)
	require.Equal(t, 7, cfg.ChannelCapacity)
}

func TestBuilderRejectsMissingProvider(t *testing.T) {
	_, err := NewConversionConfigBuilder().Build()
	require.Error(t, err)
	var invalid *InvalidConfigError
	require.ErrorAs(t, err, &invalid)
}

func TestBuilderAcceptsProviderNameWithoutHandle(t *testing.T) {
	cfg, err := NewConversionConfigBuilder().ProviderName("openai", "gpt-4o").Build()
	require.NoError(t, err)
	require.Equal(t, "openai", cfg.ProviderName)
}

type fakeProvider struct{}

func (fakeProvider) Name() string { return "fake" }
func (fakeProvider) Chat(ctx context.Context, messages []Message, opts CompletionOptions) (CompletionResponse, error) {
	return CompletionResponse{}, nil
}
