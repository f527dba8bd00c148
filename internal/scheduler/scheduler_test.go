package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/local/pdf2md/internal/model"
)

type recordingProvider struct {
	mu    sync.Mutex
	calls [][]model.Message
}

func (p *recordingProvider) Name() string { return "fake" }

func (p *recordingProvider) Chat(ctx context.Context, messages []model.Message, opts model.CompletionOptions) (model.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, messages)
	p.mu.Unlock()
	return model.CompletionResponse{Content: "page markdown"}, nil
}

func (p *recordingProvider) systemTextsAt(callIndex int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.calls[callIndex] {
		if m.Role == model.RoleSystem {
			out = append(out, m.Text)
		}
	}
	return out
}

type countingSink struct {
	model.NoopProgressSink
	mu        sync.Mutex
	starts    []int
	completes []int
	errors    []int
}

func (s *countingSink) OnPageStart(pageNum, _ int) {
	s.mu.Lock()
	s.starts = append(s.starts, pageNum)
	s.mu.Unlock()
}

func (s *countingSink) OnPageComplete(pageNum, _, _ int) {
	s.mu.Lock()
	s.completes = append(s.completes, pageNum)
	s.mu.Unlock()
}

func (s *countingSink) OnPageError(pageNum, _ int, _ string) {
	s.mu.Lock()
	s.errors = append(s.errors, pageNum)
	s.mu.Unlock()
}

func pagesChan(n int) <-chan model.EncodedPage {
	out := make(chan model.EncodedPage, n)
	for i := 0; i < n; i++ {
		out <- model.EncodedPage{PageIndex: i}
	}
	close(out)
	return out
}

func TestRunSequentialPreservesPageOrder(t *testing.T) {
	provider := &recordingProvider{}
	sink := &countingSink{}
	cfg, err := model.NewConversionConfigBuilder().
		ProviderHandle(provider).
		MaintainFormat(true).
		ProgressSink(sink).
		Build()
	require.NoError(t, err)

	results := Run(context.Background(), pagesChan(4), cfg, 4)

	require.Len(t, results, 4)
	for i, r := range results {
		require.Equal(t, i+1, r.PageNum)
	}
	require.Equal(t, []int{1, 2, 3, 4}, sink.completes)
}

func TestRunSequentialThreadsPriorMarkdownAsContext(t *testing.T) {
	provider := &recordingProvider{}
	cfg, err := model.NewConversionConfigBuilder().
		ProviderHandle(provider).
		MaintainFormat(true).
		Build()
	require.NoError(t, err)

	Run(context.Background(), pagesChan(3), cfg, 3)

	require.Len(t, provider.calls, 3)
	// The first page has only the base system prompt; every later page gets
	// an additional system turn carrying the previous page's post-processed
	// markdown.
	require.Len(t, provider.systemTextsAt(0), 1)
	require.Len(t, provider.systemTextsAt(1), 2)
	require.Len(t, provider.systemTextsAt(2), 2)
	require.Contains(t, provider.systemTextsAt(1)[1], "page markdown")
}

func TestRunConcurrentProcessesAllPages(t *testing.T) {
	provider := &recordingProvider{}
	cfg, err := model.NewConversionConfigBuilder().
		ProviderHandle(provider).
		Concurrency(2).
		Build()
	require.NoError(t, err)

	results := Run(context.Background(), pagesChan(10), cfg, 10)

	require.Len(t, results, 10)
	seen := map[int]bool{}
	for _, r := range results {
		seen[r.PageNum] = true
	}
	require.Len(t, seen, 10)
}

func TestRunStreamEmitsOneResultPerPage(t *testing.T) {
	provider := &recordingProvider{}
	cfg, err := model.NewConversionConfigBuilder().
		ProviderHandle(provider).
		Concurrency(3).
		Build()
	require.NoError(t, err)

	stream := RunStream(context.Background(), pagesChan(5), cfg, 5)

	count := 0
	for range stream {
		count++
	}
	require.Equal(t, 5, count)
}

func TestRunReportsPageErrorsToProgressSink(t *testing.T) {
	provider := &failingProvider{}
	sink := &countingSink{}
	cfg, err := model.NewConversionConfigBuilder().
		ProviderHandle(provider).
		MaxRetries(0).
		RetryBackoffMS(1).
		ProgressSink(sink).
		Build()
	require.NoError(t, err)

	results := Run(context.Background(), pagesChan(2), cfg, 2)

	require.Len(t, results, 2)
	for _, r := range results {
		require.Error(t, r.Err)
	}
	require.Len(t, sink.errors, 2)
}

type failingProvider struct{}

func (failingProvider) Name() string { return "fake-fail" }
func (failingProvider) Chat(ctx context.Context, messages []model.Message, opts model.CompletionOptions) (model.CompletionResponse, error) {
	return model.CompletionResponse{}, context.Canceled
}
