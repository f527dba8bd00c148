package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/local/pdf2md/internal/model"
)

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) *Anthropic {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAnthropic("test-key", "claude-3-5-sonnet", srv.URL)
}

func anthropicMessages() []model.Message {
	return []model.Message{
		{Role: model.RoleSystem, Text: "transcribe this page"},
		{Role: model.RoleUser, Images: []model.ImagePayload{{MIMEType: "image/png", Base64Data: "Zm9v"}}},
	}
}

func TestAnthropicChatSucceeds(t *testing.T) {
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		var req anthropicMsgReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "transcribe this page", req.System)

		json.NewEncoder(w).Encode(anthropicMsgResp{
			Content: []struct {
				Text string `json:"text"`
				Type string `json:"type"`
			}{{Text: "# Heading\n\nbody", Type: "text"}},
		})
	})

	resp, err := c.Chat(context.Background(), anthropicMessages(), model.CompletionOptions{})
	require.NoError(t, err)
	require.Equal(t, "# Heading\n\nbody", resp.Content)
}

func TestAnthropicChatCollapsesSystemTurnsIntoOneString(t *testing.T) {
	var captured anthropicMsgReq
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(anthropicMsgResp{Content: []struct {
			Text string `json:"text"`
			Type string `json:"type"`
		}{{Text: "ok"}}})
	})

	messages := []model.Message{
		{Role: model.RoleSystem, Text: "first instruction"},
		{Role: model.RoleSystem, Text: "second instruction"},
		{Role: model.RoleUser, Text: "go"},
	}
	_, err := c.Chat(context.Background(), messages, model.CompletionOptions{})
	require.NoError(t, err)
	require.Equal(t, "first instruction\n\nsecond instruction", captured.System)
	require.Len(t, captured.Messages, 1)
}

func TestAnthropicChatRejectsEmptyAPIKey(t *testing.T) {
	c := NewAnthropic("", "claude-3-5-sonnet", "")
	_, err := c.Chat(context.Background(), anthropicMessages(), model.CompletionOptions{})
	var authErr *model.AuthErrorError
	require.ErrorAs(t, err, &authErr)
}

func TestAnthropicChatClassifiesRateLimit(t *testing.T) {
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Chat(context.Background(), anthropicMessages(), model.CompletionOptions{})
	var rateLimit *model.RateLimitExceededError
	require.ErrorAs(t, err, &rateLimit)
}

func TestAnthropicChatClassifiesAuthFailure(t *testing.T) {
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := c.Chat(context.Background(), anthropicMessages(), model.CompletionOptions{})
	var authErr *model.AuthErrorError
	require.ErrorAs(t, err, &authErr)
}

func TestAnthropicChatDetectsRefusalType(t *testing.T) {
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(anthropicMsgResp{Content: []struct {
			Text string `json:"text"`
			Type string `json:"type"`
		}{{Text: "cannot comply", Type: "refusal"}}})
	})
	_, err := c.Chat(context.Background(), anthropicMessages(), model.CompletionOptions{})
	var apiErr *model.LlmApiErrorError
	require.ErrorAs(t, err, &apiErr)
}

func TestAnthropicChatDetectsPhraseRefusalInContent(t *testing.T) {
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(anthropicMsgResp{Content: []struct {
			Text string `json:"text"`
			Type string `json:"type"`
		}{{Text: "I must decline to transcribe this page.", Type: "text"}}})
	})
	_, err := c.Chat(context.Background(), anthropicMessages(), model.CompletionOptions{})
	var apiErr *model.LlmApiErrorError
	require.ErrorAs(t, err, &apiErr)
}

func TestAnthropicChatRejectsEmptyContent(t *testing.T) {
	c := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(anthropicMsgResp{})
	})
	_, err := c.Chat(context.Background(), anthropicMessages(), model.CompletionOptions{})
	var apiErr *model.LlmApiErrorError
	require.ErrorAs(t, err, &apiErr)
}
