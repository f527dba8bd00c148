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

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAI("test-key", "gpt-4o", srv.URL)
}

func imgMessages() []model.Message {
	return []model.Message{
		{Role: model.RoleSystem, Text: "transcribe this page"},
		{Role: model.RoleUser, Images: []model.ImagePayload{{MIMEType: "image/png", Base64Data: "Zm9v"}}},
	}
}

func TestOpenAIChatSucceeds(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		var req openAIChatReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gpt-4o", req.Model)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAIChatResp{
			Choices: []struct {
				Message struct {
					Content string  `json:"content"`
					Refusal *string `json:"refusal"`
				} `json:"message"`
				FinishReason string `json:"finish_reason"`
			}{{Message: struct {
				Content string  `json:"content"`
				Refusal *string `json:"refusal"`
			}{Content: "# Heading\n\nbody"}, FinishReason: "stop"}},
		})
	})

	resp, err := c.Chat(context.Background(), imgMessages(), model.CompletionOptions{Temperature: 0.2})
	require.NoError(t, err)
	require.Equal(t, "# Heading\n\nbody", resp.Content)
}

func TestOpenAIChatAttachesImageAsDataURL(t *testing.T) {
	var captured openAIChatReq
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(openAIChatResp{Choices: []struct {
			Message struct {
				Content string  `json:"content"`
				Refusal *string `json:"refusal"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		}{{Message: struct {
			Content string  `json:"content"`
			Refusal *string `json:"refusal"`
		}{Content: "ok"}}}})
	})

	_, err := c.Chat(context.Background(), imgMessages(), model.CompletionOptions{})
	require.NoError(t, err)

	var found bool
	for _, msg := range captured.Messages {
		for _, part := range msg.Content {
			if part.ImageURL != nil {
				require.Equal(t, "data:image/png;base64,Zm9v", part.ImageURL.URL)
				found = true
			}
		}
	}
	require.True(t, found, "expected an image_url content part")
}

func TestOpenAIChatRejectsEmptyAPIKey(t *testing.T) {
	c := NewOpenAI("", "gpt-4o", "")
	_, err := c.Chat(context.Background(), imgMessages(), model.CompletionOptions{})
	require.Error(t, err)
	var authErr *model.AuthErrorError
	require.ErrorAs(t, err, &authErr)
}

func TestOpenAIChatClassifiesRateLimit(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Chat(context.Background(), imgMessages(), model.CompletionOptions{})
	var rateLimit *model.RateLimitExceededError
	require.ErrorAs(t, err, &rateLimit)
}

func TestOpenAIChatClassifiesAuthFailure(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.Chat(context.Background(), imgMessages(), model.CompletionOptions{})
	var authErr *model.AuthErrorError
	require.ErrorAs(t, err, &authErr)
}

func TestOpenAIChatClassifiesGenericAPIError(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.Chat(context.Background(), imgMessages(), model.CompletionOptions{})
	var apiErr *model.LlmApiErrorError
	require.ErrorAs(t, err, &apiErr)
}

func TestOpenAIChatDetectsExplicitRefusalField(t *testing.T) {
	refusal := "I cannot assist with this request"
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIChatResp{Choices: []struct {
			Message struct {
				Content string  `json:"content"`
				Refusal *string `json:"refusal"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		}{{Message: struct {
			Content string  `json:"content"`
			Refusal *string `json:"refusal"`
		}{Refusal: &refusal}}}})
	})
	_, err := c.Chat(context.Background(), imgMessages(), model.CompletionOptions{})
	var apiErr *model.LlmApiErrorError
	require.ErrorAs(t, err, &apiErr)
}

func TestOpenAIChatDetectsContentFilterFinishReason(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIChatResp{Choices: []struct {
			Message struct {
				Content string  `json:"content"`
				Refusal *string `json:"refusal"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		}{{FinishReason: "content_filter"}}})
	})
	_, err := c.Chat(context.Background(), imgMessages(), model.CompletionOptions{})
	var apiErr *model.LlmApiErrorError
	require.ErrorAs(t, err, &apiErr)
}

func TestOpenAIChatDetectsPhraseRefusalInContent(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIChatResp{Choices: []struct {
			Message struct {
				Content string  `json:"content"`
				Refusal *string `json:"refusal"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		}{{Message: struct {
			Content string  `json:"content"`
			Refusal *string `json:"refusal"`
		}{Content: "I'm unable to help with transcribing this document."}, FinishReason: "stop"}}})
	})
	_, err := c.Chat(context.Background(), imgMessages(), model.CompletionOptions{})
	var apiErr *model.LlmApiErrorError
	require.ErrorAs(t, err, &apiErr)
}
