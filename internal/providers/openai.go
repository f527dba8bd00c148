package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/local/pdf2md/internal/model"
)

// OpenAI calls the OpenAI-compatible chat-completions endpoint. Vision
// content is attached as a data: URL rather than an uploaded file, matching
// how the rest of the pipeline already carries images as base64 payloads.
type OpenAI struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewOpenAI builds a client for modelName using apiKey. baseURL overrides
// the default endpoint for OpenAI-compatible gateways; pass "" for the
// public API.
func NewOpenAI(apiKey, modelName, baseURL string) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1/chat/completions"
	}
	return &OpenAI{http: &http.Client{}, apiKey: apiKey, model: modelName, baseURL: baseURL}
}

func (c *OpenAI) Name() string { return "openai" }

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIMessage struct {
	Role    string              `json:"role"`
	Content []openAIContentPart `json:"content"`
}

type openAIChatReq struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIChatResp struct {
	Choices []struct {
		Message struct {
			Content string  `json:"content"`
			Refusal *string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *OpenAI) Chat(ctx context.Context, messages []model.Message, opts model.CompletionOptions) (model.CompletionResponse, error) {
	if c.apiKey == "" {
		return model.CompletionResponse{}, &model.AuthErrorError{Provider: c.Name()}
	}

	reqMessages := make([]openAIMessage, 0, len(messages))
	for _, m := range messages {
		parts := make([]openAIContentPart, 0, len(m.Images)+1)
		for _, img := range m.Images {
			parts = append(parts, openAIContentPart{
				Type: "image_url",
				ImageURL: &openAIImageURL{
					URL:    fmt.Sprintf("data:%s;base64,%s", img.MIMEType, img.Base64Data),
					Detail: img.Detail,
				},
			})
		}
		if m.Text != "" || len(m.Images) == 0 {
			parts = append(parts, openAIContentPart{Type: "text", Text: m.Text})
		}
		reqMessages = append(reqMessages, openAIMessage{Role: string(m.Role), Content: parts})
	}

	payload := openAIChatReq{
		Model:       c.model,
		Messages:    reqMessages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return model.CompletionResponse{}, &model.InternalError{Detail: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return model.CompletionResponse{}, &model.InternalError{Detail: err.Error()}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return model.CompletionResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return model.CompletionResponse{}, &model.RateLimitExceededError{Provider: c.Name()}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return model.CompletionResponse{}, &model.AuthErrorError{Provider: c.Name()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.CompletionResponse{}, &model.LlmApiErrorError{Provider: c.Name(), Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var r openAIChatResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return model.CompletionResponse{}, &model.LlmApiErrorError{Provider: c.Name(), Detail: err.Error()}
	}
	if len(r.Choices) == 0 {
		return model.CompletionResponse{}, &model.LlmApiErrorError{Provider: c.Name(), Detail: "no choices returned"}
	}

	choice := r.Choices[0]
	if choice.Message.Refusal != nil && *choice.Message.Refusal != "" {
		return model.CompletionResponse{}, &model.LlmApiErrorError{Provider: c.Name(), Detail: "refused: " + *choice.Message.Refusal}
	}
	if choice.FinishReason == "content_filter" {
		return model.CompletionResponse{}, &model.LlmApiErrorError{Provider: c.Name(), Detail: "content filtered"}
	}
	if looksLikeRefusal(choice.Message.Content) {
		return model.CompletionResponse{}, &model.LlmApiErrorError{Provider: c.Name(), Detail: "detected refusal pattern in response"}
	}

	return model.CompletionResponse{
		Content:          choice.Message.Content,
		PromptTokens:     r.Usage.PromptTokens,
		CompletionTokens: r.Usage.CompletionTokens,
	}, nil
}
