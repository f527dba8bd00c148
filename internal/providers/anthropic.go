package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/local/pdf2md/internal/model"
)

// Anthropic calls the Messages API. System turns are collected separately
// from the user turn, since Anthropic's wire format carries system as one
// top-level string rather than a message with role "system".
type Anthropic struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

func NewAnthropic(apiKey, modelName, baseURL string) *Anthropic {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1/messages"
	}
	return &Anthropic{http: &http.Client{}, apiKey: apiKey, model: modelName, baseURL: baseURL}
}

func (c *Anthropic) Name() string { return "anthropic" }

type anthropicContent struct {
	Type   string                 `json:"type"`
	Text   string                 `json:"text,omitempty"`
	Source map[string]interface{} `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicMsgReq struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMsgResp struct {
	Content []struct {
		Text string `json:"text"`
		Type string `json:"type"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *Anthropic) Chat(ctx context.Context, messages []model.Message, opts model.CompletionOptions) (model.CompletionResponse, error) {
	if c.apiKey == "" {
		return model.CompletionResponse{}, &model.AuthErrorError{Provider: c.Name()}
	}

	var system string
	var turns []anthropicMessage

	for _, m := range messages {
		if m.Role == model.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Text
			continue
		}

		var content []anthropicContent
		for _, img := range m.Images {
			content = append(content, anthropicContent{
				Type: "image",
				Source: map[string]interface{}{
					"type":       "base64",
					"media_type": img.MIMEType,
					"data":       img.Base64Data,
				},
			})
		}
		if m.Text != "" || len(m.Images) == 0 {
			content = append(content, anthropicContent{Type: "text", Text: m.Text})
		}
		turns = append(turns, anthropicMessage{Role: "user", Content: content})
	}

	payload := anthropicMsgReq{
		Model:       c.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		System:      system,
		Messages:    turns,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return model.CompletionResponse{}, &model.InternalError{Detail: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return model.CompletionResponse{}, &model.InternalError{Detail: err.Error()}
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
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

	var r anthropicMsgResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return model.CompletionResponse{}, &model.LlmApiErrorError{Provider: c.Name(), Detail: err.Error()}
	}
	if len(r.Content) == 0 {
		return model.CompletionResponse{}, &model.LlmApiErrorError{Provider: c.Name(), Detail: "no content returned"}
	}

	text := r.Content[0].Text
	if r.Content[0].Type == "refusal" {
		return model.CompletionResponse{}, &model.LlmApiErrorError{Provider: c.Name(), Detail: "refused: " + text}
	}
	if looksLikeRefusal(text) {
		return model.CompletionResponse{}, &model.LlmApiErrorError{Provider: c.Name(), Detail: "detected refusal pattern in response"}
	}

	return model.CompletionResponse{
		Content:          text,
		PromptTokens:     r.Usage.InputTokens,
		CompletionTokens: r.Usage.OutputTokens,
	}, nil
}
