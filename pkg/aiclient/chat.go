package aiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// chatAdapter OpenAI 兼容格式：messages → choices[0].message.content
type chatAdapter struct {
	model string
	api   *openai.Client
}

func newChatAdapter(cfg ProviderConfig, httpClient *http.Client) *chatAdapter {
	config := openai.DefaultConfig(cfg.Key)
	config.BaseURL = chatBaseURL(cfg.URL)
	config.HTTPClient = httpClient
	return &chatAdapter{
		model: cfg.Model,
		api:   openai.NewClientWithConfig(config),
	}
}

// chatBaseURL 客户端会自行拼接 /chat/completions，配置中的完整端点需去掉该后缀
func chatBaseURL(url string) string {
	url = strings.TrimRight(url, "/")
	return strings.TrimSuffix(url, "/chat/completions")
}

func (a *chatAdapter) Name() string { return "openai-compatible" }

func (a *chatAdapter) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := a.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
			return "", &StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
			return "", &StatusError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrMalformedResponse
	}
	return resp.Choices[0].Message.Content, nil
}
