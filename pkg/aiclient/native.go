package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// nativeAdapter 通义千问原生格式：
// {model, input:{messages}, parameters:{max_tokens, temperature}} → output.text
type nativeAdapter struct {
	cfg        ProviderConfig
	httpClient *http.Client
}

func newNativeAdapter(cfg ProviderConfig, httpClient *http.Client) *nativeAdapter {
	return &nativeAdapter{cfg: cfg, httpClient: httpClient}
}

type nativeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type nativeRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []nativeMessage `json:"messages"`
	} `json:"input"`
	Parameters struct {
		MaxTokens   int     `json:"max_tokens"`
		Temperature float32 `json:"temperature"`
	} `json:"parameters"`
}

type nativeResponse struct {
	Output *struct {
		Text *string `json:"text"`
	} `json:"output"`
}

// maxErrorBody 非 2xx 时保留的响应体长度
const maxErrorBody = 512

func (a *nativeAdapter) Name() string { return "qwen-native" }

func (a *nativeAdapter) Complete(ctx context.Context, req Request) (string, error) {
	var payload nativeRequest
	payload.Model = a.cfg.Model
	payload.Input.Messages = []nativeMessage{{Role: "user", Content: req.Prompt}}
	payload.Parameters.MaxTokens = req.MaxTokens
	payload.Parameters.Temperature = req.Temperature

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("编码请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("构造请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.Key)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("native completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out nativeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.Output == nil || out.Output.Text == nil {
		return "", ErrMalformedResponse
	}
	return *out.Output.Text, nil
}
