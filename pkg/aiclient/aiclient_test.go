package aiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestUsesNativeFormat(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProviderConfig
		want bool
	}{
		{"qwen 原生端点", ProviderConfig{Provider: "qwen", URL: DefaultNativeURL}, true},
		{"qwen 兼容模式", ProviderConfig{Provider: "qwen", URL: "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"}, false},
		{"qwen chat/completions", ProviderConfig{Provider: "qwen", URL: "https://proxy.local/v1/chat/completions"}, false},
		{"其他供应商原生风格 URL", ProviderConfig{Provider: "openai", URL: "https://api.example.com/generate"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UsesNativeFormat(tt.cfg); got != tt.want {
				t.Errorf("期望 %v，实际 %v", tt.want, got)
			}
		})
	}
}

func TestSelect_AdapterKind(t *testing.T) {
	native := Select(ProviderConfig{Provider: "qwen", URL: DefaultNativeURL, Key: "k"}, nil)
	if native.Name() != "qwen-native" {
		t.Errorf("期望原生适配器，实际 %s", native.Name())
	}
	chat := Select(ProviderConfig{Provider: "deepseek", URL: "https://api.deepseek.com/v1", Key: "k"}, nil)
	if chat.Name() != "openai-compatible" {
		t.Errorf("期望兼容适配器，实际 %s", chat.Name())
	}
}

func TestChatBaseURL(t *testing.T) {
	tests := map[string]string{
		"https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions": "https://dashscope.aliyuncs.com/compatible-mode/v1",
		"https://api.openai.com/v1/":                                          "https://api.openai.com/v1",
		"https://api.openai.com/v1":                                           "https://api.openai.com/v1",
	}
	for in, want := range tests {
		if got := chatBaseURL(in); got != want {
			t.Errorf("chatBaseURL(%q) = %q，期望 %q", in, got, want)
		}
	}
}

// ── 原生格式 ──

func TestNativeAdapter_RequestShapeAndParse(t *testing.T) {
	var captured map[string]interface{}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":{"text":"分析报告"},"request_id":"x"}`))
	}))
	defer srv.Close()

	adapter := newNativeAdapter(ProviderConfig{Provider: "qwen", URL: srv.URL, Model: "qwen-turbo", Key: "secret"}, srv.Client())
	text, err := adapter.Complete(context.Background(), Request{Prompt: "你好", MaxTokens: 2000, Temperature: 0.7})
	if err != nil {
		t.Fatalf("Complete 应成功: %v", err)
	}
	if text != "分析报告" {
		t.Errorf("期望 output.text，实际 %q", text)
	}
	if auth != "Bearer secret" {
		t.Errorf("Authorization 头不正确: %q", auth)
	}

	input, ok := captured["input"].(map[string]interface{})
	if !ok {
		t.Fatalf("请求缺少 input: %v", captured)
	}
	msgs := input["messages"].([]interface{})
	if len(msgs) != 1 || msgs[0].(map[string]interface{})["content"] != "你好" {
		t.Errorf("messages 不正确: %v", msgs)
	}
	params := captured["parameters"].(map[string]interface{})
	if params["max_tokens"].(float64) != 2000 {
		t.Errorf("max_tokens 不正确: %v", params["max_tokens"])
	}
	if _, exists := captured["messages"]; exists {
		t.Error("原生格式不应在顶层携带 messages")
	}
}

func TestNativeAdapter_MissingOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	adapter := newNativeAdapter(ProviderConfig{Provider: "qwen", URL: srv.URL, Key: "k"}, srv.Client())
	_, err := adapter.Complete(context.Background(), Request{Prompt: "p"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("期望 ErrMalformedResponse，实际 %v", err)
	}
}

func TestNativeAdapter_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"InvalidApiKey"}`))
	}))
	defer srv.Close()

	adapter := newNativeAdapter(ProviderConfig{Provider: "qwen", URL: srv.URL, Key: "bad"}, srv.Client())
	_, err := adapter.Complete(context.Background(), Request{Prompt: "p"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("期望 StatusError，实际 %v", err)
	}
	if se.StatusCode != http.StatusUnauthorized || !strings.Contains(se.Body, "InvalidApiKey") {
		t.Errorf("StatusError 内容不正确: %+v", se)
	}
}

func TestNativeAdapter_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	adapter := newNativeAdapter(ProviderConfig{Provider: "qwen", URL: srv.URL, Key: "k"}, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := adapter.Complete(ctx, Request{Prompt: "p"})
	if !IsTimeout(err) {
		t.Errorf("期望超时错误，实际 %v", err)
	}
}

// ── OpenAI 兼容格式 ──

func TestChatAdapter_RequestShapeAndParse(t *testing.T) {
	var captured map[string]interface{}
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"qwen-turbo",
			"choices":[{"index":0,"message":{"role":"assistant","content":"兼容报告"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	adapter := newChatAdapter(ProviderConfig{Provider: "qwen", URL: srv.URL + "/compatible-mode/v1/chat/completions", Model: "qwen-turbo", Key: "k"}, srv.Client())
	text, err := adapter.Complete(context.Background(), Request{Prompt: "你好", MaxTokens: 1000, Temperature: 0.5})
	if err != nil {
		t.Fatalf("Complete 应成功: %v", err)
	}
	if text != "兼容报告" {
		t.Errorf("期望 choices[0].message.content，实际 %q", text)
	}
	if path != "/compatible-mode/v1/chat/completions" {
		t.Errorf("请求路径不正确: %s", path)
	}
	if _, ok := captured["messages"]; !ok {
		t.Errorf("兼容格式应在顶层携带 messages: %v", captured)
	}
	if captured["max_tokens"].(float64) != 1000 {
		t.Errorf("max_tokens 不正确: %v", captured["max_tokens"])
	}
}

func TestChatAdapter_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	adapter := newChatAdapter(ProviderConfig{Provider: "openai", URL: srv.URL + "/v1", Model: "m", Key: "k"}, srv.Client())
	_, err := adapter.Complete(context.Background(), Request{Prompt: "p"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("期望 ErrMalformedResponse，实际 %v", err)
	}
}

func TestChatAdapter_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	adapter := newChatAdapter(ProviderConfig{Provider: "openai", URL: srv.URL + "/v1", Model: "m", Key: "k"}, srv.Client())
	_, err := adapter.Complete(context.Background(), Request{Prompt: "p"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("期望 StatusError，实际 %v", err)
	}
	if se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("期望状态码 429，实际 %d", se.StatusCode)
	}
}

func TestProviderConfig_WithDefaults(t *testing.T) {
	cfg := ProviderConfig{Key: "k"}.WithDefaults()
	if cfg.Provider != DefaultProvider || cfg.URL != DefaultURL || cfg.Model != DefaultModel {
		t.Errorf("默认值未补齐: %+v", cfg)
	}
	if UsesNativeFormat(cfg) {
		t.Error("缺省 URL 应走 OpenAI 兼容格式")
	}
	if !cfg.Configured() {
		t.Error("存在密钥时应视为已配置")
	}
	if (ProviderConfig{Key: "  "}).Configured() {
		t.Error("空白密钥应视为未配置")
	}
}

func TestProviderConfig_WithDefaults_OtherProviderUsesChatURL(t *testing.T) {
	cfg := ProviderConfig{Provider: "deepseek", Model: "deepseek-chat", Key: "k"}.WithDefaults()
	if cfg.URL != DefaultURL {
		t.Errorf("期望缺省 URL=%s，实际=%s", DefaultURL, cfg.URL)
	}
	if name := Select(cfg, nil).Name(); name != "openai-compatible" {
		t.Errorf("期望兼容适配器，实际 %s", name)
	}
	if got := chatBaseURL(cfg.URL); strings.Contains(got, "text-generation") {
		t.Errorf("chat 适配器不应指向原生端点，实际=%s", got)
	}

	explicit := ProviderConfig{Provider: "qwen", URL: DefaultNativeURL, Key: "k"}.WithDefaults()
	if explicit.URL != DefaultNativeURL || !UsesNativeFormat(explicit) {
		t.Error("显式配置的原生端点应保留")
	}
}
