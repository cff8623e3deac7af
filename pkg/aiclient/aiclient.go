// Package aiclient 封装大模型调用。
//
// 供应商存在两种互不兼容的请求格式：OpenAI 兼容的 chat completions，
// 以及通义千问原生的 text-generation。Select 根据配置一次性选出适配器，
// 调用方只面对 Adapter 接口。
package aiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ProviderQwen 通义千问
const ProviderQwen = "qwen"

// 默认值；缺省 URL 为 OpenAI 兼容端点，原生端点需显式配置
const (
	DefaultProvider  = ProviderQwen
	DefaultModel     = "qwen-turbo"
	DefaultURL       = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	DefaultNativeURL = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"
)

// ProviderConfig 生效的 AI 服务配置
type ProviderConfig struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
	Model    string `json:"model"`
	Key      string `json:"key"`
}

// Configured 是否配置了密钥
func (c ProviderConfig) Configured() bool {
	return strings.TrimSpace(c.Key) != ""
}

// WithDefaults 补齐缺省的 provider/url/model
func (c ProviderConfig) WithDefaults() ProviderConfig {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	return c
}

// Request 单轮补全请求
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Adapter 供应商适配器：负责构造请求与解析响应
type Adapter interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrMalformedResponse 响应结构不符合预期
var ErrMalformedResponse = errors.New("AI 服务响应格式异常")

// StatusError 供应商返回非 2xx
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API调用失败: %d - %s", e.StatusCode, e.Body)
}

// UsesNativeFormat 仅当 provider 为 qwen 且 URL 不含 compatible-mode、chat/completions 时
// 使用原生格式，其余一律按 OpenAI 兼容格式处理
func UsesNativeFormat(cfg ProviderConfig) bool {
	if cfg.Provider != ProviderQwen {
		return false
	}
	return !strings.Contains(cfg.URL, "compatible-mode") &&
		!strings.Contains(cfg.URL, "chat/completions")
}

// Select 根据配置选择适配器；httpClient 为 nil 时使用默认客户端
func Select(cfg ProviderConfig, httpClient *http.Client) Adapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if UsesNativeFormat(cfg) {
		return newNativeAdapter(cfg, httpClient)
	}
	return newChatAdapter(cfg, httpClient)
}

// IsTimeout 判断错误是否由超时引起
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
