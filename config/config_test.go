package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("期望默认端口 8000，实际=%d", cfg.Server.Port)
	}
	if cfg.AI.InlineTimeout != 15*time.Second || cfg.AI.ManualTimeout != 30*time.Second {
		t.Errorf("超时默认值不符合预期: inline=%s manual=%s", cfg.AI.InlineTimeout, cfg.AI.ManualTimeout)
	}
	if cfg.AI.URL != "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions" {
		t.Errorf("默认 AI 地址应为兼容模式端点，实际=%q", cfg.AI.URL)
	}
	if cfg.AI.ConnTestMaxTokens != 50 {
		t.Errorf("期望连通性测试 max_tokens=50，实际=%d", cfg.AI.ConnTestMaxTokens)
	}
	if cfg.Cron.DailyReportSpec != "10 0 * * *" {
		t.Errorf("期望默认 cron 表达式，实际=%q", cfg.Cron.DailyReportSpec)
	}
	if !cfg.Report.PositionalFallback {
		t.Error("位置回退默认应开启")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("NEUROGEN_SERVER_PORT", "9001")
	t.Setenv("NEUROGEN_AI_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("环境变量应覆盖端口，实际=%d", cfg.Server.Port)
	}
	if cfg.AI.Key != "sk-test" {
		t.Errorf("环境变量应覆盖密钥，实际=%q", cfg.AI.Key)
	}
}

func TestLoad_InvalidWorkers(t *testing.T) {
	t.Setenv("NEUROGEN_REPORT_WORKERS", "0")

	if _, err := Load(""); err == nil {
		t.Fatal("report.workers=0 应校验失败")
	}
}
