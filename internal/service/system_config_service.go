package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"neurogen-exam/backend/config"
	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/model"
	"neurogen-exam/backend/internal/repository"
	"neurogen-exam/backend/pkg/aiclient"
	pkgerrors "neurogen-exam/backend/pkg/errors"
)

// ── 系统配置模块业务错误 ──

var (
	ErrConfigNotFound       = pkgerrors.New(pkgerrors.KindNotFound, "配置项不存在")
	ErrConfigValueInvalid   = pkgerrors.New(pkgerrors.KindValidation, "配置值与类型不匹配")
	ErrDailyExamTimeInvalid = pkgerrors.New(pkgerrors.KindValidation, "每日测验时间格式应为 HH:MM，且开始时间早于结束时间")
)

const (
	masterConfigVersion = 1
	keyMask             = "****"
	recentStatusDays    = 7
)

// defaultSystemInfo 未保存 system_info 时的默认值
func defaultSystemInfo() map[string]interface{} {
	return map[string]interface{}{
		"title":            "穆桥销售测验系统",
		"description":      "专业销售知识测评平台",
		"examDuration":     30,
		"questionsPerExam": 15,
		"passingScore":     60,
	}
}

// defaultDailyExamConfig 未保存 daily_exam_config 时的默认值
func defaultDailyExamConfig() dto.DailyExamConfig {
	return dto.DailyExamConfig{
		StartTime:       "08:00",
		EndTime:         "20:00",
		QuestionCount:   3,
		DurationMinutes: 10,
	}
}

// SystemConfigService 系统配置业务接口
type SystemConfigService interface {
	GetMasterConfig(ctx context.Context) (*dto.MasterConfigResponse, error)
	// UpdateMasterConfig 写回脱敏密钥时保留原密钥
	UpdateMasterConfig(ctx context.Context, req *dto.UpdateMasterConfigRequest) (*dto.MasterConfigResponse, error)
	SaveAPIConfig(ctx context.Context, req *dto.SaveAPIConfigRequest) (*dto.SavedResponse, error)

	GetEntry(ctx context.Context, key string) (*dto.ConfigEntryResponse, error)
	PutEntry(ctx context.Context, key string, req *dto.UpdateConfigEntryRequest) (*dto.ConfigEntryResponse, error)

	GetDailyExamConfig(ctx context.Context) (*dto.DailyExamConfigResponse, error)
	SaveDailyExamConfig(ctx context.Context, req *dto.DailyExamConfig) (*dto.SavedResponse, error)

	Status(ctx context.Context) (*dto.SystemStatusResponse, error)
}

type systemConfigService struct {
	cfg    *config.Config
	repo   *repository.Repository
	report ReportService
	logger *zap.Logger
	now    func() time.Time
}

// NewSystemConfigService 创建 SystemConfigService 实例
func NewSystemConfigService(cfg *config.Config, repo *repository.Repository, report ReportService, logger *zap.Logger) SystemConfigService {
	return &systemConfigService{cfg: cfg, repo: repo, report: report, logger: logger, now: time.Now}
}

// ────────────────────── GetMasterConfig ──────────────────────

func (s *systemConfigService) GetMasterConfig(ctx context.Context) (*dto.MasterConfigResponse, error) {
	lastUpdate := time.Time{}

	api, apiEntry, err := s.storedAPIConfig(ctx, s.repo)
	if err != nil {
		return nil, err
	}
	if apiEntry == nil {
		api = aiclient.ProviderConfig{
			Provider: s.cfg.AI.Provider,
			URL:      s.cfg.AI.URL,
			Model:    s.cfg.AI.Model,
			Key:      s.cfg.AI.Key,
		}.WithDefaults()
	} else if apiEntry.UpdatedAt.After(lastUpdate) {
		lastUpdate = apiEntry.UpdatedAt
	}

	info := defaultSystemInfo()
	infoEntry, err := s.repo.SystemConfig.Get(ctx, model.ConfigKeySystemInfo)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if infoEntry != nil {
		var stored map[string]interface{}
		if err := json.Unmarshal([]byte(infoEntry.Value), &stored); err != nil {
			s.logger.Warn("system_info 解析失败，使用默认值", zap.Error(err))
		}
		for k, v := range stored {
			info[k] = v
		}
		if infoEntry.UpdatedAt.After(lastUpdate) {
			lastUpdate = infoEntry.UpdatedAt
		}
	}
	if lastUpdate.IsZero() {
		lastUpdate = s.now()
	}

	return &dto.MasterConfigResponse{
		Version:    masterConfigVersion,
		LastUpdate: lastUpdate.Format(dto.TimeLayout),
		APIConfig: dto.APIConfig{
			Provider: api.Provider,
			URL:      api.URL,
			Model:    api.Model,
			Key:      maskKey(api.Key),
			Enabled:  api.Configured(),
		},
		SystemInfo: info,
		Permissions: map[string]bool{
			"allowAdminEdit":    true,
			"allowApiEdit":      true,
			"allowQuestionEdit": true,
		},
	}, nil
}

// ────────────────────── UpdateMasterConfig ──────────────────────

func (s *systemConfigService) UpdateMasterConfig(ctx context.Context, req *dto.UpdateMasterConfigRequest) (*dto.MasterConfigResponse, error) {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if req.APIConfig != nil {
			if err := s.writeAPIConfig(ctx, tx, req.APIConfig); err != nil {
				return err
			}
		}
		if req.SystemInfo != nil {
			raw, err := json.Marshal(req.SystemInfo)
			if err != nil {
				return err
			}
			if err := tx.SystemConfig.Upsert(ctx, &model.SystemConfig{
				Key:         model.ConfigKeySystemInfo,
				Value:       string(raw),
				Description: "系统信息",
				ConfigType:  model.ConfigTypeJSON,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("更新主配置失败", zap.Error(err))
		return nil, err
	}

	return s.GetMasterConfig(ctx)
}

// ────────────────────── SaveAPIConfig ──────────────────────

func (s *systemConfigService) SaveAPIConfig(ctx context.Context, req *dto.SaveAPIConfigRequest) (*dto.SavedResponse, error) {
	if err := s.writeAPIConfig(ctx, s.repo, req); err != nil {
		s.logger.Error("保存API配置失败", zap.Error(err))
		return nil, err
	}
	return &dto.SavedResponse{
		Success:   true,
		Message:   "API配置保存成功",
		UpdatedAt: s.now().Format(dto.TimeLayout),
	}, nil
}

// writeAPIConfig 密钥为脱敏值或为空时沿用已保存的密钥
func (s *systemConfigService) writeAPIConfig(ctx context.Context, repo *repository.Repository, req *dto.SaveAPIConfigRequest) error {
	next := aiclient.ProviderConfig{
		Provider: req.Provider,
		URL:      req.URL,
		Model:    req.Model,
		Key:      strings.TrimSpace(req.Key),
	}
	if next.Key == "" || strings.Contains(next.Key, keyMask) {
		current, entry, err := s.storedAPIConfig(ctx, repo)
		if err != nil {
			return err
		}
		if entry != nil {
			next.Key = current.Key
		} else {
			next.Key = s.cfg.AI.Key
		}
	}
	next = next.WithDefaults()

	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	return repo.SystemConfig.Upsert(ctx, &model.SystemConfig{
		Key:         model.ConfigKeyAPI,
		Value:       string(raw),
		Description: "AI 服务配置",
		ConfigType:  model.ConfigTypeJSON,
	})
}

func (s *systemConfigService) storedAPIConfig(ctx context.Context, repo *repository.Repository) (aiclient.ProviderConfig, *model.SystemConfig, error) {
	var pc aiclient.ProviderConfig
	entry, err := repo.SystemConfig.Get(ctx, model.ConfigKeyAPI)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pc, nil, nil
		}
		return pc, nil, err
	}
	if err := json.Unmarshal([]byte(entry.Value), &pc); err != nil {
		s.logger.Warn("api_config 解析失败", zap.Error(err))
	}
	return pc.WithDefaults(), entry, nil
}

// ────────────────────── GetEntry / PutEntry ──────────────────────

func (s *systemConfigService) GetEntry(ctx context.Context, key string) (*dto.ConfigEntryResponse, error) {
	entry, err := s.repo.SystemConfig.Get(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		s.logger.Error("查询配置失败", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	resp := toConfigEntryResponse(entry)
	if key == model.ConfigKeyAPI {
		var pc aiclient.ProviderConfig
		if err := json.Unmarshal([]byte(entry.Value), &pc); err == nil {
			pc.Key = maskKey(pc.Key)
			if raw, err := json.Marshal(pc); err == nil {
				resp.Value = string(raw)
			}
		}
	}
	return resp, nil
}

func (s *systemConfigService) PutEntry(ctx context.Context, key string, req *dto.UpdateConfigEntryRequest) (*dto.ConfigEntryResponse, error) {
	entry, err := s.repo.SystemConfig.Get(ctx, key)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if entry == nil {
		entry = &model.SystemConfig{Key: key, ConfigType: model.ConfigTypeString}
	}

	entry.Value = req.Value
	if req.Description != nil {
		entry.Description = *req.Description
	}
	if req.ConfigType != nil {
		entry.ConfigType = *req.ConfigType
	}
	if entry.ConfigType == model.ConfigTypeJSON && !json.Valid([]byte(entry.Value)) {
		return nil, ErrConfigValueInvalid
	}

	if err := s.repo.SystemConfig.Upsert(ctx, entry); err != nil {
		s.logger.Error("更新配置失败", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	entry.UpdatedAt = s.now()
	return toConfigEntryResponse(entry), nil
}

// ────────────────────── DailyExamConfig ──────────────────────

func (s *systemConfigService) GetDailyExamConfig(ctx context.Context) (*dto.DailyExamConfigResponse, error) {
	entry, err := s.repo.SystemConfig.Get(ctx, model.ConfigKeyDailyExam)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.DailyExamConfigResponse{Config: defaultDailyExamConfig(), IsDefault: true}, nil
		}
		return nil, err
	}

	cfg := defaultDailyExamConfig()
	if err := json.Unmarshal([]byte(entry.Value), &cfg); err != nil {
		s.logger.Warn("daily_exam_config 解析失败，使用默认值", zap.Error(err))
		return &dto.DailyExamConfigResponse{Config: defaultDailyExamConfig(), IsDefault: true}, nil
	}
	updated := entry.UpdatedAt.Format(dto.TimeLayout)
	return &dto.DailyExamConfigResponse{Config: cfg, UpdatedAt: &updated}, nil
}

func (s *systemConfigService) SaveDailyExamConfig(ctx context.Context, req *dto.DailyExamConfig) (*dto.SavedResponse, error) {
	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return nil, ErrDailyExamTimeInvalid
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil || !start.Before(end) {
		return nil, ErrDailyExamTimeInvalid
	}

	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SystemConfig.Upsert(ctx, &model.SystemConfig{
		Key:         model.ConfigKeyDailyExam,
		Value:       string(raw),
		Description: "每日测验配置",
		ConfigType:  model.ConfigTypeJSON,
	}); err != nil {
		s.logger.Error("保存每日测验配置失败", zap.Error(err))
		return nil, err
	}

	return &dto.SavedResponse{
		Success:   true,
		Message:   "每日测验配置保存成功",
		UpdatedAt: s.now().Format(dto.TimeLayout),
	}, nil
}

// ────────────────────── Status ──────────────────────

func (s *systemConfigService) Status(ctx context.Context) (*dto.SystemStatusResponse, error) {
	resp := &dto.SystemStatusResponse{
		Status:     "running",
		Database:   "connected",
		ServerTime: s.now().Format(dto.TimeLayout),
	}

	if err := s.repo.Ping(ctx); err != nil {
		s.logger.Warn("数据库不可用", zap.Error(err))
		resp.Status = "degraded"
		resp.Database = "disconnected"
		return resp, nil
	}

	if provider, err := s.report.ResolveProvider(ctx); err == nil {
		resp.APIConfigured = provider.Configured()
	}

	var err error
	if resp.Statistics.TotalQuestions, err = s.repo.Question.Count(ctx, nil); err != nil {
		return nil, err
	}
	if resp.Statistics.TotalExams, err = s.repo.ExamRecord.Count(ctx, repository.ExamRecordFilter{}); err != nil {
		return nil, err
	}
	since := s.now().AddDate(0, 0, -recentStatusDays)
	if resp.Statistics.RecentExams, err = s.repo.ExamRecord.Count(ctx, repository.ExamRecordFilter{From: &since}); err != nil {
		return nil, err
	}
	return resp, nil
}

// ── 内部方法 ──

// maskKey 保留首尾各 4 位
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return keyMask
	}
	return key[:4] + keyMask + key[len(key)-4:]
}

func toConfigEntryResponse(e *model.SystemConfig) *dto.ConfigEntryResponse {
	return &dto.ConfigEntryResponse{
		Key:         e.Key,
		Value:       e.Value,
		Description: e.Description,
		ConfigType:  e.ConfigType,
		UpdatedAt:   e.UpdatedAt.Format(dto.TimeLayout),
	}
}
