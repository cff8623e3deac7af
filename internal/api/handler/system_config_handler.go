package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/service"
	"neurogen-exam/backend/pkg/response"
)

// SystemConfigHandler 系统配置 HTTP 处理器
type SystemConfigHandler struct {
	configSvc service.SystemConfigService
	reportSvc service.ReportService
}

// NewSystemConfigHandler 创建 SystemConfigHandler
func NewSystemConfigHandler(configSvc service.SystemConfigService, reportSvc service.ReportService) *SystemConfigHandler {
	return &SystemConfigHandler{configSvc: configSvc, reportSvc: reportSvc}
}

// GetMasterConfig 获取主配置（密钥脱敏）
// GET /api/master-config
func (h *SystemConfigHandler) GetMasterConfig(c *gin.Context) {
	cfg, err := h.configSvc.GetMasterConfig(c.Request.Context())
	if err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, cfg)
}

// UpdateMasterConfig 更新主配置
// PUT /api/master-config
func (h *SystemConfigHandler) UpdateMasterConfig(c *gin.Context) {
	var req dto.UpdateMasterConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	cfg, err := h.configSvc.UpdateMasterConfig(c.Request.Context(), &req)
	if err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, cfg)
}

// SaveAPIConfig 保存 AI 服务配置
// POST /api/api-config
func (h *SystemConfigHandler) SaveAPIConfig(c *gin.Context) {
	var req dto.SaveAPIConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.configSvc.SaveAPIConfig(c.Request.Context(), &req)
	if err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, result)
}

// TestAPIConnection 测试 AI 服务连通性；结果始终以 200 返回
// POST /api/test-api-connection
func (h *SystemConfigHandler) TestAPIConnection(c *gin.Context) {
	var req dto.TestAPIConnectionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	response.OK(c, h.reportSvc.TestConnection(c.Request.Context(), &req))
}

// GetConfigEntry 获取单个配置项
// GET /api/config/:key
func (h *SystemConfigHandler) GetConfigEntry(c *gin.Context) {
	entry, err := h.configSvc.GetEntry(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, entry)
}

// PutConfigEntry 写入单个配置项
// PUT /api/config/:key
func (h *SystemConfigHandler) PutConfigEntry(c *gin.Context) {
	var req dto.UpdateConfigEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	entry, err := h.configSvc.PutEntry(c.Request.Context(), c.Param("key"), &req)
	if err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, entry)
}

// GetDailyExamConfig 获取每日测验配置
// GET /api/daily-exam-config
func (h *SystemConfigHandler) GetDailyExamConfig(c *gin.Context) {
	cfg, err := h.configSvc.GetDailyExamConfig(c.Request.Context())
	if err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, cfg)
}

// SaveDailyExamConfig 保存每日测验配置
// POST /api/daily-exam-config
func (h *SystemConfigHandler) SaveDailyExamConfig(c *gin.Context) {
	var req dto.DailyExamConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.configSvc.SaveDailyExamConfig(c.Request.Context(), &req)
	if err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, result)
}

// SystemStatus 系统状态与统计
// GET /api/system-status
func (h *SystemConfigHandler) SystemStatus(c *gin.Context) {
	status, err := h.configSvc.Status(c.Request.Context())
	if err != nil {
		h.handleConfigError(c, err)
		return
	}

	response.OK(c, status)
}

// handleConfigError 统一处理系统配置业务错误
func (h *SystemConfigHandler) handleConfigError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrConfigNotFound):
		respondCode(c, 27001, err)
	case errors.Is(err, service.ErrConfigValueInvalid):
		respondCode(c, 27002, err)
	case errors.Is(err, service.ErrDailyExamTimeInvalid):
		respondCode(c, 27003, err)
	default:
		respondError(c, err)
	}
}
