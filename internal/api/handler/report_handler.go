package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/service"
	"neurogen-exam/backend/pkg/response"
)

// ReportHandler AI 报告 HTTP 处理器
type ReportHandler struct {
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// GenerateReport 手动生成 AI 报告
// 供应商失败时仍返回 200，data 为 {success:false, error}
// POST /api/generate-ai-report
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.reportSvc.GenerateExplicit(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecordNotFound):
			respondCode(c, 24001, err)
		default:
			respondError(c, err)
		}
		return
	}

	response.OK(c, result)
}
