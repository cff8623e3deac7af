package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/service"
	"neurogen-exam/backend/pkg/response"
)

// AnalyticsHandler 统计分析 HTTP 处理器
type AnalyticsHandler struct {
	analyticsSvc service.AnalyticsService
}

// NewAnalyticsHandler 创建 AnalyticsHandler
func NewAnalyticsHandler(analyticsSvc service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsSvc: analyticsSvc}
}

// ExamAnalytics 最近 N 天统计
// GET /api/exam-analytics?days=&department=
func (h *AnalyticsHandler) ExamAnalytics(c *gin.Context) {
	var req dto.ExamAnalyticsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	stats, err := h.analyticsSvc.WindowStats(c.Request.Context(), &req)
	if err != nil {
		h.handleAnalyticsError(c, err)
		return
	}

	response.OK(c, stats)
}

// DailyExamReport 每日测验报告
// GET /api/daily-exam-report?date=YYYY-MM-DD
func (h *AnalyticsHandler) DailyExamReport(c *gin.Context) {
	report, err := h.analyticsSvc.DailyReport(c.Request.Context(), c.Query("date"))
	if err != nil {
		h.handleAnalyticsError(c, err)
		return
	}

	response.OK(c, report)
}

// GenerateDailyReports 回填缺失的每日报告
// POST /api/generate-daily-reports
func (h *AnalyticsHandler) GenerateDailyReports(c *gin.Context) {
	result, err := h.analyticsSvc.BackfillDailyReports(c.Request.Context())
	if err != nil {
		h.handleAnalyticsError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *AnalyticsHandler) handleAnalyticsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate):
		respondCode(c, 26001, err)
	default:
		respondError(c, err)
	}
}
