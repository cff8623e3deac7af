package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/service"
	"neurogen-exam/backend/pkg/response"
)

// ExamRecordHandler 考试记录 HTTP 处理器
type ExamRecordHandler struct {
	recordSvc service.ExamRecordService
}

// NewExamRecordHandler 创建 ExamRecordHandler
func NewExamRecordHandler(recordSvc service.ExamRecordService) *ExamRecordHandler {
	return &ExamRecordHandler{recordSvc: recordSvc}
}

// SubmitRecord 提交考试记录；同一 id 重复提交为就地更新
// POST /api/exam-records
func (h *ExamRecordHandler) SubmitRecord(c *gin.Context) {
	var req dto.SubmitExamRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.recordSvc.Upsert(c.Request.Context(), &req)
	if err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.OK(c, result)
}

// ListRecords 获取考试记录（按提交时间倒序）
// GET /api/exam-records?user_name=&department=&limit=
func (h *ExamRecordHandler) ListRecords(c *gin.Context) {
	var req dto.ExamRecordListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	records, err := h.recordSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.OKList(c, records, len(records))
}

// GetRecord 获取考试记录详情
// GET /api/exam-records/:id
func (h *ExamRecordHandler) GetRecord(c *gin.Context) {
	record, err := h.recordSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.OK(c, record)
}

// DeleteRecord 删除考试记录
// DELETE /api/exam-records/:id
func (h *ExamRecordHandler) DeleteRecord(c *gin.Context) {
	if err := h.recordSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleRecordError 统一处理考试记录业务错误
func (h *ExamRecordHandler) handleRecordError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRecordNotFound):
		respondCode(c, 24001, err)
	case errors.Is(err, service.ErrRecordFieldsMissing):
		respondCode(c, 24002, err)
	case errors.Is(err, service.ErrRecordInvalidJSON):
		respondCode(c, 24003, err)
	case errors.Is(err, service.ErrTeamNotFound):
		respondCode(c, 20001, err)
	case errors.Is(err, service.ErrBankNotFound):
		respondCode(c, 21001, err)
	default:
		respondError(c, err)
	}
}
