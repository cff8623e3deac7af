package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/service"
	"neurogen-exam/backend/pkg/response"
)

// ExamHandler 考试模块 HTTP 处理器
type ExamHandler struct {
	examSvc service.ExamService
}

// NewExamHandler 创建 ExamHandler
func NewExamHandler(examSvc service.ExamService) *ExamHandler {
	return &ExamHandler{examSvc: examSvc}
}

// ListExams 获取考试列表
// GET /api/exams?status=&exam_type=
func (h *ExamHandler) ListExams(c *gin.Context) {
	var req dto.ExamListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	exams, err := h.examSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleExamError(c, err)
		return
	}

	response.OKList(c, exams, len(exams))
}

// GetExam 获取考试详情（含题目顺序）
// GET /api/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "考试")
	if !ok {
		return
	}

	exam, err := h.examSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleExamError(c, err)
		return
	}

	response.OK(c, exam)
}

// CreateExam 创建考试
// POST /api/exams
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req dto.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	exam, err := h.examSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleExamError(c, err)
		return
	}

	response.Created(c, exam)
}

// UpdateExam 更新考试
// PUT /api/exams/:id
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "考试")
	if !ok {
		return
	}

	var req dto.UpdateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	exam, err := h.examSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleExamError(c, err)
		return
	}

	response.OK(c, exam)
}

// DeleteExam 删除考试及其题目关联
// DELETE /api/exams/:id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "考试")
	if !ok {
		return
	}

	if err := h.examSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleExamError(c, err)
		return
	}

	response.OK(c, nil)
}

// ToggleExam 切换考试启用状态
// POST /api/exams/:id/toggle
func (h *ExamHandler) ToggleExam(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "考试")
	if !ok {
		return
	}

	result, err := h.examSvc.Toggle(c.Request.Context(), id)
	if err != nil {
		h.handleExamError(c, err)
		return
	}

	response.OK(c, result)
}

// GetExamPaper 获取作答试卷；sales=true 时不含答案与解析
// GET /api/exams/:id/questions?sales=
func (h *ExamHandler) GetExamPaper(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "考试")
	if !ok {
		return
	}

	paper, err := h.examSvc.Paper(c.Request.Context(), id, queryBool(c, "sales"))
	if err != nil {
		h.handleExamError(c, err)
		return
	}

	response.OK(c, paper)
}

// handleExamError 统一处理考试模块业务错误
func (h *ExamHandler) handleExamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		respondCode(c, 23001, err)
	case errors.Is(err, service.ErrExamTimeInvalid):
		respondCode(c, 23002, err)
	case errors.Is(err, service.ErrExamQuestionsRequired):
		respondCode(c, 23003, err)
	case errors.Is(err, service.ErrExamQuestionsMissing):
		respondCode(c, 23004, err)
	case errors.Is(err, service.ErrExamQuestionDuplicate):
		respondCode(c, 23005, err)
	case errors.Is(err, service.ErrExamNotStarted):
		respondCode(c, 23011, err)
	case errors.Is(err, service.ErrExamEnded):
		respondCode(c, 23012, err)
	case errors.Is(err, service.ErrExamDisabled):
		respondCode(c, 23013, err)
	default:
		respondError(c, err)
	}
}
