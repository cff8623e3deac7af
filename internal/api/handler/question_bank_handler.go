package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/service"
	"neurogen-exam/backend/pkg/response"
)

// QuestionBankHandler 题库与当前选择 HTTP 处理器
type QuestionBankHandler struct {
	bankSvc      service.QuestionBankService
	selectionSvc service.SelectionService
}

// NewQuestionBankHandler 创建 QuestionBankHandler
func NewQuestionBankHandler(bankSvc service.QuestionBankService, selectionSvc service.SelectionService) *QuestionBankHandler {
	return &QuestionBankHandler{bankSvc: bankSvc, selectionSvc: selectionSvc}
}

// ListBanks 获取题库列表
// GET /api/question-banks?team_id=
func (h *QuestionBankHandler) ListBanks(c *gin.Context) {
	var req dto.QuestionBankListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	banks, err := h.bankSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleBankError(c, err)
		return
	}

	response.OKList(c, banks, len(banks))
}

// GetBank 获取题库详情
// GET /api/question-banks/:id
func (h *QuestionBankHandler) GetBank(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "题库")
	if !ok {
		return
	}

	bank, err := h.bankSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleBankError(c, err)
		return
	}

	response.OK(c, bank)
}

// CreateBank 创建题库
// POST /api/question-banks
func (h *QuestionBankHandler) CreateBank(c *gin.Context) {
	var req dto.CreateQuestionBankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	bank, err := h.bankSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleBankError(c, err)
		return
	}

	response.Created(c, bank)
}

// UpdateBank 更新题库
// PUT /api/question-banks/:id
func (h *QuestionBankHandler) UpdateBank(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "题库")
	if !ok {
		return
	}

	var req dto.UpdateQuestionBankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	bank, err := h.bankSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleBankError(c, err)
		return
	}

	response.OK(c, bank)
}

// DeleteBank 删除题库（软删除）
// DELETE /api/question-banks/:id
func (h *QuestionBankHandler) DeleteBank(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "题库")
	if !ok {
		return
	}

	if err := h.bankSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleBankError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListBankQuestions 获取题库内题目
// GET /api/question-banks/:id/questions
func (h *QuestionBankHandler) ListBankQuestions(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "题库")
	if !ok {
		return
	}

	questions, err := h.bankSvc.ListQuestions(c.Request.Context(), id)
	if err != nil {
		h.handleBankError(c, err)
		return
	}

	response.OKList(c, questions, len(questions))
}

// CopyQuestion 复制题目到题库
// POST /api/question-banks/:id/questions
func (h *QuestionBankHandler) CopyQuestion(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "题库")
	if !ok {
		return
	}

	var req dto.CopyQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	question, err := h.bankSvc.CopyQuestion(c.Request.Context(), id, &req)
	if err != nil {
		h.handleBankError(c, err)
		return
	}

	response.Created(c, question)
}

// ────── 当前选择 ──────

// GetCurrentConfig 获取当前团队与题库
// GET /api/current-config
func (h *QuestionBankHandler) GetCurrentConfig(c *gin.Context) {
	current, err := h.selectionSvc.Current(c.Request.Context())
	if err != nil {
		h.handleBankError(c, err)
		return
	}

	response.OK(c, current)
}

// SetCurrentBank 切换当前题库
// POST /api/set-current-bank
func (h *QuestionBankHandler) SetCurrentBank(c *gin.Context) {
	var req dto.SetCurrentBankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	current, err := h.selectionSvc.SetCurrentBank(c.Request.Context(), &req)
	if err != nil {
		h.handleBankError(c, err)
		return
	}

	response.OK(c, current)
}

// handleBankError 统一处理题库模块业务错误
func (h *QuestionBankHandler) handleBankError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBankNotFound):
		respondCode(c, 21001, err)
	case errors.Is(err, service.ErrBankNameExists):
		respondCode(c, 21002, err)
	case errors.Is(err, service.ErrBankProtected):
		respondCode(c, 21003, err)
	case errors.Is(err, service.ErrBankHasQuestions):
		respondCode(c, 21004, err)
	case errors.Is(err, service.ErrQuestionAlreadyInBank):
		respondCode(c, 21005, err)
	case errors.Is(err, service.ErrBankNotInTeam):
		respondCode(c, 21006, err)
	case errors.Is(err, service.ErrTeamNotFound):
		respondCode(c, 20001, err)
	case errors.Is(err, service.ErrQuestionNotFound):
		respondCode(c, 22001, err)
	default:
		respondError(c, err)
	}
}
