package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/service"
	"neurogen-exam/backend/pkg/response"
)

// maxRandomCount 单次随机抽题上限
const maxRandomCount = 200

// QuestionHandler 题目模块 HTTP 处理器
type QuestionHandler struct {
	questionSvc service.QuestionService
}

// NewQuestionHandler 创建 QuestionHandler
func NewQuestionHandler(questionSvc service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionSvc: questionSvc}
}

// ListQuestions 获取题目列表；bank_id 缺省时为当前题库
// GET /api/questions
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	var req dto.QuestionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	questions, err := h.questionSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OKList(c, questions, len(questions))
}

// GetQuestion 获取题目详情
// GET /api/questions/:id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "题目")
	if !ok {
		return
	}

	question, err := h.questionSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, question)
}

// CreateQuestion 创建题目
// POST /api/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req dto.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	question, err := h.questionSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.Created(c, question)
}

// UpdateQuestion 更新题目
// PUT /api/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "题目")
	if !ok {
		return
	}

	var req dto.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	question, err := h.questionSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, question)
}

// DeleteQuestion 删除题目
// DELETE /api/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := parseUintParam(c, "id", "题目")
	if !ok {
		return
	}

	if err := h.questionSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, nil)
}

// RandomQuestions 从当前题库随机抽题
// GET /api/questions/random/:count?category=
func (h *QuestionHandler) RandomQuestions(c *gin.Context) {
	count, err := strconv.Atoi(c.Param("count"))
	if err != nil || count < 1 || count > maxRandomCount {
		response.BadRequest(c, 10001, "抽题数量无效")
		return
	}

	questions, err := h.questionSvc.Random(c.Request.Context(), count, c.Query("category"))
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OKList(c, questions, len(questions))
}

// MasterQuestions 当前题库全量试卷
// GET /api/master-questions?sales=
func (h *QuestionHandler) MasterQuestions(c *gin.Context) {
	paper, err := h.questionSvc.MasterPaper(c.Request.Context(), queryBool(c, "sales"))
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, paper)
}

// QuestionStats 题目类型与分类统计
// GET /api/questions/stats?bank_id=
func (h *QuestionHandler) QuestionStats(c *gin.Context) {
	bankID, ok := optionalBankID(c)
	if !ok {
		return
	}

	stats, err := h.questionSvc.Stats(c.Request.Context(), bankID)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, stats)
}

// optionalBankID 解析可选的 bank_id 查询参数
func optionalBankID(c *gin.Context) (*uint, bool) {
	raw := c.Query("bank_id")
	if raw == "" {
		raw = c.PostForm("bank_id")
	}
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, 10001, "题库ID无效")
		return nil, false
	}
	v := uint(id)
	return &v, true
}

// handleQuestionError 统一处理题目模块业务错误
func (h *QuestionHandler) handleQuestionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrQuestionNotFound):
		respondCode(c, 22001, err)
	case errors.Is(err, service.ErrQuestionAnswerInvalid):
		respondCode(c, 22002, err)
	case errors.Is(err, service.ErrQuestionTypeMismatch):
		respondCode(c, 22003, err)
	case errors.Is(err, service.ErrQuestionInUse):
		respondCode(c, 22004, err)
	case errors.Is(err, service.ErrNotEnoughQuestions):
		respondCode(c, 22005, err)
	case errors.Is(err, service.ErrImportFileInvalid):
		respondCode(c, 22006, err)
	case errors.Is(err, service.ErrBankNotFound):
		respondCode(c, 21001, err)
	default:
		respondError(c, err)
	}
}
