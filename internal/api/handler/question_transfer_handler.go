package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportQuestions 导出题目 JSON
// GET /api/questions/export?bank_id=
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	bankID, ok := optionalBankID(c)
	if !ok {
		return
	}

	export, err := h.questionSvc.Export(c.Request.Context(), bankID)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, export)
}

// ImportQuestions 导入题目 JSON；已存在的题干跳过
// POST /api/questions/import
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	var req dto.ImportQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.questionSvc.Import(c.Request.Context(), &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, result)
}

// ExportExcel 导出题目 Excel
// GET /api/questions/export-excel?bank_id=
func (h *QuestionHandler) ExportExcel(c *gin.Context) {
	bankID, ok := optionalBankID(c)
	if !ok {
		return
	}

	buf, filename, err := h.questionSvc.ExportExcel(c.Request.Context(), bankID)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Header("Content-Type", xlsxContentType)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ImportExcel 导入题目 Excel（multipart 字段 file）
// POST /api/questions/import-excel
func (h *QuestionHandler) ImportExcel(c *gin.Context) {
	bankID, ok := optionalBankID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "请上传 Excel 文件")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 22006, "导入文件格式错误")
		return
	}
	defer f.Close()

	result, err := h.questionSvc.ImportExcel(c.Request.Context(), bankID, f)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, result)
}
