package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"neurogen-exam/backend/internal/service"
	pkgerrors "neurogen-exam/backend/pkg/errors"
	"neurogen-exam/backend/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Team         *TeamHandler
	QuestionBank *QuestionBankHandler
	Question     *QuestionHandler
	Exam         *ExamHandler
	ExamRecord   *ExamRecordHandler
	Report       *ReportHandler
	Analytics    *AnalyticsHandler
	SystemConfig *SystemConfigHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Team:         NewTeamHandler(svc.Team),
		QuestionBank: NewQuestionBankHandler(svc.QuestionBank, svc.Selection),
		Question:     NewQuestionHandler(svc.Question),
		Exam:         NewExamHandler(svc.Exam),
		ExamRecord:   NewExamRecordHandler(svc.ExamRecord),
		Report:       NewReportHandler(svc.Report),
		Analytics:    NewAnalyticsHandler(svc.Analytics),
		SystemConfig: NewSystemConfigHandler(svc.SystemConfig, svc.Report),
	}
}

// ── 通用工具 ──

// parseUintParam 解析路径中的数字 ID；失败时已写入 400 响应
func parseUintParam(c *gin.Context, name, label string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, 10001, label+"ID无效")
		return 0, false
	}
	return uint(id), true
}

// queryBool 解析 ?sales=true 形式的布尔查询参数，无法解析时视为 false
func queryBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}

// statusOf 错误分类 → HTTP 状态码
func statusOf(kind pkgerrors.Kind) int {
	switch kind {
	case pkgerrors.KindValidation, pkgerrors.KindPrecondition, pkgerrors.KindExamWindow:
		return http.StatusBadRequest
	case pkgerrors.KindNotFound:
		return http.StatusNotFound
	case pkgerrors.KindConflict:
		return http.StatusConflict
	case pkgerrors.KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fallbackCode 未单独映射的业务错误按分类给出通用错误码
func fallbackCode(kind pkgerrors.Kind) int {
	switch kind {
	case pkgerrors.KindValidation:
		return 10001
	case pkgerrors.KindNotFound:
		return 10002
	case pkgerrors.KindConflict:
		return 10003
	case pkgerrors.KindPrecondition:
		return 10005
	case pkgerrors.KindExamWindow:
		return 10006
	case pkgerrors.KindProvider:
		return 10007
	default:
		return 50000
	}
}

// respondCode 以指定业务码写出错误；状态码由错误分类决定
func respondCode(c *gin.Context, code int, err error) {
	kind := pkgerrors.KindOf(err)
	if kind == pkgerrors.KindInternal {
		response.InternalError(c, pkgerrors.Detail(err))
		return
	}

	status := statusOf(kind)
	message := pkgerrors.MessageOf(err)

	if n := pkgerrors.CountOf(err); n > 0 {
		response.ErrorWithData(c, status, code, message, gin.H{"count": n})
		return
	}
	if kind == pkgerrors.KindProvider {
		response.BadGateway(c, code, message, pkgerrors.Detail(err))
		return
	}
	response.Error(c, status, code, message)
}

// respondError 按错误分类写出响应
func respondError(c *gin.Context, err error) {
	respondCode(c, fallbackCode(pkgerrors.KindOf(err)), err)
}
