package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"neurogen-exam/backend/config"
	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/model"
	"neurogen-exam/backend/internal/repository"
	"neurogen-exam/backend/pkg/aiclient"
	pkgerrors "neurogen-exam/backend/pkg/errors"
)

// ── AI 报告模块业务错误 ──

var (
	ErrProviderNotConfigured = pkgerrors.New(pkgerrors.KindProvider, "未配置API密钥，请先在系统配置中设置")
	ErrProviderTimeout       = pkgerrors.New(pkgerrors.KindProvider, "API调用超时，请稍后重试")
	ErrProviderFailed        = pkgerrors.New(pkgerrors.KindProvider, "生成报告失败")
)

// connTestPrompt 连通性测试提示词
const connTestPrompt = "你好，请回复“连接成功”"

// ReportService AI 报告业务接口
type ReportService interface {
	// ResolveProvider 数据库 api_config 优先，其次进程配置
	ResolveProvider(ctx context.Context) (aiclient.ProviderConfig, error)
	// GenerateInline 提交后自动生成：未配置密钥时静默跳过，失败仅返回错误供调用方记录
	GenerateInline(ctx context.Context, recordID string) error
	// GenerateExplicit 手动生成：供应商错误以 success=false 返回
	GenerateExplicit(ctx context.Context, req *dto.GenerateReportRequest) (*dto.GenerateReportResponse, error)
	TestConnection(ctx context.Context, req *dto.TestAPIConnectionRequest) *dto.TestAPIConnectionResponse
}

type reportService struct {
	cfg        *config.Config
	repo       *repository.Repository
	logger     *zap.Logger
	newAdapter func(aiclient.ProviderConfig) aiclient.Adapter
}

// NewReportService 创建 ReportService 实例
func NewReportService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) ReportService {
	httpClient := &http.Client{}
	return &reportService{
		cfg:    cfg,
		repo:   repo,
		logger: logger,
		newAdapter: func(pc aiclient.ProviderConfig) aiclient.Adapter {
			return aiclient.Select(pc, httpClient)
		},
	}
}

// ────────────────────── ResolveProvider ──────────────────────

func (s *reportService) ResolveProvider(ctx context.Context) (aiclient.ProviderConfig, error) {
	entry, err := s.repo.SystemConfig.Get(ctx, model.ConfigKeyAPI)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return aiclient.ProviderConfig{}, err
	}
	if entry != nil && entry.Value != "" {
		var stored aiclient.ProviderConfig
		if err := json.Unmarshal([]byte(entry.Value), &stored); err != nil {
			s.logger.Warn("api_config 解析失败，使用进程配置", zap.Error(err))
		} else if stored.Configured() {
			return stored.WithDefaults(), nil
		}
	}

	return aiclient.ProviderConfig{
		Provider: s.cfg.AI.Provider,
		URL:      s.cfg.AI.URL,
		Model:    s.cfg.AI.Model,
		Key:      s.cfg.AI.Key,
	}.WithDefaults(), nil
}

// ────────────────────── GenerateInline ──────────────────────

func (s *reportService) GenerateInline(ctx context.Context, recordID string) error {
	provider, err := s.ResolveProvider(ctx)
	if err != nil {
		return err
	}
	if !provider.Configured() {
		s.logger.Debug("未配置API密钥，跳过报告生成", zap.String("record_id", recordID))
		return nil
	}

	rec, err := s.repo.ExamRecord.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	if rec.HasReport() {
		return nil
	}

	analysis := s.buildAnalysis(ctx, rec, nil)
	prompt := renderPrompt(rec, analysis)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.AI.InlineTimeout)
	defer cancel()

	text, err := s.newAdapter(provider).Complete(callCtx, aiclient.Request{
		Prompt:      prompt,
		MaxTokens:   s.cfg.AI.InlineMaxTokens,
		Temperature: s.cfg.AI.InlineTemperature,
	})
	if err != nil {
		if aiclient.IsTimeout(err) {
			return ErrProviderTimeout.Wrap(err)
		}
		return ErrProviderFailed.Wrap(err)
	}

	if err := s.repo.ExamRecord.SetAIReport(ctx, recordID, text); err != nil {
		return err
	}
	s.logger.Info("AI 报告已生成", zap.String("record_id", recordID), zap.Int("analysis_items", len(analysis)))
	return nil
}

// ────────────────────── GenerateExplicit ──────────────────────

func (s *reportService) GenerateExplicit(ctx context.Context, req *dto.GenerateReportRequest) (*dto.GenerateReportResponse, error) {
	rec, err := s.repo.ExamRecord.GetByID(ctx, req.ExamRecordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		s.logger.Error("查询考试记录失败", zap.String("id", req.ExamRecordID), zap.Error(err))
		return nil, err
	}

	provider, err := s.ResolveProvider(ctx)
	if err != nil {
		return nil, err
	}
	if !provider.Configured() {
		return failedReport(ErrProviderNotConfigured.Message), nil
	}

	analysis := s.buildAnalysis(ctx, rec, req.ExamData)
	prompt := renderPrompt(rec, analysis)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.AI.ManualTimeout)
	defer cancel()

	text, err := s.newAdapter(provider).Complete(callCtx, aiclient.Request{
		Prompt:      prompt,
		MaxTokens:   s.cfg.AI.ManualMaxTokens,
		Temperature: s.cfg.AI.ManualTemperature,
	})
	if err != nil {
		s.logger.Warn("手动生成报告失败", zap.String("record_id", rec.ID), zap.Error(err))
		if aiclient.IsTimeout(err) {
			return failedReport(ErrProviderTimeout.Message), nil
		}
		return failedReport(pkgerrors.Truncate(ErrProviderFailed.Message+": "+err.Error(), pkgerrors.MaxDetailLen)), nil
	}

	if err := s.repo.ExamRecord.SetAIReport(ctx, rec.ID, text); err != nil {
		s.logger.Error("保存 AI 报告失败", zap.String("record_id", rec.ID), zap.Error(err))
		return failedReport(ErrProviderFailed.Message + ": " + pkgerrors.Detail(err)), nil
	}

	return &dto.GenerateReportResponse{Success: true, Report: text}, nil
}

// ────────────────────── TestConnection ──────────────────────

func (s *reportService) TestConnection(ctx context.Context, req *dto.TestAPIConnectionRequest) *dto.TestAPIConnectionResponse {
	provider, err := s.ResolveProvider(ctx)
	if err != nil {
		return &dto.TestAPIConnectionResponse{Success: false, Message: "读取API配置失败", Error: pkgerrors.Detail(err)}
	}

	// 请求中提供的字段覆盖当前生效配置，便于保存前测试
	if req.Provider != "" {
		provider.Provider = req.Provider
	}
	if req.URL != "" {
		provider.URL = req.URL
	}
	if req.Model != "" {
		provider.Model = req.Model
	}
	if req.Key != "" {
		provider.Key = req.Key
	}
	if !provider.Configured() {
		return &dto.TestAPIConnectionResponse{Success: false, Message: "API连接测试失败", Error: ErrProviderNotConfigured.Message}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.AI.ConnTestTimeout)
	defer cancel()

	text, err := s.newAdapter(provider).Complete(callCtx, aiclient.Request{
		Prompt:      connTestPrompt,
		MaxTokens:   s.cfg.AI.ConnTestMaxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		msg := err.Error()
		if aiclient.IsTimeout(err) {
			msg = ErrProviderTimeout.Message
		}
		return &dto.TestAPIConnectionResponse{
			Success: false,
			Message: "API连接测试失败",
			Error:   pkgerrors.Truncate(msg, pkgerrors.MaxDetailLen),
		}
	}

	return &dto.TestAPIConnectionResponse{
		Success:  true,
		Message:  "API连接测试成功",
		Response: pkgerrors.Truncate(text, 100),
	}
}

func failedReport(msg string) *dto.GenerateReportResponse {
	return &dto.GenerateReportResponse{Success: false, Error: msg}
}

// ── 答题分析 ──

// snapshotQuestion 提交时随记录保存的题目快照（兼容驼峰与下划线字段）
type snapshotQuestion struct {
	ID              uint        `json:"id"`
	Question        string      `json:"question"`
	Category        string      `json:"category"`
	Type            string      `json:"type"`
	Answer          string      `json:"answer"`
	CorrectAnswer   string      `json:"correctAnswer"`
	UserAnswer      interface{} `json:"userAnswer"`
	UserAnswerSnake interface{} `json:"user_answer"`
	IsCorrect       *bool       `json:"isCorrect"`
	Explanation     string      `json:"explanation"`
}

// parseSnapshot 接受题目数组或 {"questions": [...]}
func parseSnapshot(raw []byte) []snapshotQuestion {
	if len(raw) == 0 {
		return nil
	}
	var list []snapshotQuestion
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var wrapped struct {
		Questions []snapshotQuestion `json:"questions"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Questions
	}
	return nil
}

// parseAnswers detailed_answers: 键为题目序号或题目 id，值为字母、字母数组或 {answer: ...}
func parseAnswers(raw []byte) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = answerText(v)
	}
	return out
}

func answerText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, answerText(p))
		}
		return strings.Join(parts, "")
	case map[string]interface{}:
		for _, key := range []string{"userAnswer", "user_answer", "answer", "selected"} {
			if inner, ok := t[key]; ok {
				return answerText(inner)
			}
		}
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// buildAnalysis 优先使用题目快照（override 其次 questions_data）；
// 无快照且开启 positional_fallback 时，按位置将作答与题库当前题目配对（近似结果）
func (s *reportService) buildAnalysis(ctx context.Context, rec *model.ExamRecord, override json.RawMessage) []dto.QuestionAnalysis {
	answers := parseAnswers(rec.DetailedAnswers)

	raw := []byte(rec.QuestionsData)
	if len(override) > 0 && string(override) != "null" {
		raw = override
	}
	if snapshot := parseSnapshot(raw); len(snapshot) > 0 {
		return analysisFromSnapshot(snapshot, answers)
	}

	if !s.cfg.Report.PositionalFallback || len(answers) == 0 {
		return nil
	}

	bankID := rec.BankID
	qs, err := s.repo.Question.List(ctx, repository.QuestionFilter{BankID: &bankID})
	if err != nil {
		s.logger.Warn("回退查询题目失败，报告不含答题详情", zap.String("record_id", rec.ID), zap.Error(err))
		return nil
	}
	s.logger.Warn("记录缺少题目快照，按位置近似重建答题分析",
		zap.String("record_id", rec.ID), zap.Uint("bank_id", bankID))
	return analysisByPosition(qs, answers)
}

func analysisFromSnapshot(snapshot []snapshotQuestion, answers map[string]string) []dto.QuestionAnalysis {
	items := make([]dto.QuestionAnalysis, 0, len(snapshot))
	for i, q := range snapshot {
		user := answerText(q.UserAnswer)
		if user == "" {
			user = answerText(q.UserAnswerSnake)
		}
		if user == "" {
			if v, ok := answers[strconv.Itoa(i)]; ok {
				user = v
			} else if q.ID > 0 {
				user = answers[strconv.FormatUint(uint64(q.ID), 10)]
			}
		}

		correct := q.CorrectAnswer
		if correct == "" {
			correct = q.Answer
		}
		isCorrect := user != "" && model.NormalizeAnswer(user) == model.NormalizeAnswer(correct)
		if q.IsCorrect != nil {
			isCorrect = *q.IsCorrect
		}

		items = append(items, dto.QuestionAnalysis{
			Index:         i + 1,
			Question:      q.Question,
			Category:      q.Category,
			Type:          q.Type,
			CorrectAnswer: correct,
			UserAnswer:    user,
			IsCorrect:     isCorrect,
			Explanation:   q.Explanation,
		})
	}
	return items
}

// analysisByPosition 作答按数字键升序依次对应题库列表顺序中的题目
func analysisByPosition(qs []model.Question, answers map[string]string) []dto.QuestionAnalysis {
	keys := make([]int, 0, len(answers))
	for k := range answers {
		if n, err := strconv.Atoi(k); err == nil {
			keys = append(keys, n)
		}
	}
	sort.Ints(keys)

	items := make([]dto.QuestionAnalysis, 0, len(keys))
	for i, k := range keys {
		if i >= len(qs) {
			break
		}
		q := &qs[i]
		user := answers[strconv.Itoa(k)]
		items = append(items, dto.QuestionAnalysis{
			Index:         i + 1,
			Question:      q.Question,
			Category:      q.Category,
			Type:          q.QuestionType,
			CorrectAnswer: q.Answer,
			UserAnswer:    user,
			IsCorrect:     user != "" && model.NormalizeAnswer(user) == q.Answer,
			Explanation:   derefString(q.Explanation),
		})
	}
	return items
}

// ── 提示词 ──

// accuracyPercent 正确率百分比，保留 1 位小数
func accuracyPercent(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return roundTo(float64(correct)/float64(total)*100, 1)
}

func renderPrompt(rec *model.ExamRecord, analysis []dto.QuestionAnalysis) string {
	var b strings.Builder

	b.WriteString("请基于以下考试数据生成一份专业的医药代表知识掌握分析报告：\n\n")
	b.WriteString("考试信息：\n")
	fmt.Fprintf(&b, "- 姓名：%s\n", rec.UserName)
	fmt.Fprintf(&b, "- 分数：%d分（满分100分）\n", rec.Score)
	fmt.Fprintf(&b, "- 正确率：%d/%d = %.1f%%\n", rec.CorrectCount, rec.TotalQuestions,
		accuracyPercent(rec.CorrectCount, rec.TotalQuestions))
	fmt.Fprintf(&b, "- 考试用时：%d分%d秒\n\n", rec.Duration/60, rec.Duration%60)

	b.WriteString("答题详情：\n")
	if len(analysis) == 0 {
		b.WriteString("（无答题详情）\n")
	}
	for _, a := range analysis {
		result := "错误"
		if a.IsCorrect {
			result = "正确"
		}
		user := a.UserAnswer
		if user == "" {
			user = "未作答"
		}
		fmt.Fprintf(&b, "%d. [%s｜%s] %s\n", a.Index, a.Category, questionTypeName(a.Type), a.Question)
		fmt.Fprintf(&b, "   正确答案：%s；考生答案：%s；结果：%s\n", a.CorrectAnswer, user, result)
		if a.Explanation != "" {
			fmt.Fprintf(&b, "   解析：%s\n", a.Explanation)
		}
	}

	b.WriteString("\n请从以下几个方面进行分析：\n")
	b.WriteString("1. 整体表现评估\n")
	b.WriteString("2. 知识结构强弱分析\n")
	b.WriteString("3. 错题原因分析\n")
	b.WriteString("4. 改进建议\n")
	b.WriteString("5. 学习重点推荐\n\n")
	b.WriteString("请用专业、客观的语言，为医药代表提供有价值的学习指导。\n")
	return b.String()
}
