package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/model"
	"neurogen-exam/backend/internal/repository"
	pkgerrors "neurogen-exam/backend/pkg/errors"
)

// ── 题目模块业务错误 ──

var (
	ErrQuestionNotFound      = pkgerrors.New(pkgerrors.KindNotFound, "题目不存在")
	ErrQuestionAnswerInvalid = pkgerrors.New(pkgerrors.KindValidation, "答案必须为已提供选项的字母")
	ErrQuestionTypeMismatch  = pkgerrors.New(pkgerrors.KindValidation, "单选题只能有一个答案")
	ErrQuestionInUse         = pkgerrors.New(pkgerrors.KindPrecondition, "题目已被考试引用，无法删除")
	ErrNotEnoughQuestions    = pkgerrors.New(pkgerrors.KindValidation, "题库题目数量不足")
	ErrImportFileInvalid     = pkgerrors.New(pkgerrors.KindValidation, "导入文件格式错误")
)

// PaperMaintainer 试卷维护者标识
const PaperMaintainer = "管理员"

// QuestionService 题目业务接口
type QuestionService interface {
	Create(ctx context.Context, req *dto.QuestionRequest) (*dto.QuestionResponse, error)
	// List bank_id 缺省时使用当前题库
	List(ctx context.Context, req *dto.QuestionListRequest) ([]dto.QuestionResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.QuestionResponse, error)
	Update(ctx context.Context, id uint, req *dto.UpdateQuestionRequest) (*dto.QuestionResponse, error)
	Delete(ctx context.Context, id uint) error

	// Random 从当前题库随机抽取 count 道题
	Random(ctx context.Context, count int, category string) ([]dto.PaperQuestion, error)
	// MasterPaper 当前题库全量试卷；sales=true 时去除答案与解析
	MasterPaper(ctx context.Context, sales bool) (*dto.QuestionPaper, error)
	Stats(ctx context.Context, bankID *uint) (*dto.QuestionStatsResponse, error)

	Export(ctx context.Context, bankID *uint) (*dto.QuestionExport, error)
	Import(ctx context.Context, req *dto.ImportQuestionsRequest) (*dto.ImportQuestionsResponse, error)
	ExportExcel(ctx context.Context, bankID *uint) (*bytes.Buffer, string, error)
	ImportExcel(ctx context.Context, bankID *uint, r io.Reader) (*dto.ImportQuestionsResponse, error)
}

type questionService struct {
	repo      *repository.Repository
	selection SelectionService
	logger    *zap.Logger
	now       func() time.Time
}

// NewQuestionService 创建 QuestionService 实例
func NewQuestionService(repo *repository.Repository, selection SelectionService, logger *zap.Logger) QuestionService {
	return &questionService{repo: repo, selection: selection, logger: logger, now: time.Now}
}

// ────────────────────── Create ──────────────────────

func (s *questionService) Create(ctx context.Context, req *dto.QuestionRequest) (*dto.QuestionResponse, error) {
	bankID := model.DefaultBankID
	if req.BankID != nil {
		bankID = *req.BankID
	}
	if err := s.ensureBank(ctx, bankID); err != nil {
		return nil, err
	}

	q := &model.Question{
		BankID:       bankID,
		Category:     req.Category,
		QuestionType: req.Type,
		Question:     req.Question,
		OptionA:      req.OptionA,
		OptionB:      req.OptionB,
		OptionC:      req.OptionC,
		OptionD:      req.OptionD,
		Answer:       req.Answer,
		Explanation:  req.Explanation,
		LegacyID:     req.QuestionID,
	}
	if err := normalizeQuestion(q); err != nil {
		return nil, err
	}

	if err := s.repo.Question.Create(ctx, q); err != nil {
		s.logger.Error("创建题目失败", zap.Error(err))
		return nil, err
	}
	return toQuestionResponse(q), nil
}

// ────────────────────── List ──────────────────────

func (s *questionService) List(ctx context.Context, req *dto.QuestionListRequest) ([]dto.QuestionResponse, error) {
	sel, err := s.selection.Resolve(ctx, nil, req.BankID)
	if err != nil {
		return nil, err
	}

	qs, err := s.repo.Question.List(ctx, repository.QuestionFilter{
		BankID:   &sel.BankID,
		Category: req.Category,
		Type:     req.Type,
		Limit:    req.Limit,
		Random:   req.RandomSample,
	})
	if err != nil {
		s.logger.Error("列出题目失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.QuestionResponse, 0, len(qs))
	for i := range qs {
		result = append(result, *toQuestionResponse(&qs[i]))
	}
	return result, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *questionService) GetByID(ctx context.Context, id uint) (*dto.QuestionResponse, error) {
	q, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	return toQuestionResponse(q), nil
}

// ────────────────────── Update ──────────────────────

func (s *questionService) Update(ctx context.Context, id uint, req *dto.UpdateQuestionRequest) (*dto.QuestionResponse, error) {
	q, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.BankID != nil && *req.BankID != q.BankID {
		if err := s.ensureBank(ctx, *req.BankID); err != nil {
			return nil, err
		}
		q.BankID = *req.BankID
	}
	if req.Category != nil {
		q.Category = *req.Category
	}
	if req.Type != nil {
		q.QuestionType = *req.Type
	}
	if req.Question != nil {
		q.Question = *req.Question
	}
	if req.OptionA != nil {
		q.OptionA = *req.OptionA
	}
	if req.OptionB != nil {
		q.OptionB = *req.OptionB
	}
	if req.OptionC != nil {
		q.OptionC = req.OptionC
	}
	if req.OptionD != nil {
		q.OptionD = req.OptionD
	}
	if req.Answer != nil {
		q.Answer = *req.Answer
	}
	if req.Explanation != nil {
		q.Explanation = req.Explanation
	}
	if err := normalizeQuestion(q); err != nil {
		return nil, err
	}

	if err := s.repo.Question.Update(ctx, q); err != nil {
		s.logger.Error("更新题目失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return toQuestionResponse(q), nil
}

// ────────────────────── Delete ──────────────────────

func (s *questionService) Delete(ctx context.Context, id uint) error {
	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Question.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuestionNotFound
			}
			return err
		}

		refs, err := tx.Question.CountExamReferences(ctx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return ErrQuestionInUse.WithCount(refs)
		}

		if err := tx.Question.Delete(ctx, id); err != nil {
			s.logger.Error("删除题目失败", zap.Uint("id", id), zap.Error(err))
			return err
		}
		return nil
	})
}

// ────────────────────── Random ──────────────────────

func (s *questionService) Random(ctx context.Context, count int, category string) ([]dto.PaperQuestion, error) {
	sel, err := s.selection.Resolve(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	qs, err := s.repo.Question.List(ctx, repository.QuestionFilter{
		BankID:   &sel.BankID,
		Category: category,
		Limit:    count,
		Random:   true,
	})
	if err != nil {
		s.logger.Error("随机抽题失败", zap.Error(err))
		return nil, err
	}
	if len(qs) < count {
		return nil, ErrNotEnoughQuestions.Withf("题库中只有 %d 道题目，无法抽取 %d 道题目", len(qs), count)
	}

	result := make([]dto.PaperQuestion, 0, len(qs))
	for i := range qs {
		result = append(result, toPaperQuestion(&qs[i], 0, false))
	}
	return result, nil
}

// ────────────────────── MasterPaper ──────────────────────

func (s *questionService) MasterPaper(ctx context.Context, sales bool) (*dto.QuestionPaper, error) {
	sel, err := s.selection.Resolve(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	qs, err := s.repo.Question.List(ctx, repository.QuestionFilter{BankID: &sel.BankID})
	if err != nil {
		s.logger.Error("查询题库题目失败", zap.Uint("bank_id", sel.BankID), zap.Error(err))
		return nil, err
	}

	items := make([]dto.PaperQuestion, 0, len(qs))
	for i := range qs {
		items = append(items, toPaperQuestion(&qs[i], 0, sales))
	}
	paper := buildPaper(items, s.now())
	paper.BankID = &sel.BankID
	return paper, nil
}

// ────────────────────── Stats ──────────────────────

func (s *questionService) Stats(ctx context.Context, bankID *uint) (*dto.QuestionStatsResponse, error) {
	total, err := s.repo.Question.Count(ctx, bankID)
	if err != nil {
		return nil, err
	}
	byType, err := s.repo.Question.CountByType(ctx, bankID)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.repo.Question.CountByCategory(ctx, bankID)
	if err != nil {
		return nil, err
	}

	resp := &dto.QuestionStatsResponse{
		TotalQuestions:    total,
		TypeBreakdown:     make(map[string]int64, len(byType)),
		CategoryBreakdown: make(map[string]int64, len(byCategory)),
		Categories:        len(byCategory),
		LastUpdated:       s.now().Format(dto.TimeLayout),
	}
	for _, g := range byType {
		resp.TypeBreakdown[questionTypeName(g.Key)] = g.Count
		switch g.Key {
		case model.QuestionTypeSingle:
			resp.SingleChoice = g.Count
		case model.QuestionTypeMultiple:
			resp.MultipleChoice = g.Count
		}
	}
	for _, g := range byCategory {
		resp.CategoryBreakdown[g.Key] = g.Count
	}
	return resp, nil
}

// ── 内部方法 ──

func (s *questionService) getQuestion(ctx context.Context, id uint) (*model.Question, error) {
	q, err := s.repo.Question.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		s.logger.Error("查询题目失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return q, nil
}

func (s *questionService) ensureBank(ctx context.Context, bankID uint) error {
	if _, err := s.repo.QuestionBank.GetByID(ctx, bankID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBankNotFound
		}
		return err
	}
	return nil
}

// normalizeQuestion 规范化分类、答案与题型，并校验答案与选项一致
func normalizeQuestion(q *model.Question) error {
	q.Category = strings.TrimSpace(q.Category)
	if q.Category == "" {
		q.Category = model.DefaultCategory
	}
	q.Answer = model.NormalizeAnswer(q.Answer)
	if !q.AnswerMatchesOptions() {
		return ErrQuestionAnswerInvalid
	}

	// 未指定题型时按答案字母数推断
	if q.QuestionType == "" {
		if len(q.Answer) > 1 {
			q.QuestionType = model.QuestionTypeMultiple
		} else {
			q.QuestionType = model.QuestionTypeSingle
		}
	}
	if q.QuestionType == model.QuestionTypeSingle && len(q.Answer) > 1 {
		return ErrQuestionTypeMismatch
	}
	return nil
}

func questionTypeName(t string) string {
	switch t {
	case model.QuestionTypeSingle:
		return "单选题"
	case model.QuestionTypeMultiple:
		return "多选题"
	default:
		return t
	}
}

func toQuestionResponse(q *model.Question) *dto.QuestionResponse {
	resp := &dto.QuestionResponse{
		ID:         q.ID,
		BankID:     q.BankID,
		QuestionID: q.LegacyID,
		Category:   q.Category,
		Type:       q.QuestionType,
		Question:   q.Question,
		OptionA:    q.OptionA,
		OptionB:    q.OptionB,
		OptionC:    q.OptionC,
		OptionD:    q.OptionD,
		Answer:     q.Answer,
		CreatedAt:  q.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt:  q.UpdatedAt.Format(dto.TimeLayout),
	}
	if q.Explanation != nil {
		resp.Explanation = *q.Explanation
	}
	return resp
}

// toPaperQuestion 作答视图；sales 模式下不下发答案与解析
func toPaperQuestion(q *model.Question, orderIndex int, sales bool) dto.PaperQuestion {
	item := dto.PaperQuestion{
		ID:         q.ID,
		OrderIndex: orderIndex,
		Category:   q.Category,
		Type:       q.QuestionType,
		Question:   q.Question,
		OptionA:    q.OptionA,
		OptionB:    q.OptionB,
		OptionC:    q.OptionC,
		OptionD:    q.OptionD,
	}
	if !sales {
		answer := q.Answer
		item.Answer = &answer
		explanation := ""
		if q.Explanation != nil {
			explanation = *q.Explanation
		}
		item.Explanation = &explanation
	}
	return item
}

func buildPaper(items []dto.PaperQuestion, now time.Time) *dto.QuestionPaper {
	seen := make(map[string]bool)
	categories := make([]string, 0)
	for _, q := range items {
		if !seen[q.Category] {
			seen[q.Category] = true
			categories = append(categories, q.Category)
		}
	}
	sort.Strings(categories)

	return &dto.QuestionPaper{
		Version:        1,
		LastUpdate:     now.Format(dto.TimeLayout),
		TotalQuestions: len(items),
		Categories:     categories,
		Maintainer:     PaperMaintainer,
		Questions:      items,
	}
}
