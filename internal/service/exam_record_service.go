package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/model"
	"neurogen-exam/backend/internal/repository"
	pkgerrors "neurogen-exam/backend/pkg/errors"
)

// ── 考试记录模块业务错误 ──

var (
	ErrRecordNotFound      = pkgerrors.New(pkgerrors.KindNotFound, "考试记录不存在")
	ErrRecordFieldsMissing = pkgerrors.New(pkgerrors.KindValidation, "缺少必填字段")
	ErrRecordInvalidJSON   = pkgerrors.New(pkgerrors.KindValidation, "答题数据必须为 JSON")
)

// defaultRecordLimit 列表默认条数
const defaultRecordLimit = 100

// upsertAttempts 并发插入同一 id 时改为更新重试
const upsertAttempts = 2

// ExamRecordService 考试记录业务接口
type ExamRecordService interface {
	// Upsert 以客户端 id 幂等写入：不存在则创建，存在则只覆盖出现的字段
	Upsert(ctx context.Context, req *dto.SubmitExamRecordRequest) (*dto.UpsertResponse, error)
	List(ctx context.Context, req *dto.ExamRecordListRequest) ([]dto.ExamRecordResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ExamRecordResponse, error)
	Delete(ctx context.Context, id string) error
}

type examRecordService struct {
	repo    *repository.Repository
	reports ReportQueue
	cache   Cache
	logger  *zap.Logger
}

// NewExamRecordService 创建 ExamRecordService 实例；cache 可为 nil
func NewExamRecordService(repo *repository.Repository, reports ReportQueue, cache Cache, logger *zap.Logger) ExamRecordService {
	return &examRecordService{repo: repo, reports: reports, cache: cache, logger: logger}
}

// ────────────────────── Upsert ──────────────────────

func (s *examRecordService) Upsert(ctx context.Context, req *dto.SubmitExamRecordRequest) (*dto.UpsertResponse, error) {
	if err := validateJSONField(req.DetailedAnswers); err != nil {
		return nil, err
	}
	if err := validateJSONField(req.QuestionsData); err != nil {
		return nil, err
	}

	var (
		rec    *model.ExamRecord
		action string
		err    error
	)
	for attempt := 0; attempt < upsertAttempts; attempt++ {
		rec, action, err = s.upsertOnce(ctx, req)
		// 并发的首次提交撞上主键冲突：整个事务已回滚，重试时走更新分支
		if err == nil || !repository.IsUniqueViolation(err) {
			break
		}
		s.logger.Info("考试记录并发写入，按更新重试", zap.String("id", req.ID))
	}
	if err != nil {
		if pkgerrors.KindOf(err) == pkgerrors.KindInternal {
			s.logger.Error("保存考试记录失败", zap.String("id", req.ID), zap.Error(err))
		}
		return nil, err
	}

	if !rec.HasReport() && s.reports != nil {
		s.reports.Enqueue(rec.ID)
	}
	s.invalidateAnalytics(ctx)

	msg := "考试记录保存成功"
	if action == dto.ActionUpdated {
		msg = "考试记录更新成功"
	}
	return &dto.UpsertResponse{Success: true, Message: msg, ID: rec.ID, Action: action}, nil
}

func (s *examRecordService) upsertOnce(ctx context.Context, req *dto.SubmitExamRecordRequest) (*model.ExamRecord, string, error) {
	var rec *model.ExamRecord
	var action string

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := ensureRecordRefs(ctx, tx, req.TeamID, req.BankID); err != nil {
			return err
		}

		existing, err := tx.ExamRecord.GetByIDForUpdate(ctx, req.ID)
		if err == nil {
			applyRecordPatch(existing, req)
			if err := tx.ExamRecord.Update(ctx, existing); err != nil {
				return err
			}
			rec, action = existing, dto.ActionUpdated
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if missing := missingRecordFields(req); len(missing) > 0 {
			return ErrRecordFieldsMissing.Withf("缺少必填字段: %s", strings.Join(missing, ", "))
		}
		sel, err := resolveSelection(ctx, tx, req.TeamID, req.BankID)
		if err != nil {
			return err
		}

		created := newRecord(req, sel)
		if err := tx.ExamRecord.Create(ctx, created); err != nil {
			return err
		}
		rec, action = created, dto.ActionCreated
		return nil
	})
	return rec, action, err
}

// ensureRecordRefs 显式指定的团队、题库必须存在且未停用
func ensureRecordRefs(ctx context.Context, tx *repository.Repository, teamID, bankID *uint) error {
	if teamID != nil {
		if _, err := tx.Team.GetByID(ctx, *teamID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
	}
	if bankID != nil {
		if _, err := tx.QuestionBank.GetByID(ctx, *bankID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBankNotFound
			}
			return err
		}
	}
	return nil
}

// ────────────────────── List ──────────────────────

func (s *examRecordService) List(ctx context.Context, req *dto.ExamRecordListRequest) ([]dto.ExamRecordResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultRecordLimit
	}

	recs, err := s.repo.ExamRecord.List(ctx, repository.ExamRecordFilter{
		UserName:   req.UserName,
		Department: req.Department,
		Limit:      limit,
	})
	if err != nil {
		s.logger.Error("列出考试记录失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ExamRecordResponse, 0, len(recs))
	for i := range recs {
		result = append(result, toRecordResponse(&recs[i]))
	}
	return result, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *examRecordService) GetByID(ctx context.Context, id string) (*dto.ExamRecordResponse, error) {
	rec, err := s.repo.ExamRecord.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		s.logger.Error("查询考试记录失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	resp := toRecordResponse(rec)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *examRecordService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.ExamRecord.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return err
	}
	if err := s.repo.ExamRecord.Delete(ctx, id); err != nil {
		s.logger.Error("删除考试记录失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.invalidateAnalytics(ctx)
	return nil
}

// ── 内部方法 ──

// invalidateAnalytics 记录变化后清除统计缓存；失败不影响写入结果
func (s *examRecordService) invalidateAnalytics(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, analyticsCachePrefix); err != nil {
		s.logger.Warn("清除统计缓存失败", zap.Error(err))
	}
}

func missingRecordFields(req *dto.SubmitExamRecordRequest) []string {
	var missing []string
	if req.UserName == nil || strings.TrimSpace(*req.UserName) == "" {
		missing = append(missing, "user_name")
	}
	if req.Score == nil {
		missing = append(missing, "score")
	}
	if req.CorrectCount == nil {
		missing = append(missing, "correct_count")
	}
	if req.TotalQuestions == nil {
		missing = append(missing, "total_questions")
	}
	if req.Duration == nil {
		missing = append(missing, "duration")
	}
	return missing
}

func hasJSON(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func validateJSONField(raw json.RawMessage) error {
	if hasJSON(raw) && !json.Valid(raw) {
		return ErrRecordInvalidJSON
	}
	return nil
}

func newRecord(req *dto.SubmitExamRecordRequest, sel ResolvedSelection) *model.ExamRecord {
	rec := &model.ExamRecord{
		ID:             req.ID,
		UserName:       *req.UserName,
		UserID:         req.UserID,
		TeamID:         sel.TeamID,
		BankID:         sel.BankID,
		Department:     req.Department,
		Region:         req.Region,
		Score:          *req.Score,
		CorrectCount:   *req.CorrectCount,
		TotalQuestions: *req.TotalQuestions,
		Duration:       *req.Duration,
		ExamType:       model.ExamRecordTypeWeekly,
		WeekNumber:     req.WeekNumber,
		Year:           req.Year,
		AIReport:       req.AIReport,
	}
	if req.ExamType != nil && *req.ExamType != "" {
		rec.ExamType = *req.ExamType
	}
	if hasJSON(req.DetailedAnswers) {
		rec.DetailedAnswers = datatypes.JSON(req.DetailedAnswers)
	}
	if hasJSON(req.QuestionsData) {
		rec.QuestionsData = datatypes.JSON(req.QuestionsData)
	}
	return rec
}

// applyRecordPatch 只覆盖请求中出现的字段
func applyRecordPatch(rec *model.ExamRecord, req *dto.SubmitExamRecordRequest) {
	if req.UserName != nil {
		rec.UserName = *req.UserName
	}
	if req.UserID != nil {
		rec.UserID = req.UserID
	}
	if req.TeamID != nil {
		rec.TeamID = *req.TeamID
	}
	if req.BankID != nil {
		rec.BankID = *req.BankID
	}
	if req.Department != nil {
		rec.Department = req.Department
	}
	if req.Region != nil {
		rec.Region = req.Region
	}
	if req.Score != nil {
		rec.Score = *req.Score
	}
	if req.CorrectCount != nil {
		rec.CorrectCount = *req.CorrectCount
	}
	if req.TotalQuestions != nil {
		rec.TotalQuestions = *req.TotalQuestions
	}
	if req.Duration != nil {
		rec.Duration = *req.Duration
	}
	if req.ExamType != nil && *req.ExamType != "" {
		rec.ExamType = *req.ExamType
	}
	if req.WeekNumber != nil {
		rec.WeekNumber = req.WeekNumber
	}
	if req.Year != nil {
		rec.Year = req.Year
	}
	if hasJSON(req.DetailedAnswers) {
		rec.DetailedAnswers = datatypes.JSON(req.DetailedAnswers)
	}
	if hasJSON(req.QuestionsData) {
		rec.QuestionsData = datatypes.JSON(req.QuestionsData)
	}
	if req.AIReport != nil {
		rec.AIReport = req.AIReport
	}
}

func toRecordResponse(r *model.ExamRecord) dto.ExamRecordResponse {
	resp := dto.ExamRecordResponse{
		ID:             r.ID,
		UserName:       r.UserName,
		UserID:         r.UserID,
		TeamID:         r.TeamID,
		BankID:         r.BankID,
		Department:     r.Department,
		Region:         r.Region,
		Score:          r.Score,
		CorrectCount:   r.CorrectCount,
		TotalQuestions: r.TotalQuestions,
		Duration:       r.Duration,
		ExamType:       r.ExamType,
		WeekNumber:     r.WeekNumber,
		Year:           r.Year,
		AIReport:       r.AIReport,
		CreatedAt:      r.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt:      r.UpdatedAt.Format(dto.TimeLayout),
	}
	if len(r.DetailedAnswers) > 0 {
		resp.DetailedAnswers = json.RawMessage(r.DetailedAnswers)
	}
	if len(r.QuestionsData) > 0 {
		resp.QuestionsData = json.RawMessage(r.QuestionsData)
	}
	return resp
}
