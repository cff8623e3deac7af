package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/model"
	"neurogen-exam/backend/internal/repository"
	pkgerrors "neurogen-exam/backend/pkg/errors"
)

// ── 考试模块业务错误 ──

var (
	ErrExamNotFound          = pkgerrors.New(pkgerrors.KindNotFound, "考试不存在")
	ErrExamTimeInvalid       = pkgerrors.New(pkgerrors.KindValidation, "开始时间必须早于结束时间")
	ErrExamQuestionsRequired = pkgerrors.New(pkgerrors.KindValidation, "考试至少需要一道题目")
	ErrExamQuestionsMissing  = pkgerrors.New(pkgerrors.KindValidation, "部分题目不存在")
	ErrExamQuestionDuplicate = pkgerrors.New(pkgerrors.KindValidation, "题目列表中存在重复题目")

	// 作答时间窗口，三种情况分别提示
	ErrExamNotStarted = pkgerrors.New(pkgerrors.KindExamWindow, "考试尚未开始")
	ErrExamEnded      = pkgerrors.New(pkgerrors.KindExamWindow, "考试已结束")
	ErrExamDisabled   = pkgerrors.New(pkgerrors.KindExamWindow, "考试已被禁用")
)

// ExamService 考试业务接口
type ExamService interface {
	Create(ctx context.Context, req *dto.CreateExamRequest) (*dto.ExamDetailResponse, error)
	List(ctx context.Context, req *dto.ExamListRequest) ([]dto.ExamResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.ExamDetailResponse, error)
	// Update 部分更新；提供 question_ids 时整体替换题目并重新编号
	Update(ctx context.Context, id uint, req *dto.UpdateExamRequest) (*dto.ExamDetailResponse, error)
	Delete(ctx context.Context, id uint) error
	Toggle(ctx context.Context, id uint) (*dto.ToggleExamResponse, error)
	// Paper 作答用试卷：仅 active 且启用的考试可获取
	Paper(ctx context.Context, id uint, sales bool) (*dto.QuestionPaper, error)
}

type examService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExamService 创建 ExamService 实例
func NewExamService(repo *repository.Repository, logger *zap.Logger) ExamService {
	return &examService{repo: repo, logger: logger, now: time.Now}
}

// ────────────────────── Create ──────────────────────

func (s *examService) Create(ctx context.Context, req *dto.CreateExamRequest) (*dto.ExamDetailResponse, error) {
	if !req.StartTime.Before(req.EndTime) {
		return nil, ErrExamTimeInvalid
	}
	if err := s.validateQuestionIDs(ctx, s.repo, req.QuestionIDs); err != nil {
		return nil, err
	}

	exam := &model.Exam{
		ExamName:        req.ExamName,
		Description:     req.Description,
		ExamType:        req.ExamType,
		DurationMinutes: model.DefaultExamDuration,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		IsActive:        true,
		CreatedBy:       req.CreatedBy,
	}
	if exam.ExamType == "" {
		exam.ExamType = model.ExamTypeFormal
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
	if req.IsActive != nil {
		exam.IsActive = *req.IsActive
	}
	if exam.CreatedBy == "" {
		exam.CreatedBy = "admin"
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Exam.Create(ctx, exam); err != nil {
			return err
		}
		return tx.Exam.CreateQuestions(ctx, model.BuildExamQuestions(exam.ID, req.QuestionIDs))
	})
	if err != nil {
		s.logger.Error("创建考试失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("考试已创建", zap.Uint("id", exam.ID), zap.Int("questions", len(req.QuestionIDs)))
	return s.GetByID(ctx, exam.ID)
}

// ────────────────────── List ──────────────────────

func (s *examService) List(ctx context.Context, req *dto.ExamListRequest) ([]dto.ExamResponse, error) {
	exams, err := s.repo.Exam.List(ctx, req.ExamType)
	if err != nil {
		s.logger.Error("列出考试失败", zap.Error(err))
		return nil, err
	}

	ids := make([]uint, 0, len(exams))
	for _, e := range exams {
		ids = append(ids, e.ID)
	}
	counts, err := s.repo.Exam.BatchCountQuestions(ctx, ids)
	if err != nil {
		s.logger.Warn("批量统计考试题目数失败，回退为0", zap.Error(err))
		counts = make(map[uint]int64)
	}

	now := s.now()
	result := make([]dto.ExamResponse, 0, len(exams))
	for i := range exams {
		status := exams[i].StatusAt(now)
		if req.Status != "" && string(status) != req.Status {
			continue
		}
		result = append(result, toExamResponse(&exams[i], status, counts[exams[i].ID]))
	}
	return result, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *examService) GetByID(ctx context.Context, id uint) (*dto.ExamDetailResponse, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Exam.ListQuestions(ctx, id)
	if err != nil {
		s.logger.Error("查询考试题目失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	items := make([]dto.ExamQuestionItem, 0, len(rows))
	for _, row := range rows {
		if row.Question == nil {
			continue
		}
		items = append(items, dto.ExamQuestionItem{
			OrderIndex: row.OrderIndex,
			Question:   *toQuestionResponse(row.Question),
		})
	}

	return &dto.ExamDetailResponse{
		ExamResponse: toExamResponse(exam, exam.StatusAt(s.now()), int64(len(items))),
		Questions:    items,
	}, nil
}

// ────────────────────── Update ──────────────────────

func (s *examService) Update(ctx context.Context, id uint, req *dto.UpdateExamRequest) (*dto.ExamDetailResponse, error) {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		exam, err := tx.Exam.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrExamNotFound
			}
			return err
		}

		if req.ExamName != nil {
			exam.ExamName = *req.ExamName
		}
		if req.Description != nil {
			exam.Description = *req.Description
		}
		if req.ExamType != nil {
			exam.ExamType = *req.ExamType
		}
		if req.DurationMinutes != nil {
			exam.DurationMinutes = *req.DurationMinutes
		}
		if req.StartTime != nil {
			exam.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			exam.EndTime = *req.EndTime
		}
		if req.IsActive != nil {
			exam.IsActive = *req.IsActive
		}
		if !exam.StartTime.Before(exam.EndTime) {
			return ErrExamTimeInvalid
		}

		if err := tx.Exam.Update(ctx, exam); err != nil {
			return err
		}

		if req.QuestionIDs == nil {
			return nil
		}
		ids := *req.QuestionIDs
		if err := s.validateQuestionIDs(ctx, tx, ids); err != nil {
			return err
		}
		// 先删后插，order_index 从 1 重新编号
		if err := tx.Exam.DeleteQuestions(ctx, id); err != nil {
			return err
		}
		return tx.Exam.CreateQuestions(ctx, model.BuildExamQuestions(id, ids))
	})
	if err != nil {
		if pkgerrors.KindOf(err) == pkgerrors.KindInternal {
			s.logger.Error("更新考试失败", zap.Uint("id", id), zap.Error(err))
		}
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── Delete ──────────────────────

func (s *examService) Delete(ctx context.Context, id uint) error {
	if _, err := s.getExam(ctx, id); err != nil {
		return err
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Exam.DeleteQuestions(ctx, id); err != nil {
			return err
		}
		return tx.Exam.Delete(ctx, id)
	})
	if err != nil {
		s.logger.Error("删除考试失败", zap.Uint("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Toggle ──────────────────────

func (s *examService) Toggle(ctx context.Context, id uint) (*dto.ToggleExamResponse, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}

	exam.IsActive = !exam.IsActive
	if err := s.repo.Exam.Update(ctx, exam); err != nil {
		s.logger.Error("切换考试状态失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	msg := "考试已禁用"
	if exam.IsActive {
		msg = "考试已启用"
	}
	return &dto.ToggleExamResponse{ID: exam.ID, IsActive: exam.IsActive, Message: msg}, nil
}

// ────────────────────── Paper ──────────────────────

func (s *examService) Paper(ctx context.Context, id uint, sales bool) (*dto.QuestionPaper, error) {
	exam, err := s.getExam(ctx, id)
	if err != nil {
		return nil, err
	}

	switch exam.StatusAt(s.now()) {
	case model.ExamStatusUpcoming:
		return nil, ErrExamNotStarted
	case model.ExamStatusExpired:
		return nil, ErrExamEnded
	}
	if !exam.IsActive {
		return nil, ErrExamDisabled
	}

	rows, err := s.repo.Exam.ListQuestions(ctx, id)
	if err != nil {
		s.logger.Error("查询考试题目失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	items := make([]dto.PaperQuestion, 0, len(rows))
	for _, row := range rows {
		if row.Question == nil {
			continue
		}
		items = append(items, toPaperQuestion(row.Question, row.OrderIndex, sales))
	}

	paper := buildPaper(items, exam.UpdatedAt)
	paper.ExamID = &exam.ID
	paper.ExamName = exam.ExamName
	paper.DurationMinutes = exam.DurationMinutes
	return paper, nil
}

// ── 内部方法 ──

func (s *examService) getExam(ctx context.Context, id uint) (*model.Exam, error) {
	exam, err := s.repo.Exam.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExamNotFound
		}
		s.logger.Error("查询考试失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return exam, nil
}

// validateQuestionIDs 校验题目列表非空、无重复且全部存在
func (s *examService) validateQuestionIDs(ctx context.Context, repo *repository.Repository, ids []uint) error {
	if len(ids) == 0 {
		return ErrExamQuestionsRequired
	}

	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := unique[id]; dup {
			return ErrExamQuestionDuplicate
		}
		unique[id] = struct{}{}
	}

	found, err := repo.Question.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if missing := len(unique) - len(found); missing > 0 {
		return ErrExamQuestionsMissing.Withf("%d 道题目不存在", missing)
	}
	return nil
}

func toExamResponse(e *model.Exam, status model.ExamStatus, questionCount int64) dto.ExamResponse {
	return dto.ExamResponse{
		ID:              e.ID,
		ExamName:        e.ExamName,
		Description:     e.Description,
		ExamType:        e.ExamType,
		DurationMinutes: e.DurationMinutes,
		StartTime:       e.StartTime.Format(dto.TimeLayout),
		EndTime:         e.EndTime.Format(dto.TimeLayout),
		IsActive:        e.IsActive,
		Status:          string(status),
		QuestionCount:   questionCount,
		CreatedBy:       e.CreatedBy,
		CreatedAt:       e.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt:       e.UpdatedAt.Format(dto.TimeLayout),
	}
}
