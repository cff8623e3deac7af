package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/model"
	"neurogen-exam/backend/internal/repository"
	pkgerrors "neurogen-exam/backend/pkg/errors"
)

// ── 题库模块业务错误 ──

var (
	ErrBankNotFound          = pkgerrors.New(pkgerrors.KindNotFound, "题库不存在")
	ErrBankNameExists        = pkgerrors.New(pkgerrors.KindConflict, "该团队下已存在同名题库")
	ErrBankProtected         = pkgerrors.New(pkgerrors.KindPrecondition, "默认题库不能删除")
	ErrBankHasQuestions      = pkgerrors.New(pkgerrors.KindPrecondition, "题库中还有题目，无法删除")
	ErrQuestionAlreadyInBank = pkgerrors.New(pkgerrors.KindConflict, "题库中已存在相同题目")
)

// QuestionBankService 题库业务接口
type QuestionBankService interface {
	Create(ctx context.Context, req *dto.CreateQuestionBankRequest) (*dto.QuestionBankResponse, error)
	List(ctx context.Context, req *dto.QuestionBankListRequest) ([]dto.QuestionBankResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.QuestionBankResponse, error)
	Update(ctx context.Context, id uint, req *dto.UpdateQuestionBankRequest) (*dto.QuestionBankResponse, error)
	// Delete 软删除；默认题库与非空题库拒绝删除
	Delete(ctx context.Context, id uint) error
	ListQuestions(ctx context.Context, bankID uint) ([]dto.QuestionResponse, error)
	// CopyQuestion 将题目复制一份到目标题库
	CopyQuestion(ctx context.Context, bankID uint, req *dto.CopyQuestionRequest) (*dto.QuestionResponse, error)
}

type questionBankService struct {
	repo      *repository.Repository
	selection SelectionService
	logger    *zap.Logger
}

// NewQuestionBankService 创建 QuestionBankService 实例
func NewQuestionBankService(repo *repository.Repository, selection SelectionService, logger *zap.Logger) QuestionBankService {
	return &questionBankService{repo: repo, selection: selection, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *questionBankService) Create(ctx context.Context, req *dto.CreateQuestionBankRequest) (*dto.QuestionBankResponse, error) {
	team, err := s.repo.Team.GetByID(ctx, req.TeamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	if err := s.ensureNameAvailable(ctx, req.TeamID, req.Name); err != nil {
		return nil, err
	}

	bank := &model.QuestionBank{
		TeamID:      req.TeamID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.repo.QuestionBank.Create(ctx, bank); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrBankNameExists
		}
		s.logger.Error("创建题库失败", zap.Error(err))
		return nil, err
	}
	bank.Team = team

	return toBankResponse(bank, 0, false), nil
}

// ────────────────────── List ──────────────────────

func (s *questionBankService) List(ctx context.Context, req *dto.QuestionBankListRequest) ([]dto.QuestionBankResponse, error) {
	banks, err := s.repo.QuestionBank.List(ctx, req.TeamID)
	if err != nil {
		s.logger.Error("列出题库失败", zap.Error(err))
		return nil, err
	}

	ids := make([]uint, 0, len(banks))
	for _, b := range banks {
		ids = append(ids, b.ID)
	}
	counts, err := s.repo.QuestionBank.BatchCountQuestions(ctx, ids)
	if err != nil {
		s.logger.Error("批量统计题目数失败", zap.Error(err))
		return nil, err
	}

	sel, err := s.selection.Resolve(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	result := make([]dto.QuestionBankResponse, 0, len(banks))
	for i := range banks {
		result = append(result, *toBankResponse(&banks[i], counts[banks[i].ID], banks[i].ID == sel.BankID))
	}
	return result, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *questionBankService) GetByID(ctx context.Context, id uint) (*dto.QuestionBankResponse, error) {
	bank, err := s.getBank(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.QuestionBank.CountQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	sel, err := s.selection.Resolve(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	return toBankResponse(bank, count, bank.ID == sel.BankID), nil
}

// ────────────────────── Update ──────────────────────

func (s *questionBankService) Update(ctx context.Context, id uint, req *dto.UpdateQuestionBankRequest) (*dto.QuestionBankResponse, error) {
	bank, err := s.getBank(ctx, id)
	if err != nil {
		return nil, err
	}

	teamID, name := bank.TeamID, bank.Name
	if req.TeamID != nil {
		if _, err := s.repo.Team.GetByID(ctx, *req.TeamID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTeamNotFound
			}
			return nil, err
		}
		teamID = *req.TeamID
	}
	if req.Name != nil {
		name = *req.Name
	}
	if teamID != bank.TeamID || name != bank.Name {
		if err := s.ensureNameAvailable(ctx, teamID, name); err != nil {
			return nil, err
		}
	}

	bank.TeamID = teamID
	bank.Name = name
	if req.Description != nil {
		bank.Description = *req.Description
	}

	if err := s.repo.QuestionBank.Update(ctx, bank); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrBankNameExists
		}
		s.logger.Error("更新题库失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── Delete ──────────────────────

func (s *questionBankService) Delete(ctx context.Context, id uint) error {
	if model.IsProtectedBank(id) {
		return ErrBankProtected
	}

	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.QuestionBank.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBankNotFound
			}
			return err
		}

		count, err := tx.QuestionBank.CountQuestions(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrBankHasQuestions.WithCount(count)
		}

		if err := tx.QuestionBank.SoftDelete(ctx, id); err != nil {
			s.logger.Error("删除题库失败", zap.Uint("id", id), zap.Error(err))
			return err
		}
		s.logger.Info("题库已停用", zap.Uint("id", id))
		return nil
	})
}

// ────────────────────── ListQuestions ──────────────────────

func (s *questionBankService) ListQuestions(ctx context.Context, bankID uint) ([]dto.QuestionResponse, error) {
	if _, err := s.getBank(ctx, bankID); err != nil {
		return nil, err
	}

	qs, err := s.repo.Question.List(ctx, repository.QuestionFilter{BankID: &bankID})
	if err != nil {
		s.logger.Error("查询题库题目失败", zap.Uint("bank_id", bankID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.QuestionResponse, 0, len(qs))
	for i := range qs {
		result = append(result, *toQuestionResponse(&qs[i]))
	}
	return result, nil
}

// ────────────────────── CopyQuestion ──────────────────────

func (s *questionBankService) CopyQuestion(ctx context.Context, bankID uint, req *dto.CopyQuestionRequest) (*dto.QuestionResponse, error) {
	if _, err := s.getBank(ctx, bankID); err != nil {
		return nil, err
	}

	src, err := s.repo.Question.GetByID(ctx, req.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	texts, err := s.repo.Question.ListTexts(ctx, bankID)
	if err != nil {
		return nil, err
	}
	for _, t := range texts {
		if t == src.Question {
			return nil, ErrQuestionAlreadyInBank
		}
	}

	dup := *src
	dup.ID = 0
	dup.BankID = bankID
	dup.Timestamps = model.Timestamps{}
	if err := s.repo.Question.Create(ctx, &dup); err != nil {
		s.logger.Error("复制题目失败", zap.Uint("question_id", src.ID), zap.Uint("bank_id", bankID), zap.Error(err))
		return nil, err
	}

	return toQuestionResponse(&dup), nil
}

// ── 内部方法 ──

func (s *questionBankService) getBank(ctx context.Context, id uint) (*model.QuestionBank, error) {
	bank, err := s.repo.QuestionBank.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBankNotFound
		}
		s.logger.Error("查询题库失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return bank, nil
}

func (s *questionBankService) ensureNameAvailable(ctx context.Context, teamID uint, name string) error {
	existing, err := s.repo.QuestionBank.GetActiveByName(ctx, teamID, name)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if existing != nil {
		return ErrBankNameExists
	}
	return nil
}

func toBankResponse(b *model.QuestionBank, questions int64, isCurrent bool) *dto.QuestionBankResponse {
	resp := &dto.QuestionBankResponse{
		ID:             b.ID,
		TeamID:         b.TeamID,
		Name:           b.Name,
		Description:    b.Description,
		IsActive:       b.IsActive,
		Lifecycle:      string(b.Lifecycle()),
		QuestionsCount: questions,
		IsCurrent:      isCurrent,
		CreatedAt:      b.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt:      b.UpdatedAt.Format(dto.TimeLayout),
	}
	if b.Team != nil {
		resp.TeamName = b.Team.Name
	}
	return resp
}
