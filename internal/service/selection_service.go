package service

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/model"
	"neurogen-exam/backend/internal/repository"
	pkgerrors "neurogen-exam/backend/pkg/errors"
)

// ── 当前选择模块业务错误 ──

var (
	ErrBankNotInTeam = pkgerrors.New(pkgerrors.KindValidation, "题库不属于指定团队")
)

// ResolvedSelection 解析后的团队/题库上下文
// 由调用方显式传递，替代隐式的全局"当前题库"
type ResolvedSelection struct {
	TeamID uint
	BankID uint
}

// SelectionService 当前团队/题库选择
type SelectionService interface {
	// Resolve 以显式参数优先，缺省时回落到 current_team_id / current_bank_id（再缺省为 1/1）
	Resolve(ctx context.Context, teamID, bankID *uint) (ResolvedSelection, error)
	Current(ctx context.Context) (*dto.CurrentConfigResponse, error)
	SetCurrentBank(ctx context.Context, req *dto.SetCurrentBankRequest) (*dto.CurrentConfigResponse, error)
}

type selectionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSelectionService 创建 SelectionService 实例
func NewSelectionService(repo *repository.Repository, logger *zap.Logger) SelectionService {
	return &selectionService{repo: repo, logger: logger}
}

// ────────────────────── Resolve ──────────────────────

func (s *selectionService) Resolve(ctx context.Context, teamID, bankID *uint) (ResolvedSelection, error) {
	return resolveSelection(ctx, s.repo, teamID, bankID)
}

// resolveSelection 在给定的 repo（可为事务）上解析选择，供提交等多步写入复用
func resolveSelection(ctx context.Context, repo *repository.Repository, teamID, bankID *uint) (ResolvedSelection, error) {
	sel := ResolvedSelection{TeamID: model.DefaultTeamID, BankID: model.DefaultBankID}

	if teamID != nil {
		sel.TeamID = *teamID
	} else {
		id, err := readSelectionPointer(ctx, repo, model.ConfigKeyCurrentTeam, model.DefaultTeamID)
		if err != nil {
			return sel, err
		}
		sel.TeamID = id
	}

	if bankID != nil {
		sel.BankID = *bankID
	} else {
		id, err := readSelectionPointer(ctx, repo, model.ConfigKeyCurrentBank, model.DefaultBankID)
		if err != nil {
			return sel, err
		}
		sel.BankID = id
	}
	return sel, nil
}

// readSelectionPointer 读取指针配置；缺失或无法解析时返回默认值
func readSelectionPointer(ctx context.Context, repo *repository.Repository, key string, fallback uint) (uint, error) {
	cfg, err := repo.SystemConfig.Get(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fallback, nil
		}
		return 0, err
	}
	id, err := strconv.ParseUint(cfg.Value, 10, 64)
	if err != nil || id == 0 {
		return fallback, nil
	}
	return uint(id), nil
}

// ────────────────────── Current ──────────────────────

func (s *selectionService) Current(ctx context.Context) (*dto.CurrentConfigResponse, error) {
	sel, err := s.Resolve(ctx, nil, nil)
	if err != nil {
		s.logger.Error("读取当前选择失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.CurrentConfigResponse{CurrentTeamID: sel.TeamID, CurrentBankID: sel.BankID}
	if team, err := s.repo.Team.GetByID(ctx, sel.TeamID); err == nil {
		resp.TeamName = team.Name
	}
	if bank, err := s.repo.QuestionBank.GetByID(ctx, sel.BankID); err == nil {
		resp.BankName = bank.Name
	}
	return resp, nil
}

// ────────────────────── SetCurrentBank ──────────────────────

func (s *selectionService) SetCurrentBank(ctx context.Context, req *dto.SetCurrentBankRequest) (*dto.CurrentConfigResponse, error) {
	team, err := s.repo.Team.GetByID(ctx, req.TeamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	bank, err := s.repo.QuestionBank.GetByID(ctx, req.BankID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBankNotFound
		}
		return nil, err
	}
	if bank.TeamID != team.ID {
		return nil, ErrBankNotInTeam
	}

	// 两个指针必须同时生效
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.SystemConfig.Upsert(ctx, &model.SystemConfig{
			Key:         model.ConfigKeyCurrentTeam,
			Value:       strconv.FormatUint(uint64(team.ID), 10),
			Description: "当前选择的团队ID",
			ConfigType:  model.ConfigTypeNumber,
		}); err != nil {
			return err
		}
		return tx.SystemConfig.Upsert(ctx, &model.SystemConfig{
			Key:         model.ConfigKeyCurrentBank,
			Value:       strconv.FormatUint(uint64(bank.ID), 10),
			Description: "当前选择的题库ID",
			ConfigType:  model.ConfigTypeNumber,
		})
	})
	if err != nil {
		s.logger.Error("设置当前题库失败", zap.Uint("bank_id", bank.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("当前题库已切换", zap.Uint("team_id", team.ID), zap.Uint("bank_id", bank.ID))

	return &dto.CurrentConfigResponse{
		CurrentTeamID: team.ID,
		CurrentBankID: bank.ID,
		TeamName:      team.Name,
		BankName:      bank.Name,
	}, nil
}
