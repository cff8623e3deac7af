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

// ── 团队模块业务错误 ──

var (
	ErrTeamNotFound   = pkgerrors.New(pkgerrors.KindNotFound, "团队不存在")
	ErrTeamCodeExists = pkgerrors.New(pkgerrors.KindConflict, "团队代码已存在")
	ErrTeamProtected  = pkgerrors.New(pkgerrors.KindPrecondition, "默认团队不能删除")
	ErrTeamHasBanks   = pkgerrors.New(pkgerrors.KindPrecondition, "团队下还有题库，无法删除")
)

// TeamService 团队业务接口
type TeamService interface {
	Create(ctx context.Context, req *dto.CreateTeamRequest) (*dto.TeamResponse, error)
	List(ctx context.Context) ([]dto.TeamResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.TeamResponse, error)
	Update(ctx context.Context, id uint, req *dto.UpdateTeamRequest) (*dto.TeamResponse, error)
	// Delete 软删除；默认团队与仍有启用题库的团队拒绝删除
	Delete(ctx context.Context, id uint) error
}

type teamService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTeamService 创建 TeamService 实例
func NewTeamService(repo *repository.Repository, logger *zap.Logger) TeamService {
	return &teamService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *teamService) Create(ctx context.Context, req *dto.CreateTeamRequest) (*dto.TeamResponse, error) {
	existing, err := s.repo.Team.GetByCode(ctx, req.Code)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询团队失败", zap.Error(err))
		return nil, err
	}
	if existing != nil {
		return nil, ErrTeamCodeExists
	}

	team := &model.Team{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.repo.Team.Create(ctx, team); err != nil {
		// 并发创建同编码时由唯一索引兜底
		if repository.IsUniqueViolation(err) {
			return nil, ErrTeamCodeExists
		}
		s.logger.Error("创建团队失败", zap.Error(err))
		return nil, err
	}

	return toTeamResponse(team, repository.TeamStats{}), nil
}

// ────────────────────── List ──────────────────────

func (s *teamService) List(ctx context.Context) ([]dto.TeamResponse, error) {
	teams, err := s.repo.Team.ListActive(ctx)
	if err != nil {
		s.logger.Error("列出团队失败", zap.Error(err))
		return nil, err
	}

	ids := make([]uint, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	stats, err := s.repo.Team.BatchStats(ctx, ids)
	if err != nil {
		s.logger.Error("批量统计团队数据失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		result = append(result, *toTeamResponse(&teams[i], stats[teams[i].ID]))
	}
	return result, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *teamService) GetByID(ctx context.Context, id uint) (*dto.TeamResponse, error) {
	team, err := s.getTeam(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.Team.BatchStats(ctx, []uint{id})
	if err != nil {
		s.logger.Error("统计团队数据失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return toTeamResponse(team, stats[id]), nil
}

// ────────────────────── Update ──────────────────────

func (s *teamService) Update(ctx context.Context, id uint, req *dto.UpdateTeamRequest) (*dto.TeamResponse, error) {
	team, err := s.getTeam(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Code != nil && *req.Code != team.Code {
		existing, err := s.repo.Team.GetByCode(ctx, *req.Code)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, ErrTeamCodeExists
		}
		team.Code = *req.Code
	}
	if req.Name != nil {
		team.Name = *req.Name
	}
	if req.Description != nil {
		team.Description = *req.Description
	}

	if err := s.repo.Team.Update(ctx, team); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrTeamCodeExists
		}
		s.logger.Error("更新团队失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── Delete ──────────────────────

func (s *teamService) Delete(ctx context.Context, id uint) error {
	if model.IsProtectedTeam(id) {
		return ErrTeamProtected
	}

	// 检查与软删除在同一事务内，避免检查后新建题库
	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Team.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}

		banks, err := tx.Team.CountActiveBanks(ctx, id)
		if err != nil {
			return err
		}
		if banks > 0 {
			return ErrTeamHasBanks.WithCount(banks)
		}

		if err := tx.Team.SoftDelete(ctx, id); err != nil {
			s.logger.Error("删除团队失败", zap.Uint("id", id), zap.Error(err))
			return err
		}
		s.logger.Info("团队已停用", zap.Uint("id", id))
		return nil
	})
}

// ── 内部方法 ──

func (s *teamService) getTeam(ctx context.Context, id uint) (*model.Team, error) {
	team, err := s.repo.Team.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		s.logger.Error("查询团队失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return team, nil
}

func toTeamResponse(t *model.Team, stats repository.TeamStats) *dto.TeamResponse {
	return &dto.TeamResponse{
		ID:             t.ID,
		Name:           t.Name,
		Code:           t.Code,
		Description:    t.Description,
		IsActive:       t.IsActive,
		Lifecycle:      string(t.Lifecycle()),
		BanksCount:     stats.BanksCount,
		QuestionsCount: stats.QuestionsCount,
		ExamsCount:     stats.ExamsCount,
		CreatedAt:      t.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt:      t.UpdatedAt.Format(dto.TimeLayout),
	}
}
