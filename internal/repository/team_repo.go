package repository

import (
	"context"

	"gorm.io/gorm"

	"neurogen-exam/backend/internal/model"
)

// TeamStats 团队的读时统计
type TeamStats struct {
	BanksCount     int64
	QuestionsCount int64
	ExamsCount     int64
}

// TeamRepository 团队数据访问接口
type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	GetByID(ctx context.Context, id uint) (*model.Team, error)
	GetByCode(ctx context.Context, code string) (*model.Team, error)
	ListActive(ctx context.Context) ([]model.Team, error)
	Update(ctx context.Context, team *model.Team) error
	SoftDelete(ctx context.Context, id uint) error
	CountActiveBanks(ctx context.Context, teamID uint) (int64, error)
	// BatchStats 批量统计题库数、题目数、考试记录数，避免 N+1 查询
	BatchStats(ctx context.Context, teamIDs []uint) (map[uint]TeamStats, error)
}

type teamRepo struct {
	db *gorm.DB
}

// NewTeamRepo 创建 TeamRepository 实例
func NewTeamRepo(db *gorm.DB) TeamRepository {
	return &teamRepo{db: db}
}

func (r *teamRepo) Create(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *teamRepo) GetByID(ctx context.Context, id uint) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&team).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// GetByCode 按编码查询（含已停用团队，编码全局唯一）
func (r *teamRepo) GetByCode(ctx context.Context, code string) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&team).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepo) ListActive(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&teams).Error
	return teams, err
}

func (r *teamRepo) Update(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Save(team).Error
}

func (r *teamRepo) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&model.Team{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *teamRepo) CountActiveBanks(ctx context.Context, teamID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.QuestionBank{}).
		Where("team_id = ? AND is_active = ?", teamID, true).
		Count(&count).Error
	return count, err
}

type teamCountRow struct {
	TeamID uint
	Count  int64
}

func (r *teamRepo) BatchStats(ctx context.Context, teamIDs []uint) (map[uint]TeamStats, error) {
	result := make(map[uint]TeamStats, len(teamIDs))
	if len(teamIDs) == 0 {
		return result, nil
	}

	var banks, questions, records []teamCountRow

	if err := r.db.WithContext(ctx).
		Model(&model.QuestionBank{}).
		Select("team_id, COUNT(*) AS count").
		Where("team_id IN ? AND is_active = ?", teamIDs, true).
		Group("team_id").
		Scan(&banks).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Table("questions q").
		Select("b.team_id AS team_id, COUNT(q.id) AS count").
		Joins("JOIN question_banks b ON b.id = q.bank_id").
		Where("b.team_id IN ? AND b.is_active = ?", teamIDs, true).
		Group("b.team_id").
		Scan(&questions).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Model(&model.ExamRecord{}).
		Select("team_id, COUNT(*) AS count").
		Where("team_id IN ?", teamIDs).
		Group("team_id").
		Scan(&records).Error; err != nil {
		return nil, err
	}

	for _, row := range banks {
		s := result[row.TeamID]
		s.BanksCount = row.Count
		result[row.TeamID] = s
	}
	for _, row := range questions {
		s := result[row.TeamID]
		s.QuestionsCount = row.Count
		result[row.TeamID] = s
	}
	for _, row := range records {
		s := result[row.TeamID]
		s.ExamsCount = row.Count
		result[row.TeamID] = s
	}
	return result, nil
}
