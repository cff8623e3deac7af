package repository

import (
	"context"

	"gorm.io/gorm"

	"neurogen-exam/backend/internal/model"
)

// QuestionBankRepository 题库数据访问接口
type QuestionBankRepository interface {
	Create(ctx context.Context, bank *model.QuestionBank) error
	GetByID(ctx context.Context, id uint) (*model.QuestionBank, error)
	GetActiveByName(ctx context.Context, teamID uint, name string) (*model.QuestionBank, error)
	// List 列出启用中的题库，teamID 为 nil 时不过滤团队
	List(ctx context.Context, teamID *uint) ([]model.QuestionBank, error)
	Update(ctx context.Context, bank *model.QuestionBank) error
	SoftDelete(ctx context.Context, id uint) error
	CountQuestions(ctx context.Context, bankID uint) (int64, error)
	BatchCountQuestions(ctx context.Context, bankIDs []uint) (map[uint]int64, error)
}

type questionBankRepo struct {
	db *gorm.DB
}

// NewQuestionBankRepo 创建 QuestionBankRepository 实例
func NewQuestionBankRepo(db *gorm.DB) QuestionBankRepository {
	return &questionBankRepo{db: db}
}

func (r *questionBankRepo) Create(ctx context.Context, bank *model.QuestionBank) error {
	return r.db.WithContext(ctx).Create(bank).Error
}

func (r *questionBankRepo) GetByID(ctx context.Context, id uint) (*model.QuestionBank, error) {
	var bank model.QuestionBank
	err := r.db.WithContext(ctx).
		Preload("Team").
		Where("id = ? AND is_active = ?", id, true).
		First(&bank).Error
	if err != nil {
		return nil, err
	}
	return &bank, nil
}

func (r *questionBankRepo) GetActiveByName(ctx context.Context, teamID uint, name string) (*model.QuestionBank, error) {
	var bank model.QuestionBank
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND name = ? AND is_active = ?", teamID, name, true).
		First(&bank).Error
	if err != nil {
		return nil, err
	}
	return &bank, nil
}

func (r *questionBankRepo) List(ctx context.Context, teamID *uint) ([]model.QuestionBank, error) {
	var banks []model.QuestionBank
	q := r.db.WithContext(ctx).
		Preload("Team").
		Where("is_active = ?", true)
	if teamID != nil {
		q = q.Where("team_id = ?", *teamID)
	}
	err := q.Order("id ASC").Find(&banks).Error
	return banks, err
}

func (r *questionBankRepo) Update(ctx context.Context, bank *model.QuestionBank) error {
	return r.db.WithContext(ctx).Omit("Team").Save(bank).Error
}

func (r *questionBankRepo) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&model.QuestionBank{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *questionBankRepo) CountQuestions(ctx context.Context, bankID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Question{}).
		Where("bank_id = ?", bankID).
		Count(&count).Error
	return count, err
}

func (r *questionBankRepo) BatchCountQuestions(ctx context.Context, bankIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(bankIDs))
	if len(bankIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		BankID uint
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Question{}).
		Select("bank_id, COUNT(*) AS count").
		Where("bank_id IN ?", bankIDs).
		Group("bank_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.BankID] = row.Count
	}
	return result, nil
}
