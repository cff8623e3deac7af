package repository

import (
	"context"

	"gorm.io/gorm"

	"neurogen-exam/backend/internal/model"
)

// QuestionFilter 题目列表过滤条件
type QuestionFilter struct {
	BankID   *uint
	Category string
	Type     string
	Limit    int
	Random   bool
}

// GroupCount 分组计数结果
type GroupCount struct {
	Key   string
	Count int64
}

// QuestionRepository 题目数据访问接口
type QuestionRepository interface {
	Create(ctx context.Context, q *model.Question) error
	CreateBatch(ctx context.Context, qs []model.Question) error
	GetByID(ctx context.Context, id uint) (*model.Question, error)
	ListByIDs(ctx context.Context, ids []uint) ([]model.Question, error)
	List(ctx context.Context, filter QuestionFilter) ([]model.Question, error)
	Update(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id uint) error
	// CountExamReferences 统计引用该题目的考试题目行
	CountExamReferences(ctx context.Context, questionID uint) (int64, error)
	// ListTexts 返回题库内全部题干，用于导入/复制去重
	ListTexts(ctx context.Context, bankID uint) ([]string, error)
	Count(ctx context.Context, bankID *uint) (int64, error)
	CountByType(ctx context.Context, bankID *uint) ([]GroupCount, error)
	CountByCategory(ctx context.Context, bankID *uint) ([]GroupCount, error)
}

type questionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo 创建 QuestionRepository 实例
func NewQuestionRepo(db *gorm.DB) QuestionRepository {
	return &questionRepo{db: db}
}

func (r *questionRepo) Create(ctx context.Context, q *model.Question) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *questionRepo) CreateBatch(ctx context.Context, qs []model.Question) error {
	if len(qs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(qs, 100).Error
}

func (r *questionRepo) GetByID(ctx context.Context, id uint) (*model.Question, error) {
	var q model.Question
	if err := r.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questionRepo) ListByIDs(ctx context.Context, ids []uint) ([]model.Question, error) {
	var qs []model.Question
	if len(ids) == 0 {
		return qs, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&qs).Error
	return qs, err
}

func (r *questionRepo) List(ctx context.Context, filter QuestionFilter) ([]model.Question, error) {
	var qs []model.Question
	q := r.db.WithContext(ctx).Model(&model.Question{})
	if filter.BankID != nil {
		q = q.Where("bank_id = ?", *filter.BankID)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Type != "" {
		q = q.Where("question_type = ?", filter.Type)
	}
	if filter.Random {
		q = q.Order("RANDOM()")
	} else {
		q = q.Order("id ASC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	err := q.Find(&qs).Error
	return qs, err
}

func (r *questionRepo) Update(ctx context.Context, q *model.Question) error {
	return r.db.WithContext(ctx).Save(q).Error
}

func (r *questionRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Question{}, id).Error
}

func (r *questionRepo) CountExamReferences(ctx context.Context, questionID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ExamQuestion{}).
		Where("question_id = ?", questionID).
		Count(&count).Error
	return count, err
}

func (r *questionRepo) ListTexts(ctx context.Context, bankID uint) ([]string, error) {
	var texts []string
	err := r.db.WithContext(ctx).
		Model(&model.Question{}).
		Where("bank_id = ?", bankID).
		Pluck("question", &texts).Error
	return texts, err
}

func (r *questionRepo) Count(ctx context.Context, bankID *uint) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Question{})
	if bankID != nil {
		q = q.Where("bank_id = ?", *bankID)
	}
	err := q.Count(&count).Error
	return count, err
}

func (r *questionRepo) CountByType(ctx context.Context, bankID *uint) ([]GroupCount, error) {
	return r.countBy(ctx, bankID, "question_type")
}

func (r *questionRepo) CountByCategory(ctx context.Context, bankID *uint) ([]GroupCount, error) {
	return r.countBy(ctx, bankID, "category")
}

// countBy column 仅由本文件传入固定列名
func (r *questionRepo) countBy(ctx context.Context, bankID *uint, column string) ([]GroupCount, error) {
	var rows []GroupCount
	q := r.db.WithContext(ctx).
		Model(&model.Question{}).
		Select(column + " AS key, COUNT(*) AS count")
	if bankID != nil {
		q = q.Where("bank_id = ?", *bankID)
	}
	err := q.Group(column).Order("count DESC").Scan(&rows).Error
	return rows, err
}
