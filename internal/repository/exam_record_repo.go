package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"neurogen-exam/backend/internal/model"
)

// ExamRecordFilter 考试记录查询条件
type ExamRecordFilter struct {
	UserName   string // 模糊匹配
	Department string
	ExamType   string
	From       *time.Time // 含
	To         *time.Time // 不含
	Limit      int
}

// ExamRecordRepository 考试记录数据访问接口
type ExamRecordRepository interface {
	Create(ctx context.Context, rec *model.ExamRecord) error
	GetByID(ctx context.Context, id string) (*model.ExamRecord, error)
	// GetByIDForUpdate 行级锁读取，须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.ExamRecord, error)
	Update(ctx context.Context, rec *model.ExamRecord) error
	SetAIReport(ctx context.Context, id, report string) error
	Delete(ctx context.Context, id string) error
	// List 按创建时间倒序
	List(ctx context.Context, filter ExamRecordFilter) ([]model.ExamRecord, error)
	Count(ctx context.Context, filter ExamRecordFilter) (int64, error)
	// ListDatesByType 返回指定类型记录出现过的日期（YYYY-MM-DD，升序）
	ListDatesByType(ctx context.Context, examType string) ([]string, error)
}

type examRecordRepo struct {
	db *gorm.DB
}

// NewExamRecordRepo 创建 ExamRecordRepository 实例
func NewExamRecordRepo(db *gorm.DB) ExamRecordRepository {
	return &examRecordRepo{db: db}
}

func (r *examRecordRepo) Create(ctx context.Context, rec *model.ExamRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *examRecordRepo) GetByID(ctx context.Context, id string) (*model.ExamRecord, error) {
	var rec model.ExamRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *examRecordRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.ExamRecord, error) {
	var rec model.ExamRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *examRecordRepo) Update(ctx context.Context, rec *model.ExamRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *examRecordRepo) SetAIReport(ctx context.Context, id, report string) error {
	return r.db.WithContext(ctx).
		Model(&model.ExamRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ai_report":  report,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *examRecordRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ExamRecord{}).Error
}

func (r *examRecordRepo) applyFilter(q *gorm.DB, filter ExamRecordFilter) *gorm.DB {
	if filter.UserName != "" {
		q = q.Where("user_name ILIKE ?", "%"+filter.UserName+"%")
	}
	if filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}
	if filter.ExamType != "" {
		q = q.Where("exam_type = ?", filter.ExamType)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}
	return q
}

func (r *examRecordRepo) List(ctx context.Context, filter ExamRecordFilter) ([]model.ExamRecord, error) {
	var recs []model.ExamRecord
	q := r.applyFilter(r.db.WithContext(ctx).Model(&model.ExamRecord{}), filter).
		Order("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	err := q.Find(&recs).Error
	return recs, err
}

func (r *examRecordRepo) Count(ctx context.Context, filter ExamRecordFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&model.ExamRecord{}), filter).
		Count(&count).Error
	return count, err
}

func (r *examRecordRepo) ListDatesByType(ctx context.Context, examType string) ([]string, error) {
	var dates []string
	err := r.db.WithContext(ctx).
		Model(&model.ExamRecord{}).
		Where("exam_type = ?", examType).
		Select("DISTINCT TO_CHAR(created_at, 'YYYY-MM-DD') AS day").
		Order("day ASC").
		Scan(&dates).Error
	return dates, err
}
