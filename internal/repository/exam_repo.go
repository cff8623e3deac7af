package repository

import (
	"context"

	"gorm.io/gorm"

	"neurogen-exam/backend/internal/model"
)

// ExamRepository 考试数据访问接口（含考试题目关联）
type ExamRepository interface {
	Create(ctx context.Context, exam *model.Exam) error
	GetByID(ctx context.Context, id uint) (*model.Exam, error)
	// List 按开始时间倒序列出，examType 为空时不过滤
	List(ctx context.Context, examType string) ([]model.Exam, error)
	Update(ctx context.Context, exam *model.Exam) error
	Delete(ctx context.Context, id uint) error

	// ListQuestions 按 order_index 升序返回关联（预加载题目）
	ListQuestions(ctx context.Context, examID uint) ([]model.ExamQuestion, error)
	CreateQuestions(ctx context.Context, rows []model.ExamQuestion) error
	DeleteQuestions(ctx context.Context, examID uint) error
	BatchCountQuestions(ctx context.Context, examIDs []uint) (map[uint]int64, error)
}

type examRepo struct {
	db *gorm.DB
}

// NewExamRepo 创建 ExamRepository 实例
func NewExamRepo(db *gorm.DB) ExamRepository {
	return &examRepo{db: db}
}

func (r *examRepo) Create(ctx context.Context, exam *model.Exam) error {
	return r.db.WithContext(ctx).Create(exam).Error
}

func (r *examRepo) GetByID(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	if err := r.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *examRepo) List(ctx context.Context, examType string) ([]model.Exam, error) {
	var exams []model.Exam
	q := r.db.WithContext(ctx).Model(&model.Exam{})
	if examType != "" {
		q = q.Where("exam_type = ?", examType)
	}
	err := q.Order("start_time DESC").Find(&exams).Error
	return exams, err
}

func (r *examRepo) Update(ctx context.Context, exam *model.Exam) error {
	return r.db.WithContext(ctx).Save(exam).Error
}

func (r *examRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Exam{}, id).Error
}

func (r *examRepo) ListQuestions(ctx context.Context, examID uint) ([]model.ExamQuestion, error) {
	var rows []model.ExamQuestion
	err := r.db.WithContext(ctx).
		Preload("Question").
		Where("exam_id = ?", examID).
		Order("order_index ASC").
		Find(&rows).Error
	return rows, err
}

func (r *examRepo) CreateQuestions(ctx context.Context, rows []model.ExamQuestion) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Question").Create(&rows).Error
}

func (r *examRepo) DeleteQuestions(ctx context.Context, examID uint) error {
	return r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Delete(&model.ExamQuestion{}).Error
}

func (r *examRepo) BatchCountQuestions(ctx context.Context, examIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(examIDs))
	if len(examIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		ExamID uint
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.ExamQuestion{}).
		Select("exam_id, COUNT(*) AS count").
		Where("exam_id IN ?", examIDs).
		Group("exam_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ExamID] = row.Count
	}
	return result, nil
}
