package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Team         TeamRepository
	QuestionBank QuestionBankRepository
	Question     QuestionRepository
	Exam         ExamRepository
	ExamRecord   ExamRecordRepository
	SystemConfig SystemConfigRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Team:         NewTeamRepo(db),
		QuestionBank: NewQuestionBankRepo(db),
		Question:     NewQuestionRepo(db),
		Exam:         NewExamRepo(db),
		ExamRecord:   NewExamRecordRepo(db),
		SystemConfig: NewSystemConfigRepo(db),
	}
}

// Transaction 在单个数据库事务中执行 fn
// fn 返回错误或 panic 时整体回滚；fn 内必须使用传入的 tx 访问数据
// 未绑定数据库（单元测试中直接组装 mock）时直接以自身调用 fn
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// Detached 返回与当前请求、事务无关的新会话
// 后台任务使用独立会话，不复用请求期间的连接状态
func (r *Repository) Detached() *Repository {
	if r.db == nil {
		return r
	}
	return NewRepository(r.db.Session(&gorm.Session{NewDB: true}))
}

// Ping 检查数据库连通性
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// IsUniqueViolation 判断是否为唯一约束冲突（SQLSTATE 23505）
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
