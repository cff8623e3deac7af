//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"neurogen-exam/backend/internal/model"
	"neurogen-exam/backend/internal/repository"
	"neurogen-exam/backend/pkg/database"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=postgres password=postgres dbname=neurogen_exam_test sslmode=disable TimeZone=Asia/Shanghai"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func uniq(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// ═══════════════════════════════════════════════════════════
// 初始数据
// ═══════════════════════════════════════════════════════════

func TestSeed_DefaultTeamBankAndSelection(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	if _, err := repo.Team.GetByID(ctx, model.DefaultTeamID); err != nil {
		t.Fatalf("默认团队应存在: %v", err)
	}
	if _, err := repo.QuestionBank.GetByID(ctx, model.DefaultBankID); err != nil {
		t.Fatalf("默认题库应存在: %v", err)
	}
	for _, key := range []string{model.ConfigKeyCurrentTeam, model.ConfigKeyCurrentBank} {
		if _, err := repo.SystemConfig.Get(ctx, key); err != nil {
			t.Errorf("配置 %s 应存在: %v", key, err)
		}
	}
}

// ═══════════════════════════════════════════════════════════
// 事务
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	code := uniq("rollback")

	sentinel := errors.New("force rollback")
	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Team.Create(ctx, &model.Team{Name: "回滚团队", Code: code, IsActive: true}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("期望返回 sentinel，实际: %v", err)
	}

	if _, err := repo.Team.GetByCode(ctx, code); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("回滚后不应查到团队，实际: %v", err)
	}
}

func TestTransaction_Commit(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	code := uniq("commit")

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		return tx.Team.Create(ctx, &model.Team{Name: "提交团队", Code: code, IsActive: true})
	})
	if err != nil {
		t.Fatalf("事务提交失败: %v", err)
	}

	team, err := repo.Team.GetByCode(ctx, code)
	if err != nil {
		t.Fatalf("提交后应查到团队: %v", err)
	}
	testDB.Delete(&model.Team{}, team.ID)
}

// ═══════════════════════════════════════════════════════════
// 唯一约束
// ═══════════════════════════════════════════════════════════

func TestTeam_DuplicateCode_IsUniqueViolation(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	code := uniq("dup")

	first := &model.Team{Name: "A", Code: code, IsActive: true}
	if err := repo.Team.Create(ctx, first); err != nil {
		t.Fatalf("创建团队失败: %v", err)
	}
	defer testDB.Delete(&model.Team{}, first.ID)

	err := repo.Team.Create(ctx, &model.Team{Name: "B", Code: code, IsActive: true})
	if !repository.IsUniqueViolation(err) {
		t.Fatalf("重复编码应为唯一约束冲突，实际: %v", err)
	}
}

func TestBank_NameReusableAfterSoftDelete(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	name := uniq("bank")

	first := &model.QuestionBank{TeamID: model.DefaultTeamID, Name: name, IsActive: true}
	if err := repo.QuestionBank.Create(ctx, first); err != nil {
		t.Fatalf("创建题库失败: %v", err)
	}
	if err := repo.QuestionBank.SoftDelete(ctx, first.ID); err != nil {
		t.Fatalf("软删除失败: %v", err)
	}

	second := &model.QuestionBank{TeamID: model.DefaultTeamID, Name: name, IsActive: true}
	if err := repo.QuestionBank.Create(ctx, second); err != nil {
		t.Fatalf("软删除后同名题库应可创建: %v", err)
	}
	testDB.Where("id IN ?", []uint{first.ID, second.ID}).Delete(&model.QuestionBank{})
}

// ═══════════════════════════════════════════════════════════
// 考试题目顺序
// ═══════════════════════════════════════════════════════════

func TestExamQuestions_ReplaceKeepsDenseOrder(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	var qids []uint
	for i := 0; i < 3; i++ {
		q := &model.Question{BankID: model.DefaultBankID, Category: "通用", QuestionType: "single",
			Question: uniq("题目"), OptionA: "A", OptionB: "B", Answer: "A"}
		if err := repo.Question.Create(ctx, q); err != nil {
			t.Fatalf("创建题目失败: %v", err)
		}
		qids = append(qids, q.ID)
	}
	defer testDB.Where("id IN ?", qids).Delete(&model.Question{})

	exam := &model.Exam{ExamName: uniq("考试"), ExamType: "formal", DurationMinutes: 20,
		StartTime: time.Now(), EndTime: time.Now().Add(time.Hour), IsActive: true, CreatedBy: "admin"}
	if err := repo.Exam.Create(ctx, exam); err != nil {
		t.Fatalf("创建考试失败: %v", err)
	}
	defer testDB.Delete(&model.Exam{}, exam.ID)

	if err := repo.Exam.CreateQuestions(ctx, model.BuildExamQuestions(exam.ID, qids)); err != nil {
		t.Fatalf("创建考试题目失败: %v", err)
	}

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Exam.DeleteQuestions(ctx, exam.ID); err != nil {
			return err
		}
		return tx.Exam.CreateQuestions(ctx, model.BuildExamQuestions(exam.ID, []uint{qids[2], qids[0]}))
	})
	if err != nil {
		t.Fatalf("替换考试题目失败: %v", err)
	}

	rows, err := repo.Exam.ListQuestions(ctx, exam.ID)
	if err != nil {
		t.Fatalf("查询考试题目失败: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望 2 道题，实际 %d", len(rows))
	}
	if rows[0].QuestionID != qids[2] || rows[0].OrderIndex != 1 || rows[1].OrderIndex != 2 {
		t.Errorf("顺序不符合预期: %+v", rows)
	}
}

// ═══════════════════════════════════════════════════════════
// 考试记录与配置
// ═══════════════════════════════════════════════════════════

func TestExamRecord_ListDatesByType(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	rec := &model.ExamRecord{
		ID: uniq("rec"), UserName: "张三", TeamID: 1, BankID: 1,
		Score: 90, CorrectCount: 9, TotalQuestions: 10, Duration: 300,
		ExamType:        model.ExamRecordTypeDaily,
		DetailedAnswers: datatypes.JSON(`{"0":"A"}`),
	}
	if err := repo.ExamRecord.Create(ctx, rec); err != nil {
		t.Fatalf("创建考试记录失败: %v", err)
	}
	defer repo.ExamRecord.Delete(ctx, rec.ID)

	dates, err := repo.ExamRecord.ListDatesByType(ctx, model.ExamRecordTypeDaily)
	if err != nil {
		t.Fatalf("查询日期失败: %v", err)
	}
	if len(dates) == 0 {
		t.Fatal("至少应有一个日期")
	}
}

func TestSystemConfig_Upsert(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	key := uniq("test_key")

	for _, v := range []string{"v1", "v2"} {
		if err := repo.SystemConfig.Upsert(ctx, &model.SystemConfig{Key: key, Value: v, ConfigType: "string"}); err != nil {
			t.Fatalf("Upsert 失败: %v", err)
		}
	}
	defer testDB.Where("key = ?", key).Delete(&model.SystemConfig{})

	cfg, err := repo.SystemConfig.Get(ctx, key)
	if err != nil {
		t.Fatalf("查询配置失败: %v", err)
	}
	if cfg.Value != "v2" {
		t.Errorf("期望 value=v2，实际=%s", cfg.Value)
	}
}
