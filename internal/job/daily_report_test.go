package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"neurogen-exam/backend/internal/dto"
)

type fakeBackfiller struct {
	calls    int
	err      error
	deadline bool
}

func (f *fakeBackfiller) BackfillDailyReports(ctx context.Context) (*dto.BackfillReportsResponse, error) {
	f.calls++
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &dto.BackfillReportsResponse{Success: true, GeneratedDates: []string{"2024-06-14"}}, nil
}

func TestNewDailyReportJob_InvalidSpec(t *testing.T) {
	if _, err := NewDailyReportJob("99 99 * * *", &fakeBackfiller{}, zap.NewNop()); err == nil {
		t.Fatal("非法 cron 表达式应返回错误")
	}
}

func TestDailyReportJob_Run(t *testing.T) {
	b := &fakeBackfiller{}
	j, err := NewDailyReportJob("10 0 * * *", b, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDailyReportJob 应成功: %v", err)
	}

	j.Run()
	if b.calls != 1 {
		t.Errorf("期望调用 1 次，实际=%d", b.calls)
	}
	if !b.deadline {
		t.Error("回填应带超时上下文")
	}

	b.err = errors.New("db down")
	j.Run()
	if b.calls != 2 {
		t.Errorf("失败后仍应可再次执行，实际调用=%d", b.calls)
	}
}

func TestDailyReportJob_StartStop(t *testing.T) {
	j, err := NewDailyReportJob("@every 1h", &fakeBackfiller{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDailyReportJob 应成功: %v", err)
	}

	j.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	j.Stop(ctx)
}
