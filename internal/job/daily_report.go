// Package job 后台定时任务。
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"neurogen-exam/backend/internal/dto"
)

// backfillTimeout 单次回填的最长执行时间
const backfillTimeout = 5 * time.Minute

// Backfiller 每日报告回填；service.AnalyticsService 实现该接口
type Backfiller interface {
	BackfillDailyReports(ctx context.Context) (*dto.BackfillReportsResponse, error)
}

// DailyReportJob 按 cron 表达式定时回填缺失的每日测验报告
type DailyReportJob struct {
	cron       *cron.Cron
	backfiller Backfiller
	logger     *zap.Logger
}

// NewDailyReportJob 注册定时任务；spec 为标准 5 段 cron 表达式
// 上一次回填未结束时跳过本次触发
func NewDailyReportJob(spec string, backfiller Backfiller, logger *zap.Logger) (*DailyReportJob, error) {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	j := &DailyReportJob{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		backfiller: backfiller,
		logger:     logger,
	}

	if _, err := j.cron.AddFunc(spec, j.Run); err != nil {
		return nil, fmt.Errorf("注册每日报告任务失败 (spec=%q): %w", spec, err)
	}
	return j, nil
}

// Run 执行一次回填
func (j *DailyReportJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), backfillTimeout)
	defer cancel()

	start := time.Now()
	result, err := j.backfiller.BackfillDailyReports(ctx)
	if err != nil {
		j.logger.Error("每日报告回填失败", zap.Error(err))
		return
	}

	j.logger.Info("每日报告回填完成",
		zap.Strings("dates", result.GeneratedDates),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// Start 启动调度
func (j *DailyReportJob) Start() {
	j.cron.Start()
	j.logger.Info("每日报告定时任务已启动", zap.Int("entries", len(j.cron.Entries())))
}

// Stop 停止调度并等待正在执行的任务结束（最长等待 ctx 截止）
func (j *DailyReportJob) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		j.logger.Warn("等待每日报告任务结束超时")
	}
}
