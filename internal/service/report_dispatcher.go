package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"neurogen-exam/backend/config"
)

// InlineReportGenerator 后台任务调用的报告生成入口
type InlineReportGenerator interface {
	GenerateInline(ctx context.Context, recordID string) error
}

// ReportQueue 提交流程依赖的最小接口：只投递、不等待
type ReportQueue interface {
	Enqueue(recordID string) bool
}

// ReportDispatcher 后台报告生成
//
//   - 有界队列 + 固定数量 worker；队列满时丢弃并记录日志，不阻塞提交请求
//   - 每个任务使用独立的 context 与超时，不继承请求 context
//   - 任务内 panic 被 recover，单个任务失败不影响 worker
type ReportDispatcher struct {
	generator  InlineReportGenerator
	jobs       chan string
	workers    int
	jobTimeout time.Duration
	logger     *zap.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewReportDispatcher 创建后台报告调度器；generator 应绑定独立的数据库会话
func NewReportDispatcher(generator InlineReportGenerator, cfg *config.Config, logger *zap.Logger) *ReportDispatcher {
	workers := cfg.Report.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.Report.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	return &ReportDispatcher{
		generator: generator,
		jobs:      make(chan string, queueSize),
		workers:   workers,
		// 供应商调用超时之外留出读写数据库的时间
		jobTimeout: cfg.AI.InlineTimeout + 10*time.Second,
		logger:     logger,
	}
}

// Start 启动 worker
func (d *ReportDispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info("报告生成 worker 已启动", zap.Int("workers", d.workers), zap.Int("queue_size", cap(d.jobs)))
}

// Enqueue 投递任务；队列已满或已停止时返回 false
func (d *ReportDispatcher) Enqueue(recordID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return false
	}
	select {
	case d.jobs <- recordID:
		return true
	default:
		d.logger.Warn("报告队列已满，丢弃任务", zap.String("record_id", recordID))
		return false
	}
}

// Stop 停止接收新任务并等待队列中的任务处理完毕，ctx 到期则直接返回
func (d *ReportDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("报告生成 worker 已退出")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *ReportDispatcher) worker(n int) {
	defer d.wg.Done()
	for id := range d.jobs {
		if err := d.run(id); err != nil {
			d.logger.Warn("后台生成报告失败", zap.Int("worker", n), zap.String("record_id", id), zap.Error(err))
		}
	}
}

func (d *ReportDispatcher) run(recordID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.jobTimeout)
	defer cancel()
	return d.generator.GenerateInline(ctx, recordID)
}
