package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"neurogen-exam/backend/config"
	"neurogen-exam/backend/internal/api/handler"
	"neurogen-exam/backend/internal/api/middleware"
	"neurogen-exam/backend/internal/api/router"
	"neurogen-exam/backend/internal/job"
	"neurogen-exam/backend/internal/repository"
	"neurogen-exam/backend/internal/service"
	"neurogen-exam/backend/pkg/database"
	applogger "neurogen-exam/backend/pkg/logger"
	"neurogen-exam/backend/pkg/redis"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "neurogen-exam",
		Short:        "考试与测评后端服务",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（缺省时查找 ./config/config.yaml）")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(configPath)
		},
	}

	var down int
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移（--down N 回滚 N 个版本）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(configPath, down)
		},
	}
	migrateCmd.Flags().IntVar(&down, "down", 0, "回滚的迁移版本数")

	backfill := &cobra.Command{
		Use:   "backfill-daily-reports",
		Short: "为缺失的日期生成每日测验报告",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBackfill(cmd.Context(), configPath)
		},
	}

	root.AddCommand(serve, migrateCmd, backfill)

	// 无子命令时默认启动服务
	root.RunE = serve.RunE

	return root
}

// bootstrap 加载配置、初始化日志并连接数据库
func bootstrap(configPath string) (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Error("数据库连接失败", zap.Error(err))
		return nil, nil, nil, err
	}

	return cfg, logger, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, _ := db.DB(); sqlDB != nil {
		sqlDB.Close()
	}
}

func runServe(configPath string) error {
	// 1. 配置、日志、数据库
	cfg, logger, db, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer closeDB(db)

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 2. 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Error("数据库迁移失败", zap.Error(err))
		return err
	}

	// 3. 连接 Redis（可选：连接失败时降级运行，统计不缓存、报告接口不限流）
	var (
		cache   service.Cache
		limiter middleware.Limiter
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，缓存与限流功能将不可用", zap.Error(err))
	} else {
		cache = rdb
		limiter = rdb
		defer rdb.Close()
	}

	// 4. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, cache, logger)
	h := handler.NewHandler(svc)

	svc.Reports.Start()

	// 5. 定时任务
	var dailyJob *job.DailyReportJob
	if cfg.Cron.Enabled {
		dailyJob, err = job.NewDailyReportJob(cfg.Cron.DailyReportSpec, svc.Analytics, logger)
		if err != nil {
			return err
		}
		dailyJob.Start()
	}

	// 6. 初始化路由并启动 HTTP 服务器
	engine := router.Setup(cfg, h, limiter, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AI.ManualTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// 7. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("HTTP 服务器异常", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	if dailyJob != nil {
		dailyJob.Stop(ctx)
	}
	// 等待后台报告任务收尾
	if err := svc.Reports.Stop(ctx); err != nil {
		logger.Warn("后台报告任务未能全部完成", zap.Error(err))
	}

	logger.Info("服务器已关闭")
	return nil
}

func runMigrate(configPath string, down int) error {
	_, logger, db, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer closeDB(db)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	if down > 0 {
		return database.RollbackMigrations(sqlDB, down, logger)
	}
	return database.RunMigrations(sqlDB, logger)
}

func runBackfill(ctx context.Context, configPath string) error {
	cfg, logger, db, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer closeDB(db)

	if ctx == nil {
		ctx = context.Background()
	}

	svc := service.NewService(cfg, repository.NewRepository(db), nil, logger)
	result, err := svc.Analytics.BackfillDailyReports(ctx)
	if err != nil {
		return fmt.Errorf("回填每日报告失败: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
