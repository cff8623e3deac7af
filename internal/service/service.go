package service

import (
	"go.uber.org/zap"

	"neurogen-exam/backend/config"
	"neurogen-exam/backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Selection    SelectionService
	Team         TeamService
	QuestionBank QuestionBankService
	Question     QuestionService
	Exam         ExamService
	ExamRecord   ExamRecordService
	Report       ReportService
	Analytics    AnalyticsService
	SystemConfig SystemConfigService

	// Reports 后台报告生成，由 main 负责 Start / Stop
	Reports *ReportDispatcher
}

// NewService 创建 Service 聚合；cache 为 nil 时统计不走缓存
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache Cache,
	logger *zap.Logger,
) *Service {
	selection := NewSelectionService(repo, logger)
	report := NewReportService(cfg, repo, logger)

	// 后台任务使用独立会话，与请求生命周期无关
	background := NewReportService(cfg, repo.Detached(), logger.Named("report-worker"))
	dispatcher := NewReportDispatcher(background, cfg, logger)

	return &Service{
		Selection:    selection,
		Team:         NewTeamService(repo, logger),
		QuestionBank: NewQuestionBankService(repo, selection, logger),
		Question:     NewQuestionService(repo, selection, logger),
		Exam:         NewExamService(repo, logger),
		ExamRecord:   NewExamRecordService(repo, dispatcher, cache, logger),
		Report:       report,
		Analytics:    NewAnalyticsService(cfg, repo, cache, logger),
		SystemConfig: NewSystemConfigService(cfg, repo, report, logger),
		Reports:      dispatcher,
	}
}
