package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"neurogen-exam/backend/config"
	"neurogen-exam/backend/internal/api/handler"
	"neurogen-exam/backend/internal/api/middleware"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时报告接口不限流
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.Limiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger, "/health"))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// 团队
		teams := api.Group("/teams")
		{
			teams.GET("", h.Team.ListTeams)
			teams.POST("", h.Team.CreateTeam)
			teams.GET("/:id", h.Team.GetTeam)
			teams.PUT("/:id", h.Team.UpdateTeam)
			teams.DELETE("/:id", h.Team.DeleteTeam)
		}

		// 题库
		banks := api.Group("/question-banks")
		{
			banks.GET("", h.QuestionBank.ListBanks)
			banks.POST("", h.QuestionBank.CreateBank)
			banks.GET("/:id", h.QuestionBank.GetBank)
			banks.PUT("/:id", h.QuestionBank.UpdateBank)
			banks.DELETE("/:id", h.QuestionBank.DeleteBank)
			banks.GET("/:id/questions", h.QuestionBank.ListBankQuestions)
			banks.POST("/:id/questions", h.QuestionBank.CopyQuestion)
		}
		api.GET("/current-config", h.QuestionBank.GetCurrentConfig)
		api.POST("/set-current-bank", h.QuestionBank.SetCurrentBank)

		// 题目（静态路径与 /:id 并存）
		questions := api.Group("/questions")
		{
			questions.GET("", h.Question.ListQuestions)
			questions.POST("", h.Question.CreateQuestion)
			questions.GET("/stats", h.Question.QuestionStats)
			questions.GET("/random/:count", h.Question.RandomQuestions)
			questions.GET("/export", h.Question.ExportQuestions)
			questions.POST("/import", h.Question.ImportQuestions)
			questions.GET("/export-excel", h.Question.ExportExcel)
			questions.POST("/import-excel", h.Question.ImportExcel)
			questions.GET("/:id", h.Question.GetQuestion)
			questions.PUT("/:id", h.Question.UpdateQuestion)
			questions.DELETE("/:id", h.Question.DeleteQuestion)
		}
		api.GET("/master-questions", h.Question.MasterQuestions)

		// 考试
		exams := api.Group("/exams")
		{
			exams.GET("", h.Exam.ListExams)
			exams.POST("", h.Exam.CreateExam)
			exams.GET("/:id", h.Exam.GetExam)
			exams.PUT("/:id", h.Exam.UpdateExam)
			exams.DELETE("/:id", h.Exam.DeleteExam)
			exams.POST("/:id/toggle", h.Exam.ToggleExam)
			exams.GET("/:id/questions", h.Exam.GetExamPaper)
		}

		// 考试记录
		records := api.Group("/exam-records")
		{
			records.GET("", h.ExamRecord.ListRecords)
			records.POST("", h.ExamRecord.SubmitRecord)
			records.GET("/:id", h.ExamRecord.GetRecord)
			records.DELETE("/:id", h.ExamRecord.DeleteRecord)
		}

		// AI 报告
		api.POST("/generate-ai-report",
			middleware.RateLimit(limiter, cfg.RateLimit.ReportPerMinute, time.Minute, logger),
			h.Report.GenerateReport)

		// 统计
		api.GET("/exam-analytics", h.Analytics.ExamAnalytics)
		api.GET("/daily-exam-report", h.Analytics.DailyExamReport)
		api.POST("/generate-daily-reports", h.Analytics.GenerateDailyReports)

		// 系统配置
		api.GET("/daily-exam-config", h.SystemConfig.GetDailyExamConfig)
		api.POST("/daily-exam-config", h.SystemConfig.SaveDailyExamConfig)
		api.GET("/master-config", h.SystemConfig.GetMasterConfig)
		api.PUT("/master-config", h.SystemConfig.UpdateMasterConfig)
		api.POST("/api-config", h.SystemConfig.SaveAPIConfig)
		api.POST("/test-api-connection", h.SystemConfig.TestAPIConnection)
		api.GET("/config/:key", h.SystemConfig.GetConfigEntry)
		api.PUT("/config/:key", h.SystemConfig.PutConfigEntry)
		api.GET("/system-status", h.SystemConfig.SystemStatus)
	}

	return r
}
