package dto

// ── 统计分析模块 DTO ──

// ExamAnalyticsRequest 滚动窗口统计查询
type ExamAnalyticsRequest struct {
	Days       int    `form:"days"       binding:"omitempty,min=1,max=365"`
	Department string `form:"department" binding:"max=100"`
}

// DepartmentStat 部门统计
type DepartmentStat struct {
	Department     string  `json:"department"`
	ExamCount      int     `json:"exam_count"`
	AvgScore       float64 `json:"avg_score"`
	HighPerformers int     `json:"high_performers"`
	LowPerformers  int     `json:"low_performers"`
}

// DailyStat 按日统计
type DailyStat struct {
	Date      string  `json:"date"`
	ExamCount int     `json:"exam_count"`
	AvgScore  float64 `json:"avg_score"`
}

// ExamAnalyticsResponse 滚动窗口统计结果
type ExamAnalyticsResponse struct {
	Days            int              `json:"days"`
	Department      string           `json:"department,omitempty"`
	TotalExams      int              `json:"total_exams"`
	AvgScore        float64          `json:"avg_score"`
	HighPerformers  int              `json:"high_performers"`
	LowPerformers   int              `json:"low_performers"`
	DepartmentStats []DepartmentStat `json:"department_stats"`
	DailyStats      []DailyStat      `json:"daily_stats"`
}

// ── 每日测验报告 ──

// ScoreBucket 分数段
type ScoreBucket struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ScoreDistribution 分数段分布：优秀 ≥90 / 良好 [70,90) / 及格 [60,70) / 待提高 <60
type ScoreDistribution struct {
	Excellent ScoreBucket `json:"excellent"`
	Good      ScoreBucket `json:"good"`
	Average   ScoreBucket `json:"average"`
	Poor      ScoreBucket `json:"poor"`
}

// DailyStatistics 每日汇总
type DailyStatistics struct {
	TotalParticipants      int               `json:"total_participants"`
	AverageScore           float64           `json:"average_score"`
	AverageDurationSeconds int               `json:"average_duration_seconds"`
	ScoreDistribution      ScoreDistribution `json:"score_distribution"`
}

// DailyRecordItem 当日参与记录
type DailyRecordItem struct {
	UserName       string `json:"user_name"`
	Score          int    `json:"score"`
	CorrectCount   int    `json:"correct_count"`
	TotalQuestions int    `json:"total_questions"`
	Duration       int    `json:"duration"`
	CreatedAt      string `json:"created_at"`
}

// DailyExamReport 每日测验报告；无数据时 has_data=false
type DailyExamReport struct {
	Date       string            `json:"date"`
	HasData    bool              `json:"has_data"`
	Message    string            `json:"message,omitempty"`
	Statistics *DailyStatistics  `json:"statistics,omitempty"`
	Records    []DailyRecordItem `json:"records,omitempty"`
}

// BackfillReportsResponse 补生成结果
type BackfillReportsResponse struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	GeneratedDates []string `json:"generated_dates"`
}
