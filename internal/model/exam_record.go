package model

import (
	"time"

	"gorm.io/datatypes"
)

// 考试记录类型
const (
	ExamRecordTypeWeekly = "weekly"
	ExamRecordTypeDaily  = "daily_exam"
)

// ExamRecord 考试记录表 — 对应 exam_records
// ID 由客户端生成，作为幂等提交的键
type ExamRecord struct {
	ID              string         `gorm:"type:varchar(100);primaryKey"          json:"id"`
	UserName        string         `gorm:"type:varchar(100);not null"            json:"user_name"`
	UserID          *string        `gorm:"type:varchar(100)"                     json:"user_id,omitempty"`
	TeamID          uint           `gorm:"not null;default:1;index"              json:"team_id"`
	BankID          uint           `gorm:"not null;default:1"                    json:"bank_id"`
	Department      *string        `gorm:"type:varchar(100)"                     json:"department,omitempty"`
	Region          *string        `gorm:"type:varchar(100)"                     json:"region,omitempty"`
	Score           int            `gorm:"not null"                              json:"score"`
	CorrectCount    int            `gorm:"not null"                              json:"correct_count"`
	TotalQuestions  int            `gorm:"not null"                              json:"total_questions"`
	Duration        int            `gorm:"not null"                              json:"duration"`
	ExamType        string         `gorm:"type:varchar(50);not null;default:'weekly'" json:"exam_type"`
	WeekNumber      *int           `json:"week_number,omitempty"`
	Year            *int           `json:"year,omitempty"`
	DetailedAnswers datatypes.JSON `gorm:"type:jsonb"                            json:"detailed_answers,omitempty"`
	QuestionsData   datatypes.JSON `gorm:"type:jsonb"                            json:"questions_data,omitempty"`
	AIReport        *string        `gorm:"column:ai_report;type:text"            json:"ai_report,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"    json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"    json:"updated_at"`
}

// TableName 指定表名
func (ExamRecord) TableName() string { return "exam_records" }

// HasReport 是否已生成 AI 报告
func (r *ExamRecord) HasReport() bool {
	return r.AIReport != nil && *r.AIReport != ""
}
