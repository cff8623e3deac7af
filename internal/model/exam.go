package model

import "time"

// 考试类型
const (
	ExamTypeFormal   = "formal"
	ExamTypePractice = "practice"
)

// DefaultExamDuration 默认考试时长（分钟）
const DefaultExamDuration = 20

// ExamStatus 由墙上时钟推导的考试状态，不落库
type ExamStatus string

const (
	ExamStatusUpcoming ExamStatus = "upcoming"
	ExamStatusActive   ExamStatus = "active"
	ExamStatusExpired  ExamStatus = "expired"
)

// Exam 考试表 — 对应 exams
type Exam struct {
	ID              uint      `gorm:"primaryKey"                              json:"id"`
	ExamName        string    `gorm:"type:varchar(200);not null"              json:"exam_name"`
	Description     string    `gorm:"type:text;not null;default:''"           json:"description"`
	ExamType        string    `gorm:"type:varchar(20);not null;default:'formal'" json:"exam_type"`
	DurationMinutes int       `gorm:"not null;default:20"                     json:"duration_minutes"`
	StartTime       time.Time `gorm:"not null"                                json:"start_time"`
	EndTime         time.Time `gorm:"not null"                                json:"end_time"`
	IsActive        bool      `gorm:"not null;default:true"                   json:"is_active"`
	CreatedBy       string    `gorm:"type:varchar(100);not null;default:'admin'" json:"created_by"`
	Timestamps
}

// TableName 指定表名
func (Exam) TableName() string { return "exams" }

// StatusAt 计算 now 时刻的状态：
//
//	now < start           → upcoming
//	start <= now <= end   → active
//	now > end             → expired
//
// 仅依据时间，不考虑 is_active
func (e *Exam) StatusAt(now time.Time) ExamStatus {
	switch {
	case now.Before(e.StartTime):
		return ExamStatusUpcoming
	case now.After(e.EndTime):
		return ExamStatusExpired
	default:
		return ExamStatusActive
	}
}

// ExamQuestion 考试题目关联表 — 对应 exam_questions
// 同一考试内 order_index 从 1 开始连续递增
type ExamQuestion struct {
	ID         uint      `gorm:"primaryKey"                 json:"id"`
	ExamID     uint      `gorm:"not null;index"             json:"exam_id"`
	QuestionID uint      `gorm:"not null;index"             json:"question_id"`
	OrderIndex int       `gorm:"not null"                   json:"order_index"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Question *Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
}

// TableName 指定表名
func (ExamQuestion) TableName() string { return "exam_questions" }

// BuildExamQuestions 按给定顺序生成 1..n 的关联行
func BuildExamQuestions(examID uint, questionIDs []uint) []ExamQuestion {
	rows := make([]ExamQuestion, 0, len(questionIDs))
	for i, qid := range questionIDs {
		rows = append(rows, ExamQuestion{
			ExamID:     examID,
			QuestionID: qid,
			OrderIndex: i + 1,
		})
	}
	return rows
}
