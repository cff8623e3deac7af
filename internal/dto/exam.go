package dto

import "time"

// ── 考试模块 DTO ──

// CreateExamRequest 创建考试请求
type CreateExamRequest struct {
	ExamName        string    `json:"exam_name"        binding:"required,min=1,max=200"`
	Description     string    `json:"description"`
	ExamType        string    `json:"exam_type"        binding:"omitempty,oneof=formal practice"`
	DurationMinutes *int      `json:"duration_minutes" binding:"omitempty,min=1,max=600"`
	StartTime       time.Time `json:"start_time"       binding:"required"`
	EndTime         time.Time `json:"end_time"         binding:"required"`
	QuestionIDs     []uint    `json:"question_ids"     binding:"required,min=1"`
	IsActive        *bool     `json:"is_active"`
	CreatedBy       string    `json:"created_by"       binding:"max=100"`
}

// UpdateExamRequest 更新考试请求；question_ids 出现时整体替换题目
type UpdateExamRequest struct {
	ExamName        *string    `json:"exam_name"        binding:"omitempty,min=1,max=200"`
	Description     *string    `json:"description"`
	ExamType        *string    `json:"exam_type"        binding:"omitempty,oneof=formal practice"`
	DurationMinutes *int       `json:"duration_minutes" binding:"omitempty,min=1,max=600"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	QuestionIDs     *[]uint    `json:"question_ids"`
	IsActive        *bool      `json:"is_active"`
}

// ExamListRequest 考试列表查询
type ExamListRequest struct {
	Status   string `form:"status"    binding:"omitempty,oneof=upcoming active expired"`
	ExamType string `form:"exam_type" binding:"omitempty,oneof=formal practice"`
}

// ExamResponse 考试信息（status 为读取时刻计算）
type ExamResponse struct {
	ID              uint   `json:"id"`
	ExamName        string `json:"exam_name"`
	Description     string `json:"description"`
	ExamType        string `json:"exam_type"`
	DurationMinutes int    `json:"duration_minutes"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	IsActive        bool   `json:"is_active"`
	Status          string `json:"status"`
	QuestionCount   int64  `json:"question_count"`
	CreatedBy       string `json:"created_by"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// ExamQuestionItem 考试题目（含顺序）
type ExamQuestionItem struct {
	OrderIndex int              `json:"order_index"`
	Question   QuestionResponse `json:"question"`
}

// ExamDetailResponse 考试详情
type ExamDetailResponse struct {
	ExamResponse
	Questions []ExamQuestionItem `json:"questions"`
}

// ToggleExamResponse 启停结果
type ToggleExamResponse struct {
	ID       uint   `json:"id"`
	IsActive bool   `json:"is_active"`
	Message  string `json:"message"`
}
