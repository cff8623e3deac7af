package dto

import "encoding/json"

// ── AI 报告模块 DTO ──

// GenerateReportRequest 手动生成报告请求
// exam_data 可选：提供时作为答题详情直接写入提示词
type GenerateReportRequest struct {
	ExamRecordID string          `json:"exam_record_id" binding:"required,min=1,max=100"`
	ExamData     json.RawMessage `json:"exam_data"`
}

// GenerateReportResponse 手动生成报告结果；失败时 success=false 并附截断后的原因
type GenerateReportResponse struct {
	Success bool   `json:"success"`
	Report  string `json:"report,omitempty"`
	Error   string `json:"error,omitempty"`
}

// QuestionAnalysis 单题作答分析（提示词中的一项）
type QuestionAnalysis struct {
	Index         int    `json:"index"`
	Question      string `json:"question"`
	Category      string `json:"category"`
	Type          string `json:"type"`
	CorrectAnswer string `json:"correct_answer"`
	UserAnswer    string `json:"user_answer"`
	IsCorrect     bool   `json:"is_correct"`
	Explanation   string `json:"explanation,omitempty"`
}
