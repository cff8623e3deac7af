package dto

import "encoding/json"

// ── 考试记录模块 DTO ──

// SubmitExamRecordRequest 提交考试记录（幂等 upsert）
// 除 id 外字段均可省略：新建时 user_name/score/correct_count/total_questions/duration 必填，
// 更新时只覆盖出现的字段
type SubmitExamRecordRequest struct {
	ID              string          `json:"id"               binding:"required,min=1,max=100"`
	UserName        *string         `json:"user_name"        binding:"omitempty,min=1,max=100"`
	UserID          *string         `json:"user_id"          binding:"omitempty,max=100"`
	TeamID          *uint           `json:"team_id"          binding:"omitempty,min=1"`
	BankID          *uint           `json:"bank_id"          binding:"omitempty,min=1"`
	Department      *string         `json:"department"       binding:"omitempty,max=100"`
	Region          *string         `json:"region"           binding:"omitempty,max=100"`
	Score           *int            `json:"score"            binding:"omitempty,min=0,max=100"`
	CorrectCount    *int            `json:"correct_count"    binding:"omitempty,min=0"`
	TotalQuestions  *int            `json:"total_questions"  binding:"omitempty,min=0"`
	Duration        *int            `json:"duration"         binding:"omitempty,min=0"`
	ExamType        *string         `json:"exam_type"        binding:"omitempty,max=50"`
	WeekNumber      *int            `json:"week_number"`
	Year            *int            `json:"year"`
	DetailedAnswers json.RawMessage `json:"detailed_answers"`
	QuestionsData   json.RawMessage `json:"questions_data"`
	AIReport        *string         `json:"ai_report"`
}

// UnmarshalJSON 兼容前端的驼峰字段（userName、correctCount、totalQuestions 等）
func (r *SubmitExamRecordRequest) UnmarshalJSON(data []byte) error {
	type plain SubmitExamRecordRequest
	var base plain
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}

	var alias struct {
		UserName        *string         `json:"userName"`
		UserID          *string         `json:"userId"`
		CorrectCount    *int            `json:"correctCount"`
		TotalQuestions  *int            `json:"totalQuestions"`
		ExamType        *string         `json:"examType"`
		WeekNumber      *int            `json:"weekNumber"`
		DetailedAnswers json.RawMessage `json:"detailedAnswers"`
		QuestionsData   json.RawMessage `json:"questionsData"`
	}
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	if base.UserName == nil {
		base.UserName = alias.UserName
	}
	if base.UserID == nil {
		base.UserID = alias.UserID
	}
	if base.CorrectCount == nil {
		base.CorrectCount = alias.CorrectCount
	}
	if base.TotalQuestions == nil {
		base.TotalQuestions = alias.TotalQuestions
	}
	if base.ExamType == nil {
		base.ExamType = alias.ExamType
	}
	if base.WeekNumber == nil {
		base.WeekNumber = alias.WeekNumber
	}
	if len(base.DetailedAnswers) == 0 {
		base.DetailedAnswers = alias.DetailedAnswers
	}
	if len(base.QuestionsData) == 0 {
		base.QuestionsData = alias.QuestionsData
	}

	*r = SubmitExamRecordRequest(base)
	return nil
}

// ExamRecordListRequest 考试记录列表查询
type ExamRecordListRequest struct {
	UserName   string `form:"user_name"`
	Department string `form:"department"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// ExamRecordResponse 考试记录
type ExamRecordResponse struct {
	ID              string          `json:"id"`
	UserName        string          `json:"user_name"`
	UserID          *string         `json:"user_id,omitempty"`
	TeamID          uint            `json:"team_id"`
	BankID          uint            `json:"bank_id"`
	Department      *string         `json:"department,omitempty"`
	Region          *string         `json:"region,omitempty"`
	Score           int             `json:"score"`
	CorrectCount    int             `json:"correct_count"`
	TotalQuestions  int             `json:"total_questions"`
	Duration        int             `json:"duration"`
	ExamType        string          `json:"exam_type"`
	WeekNumber      *int            `json:"week_number,omitempty"`
	Year            *int            `json:"year,omitempty"`
	DetailedAnswers json.RawMessage `json:"detailed_answers,omitempty"`
	QuestionsData   json.RawMessage `json:"questions_data,omitempty"`
	AIReport        *string         `json:"ai_report,omitempty"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}
