package dto

// ── 题库模块 DTO ──

// CreateQuestionBankRequest 创建题库请求
type CreateQuestionBankRequest struct {
	TeamID      uint   `json:"team_id"     binding:"required,min=1"`
	Name        string `json:"name"        binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// UpdateQuestionBankRequest 更新题库请求
type UpdateQuestionBankRequest struct {
	TeamID      *uint   `json:"team_id"     binding:"omitempty,min=1"`
	Name        *string `json:"name"        binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// QuestionBankListRequest 题库列表查询
type QuestionBankListRequest struct {
	TeamID *uint `form:"team_id" binding:"omitempty,min=1"`
}

// QuestionBankResponse 题库信息
type QuestionBankResponse struct {
	ID             uint   `json:"id"`
	TeamID         uint   `json:"team_id"`
	TeamName       string `json:"team_name"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	IsActive       bool   `json:"is_active"`
	Lifecycle      string `json:"lifecycle"`
	QuestionsCount int64  `json:"questions_count"`
	IsCurrent      bool   `json:"is_current"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// CopyQuestionRequest 复制题目到题库
type CopyQuestionRequest struct {
	QuestionID uint `json:"question_id" binding:"required,min=1"`
}

// ── 当前选择 ──

// CurrentConfigResponse 当前选择的团队与题库
type CurrentConfigResponse struct {
	CurrentTeamID uint   `json:"current_team_id"`
	CurrentBankID uint   `json:"current_bank_id"`
	TeamName      string `json:"team_name"`
	BankName      string `json:"bank_name"`
}

// SetCurrentBankRequest 设置当前题库
type SetCurrentBankRequest struct {
	TeamID uint `json:"team_id" binding:"required,min=1"`
	BankID uint `json:"bank_id" binding:"required,min=1"`
}
