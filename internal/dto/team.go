package dto

// ── 团队模块 DTO ──

// CreateTeamRequest 创建团队请求
type CreateTeamRequest struct {
	Name        string `json:"name"        binding:"required,min=1,max=100"`
	Code        string `json:"code"        binding:"required,min=1,max=50"`
	Description string `json:"description" binding:"max=500"`
}

// UpdateTeamRequest 更新团队请求（字段均可选）
type UpdateTeamRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=1,max=100"`
	Code        *string `json:"code"        binding:"omitempty,min=1,max=50"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// TeamResponse 团队信息（含读时统计）
type TeamResponse struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	Code           string `json:"code"`
	Description    string `json:"description"`
	IsActive       bool   `json:"is_active"`
	Lifecycle      string `json:"lifecycle"`
	BanksCount     int64  `json:"banks_count"`
	QuestionsCount int64  `json:"questions_count"`
	ExamsCount     int64  `json:"exams_count"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}
