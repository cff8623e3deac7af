package dto

// ── 系统配置模块 DTO ──

// APIConfig AI 服务配置
type APIConfig struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
	Model    string `json:"model"`
	Key      string `json:"key"`
	Enabled  bool   `json:"enabled"`
}

// MasterConfigResponse 主配置（密钥已脱敏）
type MasterConfigResponse struct {
	Version     int                    `json:"version"`
	LastUpdate  string                 `json:"lastUpdate"`
	APIConfig   APIConfig              `json:"apiConfig"`
	SystemInfo  map[string]interface{} `json:"systemInfo"`
	Permissions map[string]bool        `json:"permissions"`
}

// UpdateMasterConfigRequest 更新主配置；两部分均可省略
type UpdateMasterConfigRequest struct {
	APIConfig  *SaveAPIConfigRequest  `json:"apiConfig"`
	SystemInfo map[string]interface{} `json:"systemInfo"`
}

// SaveAPIConfigRequest 保存 AI 服务配置
type SaveAPIConfigRequest struct {
	Provider string `json:"provider" binding:"max=50"`
	URL      string `json:"url"      binding:"required,url"`
	Model    string `json:"model"    binding:"max=100"`
	Key      string `json:"key"      binding:"required"`
}

// TestAPIConnectionRequest 测试 AI 服务连通性；字段缺省时使用当前生效配置
type TestAPIConnectionRequest struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
	Model    string `json:"model"`
	Key      string `json:"key"`
}

// TestAPIConnectionResponse 连通性测试结果
type TestAPIConnectionResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SystemStatistics 系统统计
type SystemStatistics struct {
	TotalQuestions int64 `json:"total_questions"`
	TotalExams     int64 `json:"total_exams"`
	RecentExams    int64 `json:"recent_exams"`
}

// SystemStatusResponse 系统状态
type SystemStatusResponse struct {
	Status        string           `json:"status"`
	Database      string           `json:"database"`
	APIConfigured bool             `json:"api_configured"`
	Statistics    SystemStatistics `json:"statistics"`
	ServerTime    string           `json:"server_time"`
}

// ConfigEntryResponse 单个配置项
type ConfigEntryResponse struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
	ConfigType  string `json:"config_type"`
	UpdatedAt   string `json:"updated_at"`
}

// UpdateConfigEntryRequest 更新单个配置项
type UpdateConfigEntryRequest struct {
	Value       string  `json:"value"       binding:"required"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	ConfigType  *string `json:"config_type" binding:"omitempty,oneof=string json number boolean"`
}

// DailyExamConfig 每日测验时间配置
type DailyExamConfig struct {
	StartTime       string `json:"daily_exam_start_time"       binding:"required"`
	EndTime         string `json:"daily_exam_end_time"         binding:"required"`
	QuestionCount   int    `json:"daily_exam_question_count"   binding:"required,min=1,max=100"`
	DurationMinutes int    `json:"daily_exam_duration_minutes" binding:"required,min=1,max=600"`
}

// DailyExamConfigResponse 每日测验配置；未保存过时返回默认值
type DailyExamConfigResponse struct {
	Config    DailyExamConfig `json:"config"`
	IsDefault bool            `json:"is_default"`
	UpdatedAt *string         `json:"updated_at"`
}

// SavedResponse 配置保存结果
type SavedResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	UpdatedAt string `json:"updated_at"`
}
