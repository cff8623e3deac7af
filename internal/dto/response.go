package dto

// ── 通用响应 ──

// 写操作结果
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// UpsertResponse 幂等写入结果
type UpsertResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
	Action  string `json:"action"`
}

// TimeLayout 响应中的时间格式
const TimeLayout = "2006-01-02T15:04:05Z07:00"

// DateLayout 日期格式
const DateLayout = "2006-01-02"
