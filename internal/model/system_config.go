package model

import "time"

// 系统配置键
const (
	ConfigKeyAPI             = "api_config"
	ConfigKeySystemInfo      = "system_info"
	ConfigKeyCurrentTeam     = "current_team_id"
	ConfigKeyCurrentBank     = "current_bank_id"
	ConfigKeyDailyExam       = "daily_exam_config"
	ConfigKeyDailyReportPref = "daily_report_"
)

// 配置值类型
const (
	ConfigTypeString  = "string"
	ConfigTypeJSON    = "json"
	ConfigTypeNumber  = "number"
	ConfigTypeBoolean = "boolean"
)

// SystemConfig 系统配置表 — 对应 system_config（键值存储）
type SystemConfig struct {
	Key         string    `gorm:"type:varchar(100);primaryKey"       json:"key"`
	Value       string    `gorm:"type:text;not null"                 json:"value"`
	Description string    `gorm:"type:text;not null;default:''"      json:"description"`
	ConfigType  string    `gorm:"type:varchar(20);not null;default:'string'" json:"config_type"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName 指定表名
func (SystemConfig) TableName() string { return "system_config" }

// DailyReportKey 每日报告的配置键，date 格式 YYYY-MM-DD
func DailyReportKey(date string) string {
	return ConfigKeyDailyReportPref + date
}
