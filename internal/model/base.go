package model

import "time"

// Timestamps 通用时间字段（所有业务模型嵌入）
type Timestamps struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ── 生命周期 ──

// Lifecycle 团队/题库的生命周期状态，由 is_active 推导
// 软删除即 active → retired，行本身永不物理删除
type Lifecycle string

const (
	LifecycleActive  Lifecycle = "active"
	LifecycleRetired Lifecycle = "retired"
)

func lifecycleOf(isActive bool) Lifecycle {
	if isActive {
		return LifecycleActive
	}
	return LifecycleRetired
}

// ── 受保护的系统内置数据 ──

const (
	DefaultTeamID uint = 1
	DefaultBankID uint = 1
)

var (
	// ProtectedTeamIDs 禁止删除的团队
	ProtectedTeamIDs = map[uint]struct{}{DefaultTeamID: {}}
	// ProtectedBankIDs 禁止删除的题库
	ProtectedBankIDs = map[uint]struct{}{DefaultBankID: {}}
)

// IsProtectedTeam 团队是否为系统内置
func IsProtectedTeam(id uint) bool {
	_, ok := ProtectedTeamIDs[id]
	return ok
}

// IsProtectedBank 题库是否为系统内置
func IsProtectedBank(id uint) bool {
	_, ok := ProtectedBankIDs[id]
	return ok
}
