package model

// Team 产品团队表 — 对应 product_teams
type Team struct {
	ID          uint   `gorm:"primaryKey"                         json:"id"`
	Name        string `gorm:"type:varchar(100);not null"         json:"name"`
	Code        string `gorm:"type:varchar(50);not null;unique"   json:"code"`
	Description string `gorm:"type:text;not null;default:''"      json:"description"`
	IsActive    bool   `gorm:"not null;default:true"              json:"is_active"`
	Timestamps
}

// TableName 指定表名
func (Team) TableName() string { return "product_teams" }

// Lifecycle 当前生命周期状态
func (t *Team) Lifecycle() Lifecycle { return lifecycleOf(t.IsActive) }
