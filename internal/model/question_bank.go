package model

// QuestionBank 题库表 — 对应 question_banks
type QuestionBank struct {
	ID          uint   `gorm:"primaryKey"                    json:"id"`
	TeamID      uint   `gorm:"not null;index"                json:"team_id"`
	Name        string `gorm:"type:varchar(100);not null"    json:"name"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`
	IsActive    bool   `gorm:"not null;default:true"         json:"is_active"`
	Timestamps

	Team *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}

// TableName 指定表名
func (QuestionBank) TableName() string { return "question_banks" }

// Lifecycle 当前生命周期状态
func (b *QuestionBank) Lifecycle() Lifecycle { return lifecycleOf(b.IsActive) }
