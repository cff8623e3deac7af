package model

import (
	"sort"
	"strings"
)

// 题型
const (
	QuestionTypeSingle   = "single"
	QuestionTypeMultiple = "multiple"
)

// DefaultCategory 未指定分类时的默认值
const DefaultCategory = "通用"

// Question 题目表 — 对应 questions
type Question struct {
	ID           uint    `gorm:"primaryKey"                                json:"id"`
	BankID       uint    `gorm:"not null;default:1;index"                  json:"bank_id"`
	Category     string  `gorm:"type:varchar(100);not null;default:'通用'"   json:"category"`
	QuestionType string  `gorm:"type:varchar(20);not null;default:'single'" json:"type"`
	Question     string  `gorm:"type:text;not null"                        json:"question"`
	OptionA      string  `gorm:"type:text;not null"                        json:"option_a"`
	OptionB      string  `gorm:"type:text;not null"                        json:"option_b"`
	OptionC      *string `gorm:"type:text"                                 json:"option_c,omitempty"`
	OptionD      *string `gorm:"type:text"                                 json:"option_d,omitempty"`
	Answer       string  `gorm:"type:varchar(10);not null"                 json:"answer"`
	Explanation  *string `gorm:"type:text"                                 json:"explanation,omitempty"`
	LegacyID     *int    `gorm:"column:question_id"                        json:"question_id,omitempty"`
	Timestamps
}

// TableName 指定表名
func (Question) TableName() string { return "questions" }

// Options 返回非空选项（字母 → 内容），按 A-D 顺序
func (q *Question) Options() map[string]string {
	opts := map[string]string{"A": q.OptionA, "B": q.OptionB}
	if q.OptionC != nil && *q.OptionC != "" {
		opts["C"] = *q.OptionC
	}
	if q.OptionD != nil && *q.OptionD != "" {
		opts["D"] = *q.OptionD
	}
	return opts
}

// NormalizeAnswer 统一答案格式：去空白与分隔符、转大写、去重并按字母排序
// "a, c" → "AC"
func NormalizeAnswer(raw string) string {
	seen := make(map[rune]bool, 4)
	letters := make([]string, 0, 4)
	for _, r := range strings.ToUpper(raw) {
		if r < 'A' || r > 'Z' || seen[r] {
			continue
		}
		seen[r] = true
		letters = append(letters, string(r))
	}
	sort.Strings(letters)
	return strings.Join(letters, "")
}

// AnswerMatchesOptions 答案中的每个字母都必须对应已提供的选项
func (q *Question) AnswerMatchesOptions() bool {
	if q.Answer == "" {
		return false
	}
	opts := q.Options()
	for _, r := range q.Answer {
		if _, ok := opts[string(r)]; !ok {
			return false
		}
	}
	return true
}
