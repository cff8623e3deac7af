package dto

// ── 题目模块 DTO ──
// 题目字段沿用前端约定的驼峰命名（optionA、questionId 等）

// QuestionRequest 创建题目 / 导入单行
type QuestionRequest struct {
	BankID      *uint   `json:"bank_id"     binding:"omitempty,min=1"`
	Category    string  `json:"category"    binding:"max=100"`
	Type        string  `json:"type"        binding:"omitempty,oneof=single multiple"`
	Question    string  `json:"question"    binding:"required"`
	OptionA     string  `json:"optionA"     binding:"required"`
	OptionB     string  `json:"optionB"     binding:"required"`
	OptionC     *string `json:"optionC"`
	OptionD     *string `json:"optionD"`
	Answer      string  `json:"answer"      binding:"required,max=10"`
	Explanation *string `json:"explanation"`
	QuestionID  *int    `json:"questionId"`
}

// UpdateQuestionRequest 更新题目（字段均可选）
type UpdateQuestionRequest struct {
	BankID      *uint   `json:"bank_id"     binding:"omitempty,min=1"`
	Category    *string `json:"category"    binding:"omitempty,min=1,max=100"`
	Type        *string `json:"type"        binding:"omitempty,oneof=single multiple"`
	Question    *string `json:"question"    binding:"omitempty,min=1"`
	OptionA     *string `json:"optionA"     binding:"omitempty,min=1"`
	OptionB     *string `json:"optionB"     binding:"omitempty,min=1"`
	OptionC     *string `json:"optionC"`
	OptionD     *string `json:"optionD"`
	Answer      *string `json:"answer"      binding:"omitempty,min=1,max=10"`
	Explanation *string `json:"explanation"`
}

// QuestionListRequest 题目列表查询
type QuestionListRequest struct {
	BankID       *uint  `form:"bank_id"       binding:"omitempty,min=1"`
	Category     string `form:"category"`
	Type         string `form:"question_type" binding:"omitempty,oneof=single multiple"`
	Limit        int    `form:"limit"         binding:"omitempty,min=1,max=1000"`
	RandomSample bool   `form:"random_sample"`
}

// QuestionResponse 题目完整信息（管理端）
type QuestionResponse struct {
	ID          uint    `json:"id"`
	BankID      uint    `json:"bank_id"`
	QuestionID  *int    `json:"questionId,omitempty"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Question    string  `json:"question"`
	OptionA     string  `json:"optionA"`
	OptionB     string  `json:"optionB"`
	OptionC     *string `json:"optionC,omitempty"`
	OptionD     *string `json:"optionD,omitempty"`
	Answer      string  `json:"answer"`
	Explanation string  `json:"explanation"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// ── 试卷 ──

// PaperQuestion 作答用题目；销售模式下不含答案与解析
type PaperQuestion struct {
	ID          uint    `json:"id"`
	OrderIndex  int     `json:"order_index,omitempty"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Question    string  `json:"question"`
	OptionA     string  `json:"optionA"`
	OptionB     string  `json:"optionB"`
	OptionC     *string `json:"optionC,omitempty"`
	OptionD     *string `json:"optionD,omitempty"`
	Answer      *string `json:"answer,omitempty"`
	Explanation *string `json:"explanation,omitempty"`
}

// QuestionPaper 试卷（题库全量或考试题目）
type QuestionPaper struct {
	Version         int             `json:"version"`
	LastUpdate      string          `json:"lastUpdate"`
	TotalQuestions  int             `json:"totalQuestions"`
	Categories      []string        `json:"categories"`
	Maintainer      string          `json:"maintainer"`
	Questions       []PaperQuestion `json:"questions"`
	BankID          *uint           `json:"bank_id,omitempty"`
	ExamID          *uint           `json:"exam_id,omitempty"`
	ExamName        string          `json:"exam_name,omitempty"`
	DurationMinutes int             `json:"duration_minutes,omitempty"`
}

// ── 导入导出 ──

// QuestionExportItem 导出的单道题目
type QuestionExportItem struct {
	ID          uint    `json:"id,omitempty"`
	QuestionID  *int    `json:"questionId,omitempty"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Question    string  `json:"question"`
	OptionA     string  `json:"optionA"`
	OptionB     string  `json:"optionB"`
	OptionC     *string `json:"optionC"`
	OptionD     *string `json:"optionD"`
	Answer      string  `json:"answer"`
	Explanation string  `json:"explanation"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// QuestionExport 题库 JSON 导出
type QuestionExport struct {
	Version        int                  `json:"version"`
	ExportTime     string               `json:"export_time"`
	BankID         *uint                `json:"bank_id,omitempty"`
	TotalQuestions int                  `json:"total_questions"`
	Questions      []QuestionExportItem `json:"questions"`
}

// ImportQuestionsRequest 题库 JSON 导入
// 直接接受 QuestionExport 的 questions 字段；bank_id 为空时导入当前题库
type ImportQuestionsRequest struct {
	BankID    *uint                `json:"bank_id" binding:"omitempty,min=1"`
	Questions []QuestionExportItem `json:"questions" binding:"required"`
}

// ImportQuestionsResponse 导入结果
type ImportQuestionsResponse struct {
	BankID         uint     `json:"bank_id"`
	ImportedCount  int      `json:"imported_count"`
	SkippedCount   int      `json:"skipped_count"`
	FailedCount    int      `json:"failed_count"`
	Errors         []string `json:"errors,omitempty"`
	TotalQuestions int64    `json:"total_questions"`
}

// ── 统计 ──

// QuestionStatsResponse 题库统计
type QuestionStatsResponse struct {
	TotalQuestions    int64            `json:"total_questions"`
	TypeBreakdown     map[string]int64 `json:"type_breakdown"`
	CategoryBreakdown map[string]int64 `json:"category_breakdown"`
	SingleChoice      int64            `json:"single_choice"`
	MultipleChoice    int64            `json:"multiple_choice"`
	Categories        int              `json:"categories"`
	LastUpdated       string           `json:"last_updated"`
}
