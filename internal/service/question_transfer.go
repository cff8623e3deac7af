package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/model"
	"neurogen-exam/backend/internal/repository"
)

// 题库导入导出
//
//   - JSON 导出为 version=2 信封，导入时直接接受其中的 questions
//   - 导入按题干去重：目标题库中已存在相同题干的题目跳过
//   - Excel 第一行为表头，支持中英文列名

// ExportVersion JSON 导出格式版本
const ExportVersion = 2

// maxImportErrors 导入结果中最多返回的错误条数
const maxImportErrors = 20

const excelSheetName = "题库"

// excelColumns 导出列顺序
var excelColumns = []string{"题目", "分类", "类型", "选项A", "选项B", "选项C", "选项D", "答案", "解析"}

// excelAliases 导入时表头别名 → 标准列名
var excelAliases = map[string]string{
	"题目": "题目", "question": "题目",
	"分类": "分类", "category": "分类",
	"类型": "类型", "type": "类型", "题型": "类型",
	"选项a": "选项A", "a": "选项A", "optiona": "选项A",
	"选项b": "选项B", "b": "选项B", "optionb": "选项B",
	"选项c": "选项C", "c": "选项C", "optionc": "选项C",
	"选项d": "选项D", "d": "选项D", "optiond": "选项D",
	"答案": "答案", "answer": "答案", "正确答案": "答案",
	"解析": "解析", "explanation": "解析",
}

// ────────────────────── Export ──────────────────────

func (s *questionService) Export(ctx context.Context, bankID *uint) (*dto.QuestionExport, error) {
	qs, err := s.repo.Question.List(ctx, repository.QuestionFilter{BankID: bankID})
	if err != nil {
		s.logger.Error("导出题目失败", zap.Error(err))
		return nil, err
	}

	items := make([]dto.QuestionExportItem, 0, len(qs))
	for i := range qs {
		items = append(items, toExportItem(&qs[i]))
	}

	return &dto.QuestionExport{
		Version:        ExportVersion,
		ExportTime:     s.now().Format(dto.TimeLayout),
		BankID:         bankID,
		TotalQuestions: len(items),
		Questions:      items,
	}, nil
}

// ────────────────────── Import ──────────────────────

func (s *questionService) Import(ctx context.Context, req *dto.ImportQuestionsRequest) (*dto.ImportQuestionsResponse, error) {
	return s.importItems(ctx, req.BankID, req.Questions)
}

// importItems 在单个事务内写入；任一写入失败整体回滚
func (s *questionService) importItems(ctx context.Context, bankID *uint, items []dto.QuestionExportItem) (*dto.ImportQuestionsResponse, error) {
	sel, err := s.selection.Resolve(ctx, nil, bankID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureBank(ctx, sel.BankID); err != nil {
		return nil, err
	}

	result := &dto.ImportQuestionsResponse{BankID: sel.BankID}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		texts, err := tx.Question.ListTexts(ctx, sel.BankID)
		if err != nil {
			return err
		}
		existing := make(map[string]bool, len(texts))
		for _, t := range texts {
			existing[t] = true
		}

		batch := make([]model.Question, 0, len(items))
		for i, item := range items {
			q, err := fromExportItem(&item, sel.BankID)
			if err != nil {
				result.FailedCount++
				if len(result.Errors) < maxImportErrors {
					result.Errors = append(result.Errors, fmt.Sprintf("第 %d 题: %s", i+1, err.Error()))
				}
				continue
			}
			if existing[q.Question] {
				result.SkippedCount++
				continue
			}
			existing[q.Question] = true
			batch = append(batch, *q)
		}

		if len(batch) > 0 {
			if err := tx.Question.CreateBatch(ctx, batch); err != nil {
				return err
			}
		}
		result.ImportedCount = len(batch)

		total, err := tx.Question.Count(ctx, &sel.BankID)
		if err != nil {
			return err
		}
		result.TotalQuestions = total
		return nil
	})
	if err != nil {
		s.logger.Error("导入题目失败", zap.Uint("bank_id", sel.BankID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("题目导入完成",
		zap.Uint("bank_id", sel.BankID),
		zap.Int("imported", result.ImportedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failed", result.FailedCount),
	)
	return result, nil
}

// ────────────────────── ExportExcel ──────────────────────

func (s *questionService) ExportExcel(ctx context.Context, bankID *uint) (*bytes.Buffer, string, error) {
	qs, err := s.repo.Question.List(ctx, repository.QuestionFilter{BankID: bankID})
	if err != nil {
		s.logger.Error("导出题目失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, _ := f.NewSheet(excelSheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(excelSheetName, "A", "A", 50)
	f.SetColWidth(excelSheetName, "B", "C", 12)
	f.SetColWidth(excelSheetName, "D", "G", 30)
	f.SetColWidth(excelSheetName, "H", "H", 8)
	f.SetColWidth(excelSheetName, "I", "I", 50)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	for i, h := range excelColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(excelSheetName, cell, h)
	}
	f.SetCellStyle(excelSheetName, "A1", "I1", headerStyle)

	for r := range qs {
		q := &qs[r]
		values := []string{
			q.Question, q.Category, q.QuestionType,
			q.OptionA, q.OptionB, derefString(q.OptionC), derefString(q.OptionD),
			q.Answer, derefString(q.Explanation),
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(excelSheetName, cell, v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("生成 Excel 失败", zap.Error(err))
		return nil, "", err
	}

	filename := fmt.Sprintf("questions_%s.xlsx", s.now().Format("20060102_150405"))
	return buf, filename, nil
}

// ────────────────────── ImportExcel ──────────────────────

func (s *questionService) ImportExcel(ctx context.Context, bankID *uint, r io.Reader) (*dto.ImportQuestionsResponse, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ErrImportFileInvalid.Wrap(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrImportFileInvalid
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, ErrImportFileInvalid.Wrap(err)
	}
	items, err := parseExcelRows(rows)
	if err != nil {
		return nil, err
	}

	return s.importItems(ctx, bankID, items)
}

// parseExcelRows 按表头映射列；缺少题干、选项 A/B 或答案的行直接忽略
func parseExcelRows(rows [][]string) ([]dto.QuestionExportItem, error) {
	if len(rows) == 0 {
		return nil, ErrImportFileInvalid.Withf("Excel 文件为空")
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
		if std, ok := excelAliases[key]; ok {
			cols[std] = i
		}
	}
	for _, required := range []string{"题目", "选项A", "选项B", "答案"} {
		if _, ok := cols[required]; !ok {
			return nil, ErrImportFileInvalid.Withf("缺少必需列: %s", required)
		}
	}

	get := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	items := make([]dto.QuestionExportItem, 0, len(rows)-1)
	for _, row := range rows[1:] {
		item := dto.QuestionExportItem{
			Question:    get(row, "题目"),
			Category:    get(row, "分类"),
			Type:        parseExcelType(get(row, "类型")),
			OptionA:     get(row, "选项A"),
			OptionB:     get(row, "选项B"),
			OptionC:     optionalString(get(row, "选项C")),
			OptionD:     optionalString(get(row, "选项D")),
			Answer:      get(row, "答案"),
			Explanation: get(row, "解析"),
		}
		if item.Question == "" || item.OptionA == "" || item.OptionB == "" || item.Answer == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func parseExcelType(v string) string {
	switch strings.ToLower(v) {
	case "multiple", "多选", "多选题":
		return model.QuestionTypeMultiple
	case "single", "单选", "单选题":
		return model.QuestionTypeSingle
	default:
		return ""
	}
}

// ── 转换 ──

func toExportItem(q *model.Question) dto.QuestionExportItem {
	return dto.QuestionExportItem{
		ID:          q.ID,
		QuestionID:  q.LegacyID,
		Category:    q.Category,
		Type:        q.QuestionType,
		Question:    q.Question,
		OptionA:     q.OptionA,
		OptionB:     q.OptionB,
		OptionC:     q.OptionC,
		OptionD:     q.OptionD,
		Answer:      q.Answer,
		Explanation: derefString(q.Explanation),
		CreatedAt:   q.CreatedAt.Format(dto.TimeLayout),
	}
}

// fromExportItem 导入时忽略原 id，由数据库分配新标识
func fromExportItem(item *dto.QuestionExportItem, bankID uint) (*model.Question, error) {
	q := &model.Question{
		BankID:       bankID,
		Category:     item.Category,
		QuestionType: item.Type,
		Question:     strings.TrimSpace(item.Question),
		OptionA:      item.OptionA,
		OptionB:      item.OptionB,
		OptionC:      item.OptionC,
		OptionD:      item.OptionD,
		Answer:       item.Answer,
		Explanation:  optionalString(item.Explanation),
		LegacyID:     item.QuestionID,
	}
	if q.Question == "" || q.OptionA == "" || q.OptionB == "" {
		return nil, ErrImportFileInvalid.Withf("题干与选项A/B不能为空")
	}
	if q.QuestionType != "" && q.QuestionType != model.QuestionTypeSingle && q.QuestionType != model.QuestionTypeMultiple {
		return nil, ErrImportFileInvalid.Withf("不支持的题型: %s", q.QuestionType)
	}
	if err := normalizeQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
