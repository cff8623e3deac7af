package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/model"
)

var analyticsNow = time.Date(2024, 6, 15, 18, 0, 0, 0, time.Local)

func setupAnalytics() (*analyticsService, *mockStore, *fakeCache) {
	store := newMockStore()
	cache := newFakeCache()
	svc := NewAnalyticsService(testConfig(), newMockRepository(store), cache, zap.NewNop()).(*analyticsService)
	svc.now = func() time.Time { return analyticsNow }
	return svc, store, cache
}

func addRecord(store *mockStore, id string, score int, dept string, examType string, at time.Time) {
	rec := &model.ExamRecord{
		ID: id, UserName: "用户" + id, Score: score, CorrectCount: score / 10, TotalQuestions: 10,
		Duration: 300, ExamType: examType, CreatedAt: at,
	}
	if dept != "" {
		rec.Department = &dept
	}
	store.records[id] = rec
}

// ────────────────────── WindowStats ──────────────────────

func TestWindowStats_Aggregates(t *testing.T) {
	svc, store, _ := setupAnalytics()
	d1 := analyticsNow.AddDate(0, 0, -2)
	d2 := analyticsNow.AddDate(0, 0, -1)
	addRecord(store, "a", 90, "销售一部", "weekly", d1)
	addRecord(store, "b", 50, "销售二部", "weekly", d1.Add(time.Hour))
	addRecord(store, "c", 75, "", "weekly", d2)
	addRecord(store, "old", 10, "销售一部", "weekly", analyticsNow.AddDate(0, 0, -40))

	resp, err := svc.WindowStats(context.Background(), &dto.ExamAnalyticsRequest{})
	if err != nil {
		t.Fatalf("WindowStats 应成功: %v", err)
	}
	if resp.Days != 30 || resp.TotalExams != 3 {
		t.Errorf("期望 30 天内 3 条记录，实际 days=%d total=%d", resp.Days, resp.TotalExams)
	}
	if resp.AvgScore != 71.7 {
		t.Errorf("期望平均分 71.7，实际=%v", resp.AvgScore)
	}
	if resp.HighPerformers != 1 || resp.LowPerformers != 1 {
		t.Errorf("期望高分 1 低分 1，实际 high=%d low=%d", resp.HighPerformers, resp.LowPerformers)
	}

	var names []string
	for _, d := range resp.DepartmentStats {
		names = append(names, d.Department)
	}
	if len(names) != 3 || names[0] != "未分组" || names[2] != "销售一部" {
		t.Errorf("部门应按首次出现排序且无部门归入未分组，实际=%v", names)
	}
	if len(resp.DailyStats) != 2 || resp.DailyStats[0].Date > resp.DailyStats[1].Date {
		t.Errorf("按日统计应为 2 天且升序，实际=%+v", resp.DailyStats)
	}
}

func TestWindowStats_Empty(t *testing.T) {
	svc, _, _ := setupAnalytics()
	resp, err := svc.WindowStats(context.Background(), &dto.ExamAnalyticsRequest{Days: 7})
	if err != nil {
		t.Fatalf("WindowStats 应成功: %v", err)
	}
	if resp.TotalExams != 0 || resp.AvgScore != 0 || len(resp.DepartmentStats) != 0 {
		t.Errorf("空窗口应全部为 0，实际=%+v", resp)
	}
}

func TestWindowStats_Cached(t *testing.T) {
	svc, store, cache := setupAnalytics()
	addRecord(store, "a", 90, "销售一部", "weekly", analyticsNow.Add(-time.Hour))

	if _, err := svc.WindowStats(context.Background(), &dto.ExamAnalyticsRequest{Days: 7}); err != nil {
		t.Fatalf("WindowStats 应成功: %v", err)
	}
	if len(cache.data) != 1 {
		t.Fatalf("结果应写入缓存，实际=%d", len(cache.data))
	}

	addRecord(store, "b", 10, "销售一部", "weekly", analyticsNow.Add(-time.Hour))
	resp, _ := svc.WindowStats(context.Background(), &dto.ExamAnalyticsRequest{Days: 7})
	if resp.TotalExams != 1 {
		t.Errorf("命中缓存时应返回缓存结果，实际 total=%d", resp.TotalExams)
	}
}

// ────────────────────── DailyReport ──────────────────────

func TestDailyReport_Distribution(t *testing.T) {
	svc, store, _ := setupAnalytics()
	day := time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local)
	for i, score := range []int{95, 85, 65, 55} {
		addRecord(store, string(rune('a'+i)), score, "", model.ExamRecordTypeDaily, day.Add(time.Duration(i)*time.Hour))
	}
	addRecord(store, "weekly", 100, "", "weekly", day)
	addRecord(store, "nextday", 100, "", model.ExamRecordTypeDaily, day.AddDate(0, 0, 1))

	report, err := svc.DailyReport(context.Background(), "2024-06-10")
	if err != nil {
		t.Fatalf("DailyReport 应成功: %v", err)
	}
	if !report.HasData || report.Statistics.TotalParticipants != 4 {
		t.Fatalf("期望 4 人参与，实际=%+v", report)
	}
	st := report.Statistics
	if st.AverageScore != 75 {
		t.Errorf("期望平均分 75，实际=%v", st.AverageScore)
	}
	if st.AverageDurationSeconds != 300 {
		t.Errorf("期望平均用时 300，实际=%d", st.AverageDurationSeconds)
	}
	for name, b := range map[string]dto.ScoreBucket{
		"excellent": st.ScoreDistribution.Excellent,
		"good":      st.ScoreDistribution.Good,
		"average":   st.ScoreDistribution.Average,
		"poor":      st.ScoreDistribution.Poor,
	} {
		if b.Count != 1 || b.Percentage != 25.0 {
			t.Errorf("%s 期望 1 人 25.0%%，实际=%+v", name, b)
		}
	}
}

func TestDailyReport_NoDataAndInvalidDate(t *testing.T) {
	svc, _, _ := setupAnalytics()

	report, err := svc.DailyReport(context.Background(), "")
	if err != nil {
		t.Fatalf("DailyReport 应成功: %v", err)
	}
	if report.HasData || report.Date != "2024-06-15" || report.Message != "当日无考试记录" {
		t.Errorf("默认今天且无数据，实际=%+v", report)
	}

	if _, err := svc.DailyReport(context.Background(), "2024/06/15"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("期望 ErrInvalidDate，实际=%v", err)
	}
}

// ────────────────────── BackfillDailyReports ──────────────────────

func TestBackfillDailyReports_Idempotent(t *testing.T) {
	svc, store, _ := setupAnalytics()
	addRecord(store, "a", 90, "", model.ExamRecordTypeDaily, time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local))
	addRecord(store, "b", 70, "", model.ExamRecordTypeDaily, time.Date(2024, 6, 2, 10, 0, 0, 0, time.Local))
	store.configs[model.DailyReportKey("2024-06-02")] = &model.SystemConfig{Key: model.DailyReportKey("2024-06-02"), Value: `{}`}

	resp, err := svc.BackfillDailyReports(context.Background())
	if err != nil {
		t.Fatalf("Backfill 应成功: %v", err)
	}
	if len(resp.GeneratedDates) != 1 || resp.GeneratedDates[0] != "2024-06-01" {
		t.Errorf("只应补生成缺失的日期，实际=%v", resp.GeneratedDates)
	}
	if resp.Message != "成功生成 1 个每日报告" {
		t.Errorf("消息不符合预期: %s", resp.Message)
	}

	var saved dto.DailyExamReport
	entry := store.configs[model.DailyReportKey("2024-06-01")]
	if entry == nil || entry.ConfigType != model.ConfigTypeJSON {
		t.Fatalf("报告应以 json 类型保存，实际=%+v", entry)
	}
	if err := json.Unmarshal([]byte(entry.Value), &saved); err != nil || saved.Statistics.TotalParticipants != 1 {
		t.Errorf("保存的报告内容不正确: %v %+v", err, saved)
	}

	resp, _ = svc.BackfillDailyReports(context.Background())
	if len(resp.GeneratedDates) != 0 {
		t.Errorf("重复执行不应再生成，实际=%v", resp.GeneratedDates)
	}
}
