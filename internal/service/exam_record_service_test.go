package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/model"
	pkgerrors "neurogen-exam/backend/pkg/errors"
)

// ── 测试替身 ──

type fakeQueue struct {
	ids []string
}

func (q *fakeQueue) Enqueue(id string) bool {
	q.ids = append(q.ids, id)
	return true
}

type fakeCache struct {
	data     map[string][]byte
	prefixes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	raw, ok := c.data[key]
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *fakeCache) DeleteByPrefix(_ context.Context, prefix string) error {
	c.prefixes = append(c.prefixes, prefix)
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func strP(s string) *string { return &s }
func intP(n int) *int       { return &n }
func uintP(n uint) *uint    { return &n }

func setupRecordService() (ExamRecordService, *mockStore, *fakeQueue, *fakeCache) {
	store := newMockStore()
	queue := &fakeQueue{}
	cache := newFakeCache()
	svc := NewExamRecordService(newMockRepository(store), queue, cache, zap.NewNop())
	return svc, store, queue, cache
}

func fullSubmission(id string) *dto.SubmitExamRecordRequest {
	return &dto.SubmitExamRecordRequest{
		ID:             id,
		UserName:       strP("张三"),
		Score:          intP(80),
		CorrectCount:   intP(8),
		TotalQuestions: intP(10),
		Duration:       intP(600),
	}
}

// ────────────────────── Upsert ──────────────────────

func TestUpsert_CreateThenUpdate(t *testing.T) {
	svc, store, queue, _ := setupRecordService()
	ctx := context.Background()

	first, err := svc.Upsert(ctx, fullSubmission("rec-1"))
	if err != nil {
		t.Fatalf("首次提交应成功: %v", err)
	}
	if first.Action != dto.ActionCreated || first.ID != "rec-1" {
		t.Errorf("期望 action=created id=rec-1，实际=%+v", first)
	}

	second, err := svc.Upsert(ctx, &dto.SubmitExamRecordRequest{ID: "rec-1", Score: intP(95)})
	if err != nil {
		t.Fatalf("再次提交应成功: %v", err)
	}
	if second.Action != dto.ActionUpdated {
		t.Errorf("期望 action=updated，实际=%s", second.Action)
	}

	if len(store.records) != 1 {
		t.Fatalf("期望 1 条记录，实际=%d", len(store.records))
	}
	rec := store.records["rec-1"]
	if rec.Score != 95 {
		t.Errorf("期望 score=95，实际=%d", rec.Score)
	}
	if rec.UserName != "张三" || rec.CorrectCount != 8 || rec.Duration != 600 {
		t.Errorf("未提交的字段应保持不变，实际=%+v", rec)
	}
	if len(queue.ids) != 2 {
		t.Errorf("无报告的记录每次提交都应入队，实际=%d", len(queue.ids))
	}
}

func TestUpsert_SameBodyTwiceIsIdempotent(t *testing.T) {
	svc, store, _, _ := setupRecordService()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Upsert(ctx, fullSubmission("rec-dup")); err != nil {
			t.Fatalf("第 %d 次提交应成功: %v", i+1, err)
		}
	}
	if len(store.records) != 1 {
		t.Errorf("重复提交不应产生多条记录，实际=%d", len(store.records))
	}
}

func TestUpsert_MissingFields(t *testing.T) {
	svc, store, _, _ := setupRecordService()

	_, err := svc.Upsert(context.Background(), &dto.SubmitExamRecordRequest{ID: "rec-x", UserName: strP("李四")})
	if !errors.Is(err, ErrRecordFieldsMissing) {
		t.Fatalf("期望 ErrRecordFieldsMissing，实际=%v", err)
	}
	if pkgerrors.KindOf(err) != pkgerrors.KindValidation {
		t.Errorf("期望 validation，实际=%s", pkgerrors.KindOf(err))
	}
	if !strings.Contains(err.Error(), "score") {
		t.Errorf("错误信息应列出缺失字段，实际=%s", err.Error())
	}
	if len(store.records) != 0 {
		t.Error("校验失败不应写入记录")
	}
}

func TestUpsert_InvalidJSON(t *testing.T) {
	svc, _, _, _ := setupRecordService()
	req := fullSubmission("rec-json")
	req.DetailedAnswers = json.RawMessage(`{"0":`)

	if _, err := svc.Upsert(context.Background(), req); !errors.Is(err, ErrRecordInvalidJSON) {
		t.Errorf("期望 ErrRecordInvalidJSON，实际=%v", err)
	}
}

func TestUpsert_DefaultsFromCurrentSelection(t *testing.T) {
	svc, store, _, _ := setupRecordService()
	store.teams[2] = &model.Team{ID: 2, Name: "二组", Code: "t2", IsActive: true}
	store.banks[7] = &model.QuestionBank{ID: 7, TeamID: 2, Name: "题库七", IsActive: true}
	store.configs[model.ConfigKeyCurrentTeam].Value = "2"
	store.configs[model.ConfigKeyCurrentBank].Value = "7"

	if _, err := svc.Upsert(context.Background(), fullSubmission("rec-sel")); err != nil {
		t.Fatalf("提交应成功: %v", err)
	}
	rec := store.records["rec-sel"]
	if rec.TeamID != 2 || rec.BankID != 7 {
		t.Errorf("期望 team=2 bank=7，实际 team=%d bank=%d", rec.TeamID, rec.BankID)
	}
	if rec.ExamType != model.ExamRecordTypeWeekly {
		t.Errorf("期望默认 exam_type=weekly，实际=%s", rec.ExamType)
	}
}

func TestUpsert_ExplicitSelectionWins(t *testing.T) {
	svc, store, _, _ := setupRecordService()
	store.teams[3] = &model.Team{ID: 3, Name: "三组", Code: "t3", IsActive: true}
	store.banks[4] = &model.QuestionBank{ID: 4, TeamID: 3, Name: "题库四", IsActive: true}
	req := fullSubmission("rec-explicit")
	req.TeamID = uintP(3)
	req.BankID = uintP(4)

	if _, err := svc.Upsert(context.Background(), req); err != nil {
		t.Fatalf("提交应成功: %v", err)
	}
	if rec := store.records["rec-explicit"]; rec.TeamID != 3 || rec.BankID != 4 {
		t.Errorf("显式传入的团队/题库应优先，实际 team=%d bank=%d", rec.TeamID, rec.BankID)
	}
}

func TestUpsert_UnknownTeamOrBank(t *testing.T) {
	svc, store, queue, _ := setupRecordService()
	store.teams[5] = &model.Team{ID: 5, Name: "已停用", Code: "t5", IsActive: false}
	ctx := context.Background()

	tests := []struct {
		name    string
		teamID  *uint
		bankID  *uint
		wantErr error
	}{
		{"团队不存在", uintP(999), nil, ErrTeamNotFound},
		{"团队已停用", uintP(5), nil, ErrTeamNotFound},
		{"题库不存在", nil, uintP(888), ErrBankNotFound},
		{"团队与题库均不存在", uintP(999), uintP(888), ErrTeamNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := fullSubmission("rec-ref")
			req.TeamID = tt.teamID
			req.BankID = tt.bankID

			_, err := svc.Upsert(ctx, req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("期望 %v，实际=%v", tt.wantErr, err)
			}
			if pkgerrors.KindOf(err) != pkgerrors.KindNotFound {
				t.Errorf("期望 not_found，实际=%s", pkgerrors.KindOf(err))
			}
		})
	}
	if len(store.records) != 0 || len(queue.ids) != 0 {
		t.Error("引用不存在时不应写入或入队")
	}

	// 已有记录的更新同样校验
	if _, err := svc.Upsert(ctx, fullSubmission("rec-ref")); err != nil {
		t.Fatalf("提交应成功: %v", err)
	}
	_, err := svc.Upsert(ctx, &dto.SubmitExamRecordRequest{ID: "rec-ref", BankID: uintP(888)})
	if !errors.Is(err, ErrBankNotFound) {
		t.Fatalf("更新时期望 ErrBankNotFound，实际=%v", err)
	}
	if rec := store.records["rec-ref"]; rec.BankID != 1 {
		t.Errorf("校验失败不应修改记录，实际 bank=%d", rec.BankID)
	}
}

func TestUpsert_MissingSelectionConfigFallsBackToDefault(t *testing.T) {
	svc, store, _, _ := setupRecordService()
	delete(store.configs, model.ConfigKeyCurrentTeam)
	store.configs[model.ConfigKeyCurrentBank].Value = "abc"

	if _, err := svc.Upsert(context.Background(), fullSubmission("rec-default")); err != nil {
		t.Fatalf("提交应成功: %v", err)
	}
	if rec := store.records["rec-default"]; rec.TeamID != 1 || rec.BankID != 1 {
		t.Errorf("配置缺失或无效时应回落到 1，实际 team=%d bank=%d", rec.TeamID, rec.BankID)
	}
}

func TestUpsert_WithReportNotEnqueued(t *testing.T) {
	svc, _, queue, _ := setupRecordService()
	req := fullSubmission("rec-report")
	req.AIReport = strP("已有报告")

	if _, err := svc.Upsert(context.Background(), req); err != nil {
		t.Fatalf("提交应成功: %v", err)
	}
	if len(queue.ids) != 0 {
		t.Errorf("已有报告的记录不应入队，实际=%v", queue.ids)
	}
}

func TestUpsert_InvalidatesAnalyticsCache(t *testing.T) {
	svc, _, _, cache := setupRecordService()
	cache.data[analyticsCachePrefix+"window:30:"] = []byte(`{}`)

	if _, err := svc.Upsert(context.Background(), fullSubmission("rec-cache")); err != nil {
		t.Fatalf("提交应成功: %v", err)
	}
	if len(cache.data) != 0 {
		t.Error("写入记录后统计缓存应被清除")
	}
}

// ────────────────────── List / Get / Delete ──────────────────────

func TestRecordList_FilterAndOrder(t *testing.T) {
	svc, store, _, _ := setupRecordService()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)
	store.records["a"] = &model.ExamRecord{ID: "a", UserName: "Alice", Department: strP("销售一部"), ExamType: "weekly", CreatedAt: base}
	store.records["b"] = &model.ExamRecord{ID: "b", UserName: "alan", Department: strP("销售二部"), ExamType: "weekly", CreatedAt: base.Add(time.Hour)}
	store.records["c"] = &model.ExamRecord{ID: "c", UserName: "Bob", Department: strP("销售一部"), ExamType: "daily_exam", CreatedAt: base.Add(2 * time.Hour)}

	list, err := svc.List(context.Background(), &dto.ExamRecordListRequest{UserName: "AL"})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		t.Errorf("期望按时间倒序返回 [b a]，实际=%+v", list)
	}

	list, _ = svc.List(context.Background(), &dto.ExamRecordListRequest{Department: "销售一部", Limit: 1})
	if len(list) != 1 || list[0].ID != "c" {
		t.Errorf("期望只返回最新的 c，实际=%+v", list)
	}
}

func TestRecordGetAndDelete(t *testing.T) {
	svc, _, _, _ := setupRecordService()
	ctx := context.Background()

	if _, err := svc.GetByID(ctx, "nope"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际=%v", err)
	}
	if _, err := svc.Upsert(ctx, fullSubmission("rec-del")); err != nil {
		t.Fatalf("提交应成功: %v", err)
	}
	if err := svc.Delete(ctx, "rec-del"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if err := svc.Delete(ctx, "rec-del"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("重复删除期望 ErrRecordNotFound，实际=%v", err)
	}
}
