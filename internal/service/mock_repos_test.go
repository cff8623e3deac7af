package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"neurogen-exam/backend/internal/model"
	"neurogen-exam/backend/internal/repository"
)

// ── 共享内存存储 ──
// 各 mock repo 共用一份数据，便于跨实体计数（团队下题库数、题库下题目数等）

type mockStore struct {
	teams         map[uint]*model.Team
	banks         map[uint]*model.QuestionBank
	questions     map[uint]*model.Question
	exams         map[uint]*model.Exam
	examQuestions []model.ExamQuestion
	records       map[string]*model.ExamRecord
	configs       map[string]*model.SystemConfig
	nextID        uint
}

func newMockStore() *mockStore {
	s := &mockStore{
		teams:     make(map[uint]*model.Team),
		banks:     make(map[uint]*model.QuestionBank),
		questions: make(map[uint]*model.Question),
		exams:     make(map[uint]*model.Exam),
		records:   make(map[string]*model.ExamRecord),
		configs:   make(map[string]*model.SystemConfig),
		nextID:    100,
	}
	s.teams[1] = &model.Team{ID: 1, Name: "默认团队", Code: "default", IsActive: true}
	s.banks[1] = &model.QuestionBank{ID: 1, TeamID: 1, Name: "默认题库", IsActive: true}
	s.configs[model.ConfigKeyCurrentTeam] = &model.SystemConfig{Key: model.ConfigKeyCurrentTeam, Value: "1"}
	s.configs[model.ConfigKeyCurrentBank] = &model.SystemConfig{Key: model.ConfigKeyCurrentBank, Value: "1"}
	return s
}

func (s *mockStore) id() uint {
	s.nextID++
	return s.nextID
}

func newMockRepository(s *mockStore) *repository.Repository {
	return &repository.Repository{
		Team:         &mockTeamRepo{s},
		QuestionBank: &mockBankRepo{s},
		Question:     &mockQuestionRepo{s},
		Exam:         &mockExamRepo{s},
		ExamRecord:   &mockRecordRepo{s},
		SystemConfig: &mockConfigRepo{s},
	}
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
}

// ── Mock TeamRepository ──

type mockTeamRepo struct{ s *mockStore }

func (m *mockTeamRepo) Create(_ context.Context, team *model.Team) error {
	for _, t := range m.s.teams {
		if t.Code == team.Code {
			return uniqueViolation()
		}
	}
	if team.ID == 0 {
		team.ID = m.s.id()
	}
	cp := *team
	m.s.teams[team.ID] = &cp
	return nil
}

func (m *mockTeamRepo) GetByID(_ context.Context, id uint) (*model.Team, error) {
	if t, ok := m.s.teams[id]; ok && t.IsActive {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeamRepo) GetByCode(_ context.Context, code string) (*model.Team, error) {
	for _, t := range m.s.teams {
		if t.Code == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeamRepo) ListActive(_ context.Context) ([]model.Team, error) {
	var result []model.Team
	for _, t := range m.s.teams {
		if t.IsActive {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockTeamRepo) Update(_ context.Context, team *model.Team) error {
	cp := *team
	m.s.teams[team.ID] = &cp
	return nil
}

func (m *mockTeamRepo) SoftDelete(_ context.Context, id uint) error {
	if t, ok := m.s.teams[id]; ok {
		t.IsActive = false
	}
	return nil
}

func (m *mockTeamRepo) CountActiveBanks(_ context.Context, teamID uint) (int64, error) {
	var n int64
	for _, b := range m.s.banks {
		if b.TeamID == teamID && b.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *mockTeamRepo) BatchStats(_ context.Context, teamIDs []uint) (map[uint]repository.TeamStats, error) {
	result := make(map[uint]repository.TeamStats)
	for _, id := range teamIDs {
		var st repository.TeamStats
		for _, b := range m.s.banks {
			if b.TeamID != id || !b.IsActive {
				continue
			}
			st.BanksCount++
			for _, q := range m.s.questions {
				if q.BankID == b.ID {
					st.QuestionsCount++
				}
			}
		}
		for _, r := range m.s.records {
			if r.TeamID == id {
				st.ExamsCount++
			}
		}
		result[id] = st
	}
	return result, nil
}

// ── Mock QuestionBankRepository ──

type mockBankRepo struct{ s *mockStore }

func (m *mockBankRepo) Create(_ context.Context, bank *model.QuestionBank) error {
	for _, b := range m.s.banks {
		if b.IsActive && b.TeamID == bank.TeamID && b.Name == bank.Name {
			return uniqueViolation()
		}
	}
	if bank.ID == 0 {
		bank.ID = m.s.id()
	}
	cp := *bank
	cp.Team = nil
	m.s.banks[bank.ID] = &cp
	return nil
}

func (m *mockBankRepo) withTeam(b *model.QuestionBank) *model.QuestionBank {
	cp := *b
	if t, ok := m.s.teams[b.TeamID]; ok {
		team := *t
		cp.Team = &team
	}
	return &cp
}

func (m *mockBankRepo) GetByID(_ context.Context, id uint) (*model.QuestionBank, error) {
	if b, ok := m.s.banks[id]; ok && b.IsActive {
		return m.withTeam(b), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBankRepo) GetActiveByName(_ context.Context, teamID uint, name string) (*model.QuestionBank, error) {
	for _, b := range m.s.banks {
		if b.IsActive && b.TeamID == teamID && b.Name == name {
			return m.withTeam(b), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBankRepo) List(_ context.Context, teamID *uint) ([]model.QuestionBank, error) {
	var result []model.QuestionBank
	for _, b := range m.s.banks {
		if !b.IsActive || (teamID != nil && b.TeamID != *teamID) {
			continue
		}
		result = append(result, *m.withTeam(b))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockBankRepo) Update(_ context.Context, bank *model.QuestionBank) error {
	cp := *bank
	cp.Team = nil
	m.s.banks[bank.ID] = &cp
	return nil
}

func (m *mockBankRepo) SoftDelete(_ context.Context, id uint) error {
	if b, ok := m.s.banks[id]; ok {
		b.IsActive = false
	}
	return nil
}

func (m *mockBankRepo) CountQuestions(_ context.Context, bankID uint) (int64, error) {
	var n int64
	for _, q := range m.s.questions {
		if q.BankID == bankID {
			n++
		}
	}
	return n, nil
}

func (m *mockBankRepo) BatchCountQuestions(ctx context.Context, bankIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64)
	for _, id := range bankIDs {
		n, _ := m.CountQuestions(ctx, id)
		result[id] = n
	}
	return result, nil
}

// ── Mock QuestionRepository ──

type mockQuestionRepo struct{ s *mockStore }

func (m *mockQuestionRepo) Create(_ context.Context, q *model.Question) error {
	if q.ID == 0 {
		q.ID = m.s.id()
	}
	cp := *q
	m.s.questions[q.ID] = &cp
	return nil
}

func (m *mockQuestionRepo) CreateBatch(ctx context.Context, qs []model.Question) error {
	for i := range qs {
		if err := m.Create(ctx, &qs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockQuestionRepo) GetByID(_ context.Context, id uint) (*model.Question, error) {
	if q, ok := m.s.questions[id]; ok {
		cp := *q
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQuestionRepo) ListByIDs(_ context.Context, ids []uint) ([]model.Question, error) {
	var result []model.Question
	for _, id := range ids {
		if q, ok := m.s.questions[id]; ok {
			result = append(result, *q)
		}
	}
	return result, nil
}

func (m *mockQuestionRepo) List(_ context.Context, f repository.QuestionFilter) ([]model.Question, error) {
	var result []model.Question
	for _, q := range m.s.questions {
		if f.BankID != nil && q.BankID != *f.BankID {
			continue
		}
		if f.Category != "" && q.Category != f.Category {
			continue
		}
		if f.Type != "" && q.QuestionType != f.Type {
			continue
		}
		result = append(result, *q)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (m *mockQuestionRepo) Update(_ context.Context, q *model.Question) error {
	cp := *q
	m.s.questions[q.ID] = &cp
	return nil
}

func (m *mockQuestionRepo) Delete(_ context.Context, id uint) error {
	delete(m.s.questions, id)
	return nil
}

func (m *mockQuestionRepo) CountExamReferences(_ context.Context, questionID uint) (int64, error) {
	var n int64
	for _, eq := range m.s.examQuestions {
		if eq.QuestionID == questionID {
			n++
		}
	}
	return n, nil
}

func (m *mockQuestionRepo) ListTexts(_ context.Context, bankID uint) ([]string, error) {
	var result []string
	for _, q := range m.s.questions {
		if q.BankID == bankID {
			result = append(result, q.Question)
		}
	}
	return result, nil
}

func (m *mockQuestionRepo) Count(_ context.Context, bankID *uint) (int64, error) {
	var n int64
	for _, q := range m.s.questions {
		if bankID == nil || q.BankID == *bankID {
			n++
		}
	}
	return n, nil
}

func (m *mockQuestionRepo) countBy(bankID *uint, key func(*model.Question) string) []repository.GroupCount {
	counts := make(map[string]int64)
	for _, q := range m.s.questions {
		if bankID == nil || q.BankID == *bankID {
			counts[key(q)]++
		}
	}
	result := make([]repository.GroupCount, 0, len(counts))
	for k, v := range counts {
		result = append(result, repository.GroupCount{Key: k, Count: v})
	}
	return result
}

func (m *mockQuestionRepo) CountByType(_ context.Context, bankID *uint) ([]repository.GroupCount, error) {
	return m.countBy(bankID, func(q *model.Question) string { return q.QuestionType }), nil
}

func (m *mockQuestionRepo) CountByCategory(_ context.Context, bankID *uint) ([]repository.GroupCount, error) {
	return m.countBy(bankID, func(q *model.Question) string { return q.Category }), nil
}

// ── Mock ExamRepository ──

type mockExamRepo struct{ s *mockStore }

func (m *mockExamRepo) Create(_ context.Context, exam *model.Exam) error {
	if exam.ID == 0 {
		exam.ID = m.s.id()
	}
	cp := *exam
	m.s.exams[exam.ID] = &cp
	return nil
}

func (m *mockExamRepo) GetByID(_ context.Context, id uint) (*model.Exam, error) {
	if e, ok := m.s.exams[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockExamRepo) List(_ context.Context, examType string) ([]model.Exam, error) {
	var result []model.Exam
	for _, e := range m.s.exams {
		if examType == "" || e.ExamType == examType {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockExamRepo) Update(_ context.Context, exam *model.Exam) error {
	cp := *exam
	m.s.exams[exam.ID] = &cp
	return nil
}

func (m *mockExamRepo) Delete(_ context.Context, id uint) error {
	delete(m.s.exams, id)
	return nil
}

func (m *mockExamRepo) ListQuestions(_ context.Context, examID uint) ([]model.ExamQuestion, error) {
	var result []model.ExamQuestion
	for _, eq := range m.s.examQuestions {
		if eq.ExamID != examID {
			continue
		}
		if q, ok := m.s.questions[eq.QuestionID]; ok {
			cp := *q
			eq.Question = &cp
		}
		result = append(result, eq)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderIndex < result[j].OrderIndex })
	return result, nil
}

func (m *mockExamRepo) CreateQuestions(_ context.Context, rows []model.ExamQuestion) error {
	for _, row := range rows {
		for _, eq := range m.s.examQuestions {
			if eq.ExamID == row.ExamID && eq.OrderIndex == row.OrderIndex {
				return uniqueViolation()
			}
		}
		row.ID = m.s.id()
		m.s.examQuestions = append(m.s.examQuestions, row)
	}
	return nil
}

func (m *mockExamRepo) DeleteQuestions(_ context.Context, examID uint) error {
	kept := m.s.examQuestions[:0]
	for _, eq := range m.s.examQuestions {
		if eq.ExamID != examID {
			kept = append(kept, eq)
		}
	}
	m.s.examQuestions = kept
	return nil
}

func (m *mockExamRepo) BatchCountQuestions(_ context.Context, examIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64)
	for _, eq := range m.s.examQuestions {
		result[eq.ExamID]++
	}
	return result, nil
}

// ── Mock ExamRecordRepository ──

type mockRecordRepo struct{ s *mockStore }

func (m *mockRecordRepo) Create(_ context.Context, rec *model.ExamRecord) error {
	if _, ok := m.s.records[rec.ID]; ok {
		return uniqueViolation()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.UpdatedAt = rec.CreatedAt
	cp := *rec
	m.s.records[rec.ID] = &cp
	return nil
}

func (m *mockRecordRepo) GetByID(_ context.Context, id string) (*model.ExamRecord, error) {
	if r, ok := m.s.records[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRecordRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.ExamRecord, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRecordRepo) Update(_ context.Context, rec *model.ExamRecord) error {
	rec.UpdatedAt = time.Now()
	cp := *rec
	m.s.records[rec.ID] = &cp
	return nil
}

func (m *mockRecordRepo) SetAIReport(_ context.Context, id, report string) error {
	if r, ok := m.s.records[id]; ok {
		r.AIReport = &report
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockRecordRepo) Delete(_ context.Context, id string) error {
	delete(m.s.records, id)
	return nil
}

func (m *mockRecordRepo) match(r *model.ExamRecord, f repository.ExamRecordFilter) bool {
	if f.UserName != "" && !strings.Contains(strings.ToLower(r.UserName), strings.ToLower(f.UserName)) {
		return false
	}
	if f.Department != "" && (r.Department == nil || *r.Department != f.Department) {
		return false
	}
	if f.ExamType != "" && r.ExamType != f.ExamType {
		return false
	}
	if f.From != nil && r.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !r.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

func (m *mockRecordRepo) List(_ context.Context, f repository.ExamRecordFilter) ([]model.ExamRecord, error) {
	var result []model.ExamRecord
	for _, r := range m.s.records {
		if m.match(r, f) {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (m *mockRecordRepo) Count(ctx context.Context, f repository.ExamRecordFilter) (int64, error) {
	list, _ := m.List(ctx, repository.ExamRecordFilter{
		UserName: f.UserName, Department: f.Department, ExamType: f.ExamType, From: f.From, To: f.To,
	})
	return int64(len(list)), nil
}

func (m *mockRecordRepo) ListDatesByType(_ context.Context, examType string) ([]string, error) {
	seen := make(map[string]bool)
	var dates []string
	for _, r := range m.s.records {
		if r.ExamType != examType {
			continue
		}
		d := r.CreatedAt.Format("2006-01-02")
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// ── Mock SystemConfigRepository ──

type mockConfigRepo struct{ s *mockStore }

func (m *mockConfigRepo) Get(_ context.Context, key string) (*model.SystemConfig, error) {
	if c, ok := m.s.configs[key]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockConfigRepo) Upsert(_ context.Context, cfg *model.SystemConfig) error {
	cp := *cfg
	cp.UpdatedAt = time.Now()
	m.s.configs[cfg.Key] = &cp
	return nil
}

func (m *mockConfigRepo) ListByPrefix(_ context.Context, prefix string) ([]model.SystemConfig, error) {
	var result []model.SystemConfig
	for k, c := range m.s.configs {
		if strings.HasPrefix(k, prefix) {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (m *mockConfigRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.s.configs)), nil
}
