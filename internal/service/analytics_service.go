package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"neurogen-exam/backend/config"
	"neurogen-exam/backend/internal/dto"
	"neurogen-exam/backend/internal/model"
	"neurogen-exam/backend/internal/repository"
	pkgerrors "neurogen-exam/backend/pkg/errors"
)

// ── 统计模块业务错误 ──

var (
	ErrInvalidDate = pkgerrors.New(pkgerrors.KindValidation, "日期格式错误，应为 YYYY-MM-DD")
)

// 统计口径
const (
	defaultAnalyticsDays = 30
	highScoreThreshold   = 80
	lowScoreThreshold    = 60
	ungroupedDepartment  = "未分组"
	noDailyDataMessage   = "当日无考试记录"
)

// analyticsCachePrefix 统计缓存键前缀，考试记录变化时整体失效
const analyticsCachePrefix = "analytics:"

// Cache 统计结果缓存（Redis 实现见 pkg/redis）
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// AnalyticsService 统计分析接口（只读，回填除外）
type AnalyticsService interface {
	// WindowStats 最近 N 天的整体、部门、按日统计
	WindowStats(ctx context.Context, req *dto.ExamAnalyticsRequest) (*dto.ExamAnalyticsResponse, error)
	// DailyReport 指定日期（默认今天）的每日测验报告；无数据时 has_data=false
	DailyReport(ctx context.Context, date string) (*dto.DailyExamReport, error)
	// BackfillDailyReports 为缺失的日期生成并保存 daily_report_{date}，可重复执行
	BackfillDailyReports(ctx context.Context) (*dto.BackfillReportsResponse, error)
}

type analyticsService struct {
	cfg    *config.Config
	repo   *repository.Repository
	cache  Cache
	logger *zap.Logger
	now    func() time.Time
}

// NewAnalyticsService 创建 AnalyticsService 实例；cache 可为 nil
func NewAnalyticsService(cfg *config.Config, repo *repository.Repository, cache Cache, logger *zap.Logger) AnalyticsService {
	return &analyticsService{cfg: cfg, repo: repo, cache: cache, logger: logger, now: time.Now}
}

// ────────────────────── WindowStats ──────────────────────

func (s *analyticsService) WindowStats(ctx context.Context, req *dto.ExamAnalyticsRequest) (*dto.ExamAnalyticsResponse, error) {
	days := req.Days
	if days <= 0 {
		days = defaultAnalyticsDays
	}

	cacheKey := fmt.Sprintf("%swindow:%d:%s", analyticsCachePrefix, days, req.Department)
	if s.cache != nil {
		var cached dto.ExamAnalyticsResponse
		if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	from := s.now().AddDate(0, 0, -days)
	recs, err := s.repo.ExamRecord.List(ctx, repository.ExamRecordFilter{
		Department: req.Department,
		From:       &from,
	})
	if err != nil {
		s.logger.Error("查询统计数据失败", zap.Error(err))
		return nil, err
	}

	resp := aggregateWindow(recs)
	resp.Days = days
	resp.Department = req.Department

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, resp, s.cfg.Analytics.CacheTTL); err != nil {
			s.logger.Warn("写入统计缓存失败", zap.Error(err))
		}
	}
	return resp, nil
}

type scoreAcc struct {
	count int
	sum   int
	high  int
	low   int
}

func (a *scoreAcc) add(score int) {
	a.count++
	a.sum += score
	if score >= highScoreThreshold {
		a.high++
	}
	if score < lowScoreThreshold {
		a.low++
	}
}

func (a *scoreAcc) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return roundTo(float64(a.sum)/float64(a.count), 1)
}

// aggregateWindow 部门按首次出现顺序，日期升序
func aggregateWindow(recs []model.ExamRecord) *dto.ExamAnalyticsResponse {
	var total scoreAcc
	depts := make(map[string]*scoreAcc)
	deptOrder := make([]string, 0)
	daily := make(map[string]*scoreAcc)

	for i := range recs {
		r := &recs[i]
		total.add(r.Score)

		dept := ungroupedDepartment
		if r.Department != nil && *r.Department != "" {
			dept = *r.Department
		}
		if depts[dept] == nil {
			depts[dept] = &scoreAcc{}
			deptOrder = append(deptOrder, dept)
		}
		depts[dept].add(r.Score)

		day := r.CreatedAt.Format(dto.DateLayout)
		if daily[day] == nil {
			daily[day] = &scoreAcc{}
		}
		daily[day].add(r.Score)
	}

	resp := &dto.ExamAnalyticsResponse{
		TotalExams:      total.count,
		AvgScore:        total.mean(),
		HighPerformers:  total.high,
		LowPerformers:   total.low,
		DepartmentStats: make([]dto.DepartmentStat, 0, len(depts)),
		DailyStats:      make([]dto.DailyStat, 0, len(daily)),
	}
	for _, name := range deptOrder {
		acc := depts[name]
		resp.DepartmentStats = append(resp.DepartmentStats, dto.DepartmentStat{
			Department:     name,
			ExamCount:      acc.count,
			AvgScore:       acc.mean(),
			HighPerformers: acc.high,
			LowPerformers:  acc.low,
		})
	}

	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)
	for _, d := range days {
		resp.DailyStats = append(resp.DailyStats, dto.DailyStat{
			Date:      d,
			ExamCount: daily[d].count,
			AvgScore:  daily[d].mean(),
		})
	}
	return resp
}

// ────────────────────── DailyReport ──────────────────────

func (s *analyticsService) DailyReport(ctx context.Context, date string) (*dto.DailyExamReport, error) {
	now := s.now()
	if date == "" {
		date = now.Format(dto.DateLayout)
	}
	day, err := time.ParseInLocation(dto.DateLayout, date, now.Location())
	if err != nil {
		return nil, ErrInvalidDate
	}
	next := day.AddDate(0, 0, 1)

	recs, err := s.repo.ExamRecord.List(ctx, repository.ExamRecordFilter{
		ExamType: model.ExamRecordTypeDaily,
		From:     &day,
		To:       &next,
	})
	if err != nil {
		s.logger.Error("查询每日测验记录失败", zap.String("date", date), zap.Error(err))
		return nil, err
	}

	return buildDailyReport(date, recs), nil
}

func buildDailyReport(date string, recs []model.ExamRecord) *dto.DailyExamReport {
	if len(recs) == 0 {
		return &dto.DailyExamReport{Date: date, HasData: false, Message: noDailyDataMessage}
	}

	var scoreSum, durationSum int
	var dist dto.ScoreDistribution
	items := make([]dto.DailyRecordItem, 0, len(recs))
	for i := range recs {
		r := &recs[i]
		scoreSum += r.Score
		durationSum += r.Duration

		switch {
		case r.Score >= 90:
			dist.Excellent.Count++
		case r.Score >= 70:
			dist.Good.Count++
		case r.Score >= 60:
			dist.Average.Count++
		default:
			dist.Poor.Count++
		}

		items = append(items, dto.DailyRecordItem{
			UserName:       r.UserName,
			Score:          r.Score,
			CorrectCount:   r.CorrectCount,
			TotalQuestions: r.TotalQuestions,
			Duration:       r.Duration,
			CreatedAt:      r.CreatedAt.Format(dto.TimeLayout),
		})
	}

	n := len(recs)
	for _, b := range []*dto.ScoreBucket{&dist.Excellent, &dist.Good, &dist.Average, &dist.Poor} {
		b.Percentage = roundTo(float64(b.Count)/float64(n)*100, 1)
	}

	return &dto.DailyExamReport{
		Date:    date,
		HasData: true,
		Statistics: &dto.DailyStatistics{
			TotalParticipants:      n,
			AverageScore:           roundTo(float64(scoreSum)/float64(n), 2),
			AverageDurationSeconds: int(math.Round(float64(durationSum) / float64(n))),
			ScoreDistribution:      dist,
		},
		Records: items,
	}
}

// ────────────────────── BackfillDailyReports ──────────────────────

func (s *analyticsService) BackfillDailyReports(ctx context.Context) (*dto.BackfillReportsResponse, error) {
	dates, err := s.repo.ExamRecord.ListDatesByType(ctx, model.ExamRecordTypeDaily)
	if err != nil {
		s.logger.Error("查询每日测验日期失败", zap.Error(err))
		return nil, err
	}

	generated := make([]string, 0)
	for _, date := range dates {
		key := model.DailyReportKey(date)
		if _, err := s.repo.SystemConfig.Get(ctx, key); err == nil {
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		report, err := s.DailyReport(ctx, date)
		if err != nil {
			return nil, err
		}
		if !report.HasData {
			continue
		}

		raw, err := json.Marshal(report)
		if err != nil {
			return nil, err
		}
		if err := s.repo.SystemConfig.Upsert(ctx, &model.SystemConfig{
			Key:         key,
			Value:       string(raw),
			Description: fmt.Sprintf("%s 每日测验报告", date),
			ConfigType:  model.ConfigTypeJSON,
		}); err != nil {
			s.logger.Error("保存每日报告失败", zap.String("date", date), zap.Error(err))
			return nil, err
		}
		generated = append(generated, date)
	}

	if len(generated) > 0 {
		s.logger.Info("每日报告已补生成", zap.Strings("dates", generated))
	}
	return &dto.BackfillReportsResponse{
		Success:        true,
		Message:        fmt.Sprintf("成功生成 %d 个每日报告", len(generated)),
		GeneratedDates: generated,
	}, nil
}

// roundTo 四舍五入到 places 位小数
func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
