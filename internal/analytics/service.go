// Package analytics はブロッカーの時系列集計のドメインロジックを提供する。
package analytics

import (
	"context"
	"time"

	"github.com/hitoshi/blocklog/internal/model"
	"github.com/hitoshi/blocklog/internal/repository"
)

// Service はダッシュボード・月次・日次・カレンダー・エクスポートの集計を提供する。
// 1リクエスト内の全集計クエリには同一の基準時刻を渡す。
// クエリごとに時刻を取り直すと、同時に返した複数の統計が互いに矛盾する。
type Service struct {
	analytics repository.AnalyticsRepository

	// テストで時刻を固定するためのフック
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(analytics repository.AnalyticsRepository) *Service {
	return &Service{
		analytics: analytics,
		now:       time.Now,
	}
}

// Dashboard は件数・合計・平均・最長をまとめたダッシュボード統計。
type Dashboard struct {
	Counts    repository.DashboardCounts
	Durations repository.DurationStats
	Longest   *repository.LongestBlock
}

// Dashboard はダッシュボード統計を返す。
// 全項目を同一の基準時刻で計算するため、合計・平均・最長は常に整合する。
func (s *Service) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	now := s.now().UTC()

	counts, err := s.analytics.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	durations, err := s.analytics.DurationStats(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	longest, err := s.analytics.LongestBlock(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Counts:    counts,
		Durations: durations,
		Longest:   longest,
	}, nil
}

// Monthly は指定年の月次ロールアップを返す。yearが0以下の場合は現在の年。
func (s *Service) Monthly(ctx context.Context, userID string, year int) ([]repository.MonthlyStat, error) {
	now := s.now().UTC()
	if year <= 0 {
		year = now.Year()
	}
	return s.analytics.MonthlyStats(ctx, userID, year, now)
}

// Daily は指定年月の日次ロールアップを返す。
// yearが0以下の場合は現在の年、monthが範囲外の場合は現在の月。
func (s *Service) Daily(ctx context.Context, userID string, year, month int) ([]repository.DailyStat, error) {
	now := s.now().UTC()
	if year <= 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		month = int(now.Month())
	}
	return s.analytics.DailyStats(ctx, userID, year, month, now)
}

// Calendar は指定年全体の日次ロールアップを返す。yearが0以下の場合は現在の年。
// 月別ビューと同じクエリで集計するため、同じ日の値は必ず一致する。
func (s *Service) Calendar(ctx context.Context, userID string, year int) ([]repository.DailyStat, error) {
	now := s.now().UTC()
	if year <= 0 {
		year = now.Year()
	}
	return s.analytics.DailyStats(ctx, userID, year, 0, now)
}

// Export は全ブロッカーをタグ付きで返す。
// Durationは格納値のまま返し、ongoingブロッカーの実効時間には置き換えない。
func (s *Service) Export(ctx context.Context, userID string) ([]*model.Block, error) {
	return s.analytics.ListForExport(ctx, userID)
}
