package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/blocklog/internal/model"
)

// effectiveDurationExpr は行ごとの実効ブロック時間（ミリ秒）を計算するSQL式。
// model.Block.EffectiveDurationと意味的に同一でなければならない:
// resolvedは格納値、ongoingは基準時刻$2からの経過時間を0以上にクランプした値。
// ongoingの格納値（0または陳腐化した値）を集計に混ぜると合計が過少になる。
const effectiveDurationExpr = `CASE WHEN b.status = 'resolved' THEN b.duration
	         ELSE GREATEST(0, FLOOR(EXTRACT(EPOCH FROM ($2::timestamptz - b.started_at)) * 1000)) END`

// PostgresAnalyticsRepo はPostgreSQLを使用した集計リポジトリ。
// 実効ブロック時間を参照する全クエリは基準時刻を$2として受け取る。
type PostgresAnalyticsRepo struct {
	db     *sql.DB
	blocks *PostgresBlockRepo
}

// NewPostgresAnalyticsRepo はPostgresAnalyticsRepoを生成する。
func NewPostgresAnalyticsRepo(db *sql.DB) *PostgresAnalyticsRepo {
	return &PostgresAnalyticsRepo{
		db:     db,
		blocks: NewPostgresBlockRepo(db),
	}
}

// CountByStatus はブロッカーの総数・ongoing数・resolved数を返す。
func (r *PostgresAnalyticsRepo) CountByStatus(ctx context.Context, userID string) (DashboardCounts, error) {
	var counts DashboardCounts

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'ongoing'),
		        COUNT(*) FILTER (WHERE status = 'resolved')
		 FROM blocks WHERE user_id = $1`,
		userID,
	).Scan(&counts.Total, &counts.Ongoing, &counts.Resolved)
	if err != nil {
		return DashboardCounts{}, fmt.Errorf("状態別件数の取得に失敗しました: %w", err)
	}

	return counts, nil
}

// DurationStats は全ブロッカーの実効ブロック時間の合計と平均を返す。
func (r *PostgresAnalyticsRepo) DurationStats(ctx context.Context, userID string, now time.Time) (DurationStats, error) {
	var stats DurationStats

	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(`+effectiveDurationExpr+`), 0)::bigint,
		        COALESCE(AVG(`+effectiveDurationExpr+`), 0)::bigint
		 FROM blocks b WHERE b.user_id = $1`,
		userID, now,
	).Scan(&stats.TotalMs, &stats.AverageMs)
	if err != nil {
		return DurationStats{}, fmt.Errorf("ブロック時間統計の取得に失敗しました: %w", err)
	}

	return stats, nil
}

// LongestBlock は実効ブロック時間が最長のブロッカーを返す。
// ブロッカーが1件も無い場合はnilを返す。
func (r *PostgresAnalyticsRepo) LongestBlock(ctx context.Context, userID string, now time.Time) (*LongestBlock, error) {
	longest := &LongestBlock{}

	err := r.db.QueryRowContext(ctx,
		`SELECT b.id, b.title, (`+effectiveDurationExpr+`)::bigint AS duration
		 FROM blocks b WHERE b.user_id = $1
		 ORDER BY duration DESC
		 LIMIT 1`,
		userID, now,
	).Scan(&longest.ID, &longest.Title, &longest.DurationMs)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("最長ブロッカーの取得に失敗しました: %w", err)
	}

	return longest, nil
}

// MonthlyStats は指定年の月次ロールアップを年月昇順で返す。
// 月のグルーピングはPostgreSQLのEXTRACTに委ね、アプリ側で再導出しない。
func (r *PostgresAnalyticsRepo) MonthlyStats(ctx context.Context, userID string, year int, now time.Time) ([]MonthlyStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT EXTRACT(YEAR FROM b.started_at)::int AS year,
		        EXTRACT(MONTH FROM b.started_at)::int AS month,
		        COUNT(b.id)::int,
		        COALESCE(SUM(`+effectiveDurationExpr+`), 0)::bigint,
		        COALESCE(AVG(`+effectiveDurationExpr+`), 0)::bigint
		 FROM blocks b
		 WHERE b.user_id = $1 AND EXTRACT(YEAR FROM b.started_at) = $3
		 GROUP BY EXTRACT(YEAR FROM b.started_at), EXTRACT(MONTH FROM b.started_at)
		 ORDER BY year, month`,
		userID, now, year,
	)
	if err != nil {
		return nil, fmt.Errorf("月次統計の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var stats []MonthlyStat
	for rows.Next() {
		var s MonthlyStat
		if err := rows.Scan(&s.Year, &s.Month, &s.TotalBlocks, &s.TotalDuration, &s.AverageDuration); err != nil {
			return nil, fmt.Errorf("月次統計行の読み取りに失敗しました: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("月次統計の走査に失敗しました: %w", err)
	}

	return stats, nil
}

// DailyStats は日次ロールアップを日付昇順で返す。
// monthが0の場合は年全体（カレンダービュー用）。月指定の有無以外は同一クエリのため、
// 月別の結果と年全体の結果は同じ日について必ず一致する。
func (r *PostgresAnalyticsRepo) DailyStats(ctx context.Context, userID string, year, month int, now time.Time) ([]DailyStat, error) {
	query := `SELECT DATE(b.started_at)::text AS date,
	                 COUNT(b.id)::int,
	                 ARRAY_AGG(b.title),
	                 COALESCE(SUM(` + effectiveDurationExpr + `), 0)::bigint
	          FROM blocks b
	          WHERE b.user_id = $1 AND EXTRACT(YEAR FROM b.started_at) = $3`
	args := []any{userID, now, year}

	if month > 0 {
		args = append(args, month)
		query += ` AND EXTRACT(MONTH FROM b.started_at) = $4`
	}

	query += `
	          GROUP BY DATE(b.started_at)
	          ORDER BY date`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("日次統計の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var stats []DailyStat
	for rows.Next() {
		var s DailyStat
		if err := rows.Scan(&s.Date, &s.TotalBlocks, pq.Array(&s.BlockTitles), &s.TotalDuration); err != nil {
			return nil, fmt.Errorf("日次統計行の読み取りに失敗しました: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("日次統計の走査に失敗しました: %w", err)
	}

	return stats, nil
}

// TagStats はタグ別ロールアップを実効ブロック時間合計の降順で返す。
// resolvedの確定値とongoingの実行時値を1つのSUMに混ぜるため、
// 他のビューと同じ条件式を通す。格納カラムの素朴なSUMでは過少になる。
func (r *PostgresAnalyticsRepo) TagStats(ctx context.Context, userID string, now time.Time) ([]TagStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.color,
		        COUNT(b.id)::int,
		        COALESCE(SUM(`+effectiveDurationExpr+`), 0)::bigint AS total_duration,
		        COALESCE(AVG(`+effectiveDurationExpr+`), 0)::bigint
		 FROM tags t
		 LEFT JOIN block_tags bt ON bt.tag_id = t.id
		 LEFT JOIN blocks b ON b.id = bt.block_id
		 WHERE t.user_id = $1
		 GROUP BY t.id, t.name, t.color
		 ORDER BY total_duration DESC`,
		userID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("タグ別統計の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var stats []TagStat
	for rows.Next() {
		var s TagStat
		if err := rows.Scan(&s.TagID, &s.TagName, &s.TagColor, &s.TotalBlocks, &s.TotalDuration, &s.AverageDuration); err != nil {
			return nil, fmt.Errorf("タグ別統計行の読み取りに失敗しました: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タグ別統計の走査に失敗しました: %w", err)
	}

	return stats, nil
}

// ListForExport は全ブロッカーをタグ付き・created_at降順で返す。
// durationは格納値のまま返す。ongoingブロッカーの実効時間置換は意図的に行わない
// （エクスポートはスナップショットであり、他ビューとの差異は仕様）。
func (r *PostgresAnalyticsRepo) ListForExport(ctx context.Context, userID string) ([]*model.Block, error) {
	blocks, err := r.blocks.queryBlocks(ctx,
		`SELECT `+blockColumns+`
		 FROM blocks b
		 WHERE b.user_id = $1
		 ORDER BY b.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}

	if err := r.blocks.loadTags(ctx, blocks); err != nil {
		return nil, err
	}

	return blocks, nil
}

// compile-time interface check
var _ AnalyticsRepository = (*PostgresAnalyticsRepo)(nil)
