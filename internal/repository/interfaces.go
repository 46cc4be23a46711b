// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/blocklog/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのアクティブなユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでアクティブなユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザーのプロフィールを更新する。
	Update(ctx context.Context, user *model.User) error
}

// BlockFilter はブロッカー一覧取得のフィルタ条件を表す。
type BlockFilter struct {
	Status    model.BlockStatus // ゼロ値の場合はフィルタしない
	Search    string            // title/reasonに対する大文字小文字無視の部分一致
	TagIDs    []string          // いずれかのタグが付与されたブロッカーに絞る
	StartDate *time.Time        // started_at >= StartDate
	EndDate   *time.Time        // started_at <= EndDate
	Page      int
	Limit     int
}

// BlockRepository はブロッカーデータの永続化インターフェース。
// すべての操作はuserIDでスコープされ、他ユーザーの行には一切触れない。
type BlockRepository interface {
	// FindByID は指定IDのブロッカーをタグ付きで取得する。
	// 存在しない場合・他ユーザー所有の場合はどちらもnilを返す。
	FindByID(ctx context.Context, id, userID string) (*model.Block, error)

	// List はフィルタ条件に合致するブロッカーのページとフィルタ適用後の総件数を返す。
	// created_at降順で返す。各ブロッカーにはタグがロード済み。
	List(ctx context.Context, userID string, filter BlockFilter) ([]*model.Block, int, error)

	// ListOngoing はongoing状態の全ブロッカーをcreated_at降順で返す。
	ListOngoing(ctx context.Context, userID string) ([]*model.Block, error)

	// Create はブロッカーとタグ関連を同一トランザクションで作成する。
	// tagIDsのうちユーザー所有でないID・存在しないIDは黙って無視される。
	Create(ctx context.Context, block *model.Block, tagIDs []string) error

	// Update はブロッカー本体とタグ関連を同一トランザクションで更新する。
	// replaceTagsがtrueの場合は関連をtagIDsで全置換する（空なら全解除）。
	// falseの場合はタグ関連に触れない。
	Update(ctx context.Context, block *model.Block, tagIDs []string, replaceTags bool) error

	// Delete は指定IDのブロッカーを削除する。タグ関連はCASCADE削除されるが
	// タグ自体は残る。削除された場合trueを返す。
	Delete(ctx context.Context, id, userID string) (bool, error)
}

// TagRepository はタグデータの永続化インターフェース。
type TagRepository interface {
	// FindByID は指定IDのタグを取得する。
	// 存在しない場合・他ユーザー所有の場合はどちらもnilを返す。
	FindByID(ctx context.Context, id, userID string) (*model.Tag, error)

	// FindByName はユーザー内で名前が一致するタグを検索する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, userID, name string) (*model.Tag, error)

	// ListByUserID はユーザーの全タグを名前昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Tag, error)

	// Create はタグを作成する。
	Create(ctx context.Context, tag *model.Tag) error

	// Update はタグを更新する。
	Update(ctx context.Context, tag *model.Tag) error

	// Delete は指定IDのタグを削除する。ブロッカーとの関連はCASCADE削除されるが
	// ブロッカー自体は残る。削除された場合trueを返す。
	Delete(ctx context.Context, id, userID string) (bool, error)
}

// DashboardCounts はブロッカーの状態別件数。
type DashboardCounts struct {
	Total    int
	Ongoing  int
	Resolved int
}

// DurationStats は実効ブロック時間の合計と平均（ミリ秒）。
type DurationStats struct {
	TotalMs   int64
	AverageMs int64
}

// LongestBlock は実効ブロック時間が最長のブロッカー。
type LongestBlock struct {
	ID         string
	Title      string
	DurationMs int64
}

// MonthlyStat は月次ロールアップの1行。
type MonthlyStat struct {
	Year            int
	Month           int
	TotalBlocks     int
	TotalDuration   int64
	AverageDuration int64
}

// DailyStat は日次ロールアップの1行。
type DailyStat struct {
	Date          string // YYYY-MM-DD
	TotalBlocks   int
	BlockTitles   []string
	TotalDuration int64
}

// TagStat はタグ別ロールアップの1行。
type TagStat struct {
	TagID           string
	TagName         string
	TagColor        string
	TotalBlocks     int
	TotalDuration   int64
	AverageDuration int64
}

// AnalyticsRepository は集計クエリのインターフェース。
// 実効ブロック時間を参照するメソッドはすべて基準時刻nowを引数に取る。
// 呼び出し側は1リクエストにつき1回だけnowをスナップショットし、
// 同一リクエスト内の全メソッドに同じ値を渡すこと。
type AnalyticsRepository interface {
	// CountByStatus はブロッカーの総数・ongoing数・resolved数を返す。
	CountByStatus(ctx context.Context, userID string) (DashboardCounts, error)

	// DurationStats は全ブロッカーの実効ブロック時間の合計と平均を返す。
	DurationStats(ctx context.Context, userID string, now time.Time) (DurationStats, error)

	// LongestBlock は実効ブロック時間が最長のブロッカーを返す。
	// 同値の場合は降順ソートで最初に現れた行。ブロッカーが無い場合はnilを返す。
	LongestBlock(ctx context.Context, userID string, now time.Time) (*LongestBlock, error)

	// MonthlyStats は指定年の月次ロールアップを年月昇順で返す。
	MonthlyStats(ctx context.Context, userID string, year int, now time.Time) ([]MonthlyStat, error)

	// DailyStats は日次ロールアップを日付昇順で返す。
	// monthが0の場合は年全体（カレンダービュー用）、1-12の場合は当該月のみ。
	// 月指定ありの結果は、年全体の結果を同じ月で絞ったものと必ず一致する。
	DailyStats(ctx context.Context, userID string, year, month int, now time.Time) ([]DailyStat, error)

	// TagStats はタグ別ロールアップを実効ブロック時間合計の降順で返す。
	TagStats(ctx context.Context, userID string, now time.Time) ([]TagStat, error)

	// ListForExport は全ブロッカーをタグ付き・created_at降順で返す。
	// durationは格納値のまま返す（実効時間への置換は行わない）。
	ListForExport(ctx context.Context, userID string) ([]*model.Block, error)
}
