// Package model はドメインモデルを定義する。
package model

import "time"

// BlockStatus はブロッカーのライフサイクル状態を表す。
type BlockStatus string

const (
	// BlockStatusOngoing は未解決（進行中）のブロッカー状態。
	BlockStatusOngoing BlockStatus = "ongoing"
	// BlockStatusResolved は解決済みのブロッカー状態。
	BlockStatusResolved BlockStatus = "resolved"
)

// IsValid はBlockStatusが定義済みの値かどうかを返す。
func (s BlockStatus) IsValid() bool {
	return s == BlockStatusOngoing || s == BlockStatusResolved
}

// Block は作業ブロッカー1件を表す。
// Durationカラムはresolved状態でのみ確定値（ミリ秒）を保持する。
// ongoing状態の格納値は意味を持たず、読み取り側は必ずEffectiveDurationを使う。
type Block struct {
	ID         string
	UserID     string
	Title      string
	Reason     string
	Status     BlockStatus
	StartedAt  time.Time
	ResolvedAt *time.Time
	Duration   int64
	Tags       []Tag
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EffectiveDuration は基準時刻nowにおけるブロッカーの実効ブロック時間（ミリ秒）を返す。
// resolved状態では確定済みのDuration（resolvedAt - startedAt）をそのまま返し、
// ongoing状態では now - startedAt を0以上にクランプして返す。
// 複数行を集計する呼び出し側は、1リクエストにつき1回だけnowをスナップショットすること。
func (b *Block) EffectiveDuration(now time.Time) int64 {
	if b.Status == BlockStatusResolved {
		return b.Duration
	}
	d := now.Sub(b.StartedAt).Milliseconds()
	if d < 0 {
		return 0
	}
	return d
}

// Resolve はブロッカーをresolved状態に遷移させ、Durationを確定する。
// resolvedAtより前にstartedAtがある前提で、負値はクランプしない
// （格納時はstarted_at <= resolved_atがアプリ層で保証される）。
func (b *Block) Resolve(resolvedAt time.Time) {
	b.Status = BlockStatusResolved
	b.ResolvedAt = &resolvedAt
	b.Duration = resolvedAt.Sub(b.StartedAt).Milliseconds()
}

// Reopen はブロッカーをongoing状態に戻す。
// resolvedAtをクリアし、Durationを0にリセットして実効時間の再計算を有効化する。
func (b *Block) Reopen() {
	b.Status = BlockStatusOngoing
	b.ResolvedAt = nil
	b.Duration = 0
}

// DefaultTagColor はタグのデフォルト色。
const DefaultTagColor = "#3B82F6"

// Tag はユーザー定義のラベルを表す。nameはユーザーごとに一意。
type Tag struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Color       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User はサービス利用ユーザーを表す。
// 全ブロッカーとタグのパーティションキーとなる。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
