// Package block はブロッカーのライフサイクル管理のドメインロジックを提供する。
package block

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/blocklog/internal/metrics"
	"github.com/hitoshi/blocklog/internal/model"
	"github.com/hitoshi/blocklog/internal/repository"
	"github.com/hitoshi/blocklog/internal/security"
)

// Service はブロッカーの作成・更新・解決・削除のサービス層。
// 読み取り系の戻り値では、ongoingブロッカーのDurationを基準時刻における
// 実効ブロック時間に置き換えて返す。
type Service struct {
	blocks    repository.BlockRepository
	sanitizer *security.ContentSanitizer
	collector metrics.MetricsCollector

	// テストで時刻を固定するためのフック
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	blocks repository.BlockRepository,
	sanitizer *security.ContentSanitizer,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		blocks:    blocks,
		sanitizer: sanitizer,
		collector: collector,
		now:       time.Now,
	}
}

// CreateInput はブロッカー作成の入力。
type CreateInput struct {
	Title     string
	Reason    string
	StartedAt *time.Time
	TagIDs    []string
}

// Create はongoing状態の新規ブロッカーを作成する。
// StartedAtが未指定の場合は現在時刻を使用する。未来の時刻は拒否する。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Block, error) {
	now := s.now().UTC()

	startedAt := now
	if input.StartedAt != nil {
		startedAt = input.StartedAt.UTC()
		if startedAt.After(now) {
			return nil, model.NewInvalidStartedAtError()
		}
	}

	block := &model.Block{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     s.sanitizer.Clean(input.Title),
		Reason:    s.sanitizer.Clean(input.Reason),
		Status:    model.BlockStatusOngoing,
		StartedAt: startedAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.blocks.Create(ctx, block, input.TagIDs); err != nil {
		return nil, err
	}

	s.collector.RecordBlockCreated()

	created, err := s.blocks.FindByID(ctx, block.ID, userID)
	if err != nil {
		return nil, err
	}
	s.projectDuration(created, now)
	return created, nil
}

// Get は指定IDのブロッカーを実効ブロック時間付きで返す。
// 存在しない場合と他ユーザー所有の場合で同一のエラーを返す。
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Block, error) {
	block, err := s.blocks.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, model.NewBlockNotFoundError()
	}
	s.projectDuration(block, s.now().UTC())
	return block, nil
}

// Pagination はページング済み一覧のメタ情報。
type Pagination struct {
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// List はフィルタ条件に合致するブロッカーのページを返す。
// 1ページ内の全ブロッカーは同一の基準時刻で実効ブロック時間を計算する。
func (s *Service) List(ctx context.Context, userID string, filter repository.BlockFilter) ([]*model.Block, Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}

	blocks, total, err := s.blocks.List(ctx, userID, filter)
	if err != nil {
		return nil, Pagination{}, err
	}

	now := s.now().UTC()
	for _, b := range blocks {
		s.projectDuration(b, now)
	}

	page := Pagination{
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}
	return blocks, page, nil
}

// ListOngoing はongoing状態の全ブロッカーを実効ブロック時間付きで返す。
func (s *Service) ListOngoing(ctx context.Context, userID string) ([]*model.Block, error) {
	blocks, err := s.blocks.ListOngoing(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	for _, b := range blocks {
		s.projectDuration(b, now)
	}
	return blocks, nil
}

// UpdateInput はブロッカー更新の入力。nilのフィールドは変更しない。
// ResolvedAtはresolvedへの遷移時のみ参照され、明示的な解決時刻として使用される。
type UpdateInput struct {
	Title      *string
	Reason     *string
	Status     *model.BlockStatus
	ResolvedAt *time.Time
	TagIDs     *[]string
}

// Update はブロッカーを部分更新する。
// resolvedへの遷移時はResolvedAtとDurationを確定し、
// ongoingへの遷移時はそれらをクリアして実効時間の再計算を有効化する。
// 既にresolvedのブロッカーにresolvedを指定しても確定値は変わらない。
func (s *Service) Update(ctx context.Context, userID, id string, input UpdateInput) (*model.Block, error) {
	block, err := s.blocks.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, model.NewBlockNotFoundError()
	}

	now := s.now().UTC()

	if input.Title != nil {
		block.Title = s.sanitizer.Clean(*input.Title)
	}
	if input.Reason != nil {
		block.Reason = s.sanitizer.Clean(*input.Reason)
	}
	if input.Status != nil {
		switch *input.Status {
		case model.BlockStatusResolved:
			if block.Status != model.BlockStatusResolved {
				resolvedAt, err := resolveTimestamp(block, input.ResolvedAt, now)
				if err != nil {
					return nil, err
				}
				block.Resolve(resolvedAt)
				s.collector.RecordBlockResolved()
			}
		case model.BlockStatusOngoing:
			block.Reopen()
		}
	}
	block.UpdatedAt = now

	var tagIDs []string
	replaceTags := false
	if input.TagIDs != nil {
		tagIDs = *input.TagIDs
		replaceTags = true
	}

	if err := s.blocks.Update(ctx, block, tagIDs, replaceTags); err != nil {
		return nil, err
	}

	updated, err := s.blocks.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	s.projectDuration(updated, now)
	return updated, nil
}

// Resolve はongoingブロッカーをresolved状態に遷移させ、ブロック時間を確定する。
// resolvedAtが指定された場合はその時刻で、未指定の場合は現在時刻で確定する。
// 既にresolvedの場合はBLOCK_ALREADY_RESOLVEDエラーを返す。
func (s *Service) Resolve(ctx context.Context, userID, id string, resolvedAt *time.Time) (*model.Block, error) {
	block, err := s.blocks.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, model.NewBlockNotFoundError()
	}
	if block.Status == model.BlockStatusResolved {
		return nil, model.NewBlockAlreadyResolvedError()
	}

	now := s.now().UTC()
	at, err := resolveTimestamp(block, resolvedAt, now)
	if err != nil {
		return nil, err
	}
	block.Resolve(at)
	block.UpdatedAt = now

	if err := s.blocks.Update(ctx, block, nil, false); err != nil {
		return nil, err
	}

	s.collector.RecordBlockResolved()
	return block, nil
}

// Remove はブロッカーを削除する。タグ関連は外部キーで連鎖削除される。
func (s *Service) Remove(ctx context.Context, userID, id string) error {
	deleted, err := s.blocks.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewBlockNotFoundError()
	}
	return nil
}

// resolveTimestamp は解決時刻を決定する。
// 明示的な指定があればstartedAt以降であることを検証し、なければfallbackを使用する。
func resolveTimestamp(block *model.Block, explicit *time.Time, fallback time.Time) (time.Time, error) {
	if explicit == nil {
		return fallback, nil
	}
	at := explicit.UTC()
	if at.Before(block.StartedAt) {
		return time.Time{}, model.NewInvalidResolvedAtError()
	}
	return at, nil
}

// projectDuration はongoingブロッカーのDurationを基準時刻の実効値に置き換える。
func (s *Service) projectDuration(block *model.Block, now time.Time) {
	if block == nil {
		return
	}
	block.Duration = block.EffectiveDuration(now)
}
