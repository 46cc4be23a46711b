// Package tag はユーザー定義タグの管理のドメインロジックを提供する。
package tag

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/blocklog/internal/model"
	"github.com/hitoshi/blocklog/internal/repository"
	"github.com/hitoshi/blocklog/internal/security"
)

// hexColorPattern はタグの色として受け付ける#RRGGBB形式。
var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Service はタグのCRUDとタグ別統計のサービス層。
// タグ名はユーザーごとに一意。
type Service struct {
	tags      repository.TagRepository
	analytics repository.AnalyticsRepository
	sanitizer *security.ContentSanitizer

	// テストで時刻を固定するためのフック
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(tags repository.TagRepository, analytics repository.AnalyticsRepository, sanitizer *security.ContentSanitizer) *Service {
	return &Service{
		tags:      tags,
		analytics: analytics,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// CreateInput はタグ作成の入力。
type CreateInput struct {
	Name        string
	Description string
	Color       string
}

// Create はタグを作成する。色が未指定の場合はデフォルト色を使用し、
// 指定された場合は#RRGGBB形式であることを検証する。
// 同名タグが既に存在する場合はDUPLICATE_TAG_NAMEエラーを返す。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Tag, error) {
	name := s.sanitizer.Clean(input.Name)

	existing, err := s.tags.FindByName(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.NewDuplicateTagNameError(name)
	}

	color := input.Color
	if color == "" {
		color = model.DefaultTagColor
	}
	if !hexColorPattern.MatchString(color) {
		return nil, model.NewInvalidTagColorError()
	}

	now := s.now().UTC()
	tag := &model.Tag{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: s.sanitizer.Clean(input.Description),
		Color:       color,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// Get は指定IDのタグを返す。
// 存在しない場合と他ユーザー所有の場合で同一のエラーを返す。
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Tag, error) {
	tag, err := s.tags.FindByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, model.NewTagNotFoundError()
	}
	return tag, nil
}

// List はユーザーの全タグを名前昇順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Tag, error) {
	return s.tags.ListByUserID(ctx, userID)
}

// UpdateInput はタグ更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	Name        *string
	Description *string
	Color       *string
}

// Update はタグを部分更新する。
// 変更後の名前が他のタグと重複する場合はDUPLICATE_TAG_NAMEエラーを返す。
func (s *Service) Update(ctx context.Context, userID, id string, input UpdateInput) (*model.Tag, error) {
	tag, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := s.sanitizer.Clean(*input.Name)
		if name != tag.Name {
			existing, err := s.tags.FindByName(ctx, userID, name)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, model.NewDuplicateTagNameError(name)
			}
		}
		tag.Name = name
	}
	if input.Description != nil {
		tag.Description = s.sanitizer.Clean(*input.Description)
	}
	if input.Color != nil {
		if !hexColorPattern.MatchString(*input.Color) {
			return nil, model.NewInvalidTagColorError()
		}
		tag.Color = *input.Color
	}
	tag.UpdatedAt = s.now().UTC()

	if err := s.tags.Update(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// Remove はタグを削除する。ブロッカーとの関連は外部キーで連鎖削除され、
// ブロッカー本体は削除されない。
func (s *Service) Remove(ctx context.Context, userID, id string) error {
	deleted, err := s.tags.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewTagNotFoundError()
	}
	return nil
}

// Stats はタグ別の集計を実効ブロック時間合計の降順で返す。
// ブロッカーが紐付かないタグもゼロ値で含まれる。
func (s *Service) Stats(ctx context.Context, userID string) ([]repository.TagStat, error) {
	return s.analytics.TagStats(ctx, userID, s.now().UTC())
}
