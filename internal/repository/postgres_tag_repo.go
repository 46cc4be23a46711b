package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/blocklog/internal/model"
)

// PostgresTagRepo はPostgreSQLを使用したタグリポジトリ。
type PostgresTagRepo struct {
	db *sql.DB
}

// NewPostgresTagRepo はPostgresTagRepoを生成する。
func NewPostgresTagRepo(db *sql.DB) *PostgresTagRepo {
	return &PostgresTagRepo{db: db}
}

// FindByID は指定IDのタグを取得する。
// 存在しない場合・他ユーザー所有の場合はどちらもnilを返す。
func (r *PostgresTagRepo) FindByID(ctx context.Context, id, userID string) (*model.Tag, error) {
	tag := &model.Tag{}
	var description sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, color, created_at, updated_at
		 FROM tags WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(
		&tag.ID, &tag.UserID, &tag.Name, &description, &tag.Color,
		&tag.CreatedAt, &tag.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タグの取得に失敗しました: %w", err)
	}

	tag.Description = nullStringValue(description)
	return tag, nil
}

// FindByName はユーザー内で名前が一致するタグを検索する。見つからない場合はnilを返す。
func (r *PostgresTagRepo) FindByName(ctx context.Context, userID, name string) (*model.Tag, error) {
	tag := &model.Tag{}
	var description sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, color, created_at, updated_at
		 FROM tags WHERE user_id = $1 AND name = $2`,
		userID, name,
	).Scan(
		&tag.ID, &tag.UserID, &tag.Name, &description, &tag.Color,
		&tag.CreatedAt, &tag.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タグ名によるタグの検索に失敗しました: %w", err)
	}

	tag.Description = nullStringValue(description)
	return tag, nil
}

// ListByUserID はユーザーの全タグを名前昇順で返す。
func (r *PostgresTagRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, color, created_at, updated_at
		 FROM tags WHERE user_id = $1
		 ORDER BY name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("タグ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var tags []*model.Tag
	for rows.Next() {
		tag := &model.Tag{}
		var description sql.NullString

		if err := rows.Scan(
			&tag.ID, &tag.UserID, &tag.Name, &description, &tag.Color,
			&tag.CreatedAt, &tag.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("タグ行の読み取りに失敗しました: %w", err)
		}

		tag.Description = nullStringValue(description)
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タグ一覧の走査に失敗しました: %w", err)
	}

	return tags, nil
}

// Create はタグを作成する。
func (r *PostgresTagRepo) Create(ctx context.Context, tag *model.Tag) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tags (id, user_id, name, description, color, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tag.ID, tag.UserID, tag.Name, nullString(tag.Description), tag.Color,
		tag.CreatedAt, tag.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("タグの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はタグを更新する。
func (r *PostgresTagRepo) Update(ctx context.Context, tag *model.Tag) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tags SET
		    name = $3, description = $4, color = $5, updated_at = $6
		 WHERE id = $1 AND user_id = $2`,
		tag.ID, tag.UserID, tag.Name, nullString(tag.Description), tag.Color,
		tag.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("タグの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのタグを削除する。ブロッカーとの関連はCASCADE削除される。
// 削除された場合trueを返す。
func (r *PostgresTagRepo) Delete(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tags WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("タグの削除に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}
	return affected > 0, nil
}

// compile-time interface check
var _ TagRepository = (*PostgresTagRepo)(nil)
