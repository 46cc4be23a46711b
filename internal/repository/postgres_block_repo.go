package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/blocklog/internal/model"
)

// PostgresBlockRepo はPostgreSQLを使用したブロッカーリポジトリ。
type PostgresBlockRepo struct {
	db *sql.DB
}

// NewPostgresBlockRepo はPostgresBlockRepoを生成する。
func NewPostgresBlockRepo(db *sql.DB) *PostgresBlockRepo {
	return &PostgresBlockRepo{db: db}
}

const blockColumns = `b.id, b.user_id, b.title, b.reason, b.status,
	        b.started_at, b.resolved_at, b.duration, b.created_at, b.updated_at`

// FindByID は指定IDのブロッカーをタグ付きで取得する。
// 存在しない場合・他ユーザー所有の場合はどちらもnilを返す。
func (r *PostgresBlockRepo) FindByID(ctx context.Context, id, userID string) (*model.Block, error) {
	block := &model.Block{}
	var resolvedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT `+blockColumns+`
		 FROM blocks b WHERE b.id = $1 AND b.user_id = $2`,
		id, userID,
	).Scan(
		&block.ID, &block.UserID, &block.Title, &block.Reason, &block.Status,
		&block.StartedAt, &resolvedAt, &block.Duration,
		&block.CreatedAt, &block.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ブロッカーの取得に失敗しました: %w", err)
	}

	if resolvedAt.Valid {
		t := resolvedAt.Time
		block.ResolvedAt = &t
	}

	if err := r.loadTags(ctx, []*model.Block{block}); err != nil {
		return nil, err
	}

	return block, nil
}

// List はフィルタ条件に合致するブロッカーのページと総件数を返す。
// created_at降順。各ブロッカーにはタグがロード済み。
func (r *PostgresBlockRepo) List(ctx context.Context, userID string, filter BlockFilter) ([]*model.Block, int, error) {
	conds := []string{"b.user_id = $1"}
	args := []any{userID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("b.status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(b.title ILIKE $%d OR b.reason ILIKE $%d)", len(args), len(args)))
	}
	if len(filter.TagIDs) > 0 {
		args = append(args, pq.Array(filter.TagIDs))
		conds = append(conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM block_tags bt WHERE bt.block_id = b.id AND bt.tag_id = ANY($%d))", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conds = append(conds, fmt.Sprintf("b.started_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conds = append(conds, fmt.Sprintf("b.started_at <= $%d", len(args)))
	}

	where := strings.Join(conds, " AND ")

	// 総件数（ページング適用前）
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM blocks b WHERE `+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ブロッカー件数の取得に失敗しました: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(
		`SELECT `+blockColumns+`
		 FROM blocks b WHERE %s
		 ORDER BY b.created_at DESC
		 LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	blocks, err := r.queryBlocks(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}

	if err := r.loadTags(ctx, blocks); err != nil {
		return nil, 0, err
	}

	return blocks, total, nil
}

// ListOngoing はongoing状態の全ブロッカーをcreated_at降順で返す。
func (r *PostgresBlockRepo) ListOngoing(ctx context.Context, userID string) ([]*model.Block, error) {
	blocks, err := r.queryBlocks(ctx,
		`SELECT `+blockColumns+`
		 FROM blocks b
		 WHERE b.user_id = $1 AND b.status = 'ongoing'
		 ORDER BY b.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}

	if err := r.loadTags(ctx, blocks); err != nil {
		return nil, err
	}

	return blocks, nil
}

// Create はブロッカーとタグ関連を同一トランザクションで作成する。
// tagIDsのうちユーザー所有でないID・存在しないIDは黙って無視される。
func (r *PostgresBlockRepo) Create(ctx context.Context, block *model.Block, tagIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO blocks (id, user_id, title, reason, status, started_at, resolved_at, duration, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		block.ID, block.UserID, block.Title, block.Reason, block.Status,
		block.StartedAt, nullTime(block.ResolvedAt), block.Duration,
		block.CreatedAt, block.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ブロッカーの作成に失敗しました: %w", err)
	}

	if len(tagIDs) > 0 {
		if err := insertTagAssociations(ctx, tx, block.ID, block.UserID, tagIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// Update はブロッカー本体とタグ関連を同一トランザクションで更新する。
// replaceTagsがtrueの場合は関連をtagIDsで全置換する。
func (r *PostgresBlockRepo) Update(ctx context.Context, block *model.Block, tagIDs []string, replaceTags bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE blocks SET
		    title = $3, reason = $4, status = $5,
		    resolved_at = $6, duration = $7, updated_at = $8
		 WHERE id = $1 AND user_id = $2`,
		block.ID, block.UserID, block.Title, block.Reason, block.Status,
		nullTime(block.ResolvedAt), block.Duration, block.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ブロッカーの更新に失敗しました: %w", err)
	}

	if replaceTags {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM block_tags WHERE block_id = $1`, block.ID,
		); err != nil {
			return fmt.Errorf("タグ関連の解除に失敗しました: %w", err)
		}
		if len(tagIDs) > 0 {
			if err := insertTagAssociations(ctx, tx, block.ID, block.UserID, tagIDs); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのブロッカーを削除する。削除された場合trueを返す。
func (r *PostgresBlockRepo) Delete(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM blocks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("ブロッカーの削除に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}
	return affected > 0, nil
}

// queryBlocks は複数行のブロッカークエリを実行して走査する。
func (r *PostgresBlockRepo) queryBlocks(ctx context.Context, query string, args ...any) ([]*model.Block, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ブロッカー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var blocks []*model.Block
	for rows.Next() {
		block := &model.Block{}
		var resolvedAt sql.NullTime

		if err := rows.Scan(
			&block.ID, &block.UserID, &block.Title, &block.Reason, &block.Status,
			&block.StartedAt, &resolvedAt, &block.Duration,
			&block.CreatedAt, &block.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ブロッカー行の読み取りに失敗しました: %w", err)
		}

		if resolvedAt.Valid {
			t := resolvedAt.Time
			block.ResolvedAt = &t
		}

		blocks = append(blocks, block)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ブロッカー一覧の走査に失敗しました: %w", err)
	}

	return blocks, nil
}

// loadTags は複数ブロッカーのタグを一括ロードして各ブロッカーに割り当てる。
func (r *PostgresBlockRepo) loadTags(ctx context.Context, blocks []*model.Block) error {
	if len(blocks) == 0 {
		return nil
	}

	ids := make([]string, len(blocks))
	byID := make(map[string]*model.Block, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
		byID[b.ID] = b
		b.Tags = []model.Tag{}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT bt.block_id, t.id, t.user_id, t.name, t.description, t.color, t.created_at, t.updated_at
		 FROM block_tags bt
		 INNER JOIN tags t ON t.id = bt.tag_id
		 WHERE bt.block_id = ANY($1)
		 ORDER BY t.name ASC`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("タグ関連の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var blockID string
		var tag model.Tag
		var description sql.NullString

		if err := rows.Scan(
			&blockID, &tag.ID, &tag.UserID, &tag.Name,
			&description, &tag.Color, &tag.CreatedAt, &tag.UpdatedAt,
		); err != nil {
			return fmt.Errorf("タグ行の読み取りに失敗しました: %w", err)
		}
		tag.Description = nullStringValue(description)

		if b, ok := byID[blockID]; ok {
			b.Tags = append(b.Tags, tag)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("タグ関連の走査に失敗しました: %w", err)
	}

	return nil
}

// insertTagAssociations はユーザー所有のタグに絞ってblock_tags関連を挿入する。
// 所有外・存在しないtagIDはWHERE句で除外され、エラーにはならない。
func insertTagAssociations(ctx context.Context, tx *sql.Tx, blockID, userID string, tagIDs []string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO block_tags (block_id, tag_id)
		 SELECT $1, t.id FROM tags t
		 WHERE t.id = ANY($2) AND t.user_id = $3
		 ON CONFLICT DO NOTHING`,
		blockID, pq.Array(tagIDs), userID,
	)
	if err != nil {
		return fmt.Errorf("タグ関連の作成に失敗しました: %w", err)
	}
	return nil
}

// nullTime は*time.Timeをsql.NullTimeに変換する。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ BlockRepository = (*PostgresBlockRepo)(nil)
